package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	contractx "github.com/stocklens/stocklens/agent/contract"
	statex "github.com/stocklens/stocklens/agent/state"
	"github.com/stocklens/stocklens/pkg/yahoo"
)

type fakeAnalyst struct {
	result contractx.Analysis
	err    error
	query  string
}

func (f *fakeAnalyst) Run(ctx context.Context, query string) (contractx.Analysis, error) {
	f.query = query
	return f.result, f.err
}

type fakeMarket struct {
	history      yahoo.PriceHistory
	historyErr   error
	fundamentals yahoo.Fundamentals
	fundErr      error
}

func (f *fakeMarket) ResolveTicker(ctx context.Context, companyName string) ([]string, error) {
	return nil, errors.New("not wired in this test")
}

func (f *fakeMarket) PriceHistory(ctx context.Context, symbol, startDate, endDate string) (yahoo.PriceHistory, error) {
	return f.history, f.historyErr
}

func (f *fakeMarket) Fundamentals(ctx context.Context, symbol string) (yahoo.Fundamentals, error) {
	return f.fundamentals, f.fundErr
}

func (f *fakeMarket) Recommendations(ctx context.Context, symbol string) ([]yahoo.Recommendation, error) {
	return nil, errors.New("not wired in this test")
}

func (f *fakeMarket) News(ctx context.Context, symbol string, daysBack int) ([]yahoo.NewsItem, error) {
	return nil, errors.New("not wired in this test")
}

type fakeTrends struct {
	insights string
	err      error
}

func (f *fakeTrends) AnalyzeTrends(ctx context.Context, history yahoo.PriceHistory) (string, error) {
	return f.insights, f.err
}

type recordingHistory struct {
	mu   sync.Mutex
	recs []*statex.AnalysisRecord
	done chan struct{}
}

func newRecordingHistory() *recordingHistory {
	return &recordingHistory{done: make(chan struct{}, 1)}
}

func (r *recordingHistory) Record(ctx context.Context, rec *statex.AnalysisRecord) error {
	r.mu.Lock()
	r.recs = append(r.recs, rec)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func (r *recordingHistory) wait(t *testing.T) *statex.AnalysisRecord {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the run to be recorded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recs[len(r.recs)-1]
}

func newTestHandler(t *testing.T, analyst *fakeAnalyst, market *fakeMarket, trends *fakeTrends, history statex.History) *Handler {
	t.Helper()
	handler, err := NewHandler(analyst, market, trends, history)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	return handler
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestAIStockAnalysisSuccess(t *testing.T) {
	t.Parallel()

	analyst := &fakeAnalyst{result: contractx.Analysis{
		Symbols:   []string{"MSFT"},
		AISummary: "Microsoft looks healthy.",
	}}
	history := newRecordingHistory()
	handler := newTestHandler(t, analyst, &fakeMarket{}, &fakeTrends{}, history)

	req := httptest.NewRequest(http.MethodPost, "/ai_stock_analysis",
		strings.NewReader(`{"query":"how is microsoft doing"}`))
	rec := httptest.NewRecorder()
	handler.AIStockAnalysis(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["ai_summary"] != "Microsoft looks healthy." {
		t.Fatalf("unexpected body: %v", body)
	}
	if analyst.query != "how is microsoft doing" {
		t.Fatalf("query passed to analyst = %q", analyst.query)
	}

	stored := history.wait(t)
	if stored.Query != "how is microsoft doing" || stored.Error != "" || len(stored.Result) == 0 {
		t.Fatalf("unexpected record: %+v", stored)
	}
}

func TestAIStockAnalysisRunFailureKeeps200(t *testing.T) {
	t.Parallel()

	analyst := &fakeAnalyst{err: errors.New("model unavailable")}
	history := newRecordingHistory()
	handler := newTestHandler(t, analyst, &fakeMarket{}, &fakeTrends{}, history)

	req := httptest.NewRequest(http.MethodPost, "/ai_stock_analysis",
		strings.NewReader(`{"query":"whats up with tesla"}`))
	rec := httptest.NewRecorder()
	handler.AIStockAnalysis(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even on run failure", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "model unavailable" {
		t.Fatalf("unexpected body: %v", body)
	}

	stored := history.wait(t)
	if stored.Error != "model unavailable" || len(stored.Result) != 0 {
		t.Fatalf("unexpected record: %+v", stored)
	}
}

func TestAIStockAnalysisBadRequests(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &fakeAnalyst{}, &fakeMarket{}, &fakeTrends{}, nil)

	for name, payload := range map[string]string{
		"invalid json": `{"query":`,
		"empty query":  `{"query":"  "}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/ai_stock_analysis", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		handler.AIStockAnalysis(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, rec.Code)
		}
		if body := decodeBody(t, rec); body["error"] == "" {
			t.Errorf("%s: missing error message: %v", name, body)
		}
	}
}

func TestStockAnalysis(t *testing.T) {
	t.Parallel()

	market := &fakeMarket{history: yahoo.PriceHistory{
		"2026-08-28": {Open: 100, High: 102, Low: 99, Close: 101, Volume: 5000},
	}}
	trends := &fakeTrends{insights: "Mild upward drift."}
	handler := newTestHandler(t, &fakeAnalyst{}, market, trends, nil)

	req := httptest.NewRequest(http.MethodGet, "/get_stock_analysis?symbol=MSFT", nil)
	rec := httptest.NewRecorder()
	handler.StockAnalysis(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["symbol"] != "MSFT" || body["ai_insights"] != "Mild upward drift." {
		t.Fatalf("unexpected body: %v", body)
	}
	if body["start_date"] != "auto" || body["end_date"] != "auto" {
		t.Fatalf("expected auto window markers, got %v", body)
	}
}

func TestStockAnalysisTrendFailureStillServesData(t *testing.T) {
	t.Parallel()

	market := &fakeMarket{history: yahoo.PriceHistory{"2026-08-28": {Close: 101}}}
	trends := &fakeTrends{err: errors.New("model unavailable")}
	handler := newTestHandler(t, &fakeAnalyst{}, market, trends, nil)

	req := httptest.NewRequest(http.MethodGet, "/get_stock_analysis?symbol=MSFT", nil)
	rec := httptest.NewRecorder()
	handler.StockAnalysis(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["ai_insights"] != "" {
		t.Fatalf("expected empty insights, got %v", body["ai_insights"])
	}
	if body["stock_data"] == nil {
		t.Fatal("stock_data missing from response")
	}
}

func TestStockAnalysisMissingSymbol(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &fakeAnalyst{}, &fakeMarket{}, &fakeTrends{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/get_stock_analysis", nil)
	rec := httptest.NewRecorder()
	handler.StockAnalysis(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStockAnalysisNoData(t *testing.T) {
	t.Parallel()

	market := &fakeMarket{historyErr: yahoo.ErrNoData}
	handler := newTestHandler(t, &fakeAnalyst{}, market, &fakeTrends{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/get_stock_analysis?symbol=NOPE", nil)
	rec := httptest.NewRecorder()
	handler.StockAnalysis(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestStockAnalysisUpstreamFailure(t *testing.T) {
	t.Parallel()

	market := &fakeMarket{historyErr: errors.New("connection reset")}
	handler := newTestHandler(t, &fakeAnalyst{}, market, &fakeTrends{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/get_stock_analysis?symbol=MSFT", nil)
	rec := httptest.NewRecorder()
	handler.StockAnalysis(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestStockFundamentals(t *testing.T) {
	t.Parallel()

	marketCap := 3.1e12
	market := &fakeMarket{fundamentals: yahoo.Fundamentals{MarketCap: &marketCap}}
	handler := newTestHandler(t, &fakeAnalyst{}, market, &fakeTrends{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/get_stock_fundamentals?symbol=MSFT", nil)
	rec := httptest.NewRecorder()
	handler.StockFundamentals(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	fundamentals, ok := body["stock_fundamentals"].(map[string]any)
	if !ok {
		t.Fatalf("missing stock_fundamentals: %v", body)
	}
	if fundamentals["market_cap"] != 3.1e12 {
		t.Fatalf("unexpected market cap: %v", fundamentals["market_cap"])
	}
}

func TestStockFundamentalsNotFound(t *testing.T) {
	t.Parallel()

	market := &fakeMarket{fundErr: yahoo.ErrNoMatch}
	handler := newTestHandler(t, &fakeAnalyst{}, market, &fakeTrends{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/get_stock_fundamentals?symbol=ZZZZ", nil)
	rec := httptest.NewRecorder()
	handler.StockFundamentals(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestRootRoute(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &fakeAnalyst{}, &fakeMarket{}, &fakeTrends{}, nil)
	server := New(Config{Port: 8080}, handler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := decodeBody(t, rec); body["message"] == "" {
		t.Fatalf("unexpected body: %v", body)
	}
}
