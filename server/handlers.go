package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/stocklens/stocklens/agent/contract"
	statex "github.com/stocklens/stocklens/agent/state"
	"github.com/stocklens/stocklens/pkg/yahoo"
)

// Analyst runs one natural-language query end to end.
type Analyst interface {
	Run(ctx context.Context, query string) (contractx.Analysis, error)
}

// Handler holds the collaborators behind the HTTP routes.
type Handler struct {
	analyst Analyst
	market  contractx.MarketData
	trends  contractx.TrendAnalyzer
	history statex.History
}

func NewHandler(analyst Analyst, market contractx.MarketData, trends contractx.TrendAnalyzer, history statex.History) (*Handler, error) {
	if analyst == nil {
		return nil, errors.New("analyst is required")
	}
	if market == nil {
		return nil, errors.New("market data collaborator is required")
	}
	if trends == nil {
		return nil, errors.New("trend analyzer is required")
	}
	if history == nil {
		history = statex.NoopHistory{}
	}
	return &Handler{analyst: analyst, market: market, trends: trends, history: history}, nil
}

type queryRequest struct {
	Query string `json:"query"`
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the AI Stock Analysis API"})
}

// AIStockAnalysis runs the tool-calling loop. The body is always
// structured: the finalized analysis on success, {"error": msg} on
// failure.
func (h *Handler) AIStockAnalysis(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	log.Info().Str("query", query).Msg("ai stock analysis requested")
	started := time.Now()
	result, err := h.analyst.Run(r.Context(), query)
	h.recordRun(query, result, err, time.Since(started))

	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("ai stock analysis failed")
		writeError(w, http.StatusOK, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// StockAnalysis fetches price history for a symbol directly and adds
// trend commentary.
func (h *Handler) StockAnalysis(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	startDate := r.URL.Query().Get("start_date")
	endDate := r.URL.Query().Get("end_date")

	history, err := h.market.PriceHistory(r.Context(), symbol, startDate, endDate)
	if err != nil {
		writeError(w, lookupStatus(err), err.Error())
		return
	}

	insights, err := h.trends.AnalyzeTrends(r.Context(), history)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("trend analysis failed")
		insights = ""
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":      symbol,
		"start_date":  orDefault(startDate, "auto"),
		"end_date":    orDefault(endDate, "auto"),
		"stock_data":  history,
		"ai_insights": insights,
	})
}

// StockFundamentals fetches valuation figures for a symbol directly.
func (h *Handler) StockFundamentals(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	fundamentals, err := h.market.Fundamentals(r.Context(), symbol)
	if err != nil {
		writeError(w, lookupStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":             symbol,
		"stock_fundamentals": fundamentals,
	})
}

// recordRun persists the outcome without blocking the response.
func (h *Handler) recordRun(query string, result contractx.Analysis, runErr error, elapsed time.Duration) {
	rec := &statex.AnalysisRecord{
		Query:      query,
		DurationMS: elapsed.Milliseconds(),
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	} else if payload, err := json.Marshal(result); err == nil {
		rec.Result = payload
	}

	go func() {
		if err := h.history.Record(context.Background(), rec); err != nil {
			log.Warn().Err(err).Msg("failed to record analysis run")
		}
	}()
}

func lookupStatus(err error) int {
	if errors.Is(err, yahoo.ErrNoMatch) || errors.Is(err, yahoo.ErrNoData) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("failed to encode response body")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
