package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

var ErrNilRecord = errors.New("analysis record is nil")

// AnalysisRecord is one completed orchestration run.
type AnalysisRecord struct {
	bun.BaseModel `bun:"table:analysis_runs,alias:ar"`

	ID         int64           `bun:"id,pk,autoincrement" json:"id"`
	Query      string          `bun:"query,notnull" json:"query"`
	Result     json.RawMessage `bun:"result,type:jsonb" json:"result,omitempty"`
	Error      string          `bun:"error" json:"error,omitempty"`
	DurationMS int64           `bun:"duration_ms" json:"duration_ms"`
	CreatedAt  time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// History records completed runs. Implementations must be safe for
// concurrent use.
type History interface {
	Record(ctx context.Context, rec *AnalysisRecord) error
}

type Config struct {
	DSN     string        `split_words:"true"`
	Timeout time.Duration `split_words:"true" default:"5s"`
}

// BunHistory persists analysis runs in Postgres.
type BunHistory struct {
	db      *bun.DB
	timeout time.Duration
}

var _ History = (*BunHistory)(nil)

func NewBunHistory(cfg Config) (*BunHistory, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	return &BunHistory{db: db, timeout: timeout}, nil
}

// Init creates the analysis_runs table when it does not exist yet.
func (h *BunHistory) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	_, err := h.db.NewCreateTable().
		Model((*AnalysisRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (h *BunHistory) Record(ctx context.Context, rec *AnalysisRecord) error {
	if rec == nil {
		return ErrNilRecord
	}
	if strings.TrimSpace(rec.Query) == "" {
		return errors.New("analysis record query is empty")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	_, err := h.db.NewInsert().Model(rec).Exec(ctx)
	return err
}

func (h *BunHistory) Close() error {
	return h.db.Close()
}

// NoopHistory is used when no store is configured.
type NoopHistory struct{}

var _ History = NoopHistory{}

func (NoopHistory) Record(context.Context, *AnalysisRecord) error {
	return nil
}
