package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	Port         int           `split_words:"true" default:"8080"`
	ReadTimeout  time.Duration `split_words:"true" default:"10s"`
	WriteTimeout time.Duration `split_words:"true" default:"120s"`
	IdleTimeout  time.Duration `split_words:"true" default:"60s"`
}

// Server wraps the HTTP listener with lifecycle management.
type Server struct {
	httpServer *http.Server
}

func New(cfg Config, handler *Handler) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handler.Root)
	mux.HandleFunc("POST /ai_stock_analysis", handler.AIStockAnalysis)
	mux.HandleFunc("GET /get_stock_analysis", handler.StockAnalysis)
	mux.HandleFunc("GET /get_stock_fundamentals", handler.StockFundamentals)

	port := cfg.Port
	if port <= 0 {
		port = 8080
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}
}

// Start blocks until the server stops or fails.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("http server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains active connections within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("http server stopping")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}
