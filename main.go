package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	analystx "github.com/stocklens/stocklens/agent/analyst"
	insightx "github.com/stocklens/stocklens/agent/insight"
	llmx "github.com/stocklens/stocklens/agent/llm"
	statex "github.com/stocklens/stocklens/agent/state"
	configx "github.com/stocklens/stocklens/pkg/config"
	logx "github.com/stocklens/stocklens/pkg/logger"
	openaixx "github.com/stocklens/stocklens/pkg/openaix"
	yahoox "github.com/stocklens/stocklens/pkg/yahoo"
	serverx "github.com/stocklens/stocklens/server"
)

type AppConfig struct {
	MaxModelTurns int  `split_words:"true" default:"8"`
	KeepRawNews   bool `split_words:"true" default:"false"`
}

func main() {
	logCfg := configx.MustNew[logx.Config]("LOG")
	logx.Init(*logCfg)

	appCfg := configx.MustNew[AppConfig]("APP")

	openaiCfg := configx.MustNew[openaixx.Config]("OPENAI")
	sdk := openaixx.NewClient(*openaiCfg)
	if sdk == nil {
		log.Fatal().Msg("openai api key is not configured")
	}
	chatModel, err := llmx.NewClient(sdk, *openaiCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build chat model")
	}

	yahooCfg := configx.MustNew[yahoox.Config]("YAHOO")
	market := yahoox.MustNew(*yahooCfg)

	insights, err := insightx.New(chatModel)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build insight analyzers")
	}

	opts := []analystx.Option{analystx.WithMaxTurns(appCfg.MaxModelTurns)}
	if appCfg.KeepRawNews {
		opts = append(opts, analystx.WithRawNews())
	}
	analyst, err := analystx.New(chatModel, market, insights, insights, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build analyst")
	}

	var history statex.History = statex.NoopHistory{}
	storeCfg := configx.MustNew[statex.Config]("STORE")
	if strings.TrimSpace(storeCfg.DSN) != "" {
		bunHistory, err := statex.NewBunHistory(*storeCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open run history store")
		}
		if err := bunHistory.Init(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("failed to initialize run history store")
		}
		defer bunHistory.Close()
		history = bunHistory
		log.Info().Msg("run history store enabled")
	}

	handler, err := serverx.NewHandler(analyst, market, insights, history)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build http handler")
	}

	serverCfg := configx.MustNew[serverx.Config]("SERVER")
	srv := serverx.New(*serverCfg, handler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("http server failed")
		}
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}
}
