package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/zhouzirui/serene/backend/internal/analysis/risk"
	"github.com/zhouzirui/serene/backend/internal/config"
	"github.com/zhouzirui/serene/backend/internal/handler"
	"github.com/zhouzirui/serene/backend/internal/logging"
	"github.com/zhouzirui/serene/backend/internal/model/persona"
	"github.com/zhouzirui/serene/backend/internal/service/ai"
	"github.com/zhouzirui/serene/backend/internal/service/crisis"
	"github.com/zhouzirui/serene/backend/internal/service/gateway"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Info("no .env file loaded, using process environment", zap.Error(envErr))
	}

	if !cfg.AI.Enabled() {
		logger.Fatal("completion credentials not configured",
			zap.String("provider", string(cfg.AI.Provider)))
	}

	completer, err := ai.NewCompleter(ctx, cfg.AI)
	if err != nil {
		logger.Fatal("failed to initialize completion service", zap.Error(err))
	}
	logger.Info("completion service initialized", zap.String("provider", string(cfg.AI.Provider)))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	profile := persona.Default()
	gw, err := gateway.New(gateway.Deps{
		Classifier: risk.NewPatternClassifier(),
		Crisis:     crisis.New(cfg.Safety.DefaultCountry),
		Completer:  completer,
		Sink:       gateway.NewZapSink(logger),
		Metrics:    gateway.NewMetrics(registry),
	}, gateway.Config{
		SystemPrompt:  ai.BuildSystemPrompt(profile),
		Timeout:       cfg.AI.Timeout,
		PreviewLength: cfg.Safety.PreviewLength,
	})
	if err != nil {
		logger.Fatal("failed to build gateway", zap.Error(err))
	}

	router := handler.NewRouter(handler.RouterConfig{
		Gateway:        gw,
		Persona:        profile,
		Gatherer:       registry,
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	startServer(ctx, logger, cfg.Server, router)
}

func startServer(ctx context.Context, logger *zap.Logger, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("Serene backend listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
