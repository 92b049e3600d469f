package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"panes/internal/auth"
	"panes/internal/bootstrap"
	"panes/internal/config"
	handlers "panes/internal/http/handler"
	"panes/internal/http/middleware"
	"panes/internal/logging"
	"panes/internal/metrics"
	"panes/internal/otel"
	"panes/internal/service"
)

// @title Panes API
// @version 1.0
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	log := logging.New(os.Stdout, cfg.Env, cfg.LogLevel)
	logging.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, log *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing shutdown failed", "err", err)
		}
	}()

	stores, err := bootstrap.OpenStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stores.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	paneMetrics, err := metrics.NewPaneMetrics(reg)
	if err != nil {
		return fmt.Errorf("register pane metrics: %w", err)
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	paneSvc := service.NewPaneService(stores.Blobs, stores.Repo, service.PaneOptions{
		TTL:               cfg.Pane.TTL(),
		MaxSizeBytes:      cfg.Pane.MaxSizeBytes(),
		AllowedExtensions: cfg.Pane.AllowedExtensions,
		FrontendURL:       cfg.Pane.FrontendURL,
		Logger:            log,
		Metrics:           paneMetrics,
	})
	sweeper := service.NewSweeper(stores.Blobs, stores.Repo, service.SweeperOptions{
		BatchSize: cfg.Sweep.BatchSize,
		Logger:    log,
		Metrics:   paneMetrics,
	})
	verifier := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// Leave headroom over the document ceiling for the multipart envelope.
		BodyLimit: int(cfg.Pane.MaxSizeBytes()) + 64*1024,
	})

	// Register global middleware
	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(httpMetrics.Handler())

	handlers.RegisterRoutes(app, handlers.Deps{
		DB:             stores.DB,
		Panes:          paneSvc,
		Sweeper:        sweeper,
		Verifier:       verifier,
		CleanupKey:     cfg.Sweep.CleanupKey,
		FrameAncestors: cfg.Pane.FrameAncestors,
		Gatherer:       reg,
	})

	// Deferred after stores.Close, so it runs first: a sweep in flight
	// finishes before the stores go away.
	stopSweeper := sweeper.StartBackground(ctx, cfg.Sweep.Interval)
	defer stopSweeper()

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("server listening", "addr", addr, "env", cfg.Env)
		if err := app.Listen(addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	// Let detached view count updates land before the stores close.
	paneSvc.Wait()

	log.Info("server stopped")
	return nil
}
