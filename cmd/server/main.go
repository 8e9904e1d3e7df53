package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medadmit/internal/platform/config"
	"medadmit/internal/platform/httpserver"
	"medadmit/internal/platform/logger"
	platformmetrics "medadmit/internal/platform/metrics"
	httptransport "medadmit/internal/transport/http"
)

// shutdownTimeout bounds graceful shutdown, including the audit drain.
const shutdownTimeout = 15 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close(log)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:    log,
		Metrics:   platformmetrics.New(),
		RateLimit: app.rateLimit,
		Resolver:  app.handler,
		Health:    app.health,
	})
	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting identifier resolver",
			"addr", cfg.Addr,
			"environment", cfg.Environment,
			"catalog", cfg.Catalog.Driver,
			"redis", cfg.Redis.URL != "",
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
