// Package main is the entry point for the API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/IdkwhatImD0ing/PortfolioV3/internal/app"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/config"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/handler"
	natsclient "github.com/IdkwhatImD0ing/PortfolioV3/internal/nats"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/session"
	"github.com/IdkwhatImD0ing/PortfolioV3/pkg/logger"
	"github.com/IdkwhatImD0ing/PortfolioV3/pkg/tracing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	logger.SetGlobal(log)

	log.Info("starting API server", zap.String("ws_path", "/"+cfg.WSPath+"/{call_id}"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "portfolio-persona", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer func() { _ = tracing.Shutdown(context.Background(), tp) }()
		}
	}

	responder, err := app.NewResponder(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer responder.Close()

	var (
		journal      session.Journal
		chatJournal  handler.Journal
		readiness    handler.Checker
		closeJournal = func() {}
	)
	if cfg.NATSURL != "" {
		natsClient, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			return err
		}
		defer natsClient.Close()

		if err := natsclient.NewStreamManager(natsClient).EnsureStream(ctx); err != nil {
			return err
		}

		j := natsclient.NewJournal(natsClient.JetStream(), 1024, log)
		journal, chatJournal, readiness = j, j, natsClient
		closeJournal = j.Close
	}

	calls := session.NewHub()
	frontends := session.NewHub()
	sessionCfg := session.Config{
		PingInterval: cfg.WSPingInterval,
		WriteTimeout: cfg.WSWriteTimeout,
	}

	router := handler.NewRouter(handler.RouterConfig{
		Health:            handler.NewHealthHandler(readiness),
		Stream:            handler.NewStreamHandler(responder, chatJournal, log),
		Sockets:           handler.NewSocketHandler(responder, calls, frontends, journal, sessionCfg, cfg.AllowedOrigins, log),
		Admin:             handler.NewAdminHandler(calls, frontends),
		WSPath:            cfg.WSPath,
		AllowedOrigins:    cfg.AllowedOrigins,
		AdminJWTSecret:    cfg.AdminJWTSecret,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		Logger:            log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	// Hijacked websockets are not tracked by Shutdown.
	canceled := calls.CancelAll() + frontends.CancelAll()
	if !calls.Wait(shutdownCtx) || !frontends.Wait(shutdownCtx) {
		log.Warn("sessions still running at shutdown deadline")
	}
	closeJournal()

	log.Info("server stopped", zap.Int("sessions_canceled", canceled))
	return nil
}
