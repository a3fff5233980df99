package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	"github.com/kiimleo/pesticide-monitor-sub000/internal/adapters/extractor"
	httpadapter "github.com/kiimleo/pesticide-monitor-sub000/internal/adapters/http"
	pg "github.com/kiimleo/pesticide-monitor-sub000/internal/adapters/postgres"
	"github.com/kiimleo/pesticide-monitor-sub000/internal/config"
	"github.com/kiimleo/pesticide-monitor-sub000/internal/logging"
	"github.com/kiimleo/pesticide-monitor-sub000/internal/ports"
	certsvc "github.com/kiimleo/pesticide-monitor-sub000/internal/services/certificates"
	refsvc "github.com/kiimleo/pesticide-monitor-sub000/internal/services/references"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	var _ ports.CertificateRepository = db
	var _ ports.ReferenceRepository = db

	references := refsvc.New(db)
	certificates := certsvc.New(
		extractor.New(cfg.ExtractorURL, cfg.ExtractorTimeout),
		db, references, logger.Named("certificates"))

	srv := httpadapter.New(certificates, references, logger.Named("http"), httpadapter.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		AllowedOrigins: cfg.CORSOrigins,
		Health:         db,
	})

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
	}
	if cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, cfg.MaxConnections)
	}

	httpServer := &http.Server{
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.Serve(ln) }()
	logger.Info("listening", zap.String("addr", cfg.ListenAddr), zap.String("env", cfg.Env))

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	}
}
