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

	"go.uber.org/zap"

	handler "community-meetings-backend/api"
	"community-meetings-backend/pkg/config"
	"community-meetings-backend/pkg/database"
	"community-meetings-backend/pkg/logger"
	"community-meetings-backend/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.GetCached()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	zl, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to build logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	if cfg.UsesDefaultSecret() {
		zl.Warn("JWT_SECRET is the development default, set a real secret before deploying")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDatabase(ctx, handler.DatabaseConfig(cfg), zl)
	if err != nil {
		zl.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close()

	files, err := storage.NewFileStore(cfg.UploadDir, cfg.MaxUploadBytes, zl)
	if err != nil {
		zl.Fatal("upload dir unavailable", zap.Error(err), zap.String("dir", cfg.UploadDir))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.NewRouter(cfg, db, files, zl),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("environment", cfg.Environment),
			zap.String("driver", cfg.DBDriver),
			zap.String("meetings_shape", db.Layout().Meetings.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
}
