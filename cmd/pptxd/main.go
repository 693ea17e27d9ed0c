package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/correlli/dify-pptx-app/internal/auth"
	"github.com/correlli/dify-pptx-app/internal/config"
	httpapp "github.com/correlli/dify-pptx-app/internal/http"
	"github.com/correlli/dify-pptx-app/internal/rate"
	"github.com/correlli/dify-pptx-app/internal/store/filestore"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := config.Load()

	st, err := filestore.New(cfg.DataDir, logger)
	if err != nil {
		logger.Fatal("failed to open presentation store", zap.Error(err))
	}

	authSvc, err := auth.NewService(cfg.APIKey)
	if err != nil {
		logger.Fatal("failed to initialize auth", zap.Error(err))
	}

	limiter := rate.NewMemory()
	server := httpapp.NewServer(st, authSvc, limiter, cfg, logger)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("pptxd listening",
			zap.String("addr", cfg.Addr),
			zap.String("data_dir", cfg.DataDir),
			zap.String("api_key_fingerprint", authSvc.Fingerprint()))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
}
