package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"led-frame-merger/internal/api"
	"led-frame-merger/internal/config"
	"led-frame-merger/internal/logging"
	"led-frame-merger/internal/service"
	"led-frame-merger/internal/storage"
	"led-frame-merger/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := storage.NewStore(cfg.DataPath)
	if err != nil {
		logger.Fatal("init store", zap.String("path", cfg.DataPath), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub(logger.Named("ws"))
	go hub.Run(ctx)
	sessionHub := ws.NewSessionHub(logger.Named("ws"))

	workflow := service.NewWorkflowService(
		cfg,
		store,
		storage.NewFileRepository(),
		ws.Fanout{Hub: hub, Sessions: sessionHub},
		logger.Named("workflow"),
	)

	router := api.NewRouter(cfg, logger.Named("http"), hub, sessionHub, workflow)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("server listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("data_path", cfg.DataPath),
			zap.String("output_dir", cfg.OutputDir),
			zap.Bool("write_output", cfg.WriteOutput),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
