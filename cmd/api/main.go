package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ceseminars/internal/api"
	"ceseminars/internal/app"
	"ceseminars/internal/config"
	"ceseminars/internal/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		logger.Fatal("Failed to initialize", "error", err)
	}

	server, err := api.NewServer(cfg, a)
	if err != nil {
		a.Close()
		logger.Fatal("Failed to create server", "error", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	if err := a.Close(); err != nil {
		log.Error("Error during cleanup", "error", err)
	}

	log.Info("Server stopped")
}
