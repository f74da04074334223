package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ceseminars/cmd/worker/jobs"
	"ceseminars/internal/app"
	"ceseminars/internal/config"
	"ceseminars/internal/consumers"
	"ceseminars/internal/logger"
	"ceseminars/internal/service"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	log.Info("Starting worker...")

	// own client id so the api and the worker can share a cluster
	cfg.NATS.ClientID = "ceseminars-worker"

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		logger.Fatal("Failed to initialize", "error", err)
	}
	defer a.Close()

	var consumerService *consumers.ConsumerService
	if a.NATS != nil {
		var mailer service.Mailer
		if a.Mailer != nil {
			mailer = a.Mailer
		}
		consumerService = consumers.NewConsumerService(a.NATS, consumers.NewHandlers(consumers.Stores{
			Users:         a.Repos.Users,
			Registrations: a.Repos.Registrations,
			Seminars:      a.Repos.Seminars,
			Sessions:      a.Repos.Sessions,
			Makeups:       a.Repos.Makeups,
			Certificates:  a.Repos.Certificates,
			Events:        a.Repos.Events,
			Notifications: a.Repos.Notifications,
		}, mailer))
		if err := consumerService.Start(); err != nil {
			logger.Fatal("Failed to start consumers", "error", err)
		}
	} else {
		log.Warn("NATS unavailable, running scheduled jobs only")
	}

	scheduler := jobs.NewScheduler(cfg.Scheduler.SweepTimeout)
	for _, job := range []jobs.Job{
		{Name: "makeup_expiry", Spec: cfg.Scheduler.MakeupExpirySpec, Run: a.Services.Makeups.ExpireDue},
		{Name: "session_reminders", Spec: cfg.Scheduler.SessionReminderSpec, Run: a.Services.Reminders.SendSessionReminders},
	} {
		if err := scheduler.Add(job); err != nil {
			logger.Fatal("Failed to schedule job", "error", err)
		}
	}
	scheduler.Start()

	log.Info("Worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down worker...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if consumerService != nil {
		consumerService.Shutdown()
	}
	scheduler.Stop(ctx)

	log.Info("Worker stopped")
}
