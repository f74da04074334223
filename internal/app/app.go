// Package app opens the infrastructure shared by the api and worker
// binaries and assembles the services on top of it.
package app

import (
	"context"
	"fmt"

	"ceseminars/internal/cache"
	"ceseminars/internal/config"
	"ceseminars/internal/database"
	"ceseminars/internal/external"
	"ceseminars/internal/logger"
	"ceseminars/internal/messaging"
	"ceseminars/internal/metrics"
	"ceseminars/internal/repository"
	"ceseminars/internal/search"
	"ceseminars/internal/service"
	"ceseminars/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
)

type App struct {
	Config   *config.Config
	DB       *database.DB
	NATS     *messaging.NATSClient
	Valkey   *cache.ValkeyClient
	Search   *search.ElasticsearchClient
	Mailer   *external.MailClient
	Repos    *repository.Repositories
	Services *service.Services
}

// New connects to Postgres (required) and to the optional collaborators.
// An optional dependency that cannot be reached is logged and left nil.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.Get()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := db.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		log.Warn("Failed to register database metrics", "error", err)
	}

	a := &App{
		Config: cfg,
		DB:     db,
		Repos:  repository.NewRepositories(db),
	}

	if nc, err := messaging.NewNATSClient(cfg.NATS); err != nil {
		log.Warn("NATS unavailable, domain events will not be published", "error", err)
	} else {
		a.NATS = nc
	}

	if vc, err := cache.NewValkeyClient(cfg.Valkey); err != nil {
		log.Warn("Valkey unavailable, running without cache", "error", err)
	} else {
		a.Valkey = vc
	}

	if cfg.Elasticsearch.Enabled {
		if es, err := search.NewElasticsearchClient(cfg.Elasticsearch); err != nil {
			log.Warn("Elasticsearch unavailable, catalog search falls back to the database", "error", err)
		} else {
			a.Search = es
		}
	}

	if cfg.Mail.Enabled() {
		a.Mailer = external.NewMailClient(cfg.Mail)
	}

	deps := service.Deps{
		Stores: service.Stores{
			Seminars:      a.Repos.Seminars,
			Sessions:      a.Repos.Sessions,
			Registrations: a.Repos.Registrations,
			Attendance:    a.Repos.Attendance,
			Ledger:        a.Repos.Ledger,
			Makeups:       a.Repos.Makeups,
			Certificates:  a.Repos.Certificates,
			Users:         a.Repos.Users,
			Events:        a.Repos.Events,
			Notifications: a.Repos.Notifications,
		},
		Renderer:          external.NewRendererClient(cfg.Renderer),
		RenderTemplate:    cfg.Renderer.Template,
		MakeupApprovalTTL: cfg.MakeupApprovalTTL,
	}
	// interfaces stay nil rather than holding typed nil pointers
	if a.NATS != nil {
		deps.Publisher = metrics.CountingPublisher{Next: a.NATS}
	}
	if a.Valkey != nil {
		deps.Credits = a.Valkey
	}
	if a.Search != nil {
		deps.Index = a.Search
	}
	if a.Mailer != nil {
		deps.Mailer = a.Mailer
	}
	if cfg.Storage.Enabled() {
		store, err := storage.NewS3Store(ctx, cfg.Storage)
		if err != nil {
			log.Warn("Object storage unavailable, certificate PDFs disabled", "error", err)
		} else {
			deps.Objects = store
		}
	}

	a.Services = service.NewServices(deps)
	return a, nil
}

// Close releases every connection that was opened.
func (a *App) Close() error {
	log := logger.Get()
	if a.NATS != nil {
		if err := a.NATS.Close(); err != nil {
			log.Error("Error closing NATS connection", "error", err)
		}
	}
	if a.Valkey != nil {
		if err := a.Valkey.Close(); err != nil {
			log.Error("Error closing Valkey connection", "error", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			log.Error("Error closing database connection", "error", err)
			return err
		}
	}
	return nil
}
