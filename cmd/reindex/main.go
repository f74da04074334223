package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"ceseminars/internal/config"
	"ceseminars/internal/database"
	"ceseminars/internal/logger"
	"ceseminars/internal/models"
	"ceseminars/internal/repository"
	"ceseminars/internal/search"
)

func main() {
	var dropArchived bool
	flag.BoolVar(&dropArchived, "drop-archived", true, "Remove archived seminars from the index")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	log.Info("Starting seminar reindex", "index", cfg.Elasticsearch.Index)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	es, err := search.NewElasticsearchClient(cfg.Elasticsearch)
	if err != nil {
		logger.Fatal("Failed to connect to Elasticsearch", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := reindex(ctx, repository.NewSeminarRepository(db), es, dropArchived); err != nil {
		logger.Fatal("Reindex failed", "error", err)
	}
}

func reindex(ctx context.Context, seminars *repository.SeminarRepository, es *search.ElasticsearchClient, dropArchived bool) error {
	log := logger.WithContext(ctx)
	start := time.Now()

	all, err := seminars.List(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to list seminars: %w", err)
	}
	log.Info("Loaded seminars", "count", len(all))

	indexed, removed, failed := 0, 0, 0
	for i := range all {
		s := &all[i]
		if s.Status == models.SeminarArchived && dropArchived {
			if err := es.DeleteSeminar(ctx, s.ID); err != nil {
				log.Error("Failed to remove seminar", "seminar_id", s.ID, "error", err)
				failed++
				continue
			}
			removed++
			continue
		}
		if err := es.IndexSeminar(ctx, s); err != nil {
			log.Error("Failed to index seminar", "seminar_id", s.ID, "error", err)
			failed++
			continue
		}
		indexed++
	}

	total, err := es.Count(ctx, "", 0)
	if err != nil {
		log.Warn("Failed to count indexed seminars", "error", err)
	}

	log.Info("Reindex completed",
		"indexed", indexed,
		"removed", removed,
		"failed", failed,
		"documents", total,
		"duration", time.Since(start),
	)
	if failed > 0 {
		return fmt.Errorf("%d seminars failed to sync", failed)
	}
	return nil
}
