package database

import (
	"context"
	"fmt"
	"time"

	"ceseminars/internal/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HealthCheck is the outcome of one probe
type HealthCheck struct {
	Status       string        `json:"status"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
	InUse        int           `json:"in_use"`
	MaxOpen      int           `json:"max_open"`
}

// Healthy reports whether the last probe succeeded
func (h HealthCheck) Healthy() bool {
	return h.Status == "healthy"
}

// Err is nil for a healthy probe
func (h HealthCheck) Err() error {
	if h.Healthy() {
		return nil
	}
	return fmt.Errorf("database %s: %s", h.Status, h.Error)
}

// HealthCheck pings the database. A pool close to saturation is logged
// but still healthy.
func (db *DB) HealthCheck(ctx context.Context) HealthCheck {
	start := time.Now()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := db.PingContext(pingCtx)

	stats := db.Stats()
	hc := HealthCheck{
		Status:       "healthy",
		ResponseTime: time.Since(start),
		InUse:        stats.InUse,
		MaxOpen:      stats.MaxOpenConnections,
	}
	if err != nil {
		hc.Status = "unhealthy"
		hc.Error = err.Error()
		logger.WithContext(ctx).Error("Database health check failed", "error", err)
		return hc
	}

	if stats.MaxOpenConnections > 0 && stats.InUse*10 > stats.MaxOpenConnections*9 {
		logger.WithContext(ctx).Warn("High connection usage detected",
			"in_use", stats.InUse, "max_open", stats.MaxOpenConnections, "wait_count", stats.WaitCount)
	}
	return hc
}

// RegisterMetrics exports pool statistics as go_sql_* series labelled
// db_name="ceseminars". Registering twice returns an error.
func (db *DB) RegisterMetrics(reg prometheus.Registerer) error {
	return reg.Register(collectors.NewDBStatsCollector(db.DB, "ceseminars"))
}
