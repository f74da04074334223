package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, 90*24*time.Hour, cfg.MakeupApprovalTTL)
	assert.Equal(t, "*/15 * * * *", cfg.Scheduler.MakeupExpirySpec)
	assert.Equal(t, "seminars", cfg.Elasticsearch.Index)
	assert.Equal(t, []string{"http://localhost:9200"}, cfg.Elasticsearch.Addresses)
	assert.True(t, cfg.Elasticsearch.Enabled)
	assert.Equal(t, 30*time.Second, cfg.NATS.AckWait)
	assert.Equal(t, 5, cfg.Database.ConnectAttempts)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("MAKEUP_APPROVAL_TTL_DAYS", "30")
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("ELASTICSEARCH_TIMEOUT", "5s")
	t.Setenv("ELASTICSEARCH_URL", "http://es1:9200, http://es2:9200,")
	t.Setenv("ELASTICSEARCH_ENABLED", "0")
	t.Setenv("NATS_ACK_WAIT", "soon")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 30*24*time.Hour, cfg.MakeupApprovalTTL)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 5*time.Second, cfg.Elasticsearch.Timeout)
	assert.Equal(t, []string{"http://es1:9200", "http://es2:9200"}, cfg.Elasticsearch.Addresses)
	assert.False(t, cfg.Elasticsearch.Enabled)
	assert.Equal(t, 30*time.Second, cfg.NATS.AckWait)
}
