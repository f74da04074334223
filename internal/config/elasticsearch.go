package config

import (
	"os"
	"strings"
	"time"
)

// ElasticsearchConfig holds the seminar catalog index settings. Search is
// optional; when disabled the catalog search runs against Postgres.
type ElasticsearchConfig struct {
	Enabled    bool
	Addresses  []string
	Index      string
	Username   string
	Password   string
	Replicas   int
	MaxRetries int
	Timeout    time.Duration
}

// LoadElasticsearchConfig reads the ELASTICSEARCH_* variables. ELASTICSEARCH_URL
// may list several nodes separated by commas.
func LoadElasticsearchConfig() ElasticsearchConfig {
	var addrs []string
	for _, a := range strings.Split(getEnv("ELASTICSEARCH_URL", "http://localhost:9200"), ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}

	return ElasticsearchConfig{
		Enabled:    getEnvBool("ELASTICSEARCH_ENABLED", true),
		Addresses:  addrs,
		Index:      getEnv("ELASTICSEARCH_INDEX", "seminars"),
		Username:   os.Getenv("ELASTICSEARCH_USERNAME"),
		Password:   os.Getenv("ELASTICSEARCH_PASSWORD"),
		Replicas:   getEnvInt("ELASTICSEARCH_REPLICAS", 0),
		MaxRetries: getEnvInt("ELASTICSEARCH_MAX_RETRIES", 3),
		Timeout:    getEnvDuration("ELASTICSEARCH_TIMEOUT", 30*time.Second),
	}
}
