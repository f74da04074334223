package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDSN(t *testing.T) {
	dsn := Config{
		Host:            "db",
		Port:            5433,
		User:            "ce",
		Password:        "p@ss word",
		DBName:          "ceseminars",
		SSLMode:         "disable",
		ApplicationName: "ceseminars-worker",
	}.DSN()

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db:5433", u.Host)
	assert.Equal(t, "/ceseminars", u.Path)

	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss word", pw)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.Equal(t, "ceseminars-worker", u.Query().Get("application_name"))
}

func TestHealthCheckErr(t *testing.T) {
	assert.NoError(t, HealthCheck{Status: "healthy"}.Err())
	assert.ErrorContains(t, HealthCheck{Status: "unhealthy", Error: "connection refused"}.Err(), "connection refused")
}
