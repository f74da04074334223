package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"ceseminars/internal/logger"

	_ "github.com/lib/pq"
)

// DB is the Postgres pool shared by the repositories
type DB struct {
	*sql.DB
}

type Config struct {
	Host               string
	Port               int
	User               string
	Password           string
	DBName             string
	SSLMode            string
	ApplicationName    string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	ConnMaxIdleTimeMin int

	// ConnectAttempts is how many pings Connect makes before giving up,
	// one second apart times the attempt number.
	ConnectAttempts int
}

// DSN renders the config as a postgres:// URL
func (c Config) DSN() string {
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	if c.ApplicationName != "" {
		q.Set("application_name", c.ApplicationName)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + strconv.Itoa(c.Port),
		Path:     "/" + c.DBName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Connect opens the pool and waits until Postgres answers
func Connect(cfg Config) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMin) * time.Minute)
	db.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMin) * time.Minute)

	log := logger.Get().With("host", cfg.Host, "dbname", cfg.DBName)

	attempts := cfg.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}
	for i := 1; ; i++ {
		err = ping(db)
		if err == nil {
			break
		}
		if i >= attempts {
			db.Close()
			return nil, fmt.Errorf("failed to ping database after %d attempts: %w", i, err)
		}
		log.Warn("Database not ready, retrying", "attempt", i, "error", err)
		time.Sleep(time.Duration(i) * time.Second)
	}

	log.Info("Connected to database",
		"max_open_conns", cfg.MaxOpenConns, "max_idle_conns", cfg.MaxIdleConns)

	return &DB{db}, nil
}

func ping(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.DB.Close()
}
