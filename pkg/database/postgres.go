package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/pyqhub/papers-api/pkg/config"
)

// NewPostgres returns a configured PostgreSQL client. The primary host is
// attempted up to cfg.MaxAttempts times; when a fallback host is configured
// it is tried with the same bounded policy before giving up.
func NewPostgres(cfg config.DatabaseConfig, logger *zap.Logger) (*sqlx.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}

	hosts := []string{cfg.Host}
	if cfg.FallbackHost != "" && cfg.FallbackHost != cfg.Host {
		hosts = append(hosts, cfg.FallbackHost)
	}

	var lastErr error
	for _, host := range hosts {
		for attempt := 1; attempt <= attempts; attempt++ {
			db, err := open(cfg, host)
			if err == nil {
				return db, nil
			}
			lastErr = err
			logger.Warn("postgres connection failed",
				zap.String("host", host),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
		}
	}

	return nil, fmt.Errorf("connect postgres: %w", lastErr)
}

func open(cfg config.DatabaseConfig, host string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
