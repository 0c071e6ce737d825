// Package store persists bus messages in Postgres and serves the
// stable-pagination reads of the get worker.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"

	_ "github.com/jackc/pgx/v4/stdlib"
	log "github.com/sirupsen/logrus"

	"github.com/fpesa/fpesa/go/config"
)

// ToURI converts Postgres configuration to a DSN string.
func ToURI(cfg config.Postgres) string {
	var uri = url.URL{
		Scheme: "postgres",
		Host:   cfg.Host,
		User:   url.UserPassword(cfg.User, cfg.Password),
	}
	if cfg.Database != "" {
		uri.Path = "/" + cfg.Database
	}
	return uri.String()
}

// Store wraps the message table.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres via the pgx stdlib driver.
func Open(cfg config.Postgres) (*Store, error) {
	var db, err = sql.Open("pgx", ToURI(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	log.WithFields(log.Fields{
		"host":     cfg.Host,
		"database": cfg.Database,
	}).Info("opened postgres store")
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// CreateTables ensures the message table exists. Safe to call repeatedly.
func (s *Store) CreateTables(ctx context.Context) error {
	var _, err = s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS message (
			id SERIAL PRIMARY KEY,
			inserted TIMESTAMP DEFAULT now(),
			message JSONB
		)`)
	if err != nil {
		return fmt.Errorf("creating message table: %w", err)
	}
	return nil
}

// Insert appends |payload| as a new row. The id is assigned by the store and
// is strictly increasing with insertion order.
func (s *Store) Insert(ctx context.Context, payload json.RawMessage) error {
	var _, err = s.db.ExecContext(ctx,
		`INSERT INTO message (message) VALUES ($1::jsonb)`, []byte(payload))
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}
