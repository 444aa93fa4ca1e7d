package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yourorg/token-features/internal/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS token_features (
	token_id   TEXT PRIMARY KEY,
	record     JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresSink upserts one row per token id into token_features.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink connects to dsn and verifies the connection.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresSink{pool: pool}, nil
}

// EnsureSchema creates the token_features table if needed.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}

// Write replaces the stored record of tokenID.
func (s *PostgresSink) Write(ctx context.Context, tokenID string, record model.FeatureRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return persistErr(s.Name(), err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO token_features (token_id, record, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (token_id) DO UPDATE
		SET record = EXCLUDED.record,
		    updated_at = NOW()
	`, tokenID, data)
	if err != nil {
		return persistErr(s.Name(), err)
	}
	return nil
}

// Read loads the stored record of tokenID.
func (s *PostgresSink) Read(ctx context.Context, tokenID string) (model.FeatureRecord, error) {
	var (
		record model.FeatureRecord
		data   []byte
	)

	err := s.pool.QueryRow(ctx, `SELECT record FROM token_features WHERE token_id = $1`, tokenID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return record, ErrNotFound
		}
		return record, err
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("decode snapshot: %w", err)
	}
	return record, nil
}

// Close closes the connection pool.
func (s *PostgresSink) Close() {
	s.pool.Close()
}

func (s *PostgresSink) Name() string {
	return "postgres"
}
