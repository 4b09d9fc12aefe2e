// Package postgres archives published release records in Postgres.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/predb-announcer/internal/release"
)

const defaultTable = "releases"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for release rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// ReleaseStore writes release rows into Postgres.
type ReleaseStore struct {
	pool  execCloser
	table string
	ids   release.IDGenerator
	clock release.Clock
}

// New creates a Postgres-backed ReleaseStore using the provided config.
func New(ctx context.Context, cfg Config, ids release.IDGenerator, clock release.Clock) (*ReleaseStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("persist.postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewWithPool(pool, cfg.Table, ids, clock)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool execCloser, table string, ids release.IDGenerator, clock release.Clock) (*ReleaseStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if ids == nil || clock == nil {
		return nil, fmt.Errorf("id generator and clock are required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &ReleaseStore{pool: pool, table: table, ids: ids, clock: clock}, nil
}

// Close releases the underlying pool resources.
func (s *ReleaseStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the release table when it does not exist.
func (s *ReleaseStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id            UUID PRIMARY KEY,
	created_at    TIMESTAMPTZ NOT NULL,
	title         TEXT NOT NULL,
	title_id      TEXT NOT NULL,
	masked_id     TEXT NOT NULL,
	size          TEXT NOT NULL,
	crc           TEXT NOT NULL,
	proof_url     TEXT,
	document_url  TEXT NOT NULL,
	thumbnail_url TEXT NOT NULL,
	media         JSONB NOT NULL DEFAULT '[]'
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	return nil
}

// StoreRecord inserts one release row.
func (s *ReleaseStore) StoreRecord(ctx context.Context, record release.Record) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("release store is not configured")
	}
	id, err := s.ids.NewID()
	if err != nil {
		return fmt.Errorf("generate id: %w", err)
	}
	media, err := marshalMedia(record.Media)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	created_at,
	title,
	title_id,
	masked_id,
	size,
	crc,
	proof_url,
	document_url,
	thumbnail_url,
	media
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)`, s.table)

	args := []any{
		id,
		s.clock.Now().UTC(),
		record.Title,
		record.TitleID,
		record.MaskedID,
		record.Size,
		record.CRC,
		nullable(record.ProofURL),
		record.DocumentURL,
		record.ThumbnailURL,
		media,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert release: %w", err)
	}
	return nil
}

func marshalMedia(media []release.MediaUpload) ([]byte, error) {
	if media == nil {
		media = []release.MediaUpload{}
	}
	data, err := json.Marshal(media)
	if err != nil {
		return nil, fmt.Errorf("marshal media: %w", err)
	}
	return data, nil
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
