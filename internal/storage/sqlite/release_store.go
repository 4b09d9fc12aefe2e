// Package sqlite archives published release records in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JakeFAU/predb-announcer/internal/release"
)

const schema = `
CREATE TABLE IF NOT EXISTS releases (
    id            TEXT PRIMARY KEY,
    created_at    TEXT NOT NULL,
    title         TEXT NOT NULL,
    title_id      TEXT NOT NULL,
    masked_id     TEXT NOT NULL,
    size          TEXT NOT NULL,
    crc           TEXT NOT NULL,
    proof_url     TEXT,
    document_url  TEXT NOT NULL,
    thumbnail_url TEXT NOT NULL,
    media_json    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_releases_title_id ON releases(title_id);
`

// StoredRelease is a release row read back from the database.
type StoredRelease struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Record    release.Record `json:"record"`
}

// ReleaseStore manages release persistence backed by SQLite.
type ReleaseStore struct {
	db    *sql.DB
	ids   release.IDGenerator
	clock release.Clock
}

// Open initializes or connects to the database at path and applies the schema.
// The special path ":memory:" keeps everything in process.
func Open(ctx context.Context, path string, ids release.IDGenerator, clock release.Clock) (*ReleaseStore, error) {
	if path == "" {
		return nil, fmt.Errorf("persist.sqlite.path is required")
	}
	if ids == nil || clock == nil {
		return nil, fmt.Errorf("id generator and clock are required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &ReleaseStore{db: db, ids: ids, clock: clock}, nil
}

// Close closes the underlying database connection.
func (s *ReleaseStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// StoreRecord inserts one release row.
func (s *ReleaseStore) StoreRecord(ctx context.Context, record release.Record) error {
	id, err := s.ids.NewID()
	if err != nil {
		return fmt.Errorf("generate id: %w", err)
	}
	media := record.Media
	if media == nil {
		media = []release.MediaUpload{}
	}
	mediaJSON, err := json.Marshal(media)
	if err != nil {
		return fmt.Errorf("marshal media: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO releases (
            id, created_at, title, title_id, masked_id, size, crc,
            proof_url, document_url, thumbnail_url, media_json
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		s.clock.Now().UTC().Format(time.RFC3339Nano),
		record.Title,
		record.TitleID,
		record.MaskedID,
		record.Size,
		record.CRC,
		nullableString(record.ProofURL),
		record.DocumentURL,
		record.ThumbnailURL,
		string(mediaJSON),
	)
	if err != nil {
		return fmt.Errorf("insert release: %w", err)
	}
	return nil
}

// ListByTitleID returns the stored releases sharing a raw title ID, oldest first.
func (s *ReleaseStore) ListByTitleID(ctx context.Context, titleID string) ([]StoredRelease, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, created_at, title, title_id, masked_id, size, crc,
                proof_url, document_url, thumbnail_url, media_json
         FROM releases WHERE title_id = ? ORDER BY created_at, id`,
		titleID,
	)
	if err != nil {
		return nil, fmt.Errorf("query releases: %w", err)
	}
	defer rows.Close()

	var out []StoredRelease
	for rows.Next() {
		var (
			stored    StoredRelease
			createdAt string
			proof     sql.NullString
			mediaJSON string
		)
		rec := &stored.Record
		if err := rows.Scan(
			&stored.ID, &createdAt, &rec.Title, &rec.TitleID, &rec.MaskedID, &rec.Size, &rec.CRC,
			&proof, &rec.DocumentURL, &rec.ThumbnailURL, &mediaJSON,
		); err != nil {
			return nil, fmt.Errorf("scan release: %w", err)
		}
		stored.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		rec.ProofURL = proof.String
		if err := json.Unmarshal([]byte(mediaJSON), &rec.Media); err != nil {
			return nil, fmt.Errorf("decode media: %w", err)
		}
		if len(rec.Media) == 0 {
			rec.Media = nil
		}
		out = append(out, stored)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate releases: %w", err)
	}
	return out, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
