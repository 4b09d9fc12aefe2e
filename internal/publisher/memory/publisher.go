// Package memory keeps published release records in-memory for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/predb-announcer/internal/release"
)

// Publisher stores published records for inspection.
type Publisher struct {
	mu      sync.RWMutex
	records []release.Record
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// StoreRecord implements release.RecordStore.
func (p *Publisher) StoreRecord(_ context.Context, record release.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	record.Media = append([]release.MediaUpload(nil), record.Media...)
	p.records = append(p.records, record)
	return nil
}

// Records returns the recorded releases.
func (p *Publisher) Records() []release.Record {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]release.Record, len(p.records))
	copy(out, p.records)
	return out
}
