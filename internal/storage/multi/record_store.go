// Package multi fans one release record out to several record sinks.
package multi

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/predb-announcer/internal/release"
)

// Sink is a named record destination.
type Sink struct {
	Name  string
	Store release.RecordStore
}

// RecordStore writes every record to all sinks. A failing sink does not stop the others.
type RecordStore struct {
	sinks  []Sink
	logger *zap.Logger
}

// New builds a fan-out RecordStore.
func New(logger *zap.Logger, sinks ...Sink) *RecordStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordStore{sinks: sinks, logger: logger}
}

// StoreRecord implements release.RecordStore. The returned error joins every sink failure.
func (m *RecordStore) StoreRecord(ctx context.Context, record release.Record) error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Store.StoreRecord(ctx, record); err != nil {
			m.logger.Warn("record sink failed",
				zap.String("sink", sink.Name),
				zap.String("release", record.Title),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name, err))
		}
	}
	return errors.Join(errs...)
}
