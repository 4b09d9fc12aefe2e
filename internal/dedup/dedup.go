// Package dedup classifies polled catalog entries as new or already processed.
package dedup

import (
	"fmt"

	"github.com/JakeFAU/predb-announcer/internal/release"
)

// Deduplicator keeps the process-lifetime set of seen release keys.
// It is owned by a single control flow and is not safe for concurrent use.
type Deduplicator struct {
	hasher release.Hasher
	seen   map[string]struct{}
	// bootstrap suppresses the first non-empty scan on a cold start.
	bootstrap bool
}

// New builds a Deduplicator. When bootstrap is true the first scan that finds an
// empty seen-set only records keys and yields nothing.
func New(hasher release.Hasher, bootstrap bool) *Deduplicator {
	return &Deduplicator{
		hasher:    hasher,
		seen:      make(map[string]struct{}),
		bootstrap: bootstrap,
	}
}

// Key derives the dedup key for a release name.
func (d *Deduplicator) Key(name string) (string, error) {
	key, err := d.hasher.Hash([]byte(name))
	if err != nil {
		return "", fmt.Errorf("hash release name: %w", err)
	}
	return key, nil
}

// IsNew reports whether key has not been seen before and records it.
func (d *Deduplicator) IsNew(key string) bool {
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// Filter returns the candidates from one scan that have not been seen before,
// recording every key. On a cold start with bootstrap enabled, the whole scan is
// recorded and nothing is returned.
func (d *Deduplicator) Filter(candidates []release.Candidate) ([]release.Candidate, Stats, error) {
	var stats Stats
	initial := d.bootstrap && len(d.seen) == 0

	fresh := make([]release.Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		key, err := d.Key(candidate.Name)
		if err != nil {
			return nil, stats, err
		}
		if initial {
			d.seen[key] = struct{}{}
			stats.Bootstrapped++
			continue
		}
		if !d.IsNew(key) {
			stats.Seen++
			continue
		}
		stats.New++
		fresh = append(fresh, candidate)
	}
	return fresh, stats, nil
}

// Len returns the number of recorded keys.
func (d *Deduplicator) Len() int {
	return len(d.seen)
}

// Stats summarizes one Filter call.
type Stats struct {
	New          int
	Seen         int
	Bootstrapped int
}
