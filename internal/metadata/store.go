package metadata

import (
	"context"
	"fmt"

	"github.com/JakeFAU/predb-announcer/internal/release"
)

// Store holds the two process-lifetime caches: release details by name and
// decoded document text by raw title ID. Entries are never evicted.
// It is owned by the single pipeline control flow and is not safe for concurrent use.
type Store struct {
	catalog   release.Catalog
	details   map[string]release.ReleaseDetails
	documents map[string]string
}

// NewStore builds an empty Store backed by catalog for details lookups.
func NewStore(catalog release.Catalog) *Store {
	return &Store{
		catalog:   catalog,
		details:   make(map[string]release.ReleaseDetails),
		documents: make(map[string]string),
	}
}

// Details returns cached details for name, fetching them on a miss.
// Failed fetches are not cached.
func (s *Store) Details(ctx context.Context, name string) (release.ReleaseDetails, error) {
	if details, ok := s.details[name]; ok {
		return details, nil
	}
	details, err := s.catalog.Details(ctx, name)
	if err != nil {
		return release.ReleaseDetails{}, fmt.Errorf("%w: %w", ErrDetailsUnavailable, err)
	}
	s.details[name] = details
	return details, nil
}

// PutDocument caches text under titleID unless an entry already exists.
// It reports whether the text was stored.
func (s *Store) PutDocument(titleID, text string) bool {
	if _, ok := s.documents[titleID]; ok {
		return false
	}
	s.documents[titleID] = text
	return true
}

// Document returns the cached text for titleID.
func (s *Store) Document(titleID string) (string, bool) {
	text, ok := s.documents[titleID]
	return text, ok
}

// Sizes reports the number of cached details and documents.
func (s *Store) Sizes() (details int, documents int) {
	return len(s.details), len(s.documents)
}
