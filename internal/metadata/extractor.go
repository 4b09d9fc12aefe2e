// Package metadata enriches catalog candidates into release records.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/JakeFAU/predb-announcer/internal/release"
)

// Extraction failures. Each one skips the candidate.
var (
	ErrDetailsUnavailable  = errors.New("release details unavailable")
	ErrUnexpectedLayout    = errors.New("unexpected release file layout")
	ErrDocumentUnavailable = errors.New("document unavailable")
)

const proofMarker = "Proof"

// Extractor turns a candidate into a release record.
type Extractor struct {
	store   *Store
	catalog release.Catalog
	fetcher release.Fetcher
	links   Links
	logger  *zap.Logger
}

// NewExtractor wires an Extractor.
func NewExtractor(store *Store, catalog release.Catalog, fetcher release.Fetcher, links Links, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		store:   store,
		catalog: catalog,
		fetcher: fetcher,
		links:   links.withDefaults(),
		logger:  logger,
	}
}

// Extract fetches details and the embedded document for candidate and builds its record.
//
// The file list is read positionally: index 0 is the document and index 1 is
// the proof image when its name contains "Proof". Releases that do not follow
// that ordering are misclassified; fewer than two files is reported as
// ErrUnexpectedLayout.
func (e *Extractor) Extract(ctx context.Context, candidate release.Candidate) (release.Record, error) {
	name := candidate.Name
	details, err := e.store.Details(ctx, name)
	if err != nil {
		return release.Record{}, err
	}
	if len(details.Files) < 2 {
		return release.Record{}, fmt.Errorf("%w: %d stored files for %s", ErrUnexpectedLayout, len(details.Files), name)
	}
	if len(details.ArchivedFiles) == 0 {
		return release.Record{}, fmt.Errorf("%w: no archived files for %s", ErrUnexpectedLayout, name)
	}

	var proofURL string
	if strings.Contains(details.Files[1].Name, proofMarker) {
		proofURL = e.catalog.FileURL(name, details.Files[1].Name)
	}
	documentURL := e.catalog.FileURL(name, details.Files[0].Name)

	titleID, maskedID, err := e.parseDocument(ctx, documentURL)
	if err != nil {
		return release.Record{}, err
	}

	archive := details.ArchivedFiles[0]
	return release.Record{
		Title:        name,
		TitleID:      titleID,
		MaskedID:     maskedID,
		Size:         HumanSize(archive.Size),
		CRC:          archive.CRC,
		ProofURL:     proofURL,
		DocumentURL:  documentURL,
		ThumbnailURL: e.links.ThumbnailURL(maskedID),
	}, nil
}

func (e *Extractor) parseDocument(ctx context.Context, documentURL string) (string, string, error) {
	e.logger.Info("parsing document", zap.String("url", documentURL))
	raw, err := e.fetcher.FetchBytes(ctx, "NFO", documentURL)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrDocumentUnavailable, err)
	}
	text, err := DecodeDocument(raw)
	if err != nil {
		return "", "", err
	}
	if text == "" {
		return "", "", fmt.Errorf("%w: %s", ErrDocumentUnavailable, documentURL)
	}

	titleID, err := ParseTitleID(text)
	if err != nil {
		return "", "", fmt.Errorf("parse %s: %w", documentURL, err)
	}
	maskedID, err := MaskTitleID(titleID)
	if err != nil {
		return "", "", err
	}
	if e.store.PutDocument(titleID, text) {
		e.logger.Debug("cached document", zap.String("title_id", titleID))
	}
	return titleID, maskedID, nil
}

// DecodeDocument converts code page 437 bytes to UTF-8 text.
func DecodeDocument(raw []byte) (string, error) {
	decoded, err := charmap.CodePage437.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode cp437: %w", err)
	}
	return string(decoded), nil
}

// EncodeDocument converts UTF-8 text back to code page 437 bytes. Runes outside
// the code page become the ASCII substitute byte.
func EncodeDocument(text string) ([]byte, error) {
	encoded, err := encoding.ReplaceUnsupported(charmap.CodePage437.NewEncoder()).Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("encode cp437: %w", err)
	}
	return encoded, nil
}
