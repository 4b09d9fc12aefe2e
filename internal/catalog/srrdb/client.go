// Package srrdb implements release.Catalog against the srrDB JSON API.
package srrdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/JakeFAU/predb-announcer/internal/release"
)

// Default endpoints.
const (
	DefaultScanURL    = "https://api.srrdb.com/v1/search/category:nsw/order:date-desc"
	DefaultDetailsURL = "https://api.srrdb.com/v1/details/{release_name}"
	DefaultFileURL    = "https://www.srrdb.com/download/file/{release_name}/{file_name}"
)

const dateLayout = "2006-01-02 15:04:05"

// Config holds the endpoint templates.
type Config struct {
	ScanURL    string
	DetailsURL string
	FileURL    string
}

// Client implements release.Catalog.
type Client struct {
	cfg     Config
	fetcher release.Fetcher
}

// New builds a Client, filling empty endpoints with the public srrDB ones.
func New(cfg Config, fetcher release.Fetcher) (*Client, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.ScanURL == "" {
		cfg.ScanURL = DefaultScanURL
	}
	if cfg.DetailsURL == "" {
		cfg.DetailsURL = DefaultDetailsURL
	}
	if cfg.FileURL == "" {
		cfg.FileURL = DefaultFileURL
	}
	return &Client{cfg: cfg, fetcher: fetcher}, nil
}

type scanResponse struct {
	Results []scanEntry `json:"results"`
}

type scanEntry struct {
	Release string   `json:"release"`
	Date    string   `json:"date"`
	HasNFO  flexBool `json:"hasNFO"`
}

// Scan fetches the most recent catalog page.
func (c *Client) Scan(ctx context.Context) ([]release.Candidate, error) {
	var resp scanResponse
	if err := c.fetcher.FetchJSON(ctx, "SCN", c.cfg.ScanURL, &resp); err != nil {
		return nil, fmt.Errorf("scan catalog: %w", err)
	}
	out := make([]release.Candidate, 0, len(resp.Results))
	for _, entry := range resp.Results {
		if strings.TrimSpace(entry.Release) == "" {
			continue
		}
		candidate := release.Candidate{
			Name:        entry.Release,
			HasDocument: bool(entry.HasNFO),
		}
		if ts, err := time.Parse(dateLayout, entry.Date); err == nil {
			candidate.PublishedAt = ts.UTC()
		}
		out = append(out, candidate)
	}
	return out, nil
}

// Details fetches the file listing for a release.
func (c *Client) Details(ctx context.Context, name string) (release.ReleaseDetails, error) {
	var details release.ReleaseDetails
	endpoint := strings.ReplaceAll(c.cfg.DetailsURL, "{release_name}", url.PathEscape(name))
	if err := c.fetcher.FetchJSON(ctx, "DET", endpoint, &details); err != nil {
		return release.ReleaseDetails{}, fmt.Errorf("fetch details for %s: %w", name, err)
	}
	return details, nil
}

// FileURL returns the download URL of a stored release file.
func (c *Client) FileURL(releaseName string, fileName string) string {
	return strings.NewReplacer(
		"{release_name}", url.PathEscape(releaseName),
		"{file_name}", url.PathEscape(fileName),
	).Replace(c.cfg.FileURL)
}

// flexBool accepts JSON booleans as well as the "yes"/"no" strings srrDB emits.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var asBool bool
	if err := json.Unmarshal(data, &asBool); err == nil {
		*b = flexBool(asBool)
		return nil
	}
	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return fmt.Errorf("decode flag %s: %w", string(data), err)
	}
	switch strings.ToLower(strings.TrimSpace(asString)) {
	case "yes", "true", "1":
		*b = true
	default:
		*b = false
	}
	return nil
}
