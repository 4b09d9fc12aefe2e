// Package zipline uploads rendered artifacts to a Zipline image host.
package zipline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// ErrNoFiles is returned when the host accepts the upload but reports no file URL.
var ErrNoFiles = errors.New("zipline returned no files")

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Config captures the upload endpoint and credentials.
type Config struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// BlobStore posts artifacts to the Zipline upload API.
type BlobStore struct {
	url    string
	token  string
	client *http.Client
}

// New builds a Zipline-backed blob store. A nil client gets one bounded by cfg.Timeout.
func New(cfg Config, client *http.Client) (*BlobStore, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("zipline url is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("zipline token is required")
	}
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &BlobStore{url: cfg.URL, token: cfg.Token, client: client}, nil
}

type uploadResponse struct {
	Files []string `json:"files"`
}

// PutObject uploads data as a single multipart file named path and returns its public URL.
func (s *BlobStore) PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(path)))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write form part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, &body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", s.token)
	req.Header.Set("Image-Compression-Percent", "0")
	req.Header.Set("Format", "NAME")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var decoded uploadResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Files) == 0 || decoded.Files[0] == "" {
		return "", ErrNoFiles
	}
	return decoded.Files[0], nil
}
