// Package twitter publishes announcements through the Twitter media and post APIs.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
)

// Default endpoints.
const (
	DefaultMediaURL = "https://upload.twitter.com/1.1/media/upload.json"
	DefaultPostURL  = "https://api.twitter.com/2/tweets"
	DefaultBaseURL  = "https://twitter.com"
)

// ErrEmptyHandle is returned when the API accepts a request but omits the id.
var ErrEmptyHandle = errors.New("response carried no id")

// Config holds the static OAuth1 credentials and endpoints.
type Config struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
	Username       string

	MediaURL string
	PostURL  string
	BaseURL  string
	Timeout  time.Duration
}

// Client signs every request with OAuth1 user credentials.
type Client struct {
	http     *http.Client
	mediaURL string
	postURL  string
	baseURL  string
	username string
}

// New builds a Client. base is the transport used underneath the signer; nil
// uses a client bounded by cfg.Timeout.
func New(cfg Config, base *http.Client) (*Client, error) {
	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" || cfg.AccessToken == "" || cfg.AccessSecret == "" {
		return nil, fmt.Errorf("twitter credentials are required")
	}
	if base == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		base = &http.Client{Timeout: timeout}
	}

	ctx := context.WithValue(context.Background(), oauth1.HTTPClient, base)
	signed := oauth1.NewConfig(cfg.ConsumerKey, cfg.ConsumerSecret).
		Client(ctx, oauth1.NewToken(cfg.AccessToken, cfg.AccessSecret))
	signed.Timeout = base.Timeout

	return &Client{
		http:     signed,
		mediaURL: orDefault(cfg.MediaURL, DefaultMediaURL),
		postURL:  orDefault(cfg.PostURL, DefaultPostURL),
		baseURL:  strings.TrimSuffix(orDefault(cfg.BaseURL, DefaultBaseURL), "/"),
		username: cfg.Username,
	}, nil
}

type mediaResponse struct {
	MediaIDString string `json:"media_id_string"`
}

// UploadMedia posts one image and returns its media handle.
func (c *Client) UploadMedia(ctx context.Context, data []byte, filename string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("media", filename)
	if err != nil {
		return "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write form part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	var decoded mediaResponse
	if err := c.do(ctx, c.mediaURL, writer.FormDataContentType(), &body, &decoded); err != nil {
		return "", fmt.Errorf("upload media %s: %w", filename, err)
	}
	if decoded.MediaIDString == "" {
		return "", fmt.Errorf("upload media %s: %w", filename, ErrEmptyHandle)
	}
	return decoded.MediaIDString, nil
}

type postRequest struct {
	Text  string     `json:"text"`
	Media *postMedia `json:"media,omitempty"`
}

type postMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type postResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Post publishes text with the given attachments and returns the post id.
func (c *Client) Post(ctx context.Context, text string, mediaIDs []string) (string, error) {
	payload := postRequest{Text: text}
	if len(mediaIDs) > 0 {
		payload.Media = &postMedia{MediaIDs: mediaIDs}
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal post: %w", err)
	}

	var decoded postResponse
	if err := c.do(ctx, c.postURL, "application/json", bytes.NewReader(encoded), &decoded); err != nil {
		return "", fmt.Errorf("create post: %w", err)
	}
	if decoded.Data.ID == "" {
		return "", fmt.Errorf("create post: %w", ErrEmptyHandle)
	}
	return decoded.Data.ID, nil
}

// StatusURL returns the public link to a post.
func (c *Client) StatusURL(postID string) string {
	return fmt.Sprintf("%s/%s/status/%s", c.baseURL, c.username, postID)
}

func (c *Client) do(ctx context.Context, url, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
