// Package collyfetcher implements release.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/predb-announcer/internal/metrics"
	"github.com/JakeFAU/predb-announcer/internal/release"
)

// ErrNoData is returned when a request succeeds but carries an empty body.
var ErrNoData = errors.New("no data")

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-success response %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// Config controls collector behavior.
type Config struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int
	// Debug logs every outbound request.
	Debug bool
}

// Fetcher implements release.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	notifier      release.Notifier
	logger        *zap.Logger
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher. The notifier may be nil.
func New(cfg Config, notifier release.Notifier, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 32 * 1024 * 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.IgnoreRobotsTxt = true
	c.MaxBodySize = cfg.MaxBodyBytes
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		notifier:      notifier,
		logger:        logger,
	}
}

// FetchBytes executes a single HTTP GET and returns the body.
func (f *Fetcher) FetchBytes(ctx context.Context, caller string, url string) ([]byte, error) {
	if f.cfg.Debug {
		f.logger.Debug("outbound request", zap.String("caller", caller), zap.String("url", url), zap.String("method", http.MethodGet))
	}
	body, err := f.fetch(ctx, url)
	if err != nil {
		metrics.ObserveFetch(caller, "error")
		f.reportFailure(ctx, caller, url, err)
		return nil, err
	}
	metrics.ObserveFetch(caller, "ok")
	return body, nil
}

// FetchJSON fetches url and decodes the JSON body into out.
func (f *Fetcher) FetchJSON(ctx context.Context, caller string, url string, out any) error {
	body, err := f.FetchBytes(ctx, caller, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		f.reportFailure(ctx, caller, url, err)
		return fmt.Errorf("decode json from %s: %w", url, err)
	}
	return nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	var (
		body     []byte
		fetchErr error
	)
	collector := f.baseCollector.Clone()
	f.configureCollectorHooks(collector, &body, &fetchErr)
	if err := f.runCollector(ctx, collector, url, &fetchErr); err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("fetch %s: %w", url, ErrNoData)
	}
	return body, nil
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, body *[]byte, fetchErr *error) {
	hooks.OnResponse(func(r *colly.Response) {
		*body = append([]byte(nil), r.Body...)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 && (r.StatusCode < 200 || r.StatusCode > 299) {
			statusErr := &StatusError{StatusCode: r.StatusCode, Body: truncate(string(r.Body), 512)}
			if r.Request != nil && r.Request.URL != nil {
				statusErr.URL = r.Request.URL.String()
			}
			*fetchErr = statusErr
			return
		}
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func (f *Fetcher) reportFailure(ctx context.Context, caller, url string, err error) {
	f.logger.Error("request failed", zap.String("caller", caller), zap.String("url", url), zap.Error(err))
	if f.notifier == nil {
		return
	}
	f.notifier.Notify(ctx, release.Alert{
		Level:   release.LevelError,
		Message: fmt.Sprintf("[REQ][%s] Reaching %s failed: `%v`", caller, url, err),
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
	}
}
