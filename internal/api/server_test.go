package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/predb-announcer/internal/pipeline"
	"github.com/JakeFAU/predb-announcer/internal/release"
	"github.com/JakeFAU/predb-announcer/internal/storage/sqlite"
)

type fakeStatus struct {
	status pipeline.Status
}

func (f fakeStatus) Status() pipeline.Status {
	return f.status
}

func newTestServer() *Server {
	return NewServer(fakeStatus{status: pipeline.Status{
		Renderer:     "builtin",
		Cycles:       3,
		SeenReleases: 42,
		Announced:    2,
		LastRelease:  "Some.Game.NSW-VENOM",
		LastOutcome:  "announced",
	}}, Config{}, zap.NewNop())
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_Status(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got pipeline.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "builtin", got.Renderer)
	require.Equal(t, int64(3), got.Cycles)
	require.Equal(t, 42, got.SeenReleases)
	require.Equal(t, "Some.Game.NSW-VENOM", got.LastRelease)
}

func TestServer_StatusWithoutPoller(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	NewServer(nil, Config{}, nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type fakeArchive struct {
	rows map[string][]sqlite.StoredRelease
	err  error
}

func (f fakeArchive) ListByTitleID(_ context.Context, titleID string) ([]sqlite.StoredRelease, error) {
	return f.rows[titleID], f.err
}

func TestServer_ListReleases(t *testing.T) {
	t.Parallel()

	createdAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	archive := fakeArchive{rows: map[string][]sqlite.StoredRelease{
		"0100000000010000": {{
			ID:        "id-001",
			CreatedAt: createdAt,
			Record:    release.Record{Title: "Some.Game.NSW-VENOM", TitleID: "0100000000010000"},
		}},
	}}
	srv := NewServer(nil, Config{}, zap.NewNop(), WithArchive(archive))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/releases/0100000000010000", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		TitleID  string                 `json:"title_id"`
		Releases []sqlite.StoredRelease `json:"releases"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "0100000000010000", got.TitleID)
	require.Len(t, got.Releases, 1)
	require.Equal(t, "Some.Game.NSW-VENOM", got.Releases[0].Record.Title)
	require.True(t, got.Releases[0].CreatedAt.Equal(createdAt))

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/releases/0100FFFFFFFF0000", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"title_id":"0100FFFFFFFF0000","releases":[]}`, rec.Body.String())
}

func TestServer_ListReleasesErrors(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/releases/0100000000010000", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	srv := NewServer(nil, Config{}, zap.NewNop(), WithArchive(fakeArchive{err: errors.New("database is locked")}))
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/releases/0100000000010000", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"archive lookup failed"}`, rec.Body.String())
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	srv := newTestServer()
	srv.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestRequestIDMiddlewareSetsHeader(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.ErrorLevel)
	srv := NewServer(nil, Config{}, zap.New(core))
	handler := srv.recoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- newTestServer().Serve(ctx, listener)
	}()

	url := "http://" + listener.Addr().String() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url) //nolint:noctx // readiness poll
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
