package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/predb-announcer/internal/release"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type capture struct {
	mu       sync.Mutex
	requests []capturedRequest
}

type capturedRequest struct {
	Path          string
	Authorization string
	Body          map[string]any
}

func (c *capture) handler(t *testing.T, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		c.mu.Lock()
		c.requests = append(c.requests, capturedRequest{
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			Body:          body,
		})
		c.mu.Unlock()
		w.WriteHeader(status)
	})
}

func (c *capture) all() []capturedRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]capturedRequest(nil), c.requests...)
}

func newTestNotifier(t *testing.T, status int) (*Notifier, *capture, *observer.ObservedLogs) {
	t.Helper()
	sink := &capture{}
	server := httptest.NewServer(sink.handler(t, status))
	t.Cleanup(server.Close)

	core, logs := observer.New(zapcore.DebugLevel)
	cfg := Config{
		Discord: DiscordConfig{Enabled: true, Webhook: server.URL + "/discord"},
		Ntfy: NtfyConfig{
			Enabled:     true,
			Server:      server.URL + "/ntfy",
			Token:       "tk_secret",
			Topic:       "predb-private",
			PublicTopic: "predb-public",
		},
	}
	clock := fixedClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	return New(cfg, server.Client(), clock, zap.New(core)), sink, logs
}

func TestNotifyFansOutToAllSinks(t *testing.T) {
	t.Parallel()

	notifier, sink, logs := newTestNotifier(t, http.StatusOK)
	notifier.Notify(context.Background(), release.Alert{
		Level:    release.LevelInfo,
		Message:  "[REL] Found new release: Some.Game-GRP",
		Announce: true,
		Actions:  []release.Action{release.ViewAction("View on eShop", "https://ec.nintendo.com/apps/0100000000010000/US")},
	})

	requests := sink.all()
	require.Len(t, requests, 3)

	discord := requests[0]
	require.Equal(t, "/discord", discord.Path)
	require.Empty(t, discord.Authorization)
	require.Nil(t, discord.Body["content"])
	embeds := discord.Body["embeds"].([]any)
	require.Len(t, embeds, 1)
	require.Equal(t, map[string]any{
		"title":       "New Logging Message",
		"description": "[REL] Found new release: Some.Game-GRP",
		"color":       float64(0x00ffe0),
		"timestamp":   "2024-05-01T12:00:00Z",
	}, embeds[0])

	private, public := requests[1], requests[2]
	require.Equal(t, "Bearer tk_secret", private.Authorization)
	require.Equal(t, "predb-private", private.Body["topic"])
	require.Equal(t, "predb-public", public.Body["topic"])
	require.Equal(t, true, private.Body["markdown"])
	require.Equal(t, "New Logging Message", private.Body["title"])
	require.Equal(t, []any{map[string]any{
		"action": "view",
		"label":  "View on eShop",
		"url":    "https://ec.nintendo.com/apps/0100000000010000/US",
	}}, private.Body["actions"])

	require.Equal(t, 1, logs.FilterMessage("[REL] Found new release: Some.Game-GRP").Len())
}

func TestNotifyWithoutAnnounceSkipsPublicTopic(t *testing.T) {
	t.Parallel()

	notifier, sink, _ := newTestNotifier(t, http.StatusOK)
	notifier.Notify(context.Background(), release.Alert{Level: release.LevelCritical, Message: "boom"})

	requests := sink.all()
	require.Len(t, requests, 2)
	embeds := requests[0].Body["embeds"].([]any)
	require.Equal(t, float64(0xff0000), embeds[0].(map[string]any)["color"])
	require.Equal(t, "predb-private", requests[1].Body["topic"])
	require.Equal(t, []any{}, requests[1].Body["actions"])
}

func TestNotifySilentOnlyLogs(t *testing.T) {
	t.Parallel()

	notifier, sink, logs := newTestNotifier(t, http.StatusOK)
	notifier.Notify(context.Background(), release.Alert{Level: release.LevelWarning, Message: "quiet", Silent: true, Announce: true})

	require.Empty(t, sink.all())
	entries := logs.FilterMessage("quiet").All()
	require.Len(t, entries, 1)
	require.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestNotifySinkFailureIsLogged(t *testing.T) {
	t.Parallel()

	notifier, sink, logs := newTestNotifier(t, http.StatusInternalServerError)
	notifier.Notify(context.Background(), release.Alert{Level: release.LevelError, Message: "fetch failed"})

	require.Len(t, sink.all(), 2)
	require.Equal(t, 2, logs.FilterMessage("alert sink failed").Len())
}

func TestNotifyDisabledSinks(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	notifier := New(Config{}, nil, nil, zap.New(core))
	notifier.Notify(context.Background(), release.Alert{Level: release.LevelInfo, Message: "local only"})
	require.Equal(t, 1, logs.Len())
}
