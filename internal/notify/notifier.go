// Package notify mirrors operational events to the log, a Discord webhook and
// ntfy push topics. Sink failures are logged and never escalated.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/predb-announcer/internal/release"
)

const messageTitle = "New Logging Message"

var colors = map[release.Level]int{
	release.LevelInfo:     0x00ffe0,
	release.LevelWarning:  0xf6ff00,
	release.LevelError:    0xe86998,
	release.LevelCritical: 0xff0000,
}

// DiscordConfig enables webhook embeds.
type DiscordConfig struct {
	Enabled bool
	Webhook string
}

// NtfyConfig enables push notifications. PublicTopic receives announced alerts.
type NtfyConfig struct {
	Enabled     bool
	Server      string
	Token       string
	Topic       string
	PublicTopic string
}

// Config selects the enabled sinks.
type Config struct {
	Discord DiscordConfig
	Ntfy    NtfyConfig
	Timeout time.Duration
}

// Notifier implements release.Notifier.
type Notifier struct {
	cfg    Config
	client *http.Client
	clock  release.Clock
	logger *zap.Logger
}

// New builds a Notifier. A nil client gets one bounded by cfg.Timeout.
func New(cfg Config, client *http.Client, clock release.Clock, logger *zap.Logger) *Notifier {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{cfg: cfg, client: client, clock: clock, logger: logger}
}

// Notify logs the alert and fans it out to the enabled sinks unless it is silent.
func (n *Notifier) Notify(ctx context.Context, alert release.Alert) {
	if ce := n.logger.Check(zapLevel(alert.Level), alert.Message); ce != nil {
		ce.Write(zap.String("level_name", string(alert.Level)), zap.Bool("announce", alert.Announce))
	}
	if alert.Silent {
		return
	}

	if n.cfg.Discord.Enabled {
		n.report("discord", n.sendDiscord(ctx, alert))
	}
	if n.cfg.Ntfy.Enabled {
		n.report("ntfy", n.sendNtfy(ctx, n.cfg.Ntfy.Topic, alert))
		if alert.Announce {
			n.report("ntfy_public", n.sendNtfy(ctx, n.cfg.Ntfy.PublicTopic, alert))
		}
	}
}

func (n *Notifier) report(sink string, err error) {
	if err != nil {
		n.logger.Warn("alert sink failed", zap.String("sink", sink), zap.Error(err))
	}
}

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp"`
}

type discordMessage struct {
	Content     *string        `json:"content"`
	Embeds      []discordEmbed `json:"embeds"`
	Attachments []any          `json:"attachments"`
}

func (n *Notifier) sendDiscord(ctx context.Context, alert release.Alert) error {
	now := time.Now()
	if n.clock != nil {
		now = n.clock.Now()
	}
	body := discordMessage{
		Embeds: []discordEmbed{{
			Title:       messageTitle,
			Description: alert.Message,
			Color:       colors[alert.Level],
			Timestamp:   now.UTC().Format(time.RFC3339Nano),
		}},
		Attachments: []any{},
	}
	return n.postJSON(ctx, n.cfg.Discord.Webhook, "", body)
}

type ntfyMessage struct {
	Topic    string           `json:"topic"`
	Message  string           `json:"message"`
	Title    string           `json:"title"`
	Markdown bool             `json:"markdown"`
	Actions  []release.Action `json:"actions"`
}

func (n *Notifier) sendNtfy(ctx context.Context, topic string, alert release.Alert) error {
	actions := alert.Actions
	if actions == nil {
		actions = []release.Action{}
	}
	body := ntfyMessage{
		Topic:    topic,
		Message:  alert.Message,
		Title:    messageTitle,
		Markdown: true,
		Actions:  actions,
	}
	return n.postJSON(ctx, n.cfg.Ntfy.Server, n.cfg.Ntfy.Token, body)
}

func (n *Notifier) postJSON(ctx context.Context, url, bearer string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func zapLevel(level release.Level) zapcore.Level {
	switch level {
	case release.LevelWarning:
		return zapcore.WarnLevel
	case release.LevelError, release.LevelCritical:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
