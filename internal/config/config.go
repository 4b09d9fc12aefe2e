// Package config loads and validates announcer configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/predb-announcer/internal/render"
)

// Storage backends.
const (
	StorageZipline = "zipline"
	StorageGCS     = "gcs"
	StorageLocal   = "local"
	StorageMemory  = "memory"
)

// Persistence backends.
const (
	PersistPostgres = "postgres"
	PersistSQLite   = "sqlite"
	PersistPubSub   = "pubsub"
	PersistMemory   = "memory"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Common  CommonConfig  `mapstructure:"common"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Links   LinksConfig   `mapstructure:"links"`
	Render  RenderConfig  `mapstructure:"render"`
	Storage StorageConfig `mapstructure:"storage"`
	Persist PersistConfig `mapstructure:"persist"`
	Twitter TwitterConfig `mapstructure:"twitter"`
	Discord DiscordConfig `mapstructure:"discord"`
	Ntfy    NtfyConfig    `mapstructure:"ntfy"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CommonConfig holds loop pacing. Debug runs a single pass without the cold-start suppression.
type CommonConfig struct {
	Debug        bool          `mapstructure:"debug"`
	ReleaseDelay time.Duration `mapstructure:"release_delay"`
	CycleDelay   time.Duration `mapstructure:"cycle_delay"`
}

// HTTPConfig configures outbound requests.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// CatalogConfig holds the srrDB endpoint templates.
type CatalogConfig struct {
	ScanURL    string `mapstructure:"scan_url"`
	DetailsURL string `mapstructure:"details_url"`
	FileURL    string `mapstructure:"file_url"`
}

// LinksConfig holds the public link templates keyed on the masked title ID.
type LinksConfig struct {
	ThumbnailURL string `mapstructure:"thumbnail_url"`
	TinfoilURL   string `mapstructure:"tinfoil_url"`
	EShopURL     string `mapstructure:"eshop_url"`
}

// RenderConfig selects and tunes the document renderer.
type RenderConfig struct {
	Renderer       string  `mapstructure:"renderer"`
	FontPath       string  `mapstructure:"font_path"`
	FontSize       float64 `mapstructure:"font_size"`
	FontWidth      int     `mapstructure:"font_width"`
	LineHeight     int     `mapstructure:"line_height"`
	Background     string  `mapstructure:"background"`
	Foreground     string  `mapstructure:"foreground"`
	JPEGQuality    int     `mapstructure:"jpeg_quality"`
	AnsiloveBinary string  `mapstructure:"ansilove_binary"`
	InfektBinary   string  `mapstructure:"infekt_binary"`
}

// StorageConfig selects where rendered documents are uploaded.
type StorageConfig struct {
	Backend string        `mapstructure:"backend"`
	Zipline ZiplineConfig `mapstructure:"zipline"`
	GCS     GCSConfig     `mapstructure:"gcs"`
	Local   LocalConfig   `mapstructure:"local"`
}

// ZiplineConfig holds the upload endpoint and token.
type ZiplineConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

// GCSConfig targets a public bucket.
type GCSConfig struct {
	Bucket        string `mapstructure:"bucket"`
	Prefix        string `mapstructure:"prefix"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// LocalConfig writes into a directory served by a web server.
type LocalConfig struct {
	BaseDir   string `mapstructure:"base_dir"`
	PublicURL string `mapstructure:"public_url"`
}

// PersistConfig enables the release archive.
type PersistConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Backends []string       `mapstructure:"backends"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
}

// PostgresConfig controls the relational archive.
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// SQLiteConfig controls the embedded archive.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// PubSubConfig names the release event topic.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// TwitterConfig holds OAuth1 user credentials.
type TwitterConfig struct {
	ConsumerKey       string `mapstructure:"consumer_key"`
	ConsumerSecret    string `mapstructure:"consumer_secret"`
	AccessToken       string `mapstructure:"access_token"`
	AccessTokenSecret string `mapstructure:"access_token_secret"`
	Username          string `mapstructure:"username"`
}

// DiscordConfig enables webhook alerts.
type DiscordConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Webhook string `mapstructure:"webhook"`
}

// NtfyConfig enables push alerts.
type NtfyConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Server      string `mapstructure:"server"`
	Token       string `mapstructure:"token"`
	Topic       string `mapstructure:"topic"`
	PublicTopic string `mapstructure:"public_topic"`
}

// ServerConfig controls the operational HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PREDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("common.debug", false)
	v.SetDefault("common.release_delay", "1m")
	v.SetDefault("common.cycle_delay", "1m")
	v.SetDefault("http.timeout_seconds", 10)
	v.SetDefault("http.user_agent", "predb-announcer/1.0")
	v.SetDefault("catalog.scan_url", "https://api.srrdb.com/v1/search/category:nsw/order:date-desc")
	v.SetDefault("catalog.details_url", "https://api.srrdb.com/v1/details/{release_name}")
	v.SetDefault("catalog.file_url", "https://www.srrdb.com/download/file/{release_name}/{file_name}")
	v.SetDefault("links.thumbnail_url", "https://tinfoil.media/ti/{title_id}/1024/1024/")
	v.SetDefault("links.tinfoil_url", "https://tinfoil.io/Title/{title_id}")
	v.SetDefault("links.eshop_url", "https://ec.nintendo.com/apps/{title_id}/US")
	v.SetDefault("render.renderer", string(render.KindBuiltin))
	v.SetDefault("render.font_path", "")
	v.SetDefault("render.font_size", 13)
	v.SetDefault("render.font_width", 0)
	v.SetDefault("render.line_height", 14)
	v.SetDefault("render.background", "#000000")
	v.SetDefault("render.foreground", "#ffffff")
	v.SetDefault("render.jpeg_quality", 90)
	v.SetDefault("render.ansilove_binary", "ansilove")
	v.SetDefault("render.infekt_binary", "infekt-cli")
	v.SetDefault("storage.backend", StorageZipline)
	v.SetDefault("storage.zipline.url", "")
	v.SetDefault("storage.zipline.token", "")
	v.SetDefault("storage.gcs.bucket", "")
	v.SetDefault("storage.gcs.prefix", "")
	v.SetDefault("storage.gcs.public_base_url", "https://storage.googleapis.com")
	v.SetDefault("storage.local.base_dir", "")
	v.SetDefault("storage.local.public_url", "")
	v.SetDefault("persist.enabled", false)
	v.SetDefault("persist.backends", []string{PersistPostgres})
	v.SetDefault("persist.postgres.dsn", "")
	v.SetDefault("persist.postgres.table", "releases")
	v.SetDefault("persist.postgres.max_conns", 4)
	v.SetDefault("persist.postgres.min_conns", 0)
	v.SetDefault("persist.postgres.max_conn_lifetime", "30m")
	v.SetDefault("persist.sqlite.path", "releases.db")
	v.SetDefault("persist.pubsub.project_id", "")
	v.SetDefault("persist.pubsub.topic_name", "")
	// Secrets usually arrive through PREDB_* variables only. AutomaticEnv
	// cannot see a key that has neither a default nor a file entry.
	v.SetDefault("twitter.consumer_key", "")
	v.SetDefault("twitter.consumer_secret", "")
	v.SetDefault("twitter.access_token", "")
	v.SetDefault("twitter.access_token_secret", "")
	v.SetDefault("twitter.username", "")
	v.SetDefault("discord.enabled", false)
	v.SetDefault("discord.webhook", "")
	v.SetDefault("ntfy.enabled", false)
	v.SetDefault("ntfy.server", "https://ntfy.sh")
	v.SetDefault("ntfy.token", "")
	v.SetDefault("ntfy.topic", "")
	v.SetDefault("ntfy.public_topic", "")
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if _, err := render.ParseKind(c.Render.Renderer); err != nil {
		return fmt.Errorf("render.renderer: %w", err)
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Common.ReleaseDelay < 0 || c.Common.CycleDelay < 0 {
		return fmt.Errorf("common delays must be >= 0")
	}
	if !c.Common.Debug && c.Common.CycleDelay == 0 {
		return fmt.Errorf("common.cycle_delay must be > 0 outside debug mode")
	}
	if c.Render.JPEGQuality < 1 || c.Render.JPEGQuality > 100 {
		return fmt.Errorf("render.jpeg_quality must be between 1 and 100")
	}
	if err := c.Storage.validate(); err != nil {
		return err
	}
	if err := c.Persist.validate(); err != nil {
		return err
	}
	if err := c.Twitter.validate(); err != nil {
		return err
	}
	if c.Discord.Enabled && c.Discord.Webhook == "" {
		return fmt.Errorf("discord.webhook must be set when discord is enabled")
	}
	if c.Ntfy.Enabled && (c.Ntfy.Server == "" || c.Ntfy.Topic == "") {
		return fmt.Errorf("ntfy.server and ntfy.topic must be set when ntfy is enabled")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}

func (s StorageConfig) validate() error {
	switch s.Backend {
	case StorageZipline:
		if s.Zipline.URL == "" || s.Zipline.Token == "" {
			return fmt.Errorf("storage.zipline.url and storage.zipline.token are required")
		}
	case StorageGCS:
		if s.GCS.Bucket == "" {
			return fmt.Errorf("storage.gcs.bucket is required")
		}
	case StorageLocal:
		if s.Local.BaseDir == "" {
			return fmt.Errorf("storage.local.base_dir is required")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage.backend %q", s.Backend)
	}
	return nil
}

func (p PersistConfig) validate() error {
	if !p.Enabled {
		return nil
	}
	if len(p.Backends) == 0 {
		return errors.New("persist.backends must list at least one backend when persistence is enabled")
	}
	for _, backend := range p.Backends {
		switch backend {
		case PersistPostgres:
			if p.Postgres.DSN == "" {
				return fmt.Errorf("persist.postgres.dsn is required")
			}
		case PersistSQLite:
			if p.SQLite.Path == "" {
				return fmt.Errorf("persist.sqlite.path is required")
			}
		case PersistPubSub:
			if p.PubSub.ProjectID == "" || p.PubSub.TopicName == "" {
				return fmt.Errorf("persist.pubsub.project_id and persist.pubsub.topic_name are required")
			}
		case PersistMemory:
		default:
			return fmt.Errorf("unknown persist backend %q", backend)
		}
	}
	return nil
}

func (t TwitterConfig) validate() error {
	if t.ConsumerKey == "" || t.ConsumerSecret == "" || t.AccessToken == "" || t.AccessTokenSecret == "" {
		return fmt.Errorf("twitter consumer and access credentials are required")
	}
	if t.Username == "" {
		return fmt.Errorf("twitter.username is required")
	}
	return nil
}

// SinglePass reports whether the loop runs once with cold-start suppression disabled.
func (c Config) SinglePass() bool {
	return c.Common.Debug
}

// HTTPTimeout converts the request timeout into a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// RenderKind returns the validated renderer kind.
func (c Config) RenderKind() render.Kind {
	kind, _ := render.ParseKind(c.Render.Renderer)
	return kind
}
