// Package config loads console settings from file, environment and flags via viper.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "CONSOLE"

type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Socket   SocketConfig   `mapstructure:"socket"`
	Grid     GridConfig     `mapstructure:"grid"`
	Store    StoreConfig    `mapstructure:"store"`
	Sessions SessionsConfig `mapstructure:"sessions"`
	Hub      HubConfig      `mapstructure:"hub"`
	Relay    RelayConfig    `mapstructure:"relay"`
	Log      LogConfig      `mapstructure:"log"`

	// Routes overrides notification destinations, keyed by lower-cased message type
	// (viper folds keys), e.g. routes.neworder: "/orders/{order_id}".
	Routes map[string]string `mapstructure:"routes"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	PollTimeout     time.Duration `mapstructure:"poll_timeout"`
}

type BackendConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	SocketURL   string `mapstructure:"socket_url"`
	Credentials string `mapstructure:"credentials"` // "include" | "omit"
}

type SocketConfig struct {
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	ReconnectBase time.Duration `mapstructure:"reconnect_base"`
	ReconnectMax  time.Duration `mapstructure:"reconnect_max"`
}

type GridConfig struct {
	Timeout          time.Duration `mapstructure:"timeout"`
	DefaultPageSize  int           `mapstructure:"default_page_size"`
	TablesPerSession int           `mapstructure:"tables_per_session"`
	Breaker          BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	MaxRequests         uint32        `mapstructure:"max_requests"`
	Interval            time.Duration `mapstructure:"interval"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
}

type StoreConfig struct {
	MaxMessages int `mapstructure:"max_messages"`
}

type SessionsConfig struct {
	Max int `mapstructure:"max"`
}

type HubConfig struct {
	EvictionInterval time.Duration `mapstructure:"eviction_interval"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	MailboxSize      int           `mapstructure:"mailbox_size"`
	SendTimeout      time.Duration `mapstructure:"send_timeout"`
	ViewerBuffer     int           `mapstructure:"viewer_buffer"`
}

type RelayConfig struct {
	Driver   string `mapstructure:"driver"` // "none" | "gochannel" | "amqp"
	AMQPURI  string `mapstructure:"amqp_uri"`
	Exchange string `mapstructure:"exchange"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" | "json" | "otel"
}

// Flags returns the override flag set. Flag names match the config keys.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("console", pflag.ContinueOnError)
	fs.String("http.addr", ":8080", "HTTP listen address")
	fs.String("backend.base_url", "", "REST base URL of the backend")
	fs.String("backend.socket_url", "", "WebSocket URL of the backend notification channel")
	fs.String("backend.credentials", "include", "send session credentials on the socket handshake (include|omit)")
	fs.String("log.level", "info", "log level (debug|info|warn|error)")
	fs.String("log.format", "text", "log format (text|json|otel)")
	fs.String("relay.driver", "none", "message relay (none|gochannel|amqp)")
	return fs
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.poll_timeout", 30*time.Second)
	v.SetDefault("backend.credentials", "include")
	v.SetDefault("socket.write_timeout", 5*time.Second)
	v.SetDefault("socket.reconnect_base", time.Second)
	v.SetDefault("socket.reconnect_max", 30*time.Second)
	v.SetDefault("grid.timeout", 15*time.Second)
	v.SetDefault("grid.default_page_size", 10)
	v.SetDefault("grid.tables_per_session", 32)
	v.SetDefault("grid.breaker.max_requests", 1)
	v.SetDefault("grid.breaker.interval", time.Minute)
	v.SetDefault("grid.breaker.timeout", 30*time.Second)
	v.SetDefault("grid.breaker.consecutive_failures", 5)
	v.SetDefault("store.max_messages", 100)
	v.SetDefault("sessions.max", 1024)
	v.SetDefault("hub.eviction_interval", 5*time.Minute)
	v.SetDefault("hub.idle_timeout", 10*time.Minute)
	v.SetDefault("hub.mailbox_size", 256)
	v.SetDefault("hub.send_timeout", 500*time.Millisecond)
	v.SetDefault("hub.viewer_buffer", 64)
	v.SetDefault("relay.driver", "none")
	v.SetDefault("relay.exchange", "console.notices")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Loader keeps the viper instance around so the file can be watched after load.
type Loader struct {
	v *viper.Viper
}

// LoadConfig reads defaults, the optional file, CONSOLE_* env vars and flag overrides
// (args are parsed with Flags), in increasing precedence.
func LoadConfig(file string, args []string) (*Config, *Loader, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	}

	fs := Flags()
	if err := fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("config: parse flags: %w", err)
	}
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			_ = v.BindPFlag(f.Name, f)
		}
	})

	l := &Loader{v: v}
	cfg, err := l.decode()
	if err != nil {
		return nil, nil, err
	}
	return cfg, l, nil
}

func (l *Loader) decode() (*Config, error) {
	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Watch re-decodes the file on every change and hands the result to fn.
// Invalid edits are logged and ignored. No-op when no file was loaded.
func (l *Loader) Watch(logger *slog.Logger, fn func(*Config)) {
	if l == nil || l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := l.decode()
		if err != nil {
			logger.Warn("config reload rejected", slog.String("file", e.Name), slog.Any("err", err))
			return
		}
		logger.Info("config reloaded", slog.String("file", e.Name), slog.String("op", e.Op.String()))
		fn(cfg)
	})
	l.v.WatchConfig()
}

var (
	ErrNoBackend          = errors.New("config: backend.base_url is required")
	ErrInvalidCredentials = errors.New("config: backend.credentials must be include or omit")
	ErrInvalidRelay       = errors.New("config: relay.driver must be none, gochannel or amqp")
)

func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return ErrNoBackend
	}
	if c.Backend.SocketURL == "" {
		c.Backend.SocketURL = deriveSocketURL(c.Backend.BaseURL)
	}
	switch c.Backend.Credentials {
	case "include", "omit":
	default:
		return ErrInvalidCredentials
	}
	switch c.Relay.Driver {
	case "none", "gochannel":
	case "amqp":
		if c.Relay.AMQPURI == "" {
			return fmt.Errorf("%w: amqp_uri is required for amqp", ErrInvalidRelay)
		}
	default:
		return ErrInvalidRelay
	}
	return nil
}

// SlogLevel maps log.level onto slog.
func (c *LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// deriveSocketURL turns http(s)://host/api into ws(s)://host/api/ws.
func deriveSocketURL(base string) string {
	u := strings.TrimRight(base, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}
