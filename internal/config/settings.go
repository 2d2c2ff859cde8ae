package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultBaseURL        = "http://127.0.0.1:8000"
	defaultQueryPath      = "/api/agent/query"
	defaultChannelPath    = "/api/agent/ws/agent"
	defaultLoginPath      = "/auth/login"
	defaultMePath         = "/auth/me"
	defaultEntity         = "student"
	defaultRequestTimeout = 60 * time.Second
	defaultDialTimeout    = 5 * time.Second
)

const (
	envBaseURL  = "WARDAN_BASE_URL"
	envLogLevel = "WARDAN_LOG_LEVEL"
	envMetrics  = "WARDAN_METRICS_ADDR"
)

type Config struct {
	Server  ServerConfig  `toml:"server" json:"server"`
	Agent   AgentConfig   `toml:"agent" json:"agent"`
	Logging LoggingConfig `toml:"logging" json:"logging"`
	Metrics MetricsConfig `toml:"metrics" json:"metrics"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	Store   StoreConfig   `toml:"store" json:"store"`
}

type ServerConfig struct {
	BaseURL   string `toml:"base_url" json:"base_url"`
	LoginPath string `toml:"login_path" json:"login_path"`
	MePath    string `toml:"me_path" json:"me_path"`
}

type AgentConfig struct {
	QueryPath      string   `toml:"query_path" json:"query_path"`
	ChannelPath    string   `toml:"ws_path" json:"ws_path"`
	DefaultEntity  string   `toml:"default_entity" json:"default_entity"`
	RequestTimeout Duration `toml:"request_timeout" json:"request_timeout"`
	DialTimeout    Duration `toml:"dial_timeout" json:"dial_timeout"`
	AutoConnect    bool     `toml:"auto_connect" json:"auto_connect"`
}

type LoggingConfig struct {
	Level string `toml:"level" json:"level"`
}

type MetricsConfig struct {
	Address string `toml:"address" json:"address"`
}

type StoreConfig struct {
	Backend string `toml:"backend" json:"backend"`
}

type UIConfig struct {
	Markdown  bool `toml:"markdown" json:"markdown"`
	AltScreen bool `toml:"alt_screen" json:"alt_screen"`
}

// Duration decodes TOML strings such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			BaseURL:   defaultBaseURL,
			LoginPath: defaultLoginPath,
			MePath:    defaultMePath,
		},
		Agent: AgentConfig{
			QueryPath:      defaultQueryPath,
			ChannelPath:    defaultChannelPath,
			DefaultEntity:  defaultEntity,
			RequestTimeout: Duration{defaultRequestTimeout},
			DialTimeout:    Duration{defaultDialTimeout},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		UI: UIConfig{
			Markdown:  true,
			AltScreen: true,
		},
	}
}

// Load reads the config file from the data directory, then applies a local
// .env file and WARDAN_* environment overrides.
func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return LoadFromPath(path)
}

func LoadFromPath(path string) (Config, error) {
	cfg := Default()
	if err := readTOML(path, &cfg); err != nil {
		return Config{}, err
	}
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(envBaseURL)); v != "" {
		c.Server.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(envLogLevel)); v != "" {
		c.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(envMetrics)); v != "" {
		c.Metrics.Address = v
	}
}

func (c Config) BaseURL() string {
	base := strings.TrimRight(strings.TrimSpace(c.Server.BaseURL), "/")
	if base == "" {
		return defaultBaseURL
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return base
}

// ChannelURL derives the persistent channel endpoint from the base URL by
// swapping the scheme.
func (c Config) ChannelURL() (string, error) {
	parsed, err := url.Parse(c.BaseURL())
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	default:
		parsed.Scheme = "ws"
	}
	return strings.TrimRight(parsed.String(), "/") + pathOr(c.Agent.ChannelPath, defaultChannelPath), nil
}

func (c Config) QueryPath() string {
	return pathOr(c.Agent.QueryPath, defaultQueryPath)
}

func (c Config) LoginPath() string {
	return pathOr(c.Server.LoginPath, defaultLoginPath)
}

func (c Config) MePath() string {
	return pathOr(c.Server.MePath, defaultMePath)
}

func (c Config) DefaultEntity() string {
	entity := strings.ToLower(strings.TrimSpace(c.Agent.DefaultEntity))
	if entity == "" {
		return defaultEntity
	}
	return entity
}

func (c Config) RequestTimeout() time.Duration {
	if c.Agent.RequestTimeout.Duration <= 0 {
		return defaultRequestTimeout
	}
	return c.Agent.RequestTimeout.Duration
}

func (c Config) DialTimeout() time.Duration {
	if c.Agent.DialTimeout.Duration <= 0 {
		return defaultDialTimeout
	}
	return c.Agent.DialTimeout.Duration
}

func (c Config) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}

func (c Config) StoreBackend() string {
	backend := strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if backend == "" {
		return "bbolt"
	}
	return backend
}

func (c Config) MetricsAddress() string {
	return strings.TrimSpace(c.Metrics.Address)
}

// Encode renders the effective configuration as TOML.
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

func pathOr(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	if !strings.HasPrefix(value, "/") {
		value = "/" + value
	}
	return value
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}
