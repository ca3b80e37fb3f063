// Package config loads the agent's settings from a YAML file, an
// optional .env file and LOGBOT_* environment variables, in that order
// of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultFile = "logbot.yaml"
	// DefaultLogReadURL points at the built-in reader. The token comes
	// first: an unescaped '#' in the channel ends the query there.
	DefaultLogReadURL = "http://localhost:8080/readlog?tk={token}&ch={channel}"

	defaultPort           = 6667
	defaultNick           = "logbot"
	defaultRealName       = "Logger bot"
	defaultDriver         = "sqlite"
	defaultEventTTL       = 6 * time.Hour
	defaultMaxLogEntries  = 200
	defaultTokenTTL       = 5 * time.Minute
	defaultTokenLength    = 10
	minTokenLength        = 7
	defaultTrimInterval   = 10 * time.Minute
	defaultNickRetryDelay = 30 * time.Second
	defaultHTTPAddr       = ":8080"
	defaultLogLevel       = "info"
	defaultEnvironment    = "production"
)

// Server is one IRC server to try. In YAML it is either "host:port"
// or a mapping with host, port and tls.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	TLS  bool   `yaml:"tls"`
}

func (s *Server) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		host, port := strings.TrimSpace(value.Value), ""
		if h, p, err := net.SplitHostPort(host); err == nil {
			host, port = h, p
		}
		s.Host = host
		if port != "" {
			n, err := strconv.Atoi(port)
			if err != nil {
				return fmt.Errorf("server %q: bad port: %w", value.Value, err)
			}
			s.Port = n
		}
		return nil
	case yaml.MappingNode:
		type plain Server
		return value.Decode((*plain)(s))
	default:
		return fmt.Errorf("server: expected string or mapping at line %d", value.Line)
	}
}

type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Environment string `yaml:"environment"`
}

type Config struct {
	Servers        []Server      `yaml:"servers"`
	Channels       []string      `yaml:"channels"`
	Nick           string        `yaml:"nick"`
	RealName       string        `yaml:"realname"`
	Store          StoreConfig   `yaml:"store"`
	AdminSecret    string        `yaml:"admin_secret"`
	EventTTL       time.Duration `yaml:"event_ttl"`
	MaxLogEntries  int           `yaml:"max_log_entries"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
	TokenLength    int           `yaml:"token_length"`
	LogReadURL     string        `yaml:"log_read_url"`
	TrimInterval   time.Duration `yaml:"trim_interval"`
	NickRetryDelay time.Duration `yaml:"nick_retry_delay"`
	HTTP           HTTPConfig    `yaml:"http"`
	Log            LogConfig     `yaml:"log"`
}

func defaults() Config {
	return Config{
		Nick:           defaultNick,
		RealName:       defaultRealName,
		Store:          StoreConfig{Driver: defaultDriver},
		EventTTL:       defaultEventTTL,
		MaxLogEntries:  defaultMaxLogEntries,
		TokenTTL:       defaultTokenTTL,
		TokenLength:    defaultTokenLength,
		LogReadURL:     DefaultLogReadURL,
		TrimInterval:   defaultTrimInterval,
		NickRetryDelay: defaultNickRetryDelay,
		HTTP:           HTTPConfig{Addr: defaultHTTPAddr},
		Log:            LogConfig{Level: defaultLogLevel, Environment: defaultEnvironment},
	}
}

// ResolvePath picks the config file: the flag value, else
// $LOGBOT_CONFIG, else DefaultFile if it exists. An empty result means
// no file.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if env := strings.TrimSpace(os.Getenv("LOGBOT_CONFIG")); env != "" {
		return env
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return DefaultFile
	}
	return ""
}

// Load reads the config at path (skipped when empty), then applies
// .env and environment overrides. It does not validate; see Validate.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaults()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	for i := range cfg.Servers {
		if cfg.Servers[i].Port == 0 {
			cfg.Servers[i].Port = defaultPort
		}
	}
	if cfg.Store.Driver == defaultDriver && cfg.Store.Path == "" {
		home, _ := os.UserHomeDir()
		cfg.Store.Path = filepath.Join(home, ".logbot", "logbot.db")
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Environment = strings.ToLower(cfg.Log.Environment)

	return cfg, nil
}

func applyEnv(cfg *Config) {
	for key, dst := range map[string]*string{
		"LOGBOT_ADMIN_SECRET": &cfg.AdminSecret,
		"LOGBOT_STORE_DRIVER": &cfg.Store.Driver,
		"LOGBOT_STORE_PATH":   &cfg.Store.Path,
		"LOGBOT_STORE_DSN":    &cfg.Store.DSN,
		"LOGBOT_NICK":         &cfg.Nick,
		"LOGBOT_HTTP_ADDR":    &cfg.HTTP.Addr,
		"LOGBOT_LOG_LEVEL":    &cfg.Log.Level,
		"LOGBOT_ENV":          &cfg.Log.Environment,
	} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
}

// ValidateStore checks only what opening the store needs.
func (c Config) ValidateStore() error {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return errors.New("store.path is required for sqlite")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("store.driver must be one of: sqlite, postgres")
	}
	return nil
}

// Validate checks everything the agent needs to run.
func (c Config) Validate() error {
	if err := c.ValidateStore(); err != nil {
		return err
	}
	if len(c.Servers) == 0 {
		return errors.New("at least one server is required")
	}
	for _, s := range c.Servers {
		if s.Host == "" {
			return errors.New("server host is required")
		}
	}
	if c.Nick == "" {
		return errors.New("nick is required")
	}
	if c.AdminSecret == "" {
		return errors.New("admin_secret is required")
	}
	for name, d := range map[string]time.Duration{
		"event_ttl":        c.EventTTL,
		"token_ttl":        c.TokenTTL,
		"trim_interval":    c.TrimInterval,
		"nick_retry_delay": c.NickRetryDelay,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.MaxLogEntries <= 0 {
		return errors.New("max_log_entries must be positive")
	}
	if c.TokenLength < minTokenLength {
		return fmt.Errorf("token_length must be at least %d", minTokenLength)
	}
	if !strings.Contains(c.LogReadURL, "{token}") {
		return errors.New("log_read_url must contain {token}")
	}
	switch c.Log.Environment {
	case "production", "development", "test":
	default:
		return fmt.Errorf("log.environment must be one of: production, development, test")
	}
	return nil
}
