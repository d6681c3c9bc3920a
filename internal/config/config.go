package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/aretw0/replan/internal/logging"
	"github.com/aretw0/replan/pkg/domain"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when Load is given no path. Its absence is not an error.
const DefaultPath = "replan.yaml"

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config is the application configuration.
type Config struct {
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
	RecursionLimit int           `yaml:"recursion_limit"`
	OpenAI         OpenAIConfig  `yaml:"openai"`
	Tavily         TavilyConfig  `yaml:"tavily"`
	Tools          ToolsConfig   `yaml:"tools"`
	Oracle         OracleConfig  `yaml:"oracle"`
	Store          StoreConfig   `yaml:"store"`
	Server         ServerConfig  `yaml:"server"`
	Tracing        TracingConfig `yaml:"tracing"`
}

type OpenAIConfig struct {
	APIKey        string `yaml:"api_key"`
	BaseURL       string `yaml:"base_url"`
	Model         string `yaml:"model"`
	MaxToolRounds int    `yaml:"max_tool_rounds"`
}

type TavilyConfig struct {
	APIKey     string `yaml:"api_key"`
	MaxResults int    `yaml:"max_results"`
}

// ToolsConfig points at the local command tools offered to the executor.
type ToolsConfig struct {
	Path    string `yaml:"path"`     // tools file; a missing file declares none
	BaseDir string `yaml:"base_dir"` // working directory of the commands
}

// OracleConfig tunes the retry and rate-limit policy around oracle calls.
type OracleConfig struct {
	MaxAttempts   int           `yaml:"max_attempts"`
	Backoff       time.Duration `yaml:"backoff"`
	RatePerSecond float64       `yaml:"rate_per_second"` // zero disables limiting
	Burst         int           `yaml:"burst"`
}

type StoreConfig struct {
	Backend       string        `yaml:"backend"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	Prefix        string        `yaml:"prefix"`
	TTL           time.Duration `yaml:"ttl"`

	// EncryptionKey is a base64 AES-256 key. When set, archived records are
	// encrypted at rest.
	EncryptionKey string `yaml:"encryption_key"`
	// RedactKeys are regular expressions; matching metadata keys are masked
	// before a record is archived.
	RedactKeys []string `yaml:"redact_keys"`
}

// Key decodes EncryptionKey. It returns nil when encryption is off.
func (s StoreConfig) Key() ([]byte, error) {
	if s.EncryptionKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(s.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("store.encryption_key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("store.encryption_key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type TracingConfig struct {
	Exporter string `yaml:"exporter"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		LogLevel:       "info",
		LogFormat:      string(logging.FormatText),
		RecursionLimit: domain.DefaultRecursionLimit,
		OpenAI:         OpenAIConfig{Model: "gpt-4o", MaxToolRounds: 10},
		Tavily:         TavilyConfig{MaxResults: 3},
		Tools:          ToolsConfig{Path: "tools.yaml"},
		Oracle:         OracleConfig{MaxAttempts: 3, Backoff: 500 * time.Millisecond, Burst: 1},
		Store:          StoreConfig{Backend: StoreMemory, RedisAddr: "localhost:6379"},
		Server:         ServerConfig{Addr: ":8080"},
		Tracing:        TracingConfig{Exporter: "none"},
	}
}

// Load layers defaults, the YAML file at path, the .env file of the working
// directory and the environment, in that order. An explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if err := cfg.mergeFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	if err := LoadDotEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDotEnv exports the variables of the given .env files (".env" when
// none is given) without overriding variables already set. Missing files
// are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	strs := map[string]*string{
		"REPLAN_LOG_LEVEL":      &c.LogLevel,
		"REPLAN_LOG_FORMAT":     &c.LogFormat,
		"OPENAI_API_KEY":        &c.OpenAI.APIKey,
		"OPENAI_BASE_URL":       &c.OpenAI.BaseURL,
		"OPENAI_MODEL":          &c.OpenAI.Model,
		"TAVILY_API_KEY":        &c.Tavily.APIKey,
		"REPLAN_TOOLS":          &c.Tools.Path,
		"REPLAN_STORE":          &c.Store.Backend,
		"REPLAN_REDIS_ADDR":     &c.Store.RedisAddr,
		"REPLAN_REDIS_PASSWORD": &c.Store.RedisPassword,
		"REPLAN_ENCRYPTION_KEY": &c.Store.EncryptionKey,
		"REPLAN_SERVER_ADDR":    &c.Server.Addr,
		"REPLAN_TRACE_EXPORTER": &c.Tracing.Exporter,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"REPLAN_RECURSION_LIMIT": &c.RecursionLimit,
		"REPLAN_REDIS_DB":        &c.Store.RedisDB,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}
	return nil
}

// Validate checks values the rest of the program relies on.
func (c Config) Validate() error {
	var errs []error
	if c.RecursionLimit <= 0 {
		errs = append(errs, fmt.Errorf("recursion_limit must be > 0, got %d", c.RecursionLimit))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch logging.Format(c.LogFormat) {
	case logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	switch c.Store.Backend {
	case StoreMemory, StoreRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	if _, err := c.Store.Key(); err != nil {
		errs = append(errs, err)
	}
	if c.Oracle.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("oracle.max_attempts must be >= 1, got %d", c.Oracle.MaxAttempts))
	}
	return errors.Join(errs...)
}

// RunConfig returns the per-run defaults derived from c.
func (c Config) RunConfig() domain.RunConfig {
	return domain.RunConfig{RecursionLimit: c.RecursionLimit}
}
