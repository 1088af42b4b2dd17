// Package config handles loading and validating Ali configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

func init() {
	// Load .env file if it exists
	_ = godotenv.Load()
}

// Config is the root configuration for Ali.
type Config struct {
	DataDir       string               `json:"data_dir,omitempty" yaml:"data_dir,omitempty"` // Persistent data directory. Default: ~/.ali. Override: ALI_DATA_DIR env var.
	Identity      IdentityConfig       `json:"identity" yaml:"identity"`
	Mind          MindConfig           `json:"mind" yaml:"mind"`
	Emotion       EmotionConfig        `json:"emotion" yaml:"emotion"`
	Memory        MemoryConfig         `json:"memory" yaml:"memory"`
	Storage       *StorageConfig       `json:"storage,omitempty" yaml:"storage,omitempty"` // nil = SQLite default (derived from data dir)
	Providers     ProvidersConfig      `json:"providers" yaml:"providers"`
	Gateways      GatewaysConfig       `json:"gateways" yaml:"gateways"`
	Observability *ObservabilityConfig `json:"observability,omitempty" yaml:"observability,omitempty"` // nil = observability disabled
	Scheduler     *SchedulerConfig     `json:"scheduler,omitempty" yaml:"scheduler,omitempty"`         // nil = maintenance jobs disabled
}

// IdentityConfig names the persona and its privileged correspondent.
type IdentityConfig struct {
	Name    string `json:"name" yaml:"name"`       // Default: "Ali".
	Creator string `json:"creator" yaml:"creator"` // The single privileged user. Default: "Cihan".
}

// AgentName returns the configured persona name, defaulting to "Ali".
func (c *IdentityConfig) AgentName() string {
	if c.Name != "" {
		return c.Name
	}
	return "Ali"
}

// CreatorName returns the privileged user's name, defaulting to "Cihan".
func (c *IdentityConfig) CreatorName() string {
	if c.Creator != "" {
		return c.Creator
	}
	return "Cihan"
}

// MindConfig tunes the global workspace dispatch loop.
type MindConfig struct {
	PrivilegedBoost float64 `json:"privileged_boost" yaml:"privileged_boost"` // Default: 2.0.
	EmotionBoost    float64 `json:"emotion_boost" yaml:"emotion_boost"`       // Default: 1.2.
	HistoryCap      int     `json:"history_cap" yaml:"history_cap"`           // Winner/broadcast history cap. Default: 100.
	RoundTimeoutMS  int     `json:"round_timeout_ms" yaml:"round_timeout_ms"` // Per-round proposer deadline. Default: 3000.
}

// RoundTimeout returns the proposer deadline as a duration.
func (c *MindConfig) RoundTimeout() time.Duration {
	if c.RoundTimeoutMS <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.RoundTimeoutMS) * time.Millisecond
}

// EmotionConfig tunes the appraisal engine.
type EmotionConfig struct {
	BaselineMood  string  `json:"baseline_mood" yaml:"baseline_mood"`         // Default: "curious".
	DecayHalfLife int     `json:"decay_half_life_s" yaml:"decay_half_life_s"` // Seconds for intensity to halve toward baseline. Default: 300.
	CreatorFactor float64 `json:"creator_factor" yaml:"creator_factor"`       // Intensity multiplier for privileged input. Default: 1.5.
}

// Baseline returns the configured baseline mood, defaulting to "curious".
func (c *EmotionConfig) Baseline() string {
	if c.BaselineMood != "" {
		return c.BaselineMood
	}
	return "curious"
}

// HalfLife returns the decay half-life as a duration.
func (c *EmotionConfig) HalfLife() time.Duration {
	if c.DecayHalfLife <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.DecayHalfLife) * time.Second
}

// Factor returns the privileged-input intensity multiplier.
func (c *EmotionConfig) Factor() float64 {
	if c.CreatorFactor <= 0 {
		return 1.5
	}
	return c.CreatorFactor
}

// MemoryConfig tunes the memory subsystems.
type MemoryConfig struct {
	WorkingCapacity       int     `json:"working_capacity" yaml:"working_capacity"`             // Miller's 7±2. Default: 7.
	ConsolidationSalience float64 `json:"consolidation_salience" yaml:"consolidation_salience"` // Working items at or above this persist to episodic. Default: 0.6.
	RecallLimit           int     `json:"recall_limit" yaml:"recall_limit"`                     // Max episodes per recall query. Default: 5.
}

// Capacity returns the working-memory capacity.
func (c *MemoryConfig) Capacity() int {
	if c.WorkingCapacity <= 0 {
		return 7
	}
	return c.WorkingCapacity
}

// ConsolidationThreshold returns the salience cutoff for consolidation.
func (c *MemoryConfig) ConsolidationThreshold() float64 {
	if c.ConsolidationSalience <= 0 {
		return 0.6
	}
	return c.ConsolidationSalience
}

// Recall returns the max episodes returned per recall query.
func (c *MemoryConfig) Recall() int {
	if c.RecallLimit <= 0 {
		return 5
	}
	return c.RecallLimit
}

// StorageConfig configures the persistence backend.
// When nil, defaults to SQLite with the database path derived from the data dir.
type StorageConfig struct {
	Driver   string                 `json:"driver" yaml:"driver"`                         // "sqlite" (default) or "postgres".
	SQLite   *SQLiteStorageConfig   `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`     // SQLite-specific settings.
	Postgres *PostgresStorageConfig `json:"postgres,omitempty" yaml:"postgres,omitempty"` // PostgreSQL-specific settings.
}

// StorageDriver returns the configured driver, defaulting to "sqlite".
func (s *StorageConfig) StorageDriver() string {
	if s != nil && s.Driver != "" {
		return s.Driver
	}
	return "sqlite"
}

// SQLiteStorageConfig holds SQLite-specific settings.
type SQLiteStorageConfig struct {
	Path        string `json:"path,omitempty" yaml:"path,omitempty"` // Database file path. Default: derived from data dir.
	JournalMode string `json:"journal_mode" yaml:"journal_mode"`     // "wal" (default), "delete", "truncate", etc.
}

// PostgresStorageConfig holds PostgreSQL-specific settings.
type PostgresStorageConfig struct {
	DSN              string `json:"dsn" yaml:"dsn"`                                 // Overridable by ALI_DB_DSN env var.
	MaxOpenConns     int    `json:"max_open_conns" yaml:"max_open_conns"`           // Default: 25
	MaxIdleConns     int    `json:"max_idle_conns" yaml:"max_idle_conns"`           // Default: 5
	ConnMaxLifetimeS int    `json:"conn_max_lifetime_s" yaml:"conn_max_lifetime_s"` // Default: 1800 (30 min)
}

// ProvidersConfig selects the language-generation backend.
type ProvidersConfig struct {
	Default string        `json:"default" yaml:"default"` // "openai", "ollama", or "simple" (template fallback). Default: "simple".
	OpenAI  *OpenAIConfig `json:"openai,omitempty" yaml:"openai,omitempty"`
}

// DefaultProvider returns the provider name, defaulting to "simple".
func (p *ProvidersConfig) DefaultProvider() string {
	if p.Default != "" {
		return p.Default
	}
	return "simple"
}

// OpenAIConfig configures an OpenAI-compatible completion endpoint,
// including Ollama's compatibility API.
type OpenAIConfig struct {
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty"` // Overridable by OPENAI_API_KEY env var.
	Model   string `json:"model" yaml:"model"`                         // Default: "gpt-4o-mini".
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// ModelName returns the configured model, defaulting to "gpt-4o-mini".
func (c *OpenAIConfig) ModelName() string {
	if c != nil && c.Model != "" {
		return c.Model
	}
	return "gpt-4o-mini"
}

// GatewaysConfig configures the HTTP and WebSocket surfaces.
type GatewaysConfig struct {
	HTTP *HTTPGatewayConfig `json:"http,omitempty" yaml:"http,omitempty"` // nil = HTTP API disabled.
	WS   *WSGatewayConfig   `json:"ws,omitempty" yaml:"ws,omitempty"`     // nil = WebSocket chat disabled.
}

// HTTPGatewayConfig configures the REST API.
type HTTPGatewayConfig struct {
	ListenAddr        string            `json:"listen_addr" yaml:"listen_addr"`                 // Default: ":8080".
	EnableDocs        bool              `json:"enable_docs" yaml:"enable_docs"`                 // Serve OpenAPI docs.
	APIKeys           map[string]string `json:"api_keys,omitempty" yaml:"api_keys,omitempty"`   // API key → caller name. The privileged user is matched by name.
	RequestsPerMinute int               `json:"requests_per_minute" yaml:"requests_per_minute"` // Per-caller rate limit. 0 = unlimited.
	MaxRequestBytes   int64             `json:"max_request_bytes" yaml:"max_request_bytes"`     // Default: 1 MB.
}

// Addr returns the listen address, defaulting to ":8080".
func (c *HTTPGatewayConfig) Addr() string {
	if c.ListenAddr != "" {
		return c.ListenAddr
	}
	return ":8080"
}

// BodyLimit returns the max request body size in bytes.
func (c *HTTPGatewayConfig) BodyLimit() int64 {
	if c.MaxRequestBytes <= 0 {
		return 1 << 20
	}
	return c.MaxRequestBytes
}

// WSGatewayConfig configures the WebSocket chat channel.
type WSGatewayConfig struct {
	Path           string `json:"path" yaml:"path"`                       // Default: "/ws/chat".
	Token          string `json:"token,omitempty" yaml:"token,omitempty"` // Shared auth token. Overridable by ALI_WS_TOKEN.
	StreamThoughts bool   `json:"stream_thoughts" yaml:"stream_thoughts"` // Forward winning thoughts to connected clients.
}

// ChatPath returns the WS endpoint path, defaulting to "/ws/chat".
func (c *WSGatewayConfig) ChatPath() string {
	if c.Path != "" {
		return c.Path
	}
	return "/ws/chat"
}

// ObservabilityConfig configures metrics, tracing, and health checks.
// When nil, all observability features are disabled with zero overhead.
type ObservabilityConfig struct {
	Metrics *MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Tracing *TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`
	Health  *HealthConfig  `json:"health,omitempty" yaml:"health,omitempty"`
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"` // Default: "/metrics"
}

// MetricsPath returns the exposition path, defaulting to "/metrics".
func (m *MetricsConfig) MetricsPath() string {
	if m != nil && m.Path != "" {
		return m.Path
	}
	return "/metrics"
}

// TracingConfig configures OpenTelemetry tracing via OTLP.
type TracingConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	ServiceName string  `json:"service_name" yaml:"service_name"` // Default: "ali".
	Endpoint    string  `json:"endpoint" yaml:"endpoint"`         // OTLP endpoint, e.g. "localhost:4317".
	Protocol    string  `json:"protocol" yaml:"protocol"`         // "grpc" (default) or "http".
	Insecure    bool    `json:"insecure" yaml:"insecure"`
	SampleRate  float64 `json:"sample_rate" yaml:"sample_rate"` // 0 < rate <= 1. Default: 1.0.
}

// HealthConfig configures readiness checking.
type HealthConfig struct {
	Enabled        bool `json:"enabled" yaml:"enabled"`
	CheckIntervalS int  `json:"check_interval_s" yaml:"check_interval_s"` // Default: 30.
	TimeoutS       int  `json:"timeout_s" yaml:"timeout_s"`               // Per-check timeout. Default: 5.
}

// SchedulerConfig configures the cron-driven maintenance jobs.
type SchedulerConfig struct {
	ConsolidationSpec string `json:"consolidation_spec" yaml:"consolidation_spec"` // Cron spec. Default: "0 3 * * *" (nightly).
	ReflectionSpec    string `json:"reflection_spec" yaml:"reflection_spec"`       // Default: "0 */6 * * *".
	EmotionDecaySpec  string `json:"emotion_decay_spec" yaml:"emotion_decay_spec"` // Default: "*/5 * * * *".
}

// Consolidation returns the consolidation cron spec with its default.
func (s *SchedulerConfig) Consolidation() string {
	if s.ConsolidationSpec != "" {
		return s.ConsolidationSpec
	}
	return "0 3 * * *"
}

// Reflection returns the reflection cron spec with its default.
func (s *SchedulerConfig) Reflection() string {
	if s.ReflectionSpec != "" {
		return s.ReflectionSpec
	}
	return "0 */6 * * *"
}

// EmotionDecay returns the emotion-decay cron spec with its default.
func (s *SchedulerConfig) EmotionDecay() string {
	if s.EmotionDecaySpec != "" {
		return s.EmotionDecaySpec
	}
	return "*/5 * * * *"
}

// DefaultConfigPath returns ~/.ali/config.yaml, with a relative fallback
// for environments without a home dir.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "configs/ali.yaml"
	}
	return filepath.Join(home, ".ali", "config.yaml")
}

// Load reads configuration from the given YAML file. A missing file is not
// an error; defaults plus environment overrides apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Fall through to defaults.
		default:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets environment variables win over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ALI_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("ALI_DB_DSN"); v != "" {
		if c.Storage == nil {
			c.Storage = &StorageConfig{Driver: "postgres"}
		}
		if c.Storage.Postgres == nil {
			c.Storage.Postgres = &PostgresStorageConfig{}
		}
		c.Storage.Postgres.DSN = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		if c.Providers.OpenAI == nil {
			c.Providers.OpenAI = &OpenAIConfig{}
		}
		c.Providers.OpenAI.APIKey = v
	}
	if v := os.Getenv("ALI_WS_TOKEN"); v != "" {
		if c.Gateways.WS == nil {
			c.Gateways.WS = &WSGatewayConfig{}
		}
		c.Gateways.WS.Token = v
	}
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if c.Storage.StorageDriver() == "postgres" {
		if c.Storage.Postgres == nil || c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage driver is postgres but no DSN configured")
		}
	}
	if c.Mind.PrivilegedBoost < 0 || c.Mind.EmotionBoost < 0 {
		return fmt.Errorf("mind boosts must be non-negative")
	}
	switch c.Providers.DefaultProvider() {
	case "simple":
	case "ollama":
		if c.Providers.OpenAI == nil || c.Providers.OpenAI.BaseURL == "" {
			return fmt.Errorf("provider ollama selected but no base_url configured")
		}
	case "openai":
		if c.Providers.OpenAI == nil || c.Providers.OpenAI.APIKey == "" {
			return fmt.Errorf("provider openai selected but no api_key configured")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Providers.DefaultProvider())
	}
	return nil
}

// ResolveDataDir returns the data directory, creating it if needed.
// Defaults to ~/.ali.
func (c *Config) ResolveDataDir() (string, error) {
	dir := c.DataDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home dir: %w", err)
		}
		dir = filepath.Join(home, ".ali")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating data dir: %w", err)
	}
	return dir, nil
}

// SQLitePath returns the SQLite database path, derived from the data dir
// unless explicitly configured.
func (c *Config) SQLitePath(dataDir string) string {
	if c.Storage != nil && c.Storage.SQLite != nil && c.Storage.SQLite.Path != "" {
		return c.Storage.SQLite.Path
	}
	return filepath.Join(dataDir, "ali.db")
}
