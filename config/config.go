// Package config loads agentcouncil settings from a YAML file, AGENTCOUNCIL_*
// environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentcouncil/breaker"
	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/internal/tracing"
	"github.com/hupe1980/agentcouncil/logging"
	"github.com/hupe1980/agentcouncil/model"
	"github.com/hupe1980/agentcouncil/orchestrator"
	"github.com/hupe1980/agentcouncil/question"
	"github.com/hupe1980/agentcouncil/quota"
	"github.com/hupe1980/agentcouncil/session"
)

// EnvPrefix prefixes environment overrides, e.g. AGENTCOUNCIL_LOGGING_LEVEL.
const EnvPrefix = "AGENTCOUNCIL"

// model names contain dots, so nested keys use a different delimiter
const keyDelimiter = "::"

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

const (
	AuditNone   = "none"
	AuditMemory = "memory"
	AuditSQLite = "sqlite"
)

// Config is the complete runtime configuration.
type Config struct {
	Logging      LoggingConfig           `mapstructure:"logging" yaml:"logging"`
	Models       ModelsConfig            `mapstructure:"models" yaml:"models"`
	Breaker      BreakerConfig           `mapstructure:"breaker" yaml:"breaker"`
	Orchestrator OrchestratorConfig      `mapstructure:"orchestrator" yaml:"orchestrator"`
	Quotas       map[string]quota.Limits `mapstructure:"quotas" yaml:"quotas"`
	ToolCache    ToolCacheConfig         `mapstructure:"tool_cache" yaml:"tool_cache"`
	Audit        AuditConfig             `mapstructure:"audit" yaml:"audit"`
	Metrics      MetricsConfig           `mapstructure:"metrics" yaml:"metrics"`
	Tracing      TracingConfig           `mapstructure:"tracing" yaml:"tracing"`
	Session      SessionConfig           `mapstructure:"session" yaml:"session"`
}

type LoggingConfig struct {
	Level     string `mapstructure:"level" yaml:"level"`
	Format    string `mapstructure:"format" yaml:"format"`
	AddSource bool   `mapstructure:"add_source" yaml:"add_source"`
}

type ModelsConfig struct {
	Classes model.Classes `mapstructure:"classes" yaml:"classes"`
	Chain   []string      `mapstructure:"chain" yaml:"chain"`
	// Providers maps every model name used in Classes and Chain to its API.
	Providers map[string]ProviderConfig `mapstructure:"providers" yaml:"providers"`
}

type ProviderConfig struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
	// Model is the provider's model id; the map key when empty.
	Model  string `mapstructure:"model" yaml:"model,omitempty"`
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
}

type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold" yaml:"failure_threshold"`
	Cooldown         time.Duration `mapstructure:"cooldown" yaml:"cooldown"`
}

type OrchestratorConfig struct {
	EventBufferSize int           `mapstructure:"event_buffer_size" yaml:"event_buffer_size"`
	TurnTimeout     time.Duration `mapstructure:"turn_timeout" yaml:"turn_timeout"`
	QuestionTimeout time.Duration `mapstructure:"question_timeout" yaml:"question_timeout"`
	MaxToolCalls    int           `mapstructure:"max_tool_calls" yaml:"max_tool_calls"`
}

type ToolCacheConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	Size    int           `mapstructure:"size" yaml:"size"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

type AuditConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend"`
	Path        string `mapstructure:"path" yaml:"path,omitempty"`
	MemoryLimit int    `mapstructure:"memory_limit" yaml:"memory_limit"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint"`
	SampleRate  float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
	ServiceName string  `mapstructure:"service_name" yaml:"service_name"`
}

type SessionConfig struct {
	// MaxHistory bounds the contents remembered per conversation.
	MaxHistory int `mapstructure:"max_history" yaml:"max_history"`
}

// Default returns the built-in configuration.
func Default() *Config {
	classes := model.DefaultClasses()
	chain := model.DefaultChain()

	providers := map[string]ProviderConfig{}
	for _, name := range append([]string{classes.Reasoning, classes.FastTool, classes.LongContext, classes.Balanced}, chain...) {
		p := ProviderOpenAI
		if strings.HasPrefix(name, "claude") {
			p = ProviderAnthropic
		}

		providers[name] = ProviderConfig{Provider: p}
	}

	quotas := map[string]quota.Limits{}
	for tier, lim := range quota.DefaultLimits() {
		quotas[string(tier)] = lim
	}

	bc := breaker.DefaultConfig()

	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Models:  ModelsConfig{Classes: classes, Chain: chain, Providers: providers},
		Breaker: BreakerConfig{FailureThreshold: bc.FailureThreshold, Cooldown: bc.Cooldown},
		Orchestrator: OrchestratorConfig{
			EventBufferSize: orchestrator.DefaultEventBufferSize,
			TurnTimeout:     orchestrator.DefaultTurnTimeout,
			QuestionTimeout: question.DefaultTimeout,
			MaxToolCalls:    5,
		},
		Quotas:    quotas,
		ToolCache: ToolCacheConfig{Enabled: true, Size: 256, TTL: 5 * time.Minute},
		Audit:     AuditConfig{Backend: AuditMemory, MemoryLimit: 2048},
		Metrics:   MetricsConfig{Enabled: false, Addr: ":9090"},
		Tracing:   TracingConfig{Endpoint: "localhost:4318", SampleRate: 1, ServiceName: "agentcouncil"},
		Session:   SessionConfig{MaxHistory: session.DefaultMaxHistory},
	}
}

// Load reads the configuration. An empty path skips the file; environment
// variables override file values, which override defaults.
func Load(path string) (*Config, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelimiter, "_"))
	v.AutomaticEnv()

	setDefaults(v, Default())

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()

		if err := v.ReadConfig(f); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults registers every scalar default so AutomaticEnv can override
// it; maps are registered whole.
func setDefaults(v *viper.Viper, d *Config) {
	key := func(parts ...string) string { return strings.Join(parts, keyDelimiter) }

	v.SetDefault(key("logging", "level"), d.Logging.Level)
	v.SetDefault(key("logging", "format"), d.Logging.Format)
	v.SetDefault(key("logging", "add_source"), d.Logging.AddSource)

	v.SetDefault(key("models", "classes", "reasoning"), d.Models.Classes.Reasoning)
	v.SetDefault(key("models", "classes", "fast_tool"), d.Models.Classes.FastTool)
	v.SetDefault(key("models", "classes", "long_context"), d.Models.Classes.LongContext)
	v.SetDefault(key("models", "classes", "balanced"), d.Models.Classes.Balanced)
	v.SetDefault(key("models", "chain"), d.Models.Chain)

	providers := map[string]any{}
	for name, p := range d.Models.Providers {
		providers[name] = map[string]any{"provider": p.Provider}
	}
	v.SetDefault(key("models", "providers"), providers)

	v.SetDefault(key("breaker", "failure_threshold"), d.Breaker.FailureThreshold)
	v.SetDefault(key("breaker", "cooldown"), d.Breaker.Cooldown)

	v.SetDefault(key("orchestrator", "event_buffer_size"), d.Orchestrator.EventBufferSize)
	v.SetDefault(key("orchestrator", "turn_timeout"), d.Orchestrator.TurnTimeout)
	v.SetDefault(key("orchestrator", "question_timeout"), d.Orchestrator.QuestionTimeout)
	v.SetDefault(key("orchestrator", "max_tool_calls"), d.Orchestrator.MaxToolCalls)

	for tier, lim := range d.Quotas {
		v.SetDefault(key("quotas", tier, "requests_per_minute"), lim.RequestsPerMinute)
		v.SetDefault(key("quotas", tier, "searches_per_minute"), lim.SearchesPerMinute)
		v.SetDefault(key("quotas", tier, "concurrent_agents"), lim.ConcurrentAgents)
	}

	v.SetDefault(key("tool_cache", "enabled"), d.ToolCache.Enabled)
	v.SetDefault(key("tool_cache", "size"), d.ToolCache.Size)
	v.SetDefault(key("tool_cache", "ttl"), d.ToolCache.TTL)

	v.SetDefault(key("audit", "backend"), d.Audit.Backend)
	v.SetDefault(key("audit", "path"), d.Audit.Path)
	v.SetDefault(key("audit", "memory_limit"), d.Audit.MemoryLimit)

	v.SetDefault(key("metrics", "enabled"), d.Metrics.Enabled)
	v.SetDefault(key("metrics", "addr"), d.Metrics.Addr)

	v.SetDefault(key("tracing", "enabled"), d.Tracing.Enabled)
	v.SetDefault(key("tracing", "endpoint"), d.Tracing.Endpoint)
	v.SetDefault(key("tracing", "sample_rate"), d.Tracing.SampleRate)
	v.SetDefault(key("tracing", "service_name"), d.Tracing.ServiceName)

	v.SetDefault(key("session", "max_history"), d.Session.MaxHistory)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	bad := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		bad("logging.level: unknown level %q", c.Logging.Level)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		bad("logging.format: want json or text, got %q", c.Logging.Format)
	}

	if len(c.Models.Chain) == 0 {
		bad("models.chain: must not be empty")
	}

	for _, name := range c.modelNames() {
		p, ok := c.Models.Providers[name]
		if !ok {
			bad("models.providers: no provider for model %q", name)
			continue
		}

		if p.Provider != ProviderOpenAI && p.Provider != ProviderAnthropic {
			bad("models.providers.%s: unknown provider %q", name, p.Provider)
		}
	}

	if c.Breaker.FailureThreshold <= 0 {
		bad("breaker.failure_threshold: must be positive")
	}

	if c.Breaker.Cooldown <= 0 {
		bad("breaker.cooldown: must be positive")
	}

	if c.Orchestrator.EventBufferSize <= 0 {
		bad("orchestrator.event_buffer_size: must be positive")
	}

	if c.Orchestrator.TurnTimeout <= 0 || c.Orchestrator.QuestionTimeout <= 0 {
		bad("orchestrator: timeouts must be positive")
	}

	if c.Orchestrator.MaxToolCalls <= 0 {
		bad("orchestrator.max_tool_calls: must be positive")
	}

	for tier, lim := range c.Quotas {
		if lim.RequestsPerMinute < 0 || lim.SearchesPerMinute < 0 || lim.ConcurrentAgents < 0 {
			bad("quotas.%s: limits must not be negative", tier)
		}
	}

	switch c.Audit.Backend {
	case AuditNone, AuditMemory:
	case AuditSQLite:
		if c.Audit.Path == "" {
			bad("audit.path: required for the sqlite backend")
		}
	default:
		bad("audit.backend: want none, memory or sqlite, got %q", c.Audit.Backend)
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		bad("metrics.addr: required when metrics are enabled")
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		bad("tracing.sample_rate: want a value between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}

	return nil
}

// modelNames lists the distinct model names referenced by classes and chain.
func (c *Config) modelNames() []string {
	cl := c.Models.Classes

	seen := map[string]bool{}
	var names []string

	for _, n := range append([]string{cl.Reasoning, cl.FastTool, cl.LongContext, cl.Balanced}, c.Models.Chain...) {
		if n == "" || seen[n] {
			continue
		}

		seen[n] = true
		names = append(names, n)
	}

	return names
}

// ModelNames lists the distinct model names referenced by classes and chain.
func (c *Config) ModelNames() []string { return c.modelNames() }

// Logger builds the configured logger writing to w.
func (c *Config) Logger(w io.Writer) logging.Logger {
	return logging.New(logging.Config{
		Level:     logging.ParseLevel(c.Logging.Level),
		Format:    c.Logging.Format,
		Output:    w,
		AddSource: c.Logging.AddSource,
		Component: "agentcouncil",
	})
}

// Selector builds the model selector.
func (c *Config) Selector() *model.Selector {
	return model.NewSelector(func(o *model.SelectorOptions) {
		o.Classes = c.Models.Classes
		o.Chain = c.Models.Chain
	})
}

// BreakerConfig returns the breaker thresholds.
func (c *Config) BreakerConfig() breaker.Config {
	return breaker.Config{FailureThreshold: c.Breaker.FailureThreshold, Cooldown: c.Breaker.Cooldown}
}

// QuotaLimits returns the per-tier limits.
func (c *Config) QuotaLimits() map[core.Tier]quota.Limits {
	out := make(map[core.Tier]quota.Limits, len(c.Quotas))
	for tier, lim := range c.Quotas {
		out[core.Tier(tier)] = lim
	}

	return out
}

// TracingSetup returns the span export settings.
func (c *Config) TracingSetup() tracing.Config {
	return tracing.Config{
		Enabled:     c.Tracing.Enabled,
		Endpoint:    c.Tracing.Endpoint,
		SampleRate:  c.Tracing.SampleRate,
		ServiceName: c.Tracing.ServiceName,
	}
}

// Dump writes c as YAML with API keys redacted.
func (c *Config) Dump(w io.Writer) error {
	out := *c

	out.Models.Providers = make(map[string]ProviderConfig, len(c.Models.Providers))
	for name, p := range c.Models.Providers {
		if p.APIKey != "" {
			p.APIKey = "********"
		}

		out.Models.Providers[name] = p
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(&out); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return enc.Close()
}
