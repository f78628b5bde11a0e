// Package config loads agentcoord configuration from an optional YAML file
// and AGENTCOORD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hupe1980/agentcoord/core"
	"github.com/hupe1980/agentcoord/logging"
	"github.com/hupe1980/agentcoord/selection"
	"github.com/hupe1980/agentcoord/tool/mcp"
)

// EnvPrefix prefixes every environment override, e.g.
// AGENTCOORD_ORCHESTRATION_MODE.
const EnvPrefix = "AGENTCOORD"

// Config holds all configuration for agentcoord.
type Config struct {
	Orchestration OrchestrationConfig `mapstructure:"orchestration"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Context       ContextConfig       `mapstructure:"context"`
	Tools         ToolsConfig         `mapstructure:"tools"`
	Store         StoreConfig         `mapstructure:"store"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// OrchestrationConfig controls agent selection.
type OrchestrationConfig struct {
	// Mode is database, llm or hybrid.
	Mode string `mapstructure:"mode"`

	// ComplexityThreshold gates hybrid mode (simple, medium or complex).
	ComplexityThreshold string `mapstructure:"complexity_threshold"`

	Limit selection.LimitPolicy `mapstructure:"limit"`

	AllowUnassignedHandoff bool `mapstructure:"allow_unassigned_handoff"`
	MaxParallel            int  `mapstructure:"max_parallel"`

	// CallBudget caps backend calls made by agent execution within one
	// recommend run. 0 is unlimited.
	CallBudget int `mapstructure:"call_budget"`
}

// LLMConfig selects and tunes the backend.
type LLMConfig struct {
	// Provider is openai, anthropic, ollama or empty for none.
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Temperature float64       `mapstructure:"temperature"`
	TopP        float64       `mapstructure:"top_p"`
	MaxTokens   int64         `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ContextConfig bounds context assembly.
type ContextConfig struct {
	SimilarityLimit int           `mapstructure:"similarity_limit"`
	ResponseLimit   int           `mapstructure:"response_limit"`
	CharBudget      int           `mapstructure:"char_budget"`
	Timeout         time.Duration `mapstructure:"timeout"`
	Strict          bool          `mapstructure:"strict"`

	// Backend is memory or chromem.
	Backend string `mapstructure:"backend"`
}

// ToolsConfig configures the tool gateway.
type ToolsConfig struct {
	Timeout time.Duration               `mapstructure:"timeout"`
	Servers map[string]mcp.ServerConfig `mapstructure:"servers"`

	// Routes override the built-in tool to server routing.
	Routes map[string]string `mapstructure:"routes"`
}

// StoreConfig selects persistence backends.
type StoreConfig struct {
	SQLitePath string        `mapstructure:"sqlite_path"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
	Lenient    bool          `mapstructure:"lenient_capabilities"`

	// Sessions is memory or redis.
	Sessions   string        `mapstructure:"sessions"`
	RedisAddr  string        `mapstructure:"redis_addr"`
	RedisDB    int           `mapstructure:"redis_db"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("orchestration.mode", string(core.ModeHybrid))
	v.SetDefault("orchestration.complexity_threshold", string(core.ComplexityMedium))
	v.SetDefault("orchestration.limit.enabled", false)
	v.SetDefault("orchestration.limit.max", 7)
	v.SetDefault("orchestration.limit.default", 3)
	v.SetDefault("orchestration.allow_unassigned_handoff", false)
	v.SetDefault("orchestration.max_parallel", 4)
	v.SetDefault("orchestration.call_budget", 0)

	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.top_p", 0.9)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.timeout", 30*time.Second)

	v.SetDefault("context.similarity_limit", 3)
	v.SetDefault("context.response_limit", 5)
	v.SetDefault("context.char_budget", 1000)
	v.SetDefault("context.timeout", 10*time.Second)
	v.SetDefault("context.strict", false)
	v.SetDefault("context.backend", "memory")

	v.SetDefault("tools.timeout", 30*time.Second)

	v.SetDefault("store.sqlite_path", "agentcoord.db")
	v.SetDefault("store.cache_ttl", time.Minute)
	v.SetDefault("store.lenient_capabilities", true)
	v.SetDefault("store.sessions", "memory")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.session_ttl", 24*time.Hour)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Load reads configuration. An empty path loads defaults and environment
// only; a missing explicit file is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

// Validate checks enumerated and bounded fields.
func (c *Config) Validate() error {
	var errs []error
	if _, err := core.ParseSelectionMode(c.Orchestration.Mode); err != nil {
		errs = append(errs, err)
	}
	if _, err := core.ParseComplexity(c.Orchestration.ComplexityThreshold); err != nil {
		errs = append(errs, err)
	}
	if l := c.Orchestration.Limit; l.Enabled && (l.Max <= 0 || l.Default <= 0 || l.Default > l.Max) {
		errs = append(errs, core.NewValidationError("orchestration.limit", fmt.Sprintf("%d/%d", l.Default, l.Max), "need 0 < default <= max"))
	}
	switch c.LLM.Provider {
	case "", "openai", "anthropic", "ollama":
	default:
		errs = append(errs, core.NewValidationError("llm.provider", c.LLM.Provider, "must be one of openai, anthropic, ollama"))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, core.NewValidationError("llm.temperature", c.LLM.Temperature, "must be within [0, 2]"))
	}
	if c.LLM.TopP < 0 || c.LLM.TopP > 1 {
		errs = append(errs, core.NewValidationError("llm.top_p", c.LLM.TopP, "must be within [0, 1]"))
	}
	switch c.Context.Backend {
	case "memory", "chromem":
	default:
		errs = append(errs, core.NewValidationError("context.backend", c.Context.Backend, "must be memory or chromem"))
	}
	switch c.Store.Sessions {
	case "memory", "redis":
	default:
		errs = append(errs, core.NewValidationError("store.sessions", c.Store.Sessions, "must be memory or redis"))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, core.NewValidationError("logging.level", c.Logging.Level, err.Error()))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, core.NewValidationError("logging.format", c.Logging.Format, "must be text or json"))
	}
	return errors.Join(errs...)
}

// SelectionMode returns the parsed orchestration mode.
func (c *Config) SelectionMode() core.SelectionMode {
	m, _ := core.ParseSelectionMode(c.Orchestration.Mode)
	return m
}

// Threshold returns the parsed hybrid threshold.
func (c *Config) Threshold() core.Complexity {
	t, _ := core.ParseComplexity(c.Orchestration.ComplexityThreshold)
	return t
}
