// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Validator  ValidatorConfig  `mapstructure:"validator" yaml:"validator"`
	Compiler   CompilerConfig   `mapstructure:"compiler" yaml:"compiler"`
	Hotswap    HotswapConfig    `mapstructure:"hotswap" yaml:"hotswap"`
	Generation GenerationConfig `mapstructure:"generation" yaml:"generation"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// ValidatorConfig tunes the static gate over generated source. The deny-list
// of forbidden patterns is fixed in code; only the bounds and the import
// allow-list are configurable.
type ValidatorConfig struct {
	MinSourceBytes      int      `mapstructure:"min_source_bytes" yaml:"min_source_bytes"`
	MaxSourceBytes      int      `mapstructure:"max_source_bytes" yaml:"max_source_bytes"`
	MaxLines            int      `mapstructure:"max_lines" yaml:"max_lines"`
	ComplexityThreshold int      `mapstructure:"complexity_threshold" yaml:"complexity_threshold"`
	AllowedImports      []string `mapstructure:"allowed_imports" yaml:"allowed_imports"`
}

// CompilerConfig configures the runtime transpile step.
type CompilerConfig struct {
	// Target is the ECMAScript level the transpiler emits (e.g. "es2020").
	Target string `mapstructure:"target" yaml:"target"`
	// JSXImportSource is the module the automatic JSX runtime is imported from.
	JSXImportSource string `mapstructure:"jsx_import_source" yaml:"jsx_import_source"`
	Minify          bool   `mapstructure:"minify" yaml:"minify"`
}

// HotswapConfig tunes the hot-replacement manager.
type HotswapConfig struct {
	// EventBuffer is the per-subscriber channel depth on the lifecycle bus.
	EventBuffer int `mapstructure:"event_buffer" yaml:"event_buffer"`
}

// GenerationConfig holds settings for the generation orchestrator and the
// LLM client behind it.
type GenerationConfig struct {
	LLM LLMConfig `mapstructure:"llm" yaml:"llm"`
	// RequestTimeout bounds one external generation call end to end.
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	// RateLimit is the sustained generation-calls-per-second budget.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst" yaml:"rate_burst"`
	// HistoryLimit caps the per-identity attempt history.
	HistoryLimit int `mapstructure:"history_limit" yaml:"history_limit"`
}

// LLMProvider defines the supported LLM providers.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
)

// LLMConfig defines the configuration for the generation model.
type LLMConfig struct {
	Provider    LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// ServerConfig configures the local HTTP surface exposed by `serve`.
type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "panelforge")
	v.SetDefault("logger.log_file", "panelforge.log")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Validator --
	v.SetDefault("validator.min_source_bytes", 40)
	v.SetDefault("validator.max_source_bytes", 65536)
	v.SetDefault("validator.max_lines", 400)
	v.SetDefault("validator.complexity_threshold", 40)
	v.SetDefault("validator.allowed_imports", []string{
		"react",
		"react/jsx-runtime",
		"react/jsx-dev-runtime",
		"react-dom",
		"react-dom/client",
	})

	// -- Compiler --
	v.SetDefault("compiler.target", "es2020")
	v.SetDefault("compiler.jsx_import_source", "react")
	v.SetDefault("compiler.minify", false)

	// -- Hotswap --
	v.SetDefault("hotswap.event_buffer", 64)

	// -- Generation --
	v.SetDefault("generation.llm.provider", "gemini")
	v.SetDefault("generation.llm.model", "gemini-2.5-flash")
	v.SetDefault("generation.llm.api_timeout", "30s")
	v.SetDefault("generation.llm.temperature", 0.4)
	v.SetDefault("generation.llm.max_tokens", 8192)
	v.SetDefault("generation.request_timeout", "25s")
	v.SetDefault("generation.rate_limit", 1.0)
	v.SetDefault("generation.rate_burst", 3)
	v.SetDefault("generation.history_limit", 10)

	// -- Server --
	v.SetDefault("server.listen_addr", "127.0.0.1:8775")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
}

// NewDefaultConfig creates a configuration struct populated with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with the defaults above; fail loudly if it does.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// The API key is sensitive; it is only ever read from the environment.
	_ = v.BindEnv("generation.llm.api_key", "PANELFORGE_LLM_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Validator.MinSourceBytes < 0 {
		return fmt.Errorf("validator.min_source_bytes must not be negative")
	}
	if c.Validator.MaxSourceBytes <= c.Validator.MinSourceBytes {
		return fmt.Errorf("validator.max_source_bytes must exceed validator.min_source_bytes")
	}
	if len(c.Validator.AllowedImports) == 0 {
		return fmt.Errorf("validator.allowed_imports must not be empty")
	}
	if c.Hotswap.EventBuffer <= 0 {
		return fmt.Errorf("hotswap.event_buffer must be a positive integer")
	}
	if c.Generation.RequestTimeout <= 0 {
		return fmt.Errorf("generation.request_timeout must be a positive duration")
	}
	if c.Generation.HistoryLimit <= 0 {
		return fmt.Errorf("generation.history_limit must be a positive integer")
	}
	if c.Generation.RateLimit <= 0 {
		return fmt.Errorf("generation.rate_limit must be positive")
	}
	return nil
}
