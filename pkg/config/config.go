// Package config provides configuration loading and validation for intake.
//
// Configuration lives in a YAML file (intake.yaml by default) and covers the
// tuning knobs of the discovery core: conversation pacing thresholds, model
// selection per pipeline stage, and token budgets. Budgets and model names
// are deliberately configuration rather than constants since they are the
// primary cost/quality levers. Values not present in the file fall back to
// defaults; a handful of operational settings can be overridden by
// environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Model name constants. The interview model favors latency, the pipeline
// stages favor reasoning depth.
const (
	ModelClaudeSonnet4      = "claude-sonnet-4-5"
	ModelClaudeSonnetLatest = ModelClaudeSonnet4
	ModelClaudeOpus45       = "claude-opus-4-5"
	ModelClaudeOpusLatest   = ModelClaudeOpus45
	ModelOpenAIO3           = "o3"
	ModelOpenAIO3Mini       = "o3-mini"
	ModelGPT4o              = "gpt-4o"
	ModelGPT5               = "gpt-5"
	ModelGeminiFlash        = "gemini-2.5-flash"
	ModelGeminiPro          = "gemini-2.5-pro"
)

// Provider identifiers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
)

// API key environment variable names per provider.
const (
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvGoogleAPIKey    = "GEMINI_API_KEY"
)

// Default conversation pacing thresholds. See Thresholds.
const (
	DefaultSoftNudgeAt    = 7
	DefaultForceSummaryAt = 10
	DefaultMaxTurns       = 12
)

// Default max-token budgets per call type.
const (
	DefaultInterviewBudget  = 2000
	DefaultExtractionBudget = 4000
	DefaultSummaryBudget    = 2000
	DefaultTechnicalBudget  = 6000
)

// DefaultGatewayTimeoutSecs bounds a single model call end to end.
const DefaultGatewayTimeoutSecs = 120

// Thresholds holds the turn-number boundaries that drive the guidance
// engine. SoftNudgeAt <= ForceSummaryAt <= MaxTurns must hold.
type Thresholds struct {
	SoftNudgeAt    int `yaml:"soft_nudge_at"`
	ForceSummaryAt int `yaml:"force_summary_at"`
	MaxTurns       int `yaml:"max_turns"`
}

// Budgets holds max-token budgets for each kind of model call.
type Budgets struct {
	Interview  int `yaml:"interview"`
	Extraction int `yaml:"extraction"`
	Summary    int `yaml:"summary"`
	Technical  int `yaml:"technical"`
}

// Models selects the model for each kind of model call. A model name implies
// its provider (see GetModelProvider).
type Models struct {
	Interview  string `yaml:"interview"`
	Extraction string `yaml:"extraction"`
	Summary    string `yaml:"summary"`
	Technical  string `yaml:"technical"`
}

// Config is the top-level intake configuration.
type Config struct {
	Thresholds         Thresholds `yaml:"thresholds"`
	Budgets            Budgets    `yaml:"budgets"`
	Models             Models     `yaml:"models"`
	DBPath             string     `yaml:"db_path"`
	OllamaHost         string     `yaml:"ollama_host"`
	PrometheusURL      string     `yaml:"prometheus_url"`
	GatewayTimeoutSecs int        `yaml:"gateway_timeout_seconds"`
}

// GatewayTimeout returns the per-call gateway timeout as a duration.
func (c *Config) GatewayTimeout() time.Duration {
	return time.Duration(c.GatewayTimeoutSecs) * time.Second
}

// Default returns a configuration populated with defaults.
func Default() Config {
	return Config{
		Thresholds: Thresholds{
			SoftNudgeAt:    DefaultSoftNudgeAt,
			ForceSummaryAt: DefaultForceSummaryAt,
			MaxTurns:       DefaultMaxTurns,
		},
		Budgets: Budgets{
			Interview:  DefaultInterviewBudget,
			Extraction: DefaultExtractionBudget,
			Summary:    DefaultSummaryBudget,
			Technical:  DefaultTechnicalBudget,
		},
		Models: Models{
			Interview:  ModelClaudeSonnetLatest,
			Extraction: ModelOpenAIO3,
			Summary:    ModelClaudeSonnetLatest,
			Technical:  ModelOpenAIO3,
		},
		DBPath:             "intake.db",
		OllamaHost:         "http://localhost:11434",
		GatewayTimeoutSecs: DefaultGatewayTimeoutSecs,
	}
}

// Load reads configuration from the given YAML file, applying defaults for
// missing values and environment overrides on top. A missing file is not an
// error; defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, cfg.Validate()
		}
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	return cfg, cfg.Validate()
}

// applyEnvOverrides applies operational env overrides. Only deployment
// concerns are overridable; pacing thresholds stay in the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INTAKE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		cfg.OllamaHost = v
	}
	if v := os.Getenv("INTAKE_PROMETHEUS_URL"); v != "" {
		cfg.PrometheusURL = v
	}
}

// Validate checks internal consistency of the configuration.
func (c *Config) Validate() error {
	t := c.Thresholds
	if t.SoftNudgeAt <= 0 || t.ForceSummaryAt <= 0 || t.MaxTurns <= 0 {
		return fmt.Errorf("thresholds must be positive: %+v", t)
	}
	if t.SoftNudgeAt > t.ForceSummaryAt || t.ForceSummaryAt > t.MaxTurns {
		return fmt.Errorf("thresholds must be ordered soft_nudge_at <= force_summary_at <= max_turns: %+v", t)
	}
	for name, budget := range map[string]int{
		"interview":  c.Budgets.Interview,
		"extraction": c.Budgets.Extraction,
		"summary":    c.Budgets.Summary,
		"technical":  c.Budgets.Technical,
	} {
		if budget <= 0 {
			return fmt.Errorf("budget %s must be positive, got %d", name, budget)
		}
	}
	for name, model := range map[string]string{
		"interview":  c.Models.Interview,
		"extraction": c.Models.Extraction,
		"summary":    c.Models.Summary,
		"technical":  c.Models.Technical,
	} {
		if _, err := GetModelProvider(model); err != nil {
			return fmt.Errorf("model for %s: %w", name, err)
		}
	}
	if c.GatewayTimeoutSecs <= 0 {
		return fmt.Errorf("gateway_timeout_seconds must be positive, got %d", c.GatewayTimeoutSecs)
	}
	return nil
}

// providerPattern maps a model-name prefix to its provider.
type providerPattern struct {
	prefix   string
	provider string
}

// Ordered by specificity; "ollama:" is an explicit override prefix like
// "ollama:phi4".
//
//nolint:gochecknoglobals // Static lookup table
var providerPatterns = []providerPattern{
	{"ollama:", ProviderOllama},
	{"claude-", ProviderAnthropic},
	{"gpt-", ProviderOpenAI},
	{"o3", ProviderOpenAI},
	{"o4", ProviderOpenAI},
	{"gemini-", ProviderGoogle},
}

// GetModelProvider resolves a model name to its provider.
func GetModelProvider(model string) (string, error) {
	if model == "" {
		return "", fmt.Errorf("model name cannot be empty")
	}
	for _, p := range providerPatterns {
		if strings.HasPrefix(model, p.prefix) {
			return p.provider, nil
		}
	}
	return "", fmt.Errorf("unknown provider for model %q", model)
}

// StripProviderPrefix removes an explicit provider prefix from a model name,
// e.g. "ollama:phi4" -> "phi4".
func StripProviderPrefix(model string) string {
	if idx := strings.Index(model, ":"); idx > 0 {
		for _, p := range providerPatterns {
			if p.prefix == model[:idx+1] {
				return model[idx+1:]
			}
		}
	}
	return model
}
