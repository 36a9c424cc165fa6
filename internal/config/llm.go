package config

import (
	"fmt"
	"strings"
	"time"
)

// Provider kinds.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Task names. Each task reads its own key and model.
const (
	TaskSummarize    = "summarize"
	TaskTag          = "tag"
	TaskAnalysis     = "analysis"
	TaskImprovements = "improvements"
)

const (
	defaultLLMEndpoint = "https://api.groq.com/openai/v1"
	defaultLLMTimeout  = 120 * time.Second
	defaultCacheTTL    = time.Hour
	fastModel          = "llama-3.3-70b-versatile"
	reasoningModel     = "qwen/qwen3-32b"
)

// Tasks lists every task in the order the report runs them.
var Tasks = []string{TaskSummarize, TaskTag, TaskAnalysis, TaskImprovements}

// TaskConfig is the credential and model for one prompt builder.
type TaskConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// LLMConfig is the llm: section. MaxTokens 0 leaves the reply length to the provider.
type LLMConfig struct {
	Provider  string                `yaml:"provider"`
	Endpoint  string                `yaml:"endpoint"`
	APIKey    string                `yaml:"api_key"`
	Timeout   time.Duration         `yaml:"-"`
	CacheTTL  time.Duration         `yaml:"-"`
	MaxTokens int                   `yaml:"max_tokens"`
	Tasks     map[string]TaskConfig `yaml:"tasks"`
}

type rawLLMConfig struct {
	Provider  string                `yaml:"provider"`
	Endpoint  string                `yaml:"endpoint"`
	APIKey    string                `yaml:"api_key"`
	Timeout   string                `yaml:"timeout"`
	CacheTTL  *string               `yaml:"cache_ttl"`
	MaxTokens int                   `yaml:"max_tokens"`
	Tasks     map[string]TaskConfig `yaml:"tasks"`
}

func defaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider: ProviderOpenAI,
		Endpoint: defaultLLMEndpoint,
		Timeout:  defaultLLMTimeout,
		CacheTTL: defaultCacheTTL,
		Tasks: map[string]TaskConfig{
			TaskSummarize:    {Model: fastModel},
			TaskTag:          {Model: fastModel},
			TaskAnalysis:     {Model: reasoningModel},
			TaskImprovements: {Model: reasoningModel},
		},
	}
}

func applyRawLLMConfig(current LLMConfig, raw rawLLMConfig) (LLMConfig, error) {
	cfg := current
	cfg.Tasks = make(map[string]TaskConfig, len(current.Tasks))
	for k, v := range current.Tasks {
		cfg.Tasks[k] = v
	}

	if v := strings.TrimSpace(raw.Provider); v != "" {
		cfg.Provider = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.Endpoint); v != "" {
		cfg.Endpoint = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(raw.APIKey); v != "" {
		cfg.APIKey = v
	}
	if v := strings.TrimSpace(raw.Timeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid llm.timeout %q: %w", v, err)
		}
		cfg.Timeout = d
	}
	if raw.CacheTTL != nil {
		v := strings.TrimSpace(*raw.CacheTTL)
		if v == "" || v == "0" {
			cfg.CacheTTL = 0
		} else {
			d, err := time.ParseDuration(v)
			if err != nil {
				return cfg, fmt.Errorf("invalid llm.cache_ttl %q: %w", v, err)
			}
			cfg.CacheTTL = d
		}
	}
	if raw.MaxTokens != 0 {
		cfg.MaxTokens = raw.MaxTokens
	}
	for name, task := range raw.Tasks {
		name = strings.ToLower(strings.TrimSpace(name))
		merged := cfg.Tasks[name]
		if v := strings.TrimSpace(task.APIKey); v != "" {
			merged.APIKey = v
		}
		if v := strings.TrimSpace(task.Model); v != "" {
			merged.Model = v
		}
		cfg.Tasks[name] = merged
	}
	return cfg, nil
}

func (c LLMConfig) validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("invalid llm.provider %q, expected %s or %s", c.Provider, ProviderOpenAI, ProviderAnthropic)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid llm.timeout %s, expected > 0", c.Timeout)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("invalid llm.cache_ttl %s, expected >= 0", c.CacheTTL)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("invalid llm.max_tokens %d, expected >= 0", c.MaxTokens)
	}
	for name := range c.Tasks {
		if !isTask(name) {
			return fmt.Errorf("unknown llm task %q", name)
		}
	}
	return nil
}

// Task resolves a task's credential and model. The task key falls back to the
// shared llm.api_key. An empty APIKey is reported by the caller at call time.
func (c LLMConfig) Task(name string) TaskConfig {
	task := c.Tasks[name]
	if task.APIKey == "" {
		task.APIKey = c.APIKey
	}
	return task
}

func isTask(name string) bool {
	for _, t := range Tasks {
		if t == name {
			return true
		}
	}
	return false
}
