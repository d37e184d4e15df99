package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/webfolio/chatd/internal/handlers"
	"github.com/webfolio/chatd/internal/services"
	"gopkg.in/yaml.v3"
)

type llmConfig interface {
	llm(systemPrompt string, logger *slog.Logger) (handlers.LLM, error)
}

// BaseLLMConfig contains the common fields for all LLM configurations.
type BaseLLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

type storageConfig struct {
	// Backend selects the persistence implementation: "file" keeps one JSON
	// document per conversation under Path, "bolt" keeps everything in a
	// single BoltDB file at Path.
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type config struct {
	Port                string        `yaml:"port"`
	ContentDir          string        `yaml:"contentDir"`
	LLM                 llmConfig     `yaml:"llm"`
	Storage             storageConfig `yaml:"storage"`
	CleanupMaxAgeDays   int           `yaml:"cleanupMaxAgeDays"`
	InactivityMinutes   int           `yaml:"inactivityMinutes"`
	ScanIntervalSeconds int           `yaml:"scanIntervalSeconds"`
}

type xaiConfig struct {
	BaseLLMConfig `yaml:",inline"`
	APIKey        string  `yaml:"apiKey"`
	Temperature   float32 `yaml:"temperature"`
}

type anthropicConfig struct {
	BaseLLMConfig `yaml:",inline"`
	APIKey        string `yaml:"apiKey"`
	MaxTokens     int    `yaml:"maxTokens"`
}

type ollamaConfig struct {
	BaseLLMConfig `yaml:",inline"`
	Host          string `yaml:"host"`
}

func (c *config) UnmarshalYAML(value *yaml.Node) error {
	var rawConfig struct {
		Port                string         `yaml:"port"`
		ContentDir          string         `yaml:"contentDir"`
		LLM                 map[string]any `yaml:"llm"`
		Storage             storageConfig  `yaml:"storage"`
		CleanupMaxAgeDays   int            `yaml:"cleanupMaxAgeDays"`
		InactivityMinutes   int            `yaml:"inactivityMinutes"`
		ScanIntervalSeconds int            `yaml:"scanIntervalSeconds"`
	}

	if err := value.Decode(&rawConfig); err != nil {
		return err
	}

	c.Port = rawConfig.Port
	c.ContentDir = rawConfig.ContentDir
	c.Storage = rawConfig.Storage
	c.CleanupMaxAgeDays = rawConfig.CleanupMaxAgeDays
	c.InactivityMinutes = rawConfig.InactivityMinutes
	c.ScanIntervalSeconds = rawConfig.ScanIntervalSeconds

	llmProvider, ok := rawConfig.LLM["provider"].(string)
	if !ok {
		return fmt.Errorf("llm provider is required")
	}

	llmRawYAML, err := yaml.Marshal(rawConfig.LLM)
	if err != nil {
		return err
	}

	var llm llmConfig
	switch llmProvider {
	case "xai":
		llm = &xaiConfig{}
	case "anthropic":
		llm = &anthropicConfig{}
	case "ollama":
		llm = &ollamaConfig{}
	default:
		return fmt.Errorf("unknown llm provider: %s", llmProvider)
	}

	if err := yaml.Unmarshal(llmRawYAML, llm); err != nil {
		return err
	}
	c.LLM = llm

	return nil
}

func (x xaiConfig) llm(systemPrompt string, logger *slog.Logger) (handlers.LLM, error) {
	if x.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	apiKey := x.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("XAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("xai api key is required")
	}

	temperature := x.Temperature
	if temperature == 0 {
		temperature = 0.7
	}
	return services.NewXAI(apiKey, x.Model, systemPrompt, temperature, logger), nil
}

func (a anthropicConfig) llm(systemPrompt string, _ *slog.Logger) (handlers.LLM, error) {
	if a.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if a.MaxTokens == 0 {
		return nil, fmt.Errorf("maxTokens is required")
	}

	apiKey := a.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	return services.NewAnthropic(apiKey, a.Model, systemPrompt, a.MaxTokens), nil
}

func (o ollamaConfig) llm(systemPrompt string, _ *slog.Logger) (handlers.LLM, error) {
	if o.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	host := o.Host
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	return services.NewOllama(host, o.Model, systemPrompt), nil
}
