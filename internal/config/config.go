package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config is the top-level gateway configuration
type Config struct {
	Port      int             `json:"port"`
	Agent     AgentConfig     `json:"agent"`
	Knowledge KnowledgeConfig `json:"knowledge"`
	AI        AIConfig        `json:"ai"`
	Heartbeat HeartbeatConfig `json:"heartbeat"`
	Debug     bool            `json:"debug"`
}

// AgentConfig names the conversational persona
type AgentConfig struct {
	Name    string `json:"name"`
	Persona string `json:"persona,omitempty"`
}

// KnowledgeConfig points at the music catalog service
type KnowledgeConfig struct {
	BaseURL        string `json:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// AIConfig selects and configures the completion provider
type AIConfig struct {
	Provider       string `json:"provider"`
	APIKey         string `json:"api_key"`
	BaseURL        string `json:"base_url,omitempty"`
	Model          string `json:"model,omitempty"`
	MaxTokens      int    `json:"max_tokens,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// HeartbeatConfig controls the periodic stats log
type HeartbeatConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"`
}

// Default returns the configuration used when no config file exists
func Default() *Config {
	return &Config{
		Port: 8080,
		Agent: AgentConfig{
			Name: "Aria",
		},
		Knowledge: KnowledgeConfig{
			BaseURL:        "http://localhost:3001",
			TimeoutSeconds: 5,
		},
		AI: AIConfig{
			Provider:       "openai",
			APIKey:         "${OPENAI_API_KEY}",
			MaxTokens:      1024,
			TimeoutSeconds: 30,
		},
		Heartbeat: HeartbeatConfig{
			Enabled:  true,
			Schedule: "@every 1m",
		},
	}
}

// Load reads configuration from path. A missing file falls back to defaults;
// a present but unreadable or invalid file is an error. String values may
// reference environment variables as ${VAR}.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			cfg.expand()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.expand()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expand substitutes ${VAR} references from the environment
func (c *Config) expand() {
	c.Agent.Name = os.ExpandEnv(c.Agent.Name)
	c.Agent.Persona = os.ExpandEnv(c.Agent.Persona)
	c.Knowledge.BaseURL = os.ExpandEnv(c.Knowledge.BaseURL)
	c.AI.Provider = os.ExpandEnv(c.AI.Provider)
	c.AI.APIKey = os.ExpandEnv(c.AI.APIKey)
	c.AI.BaseURL = os.ExpandEnv(c.AI.BaseURL)
	c.AI.Model = os.ExpandEnv(c.AI.Model)
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Knowledge.BaseURL == "" {
		return fmt.Errorf("knowledge.base_url is required")
	}
	return nil
}

// KnowledgeTimeout returns the catalog timeout as a duration
func (c *Config) KnowledgeTimeout() time.Duration {
	if c.Knowledge.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Knowledge.TimeoutSeconds) * time.Second
}

// AITimeout returns the generation timeout as a duration
func (c *Config) AITimeout() time.Duration {
	if c.AI.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}
