package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all csvchat configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	LLM     LLMConfig     `yaml:"llm"`
	Agent   AgentConfig   `yaml:"agent"`
	Data    DataConfig    `yaml:"data"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP boundary.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadMB    int      `yaml:"max_upload_mb"`
	MaxConnections int      `yaml:"max_connections"` // 0 for no limit
}

// LLMConfig configures the completion service.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai, azure
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"` // deployment name for azure
	BaseURL     string  `yaml:"base_url"`
	APIVersion  string  `yaml:"api_version"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Timeout     string  `yaml:"timeout"`
}

// AgentConfig configures the conversation loop.
type AgentConfig struct {
	// MaxRounds bounds the model calls in one turn.
	MaxRounds int `yaml:"max_rounds"`

	// Trace logs every model call with token estimates.
	Trace bool `yaml:"trace"`
}

// DataConfig configures where datasets live.
type DataConfig struct {
	UploadDir      string `yaml:"upload_dir"`
	DefaultDataset string `yaml:"default_dataset"`
	DatabasePath   string `yaml:"database_path"`
	WatchUploads   bool   `yaml:"watch_uploads"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8000",
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
			MaxUploadMB:    32,
			MaxConnections: 256,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			APIVersion:  "2024-02-15-preview",
			Temperature: 0.7,
			Timeout:     "120s",
		},
		Agent: AgentConfig{
			MaxRounds: 10,
		},
		Data: DataConfig{
			UploadDir:      filepath.Join(os.TempDir(), "csv_uploads"),
			DefaultDataset: filepath.Join("data", "demo_data.csv"),
			DatabasePath:   filepath.Join("data", "csvchat.db"),
			WatchUploads:   true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment variables override both.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides. Azure settings
// win over plain OpenAI ones when both are present.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}
	if url := os.Getenv("OPENAI_BASE_URL"); url != "" {
		c.LLM.BaseURL = url
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		c.LLM.Model = model
	}

	if endpoint := os.Getenv("AZURE_OPENAI_ENDPOINT"); endpoint != "" {
		c.LLM.BaseURL = endpoint
		c.LLM.Provider = "azure"
	}
	if key := os.Getenv("AZURE_OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if deployment := os.Getenv("AZURE_OPENAI_DEPLOYMENT_NAME"); deployment != "" {
		c.LLM.Model = deployment
	}
	if version := os.Getenv("AZURE_OPENAI_API_VERSION"); version != "" {
		c.LLM.APIVersion = version
	}

	if addr := os.Getenv("CSVCHAT_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if path := os.Getenv("CSVCHAT_DB"); path != "" {
		c.Data.DatabasePath = path
	}
	if dir := os.Getenv("CSVCHAT_UPLOAD_DIR"); dir != "" {
		c.Data.UploadDir = dir
	}
	if path := os.Getenv("CSVCHAT_DEFAULT_DATASET"); path != "" {
		c.Data.DefaultDataset = path
	}
}

// GetLLMTimeout returns the per-call model timeout.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// MaxUploadBytes returns the upload size cap.
func (c *Config) MaxUploadBytes() int64 {
	if c.Server.MaxUploadMB <= 0 {
		return 32 << 20
	}
	return int64(c.Server.MaxUploadMB) << 20
}

// ValidProviders lists all supported LLM providers.
var ValidProviders = []string{"openai", "azure"}

// Validate checks settings that would make the server unusable.
func (c *Config) Validate() error {
	validProvider := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}
	if c.Agent.MaxRounds <= 0 {
		return fmt.Errorf("agent.max_rounds must be positive, got %d", c.Agent.MaxRounds)
	}
	if c.Server.MaxConnections < 0 {
		return fmt.Errorf("server.max_connections must not be negative, got %d", c.Server.MaxConnections)
	}
	if c.Data.DefaultDataset == "" {
		return fmt.Errorf("data.default_dataset must be set")
	}
	return nil
}
