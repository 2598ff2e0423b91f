package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/scott-cmd11/ai-newsletter-automation/internal/newsletter"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Run      Run                        `yaml:"run"`
	Search   Search                     `yaml:"search"`
	LLM      LLM                        `yaml:"llm"`
	Fetch    Fetch                      `yaml:"fetch"`
	Dedup    Dedup                      `yaml:"dedup"`
	Output   Output                     `yaml:"output"`
	Server   Server                     `yaml:"server"`
	Sections []newsletter.SectionConfig `yaml:"sections"`
}

type Run struct {
	Days            int    `yaml:"days"`
	Language        string `yaml:"language"`
	TopItems        int    `yaml:"top_items"`
	SectionWorkers  int    `yaml:"section_workers"`
	DeadlineMinutes int    `yaml:"deadline_minutes"` // 0 = no run deadline
}

type Search struct {
	Enabled    bool   `yaml:"enabled"`
	APIKeyEnv  string `yaml:"api_key_env"`
	BaseURL    string `yaml:"base_url"`
	MaxResults int    `yaml:"max_results"`
}

type LLM struct {
	Model           string `yaml:"model"`
	BaseURL         string `yaml:"base_url"`
	APIKeyEnv       string `yaml:"api_key_env"`
	MaxAttempts     int    `yaml:"max_attempts"`
	BackoffSeconds  int    `yaml:"backoff_seconds"`
	CooldownSeconds int    `yaml:"cooldown_seconds"`
}

type Fetch struct {
	VerifyTimeoutSeconds  int `yaml:"verify_timeout_seconds"`
	ExtractTimeoutSeconds int `yaml:"extract_timeout_seconds"`
	Concurrency           int `yaml:"concurrency"`
	MaxTextLen            int `yaml:"max_text_len"`
}

type Dedup struct {
	TitleThreshold float64 `yaml:"title_threshold"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
	OutDir  string `yaml:"out_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

// ConfigDir returns the XDG config directory for the newsletter.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "ai-newsletter")
}

// DataDir returns the XDG data directory for the newsletter.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "ai-newsletter")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/ai-newsletter/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'newsletter init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Default returns the embedded default configuration.
func Default() (*Config, error) {
	return Parse(DefaultConfigYAML)
}

// Parse parses YAML bytes into a Config, applying defaults.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{
		Run: Run{
			Days:           7,
			Language:       "en",
			TopItems:       6,
			SectionWorkers: 4,
		},
		Search: Search{
			Enabled:    true,
			APIKeyEnv:  "TAVILY_API_KEY",
			MaxResults: 20,
		},
		LLM: LLM{
			Model:           "llama-3.3-70b-versatile",
			APIKeyEnv:       "GROQ_API_KEY",
			MaxAttempts:     3,
			BackoffSeconds:  2,
			CooldownSeconds: 10,
		},
		Fetch: Fetch{
			VerifyTimeoutSeconds:  10,
			ExtractTimeoutSeconds: 15,
			Concurrency:           10,
			MaxTextLen:            20000,
		},
		Dedup:  Dedup{TitleThreshold: 0.60},
		Server: Server{Port: 8000},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Validate checks for missing required credentials and malformed sections.
// These are the only errors that abort a run outright.
func (c *Config) Validate() error {
	if c.LLM.APIKeyEnv == "" || os.Getenv(c.LLM.APIKeyEnv) == "" {
		return fmt.Errorf("missing required credential: set %s", keyEnvName(c.LLM.APIKeyEnv, "llm.api_key_env"))
	}
	if c.Search.Enabled {
		if c.Search.APIKeyEnv == "" || os.Getenv(c.Search.APIKeyEnv) == "" {
			return fmt.Errorf("missing required credential: set %s (or disable search)", keyEnvName(c.Search.APIKeyEnv, "search.api_key_env"))
		}
	}
	if len(c.Sections) == 0 {
		return fmt.Errorf("no sections configured")
	}
	seen := make(map[string]bool, len(c.Sections))
	for _, s := range c.Sections {
		if s.Key == "" {
			return fmt.Errorf("section with empty key")
		}
		if seen[s.Key] {
			return fmt.Errorf("duplicate section key %q", s.Key)
		}
		seen[s.Key] = true
		if s.ItemLimit <= 0 {
			return fmt.Errorf("section %q: item_limit must be positive", s.Key)
		}
		if s.RelevanceThreshold < 0 || s.RelevanceThreshold > 10 {
			return fmt.Errorf("section %q: relevance_threshold must be in [0,10]", s.Key)
		}
	}
	return nil
}

// Section returns the config for a key, or nil.
func (c *Config) Section(key string) *newsletter.SectionConfig {
	for i := range c.Sections {
		if c.Sections[i].Key == key {
			return &c.Sections[i]
		}
	}
	return nil
}

// SectionKeys returns the configured section keys in declared order.
func (c *Config) SectionKeys() []string {
	keys := make([]string, len(c.Sections))
	for i, s := range c.Sections {
		keys[i] = s.Key
	}
	return keys
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func keyEnvName(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
