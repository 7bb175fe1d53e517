package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Telegram  Telegram            `yaml:"telegram"`
	Ranking   Ranking             `yaml:"ranking"`
	Shortener Shortener           `yaml:"shortener"`
	Archive   Archive             `yaml:"archive"`
	Server    Server              `yaml:"server"`
	Pipelines map[string]Pipeline `yaml:"pipelines"`
}

type Telegram struct {
	TokenEnv  string `yaml:"token_env"`
	ChatIDEnv string `yaml:"chat_id_env"`
}

type Ranking struct {
	Provider        string `yaml:"provider"`
	GroqModel       string `yaml:"groq_model"`
	GroqAPIKeyEnv   string `yaml:"groq_api_key_env"`
	OpenAIModel     string `yaml:"openai_model"`
	OpenAIAPIKeyEnv string `yaml:"openai_api_key_env"`
	MaxTokens       int    `yaml:"max_tokens"`
}

type Shortener struct {
	Enabled   bool   `yaml:"enabled"`
	APIKeyEnv string `yaml:"api_key_env"`
	Domain    string `yaml:"domain"`
}

type Archive struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

// Pipeline configures one digest run: which feeds to pull, how stale an
// entry may be, and how the result is formatted and delivered.
type Pipeline struct {
	Name         string    `yaml:"-"`
	Header       string    `yaml:"header"`
	CutoffHours  int       `yaml:"cutoff_hours"`
	MaxItems     int       `yaml:"max_items"`
	PerFeed      int       `yaml:"per_feed"`
	Ranked       bool      `yaml:"ranked"`
	ClockHeader  bool      `yaml:"clock_header"`
	SkipEmpty    bool      `yaml:"skip_empty"`
	FetchContext bool      `yaml:"fetch_context"`
	Sections     []Section `yaml:"sections"`
}

type Section struct {
	Name  string `yaml:"name"`
	Feeds []Feed `yaml:"feeds"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

// ConfigDir returns the XDG config directory for digestbot.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "digestbot")
}

// DataDir returns the XDG data directory for digestbot.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "digestbot")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/digestbot/config.yaml > ./config.yaml
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
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'digestbot init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Telegram: Telegram{
			TokenEnv:  "TG_TOKEN",
			ChatIDEnv: "TG_CHAT_ID",
		},
		Ranking: Ranking{
			Provider:        "groq",
			GroqModel:       "llama-3.3-70b-versatile",
			GroqAPIKeyEnv:   "GROQ_API_KEY",
			OpenAIModel:     "gpt-4o-mini",
			OpenAIAPIKeyEnv: "OPENAI_API_KEY",
			MaxTokens:       150,
		},
		Shortener: Shortener{
			APIKeyEnv: "SHORTIO_API_KEY",
		},
		Server: Server{Port: 8000},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	for name, p := range cfg.Pipelines {
		p.Name = name
		if p.CutoffHours <= 0 {
			p.CutoffHours = 24
		}
		if p.MaxItems <= 0 {
			p.MaxItems = 12
		}
		if p.PerFeed <= 0 {
			p.PerFeed = 10
		}
		cfg.Pipelines[name] = p
	}

	return cfg, nil
}

// GetPipeline returns the named pipeline configuration.
func (c *Config) GetPipeline(name string) (Pipeline, error) {
	p, ok := c.Pipelines[name]
	if !ok {
		return Pipeline{}, fmt.Errorf("pipeline %q not defined in config", name)
	}
	return p, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Archive.DataDir != "" {
		return c.Archive.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
