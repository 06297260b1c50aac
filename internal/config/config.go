package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Server   Server   `yaml:"server"`
	Output   Output   `yaml:"output"`
	Extract  Extract  `yaml:"extract"`
	Sources  Sources  `yaml:"sources"`
	Schedule Schedule `yaml:"schedule"`
	Detect   Detect   `yaml:"detect"`
	Logging  Logging  `yaml:"logging"`
}

type Server struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	UploadDir   string `yaml:"upload_dir"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Extract struct {
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	UserAgent         string  `yaml:"user_agent"`
	MaxChars          int     `yaml:"max_chars"`
	RespectRobots     bool    `yaml:"respect_robots"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	CacheTTLMinutes   int     `yaml:"cache_ttl_minutes"`
}

type Sources struct {
	Feeds    []Feed  `yaml:"feeds"`
	DaysBack int     `yaml:"days_back"`
	NewsAPI  NewsAPI `yaml:"newsapi"`
}

type NewsAPI struct {
	Enabled   bool     `yaml:"enabled"`
	APIKeyEnv string   `yaml:"api_key_env"`
	Queries   []string `yaml:"queries"`
	PageSize  int      `yaml:"page_size"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type Schedule struct {
	// Collect is a cron spec for feed scans while serving; empty disables it.
	Collect string `yaml:"collect"`
}

type Detect struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	OllamaURL   string `yaml:"ollama_url"`
	OpenAIModel string `yaml:"openai_model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	MaxTokens   int    `yaml:"max_tokens"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for claimcheck.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "claimcheck")
}

// DataDir returns the XDG data directory for claimcheck.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "claimcheck")
}

// LoadEnv reads a .env file from the working directory if one exists.
// Variables already set in the environment win.
func LoadEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/claimcheck/config.yaml > ./config.yaml
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
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'claimcheck init' to create a default config",
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

// Default returns the built-in configuration used when no file exists.
func Default() *Config {
	cfg, _ := parse(nil)
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Server: Server{
			Host:        "127.0.0.1",
			Port:        10000,
			UploadDir:   "",
			MaxUploadMB: 10,
		},
		Extract: Extract{
			TimeoutSeconds:    10,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			MaxChars:          2000,
			RespectRobots:     true,
			RequestsPerSecond: 1,
			Burst:             3,
			CacheTTLMinutes:   30,
		},
		Sources: Sources{
			DaysBack: 2,
			NewsAPI: NewsAPI{
				APIKeyEnv: "NEWSAPI_KEY",
				PageSize:  20,
			},
		},
		Detect: Detect{
			Provider:    "openai",
			Model:       "qwen2.5:7b",
			OllamaURL:   "http://localhost:11434",
			OpenAIModel: "gpt-3.5-turbo",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxTokens:   300,
		},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// GetUploadDir returns where submitted media is stored.
func (c *Config) GetUploadDir() string {
	if c.Server.UploadDir != "" {
		return c.Server.UploadDir
	}
	return filepath.Join(c.GetDataDir(), "uploads")
}

// FetchTimeout returns the link extraction timeout.
func (c *Config) FetchTimeout() time.Duration {
	if c.Extract.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Extract.TimeoutSeconds) * time.Second
}

// CacheTTL returns how long extracted page text is reused.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Extract.CacheTTLMinutes) * time.Minute
}

// MaxUploadBytes returns the media size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	mb := c.Server.MaxUploadMB
	if mb <= 0 {
		mb = 10
	}
	return int64(mb) << 20
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
