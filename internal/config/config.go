// Package config handles configuration loading and management for GADS.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ShayCichocki/gads/internal/llm"
)

// ProjectConfigName is the project-level config file searched upward from
// the working directory.
const ProjectConfigName = ".gads.yaml"

// Classifier backends accepted in router.classifier.
const (
	ClassifierOllama    = "ollama"
	ClassifierAnthropic = "anthropic"
	ClassifierNone      = "none"
)

// Config holds all configuration for GADS.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Ollama    OllamaConfig    `mapstructure:"ollama"`
	Router    RouterConfig    `mapstructure:"router"`
	Sessions  SessionsConfig  `mapstructure:"sessions"`
	Agents    AgentsConfig    `mapstructure:"agents"`
	Pipelines PipelinesConfig `mapstructure:"pipelines"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey     string `mapstructure:"api_key"`
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// OllamaConfig holds settings for the local Ollama server.
type OllamaConfig struct {
	Host    string        `mapstructure:"host"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RouterConfig controls request classification.
type RouterConfig struct {
	// Classifier is ollama, anthropic or none. With none every request is
	// classified by keywords.
	Classifier      string `mapstructure:"classifier"`
	ClassifierModel string `mapstructure:"classifier_model"`
	HistoryTurns    int    `mapstructure:"history_turns"`
}

// SessionsConfig controls session persistence.
type SessionsConfig struct {
	Dir              string `mapstructure:"dir"`
	MaxHistory       int    `mapstructure:"max_history"`
	HistoryWindow    int    `mapstructure:"history_window"`
	ArchiveTruncated bool   `mapstructure:"archive_truncated"`
	// IndexDB defaults to index.db inside Dir.
	IndexDB string `mapstructure:"index_db"`
}

// AgentsConfig locates the agent roster and prompt overrides.
type AgentsConfig struct {
	Config     string `mapstructure:"config"`
	PromptsDir string `mapstructure:"prompts_dir"`
}

// PipelinesConfig locates external pipeline definitions.
type PipelinesConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, OLLAMA_HOST, GADS_*)
// 2. Project config (.gads.yaml in current directory or parent)
// 3. User config (~/.config/gads/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	bindEnv(v)
	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific file, defaults and
// environment included.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	bindEnv(v)
	return unmarshal(v)
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("GADS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY", "GADS_ANTHROPIC_API_KEY")
	v.BindEnv("ollama.host", "OLLAMA_HOST", "GADS_OLLAMA_HOST")
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	switch c.Router.Classifier {
	case ClassifierOllama, ClassifierAnthropic, ClassifierNone:
	default:
		return fmt.Errorf("invalid router.classifier %q: want ollama, anthropic or none", c.Router.Classifier)
	}
	if c.Sessions.MaxHistory <= 0 {
		return fmt.Errorf("sessions.max_history must be positive, got %d", c.Sessions.MaxHistory)
	}
	if c.Sessions.HistoryWindow <= 0 {
		return fmt.Errorf("sessions.history_window must be positive, got %d", c.Sessions.HistoryWindow)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging.format %q: want text or json", c.Logging.Format)
	}
	return nil
}

// IndexPath returns the inspection database path.
func (c *Config) IndexPath() string {
	if c.Sessions.IndexDB != "" {
		return c.Sessions.IndexDB
	}
	return filepath.Join(c.Sessions.Dir, "index.db")
}

// AnthropicProvider returns the provider settings for Claude calls.
func (c *Config) AnthropicProvider(model string) llm.AnthropicConfig {
	key, _ := GetAPIKey(c)
	return llm.AnthropicConfig{
		Model:         model,
		APIKey:        key,
		UseAWSBedrock: c.Anthropic.UseBedrock,
		AWSRegion:     c.Anthropic.AWSRegion,
		AWSProfile:    c.Anthropic.AWSProfile,
	}
}

// OllamaProvider returns the provider settings for the local server.
func (c *Config) OllamaProvider(model string) llm.OllamaConfig {
	if model == "" {
		model = c.Ollama.Model
	}
	return llm.OllamaConfig{
		Host:    c.Ollama.Host,
		Model:   model,
		Timeout: c.Ollama.Timeout,
	}
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	return SaveTo(GetUserConfigPath(), cfg)
}

// SaveTo writes the configuration to path.
func SaveTo(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("ollama.host", cfg.Ollama.Host)
	v.Set("ollama.model", cfg.Ollama.Model)
	v.Set("ollama.timeout", cfg.Ollama.Timeout.String())
	v.Set("router.classifier", cfg.Router.Classifier)
	v.Set("router.classifier_model", cfg.Router.ClassifierModel)
	v.Set("router.history_turns", cfg.Router.HistoryTurns)
	v.Set("sessions.dir", cfg.Sessions.Dir)
	v.Set("sessions.max_history", cfg.Sessions.MaxHistory)
	v.Set("sessions.history_window", cfg.Sessions.HistoryWindow)
	v.Set("sessions.archive_truncated", cfg.Sessions.ArchiveTruncated)
	v.Set("sessions.index_db", cfg.Sessions.IndexDB)
	v.Set("agents.config", cfg.Agents.Config)
	v.Set("agents.prompts_dir", cfg.Agents.PromptsDir)
	v.Set("pipelines.dir", cfg.Pipelines.Dir)
	v.Set("logging.level", cfg.Logging.Level)
	v.Set("logging.format", cfg.Logging.Format)
	v.Set("logging.file", cfg.Logging.File)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("anthropic.api_key", d.Anthropic.APIKey)
	v.SetDefault("anthropic.use_bedrock", d.Anthropic.UseBedrock)
	v.SetDefault("anthropic.aws_region", d.Anthropic.AWSRegion)
	v.SetDefault("anthropic.aws_profile", d.Anthropic.AWSProfile)

	v.SetDefault("ollama.host", d.Ollama.Host)
	v.SetDefault("ollama.model", d.Ollama.Model)
	v.SetDefault("ollama.timeout", d.Ollama.Timeout.String())

	v.SetDefault("router.classifier", d.Router.Classifier)
	v.SetDefault("router.classifier_model", d.Router.ClassifierModel)
	v.SetDefault("router.history_turns", d.Router.HistoryTurns)

	v.SetDefault("sessions.dir", d.Sessions.Dir)
	v.SetDefault("sessions.max_history", d.Sessions.MaxHistory)
	v.SetDefault("sessions.history_window", d.Sessions.HistoryWindow)
	v.SetDefault("sessions.archive_truncated", d.Sessions.ArchiveTruncated)
	v.SetDefault("sessions.index_db", d.Sessions.IndexDB)

	v.SetDefault("agents.config", d.Agents.Config)
	v.SetDefault("agents.prompts_dir", d.Agents.PromptsDir)

	v.SetDefault("pipelines.dir", d.Pipelines.Dir)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
}

// getUserConfigDir returns the XDG config directory for GADS.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "gads")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "gads")
	}
	return filepath.Join(home, ".config", "gads")
}

// findProjectConfig searches for .gads.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ProjectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Ollama: OllamaConfig{
			Host:    llm.DefaultOllamaHost,
			Model:   llm.DefaultOllamaModel,
			Timeout: 5 * time.Minute,
		},
		Router: RouterConfig{
			Classifier:      ClassifierOllama,
			ClassifierModel: llm.DefaultOllamaModel,
			HistoryTurns:    3,
		},
		Sessions: SessionsConfig{
			Dir:              "sessions",
			MaxHistory:       100,
			HistoryWindow:    10,
			ArchiveTruncated: true,
		},
		Agents: AgentsConfig{
			Config:     filepath.Join("config", "agents.yaml"),
			PromptsDir: "prompts",
		},
		Pipelines: PipelinesConfig{
			Dir: filepath.Join("templates", "pipelines"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
