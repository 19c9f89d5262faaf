package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/gads/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify GADS configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/gads/config.yaml
Project-specific overrides can be placed in .gads.yaml`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			value, err := getConfigValue(cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Println(value)
		default:
			return setConfigKey(cfg, args[0], args[1])
		}
		return nil
	},
}

// configKeys lists the displayable keys in display order.
var configKeys = []string{
	"anthropic.api_key",
	"anthropic.use_bedrock",
	"anthropic.aws_region",
	"anthropic.aws_profile",
	"ollama.host",
	"ollama.model",
	"ollama.timeout",
	"router.classifier",
	"router.classifier_model",
	"router.history_turns",
	"sessions.dir",
	"sessions.max_history",
	"sessions.history_window",
	"sessions.archive_truncated",
	"sessions.index_db",
	"agents.config",
	"agents.prompts_dir",
	"pipelines.dir",
	"logging.level",
	"logging.format",
	"logging.file",
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	for _, key := range configKeys {
		value, _ := getConfigValue(cfg, key)
		fmt.Printf("%s: %s\n", key, value)
	}
	fmt.Printf("\n(anthropic credentials: %s)\n", config.GetKeySource(cfg))
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) error {
	if err := setConfigValue(cfg, key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Set %s = %s\n", key, value)
	return nil
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		key, _ := config.GetAPIKey(cfg)
		return config.MaskAPIKey(key), nil
	case "anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseBedrock), nil
	case "anthropic.aws_region":
		return cfg.Anthropic.AWSRegion, nil
	case "anthropic.aws_profile":
		return cfg.Anthropic.AWSProfile, nil
	case "ollama.host":
		return cfg.Ollama.Host, nil
	case "ollama.model":
		return cfg.Ollama.Model, nil
	case "ollama.timeout":
		return cfg.Ollama.Timeout.String(), nil
	case "router.classifier":
		return cfg.Router.Classifier, nil
	case "router.classifier_model":
		return cfg.Router.ClassifierModel, nil
	case "router.history_turns":
		return strconv.Itoa(cfg.Router.HistoryTurns), nil
	case "sessions.dir":
		return cfg.Sessions.Dir, nil
	case "sessions.max_history":
		return strconv.Itoa(cfg.Sessions.MaxHistory), nil
	case "sessions.history_window":
		return strconv.Itoa(cfg.Sessions.HistoryWindow), nil
	case "sessions.archive_truncated":
		return strconv.FormatBool(cfg.Sessions.ArchiveTruncated), nil
	case "sessions.index_db":
		return cfg.IndexPath(), nil
	case "agents.config":
		return cfg.Agents.Config, nil
	case "agents.prompts_dir":
		return cfg.Agents.PromptsDir, nil
	case "pipelines.dir":
		return cfg.Pipelines.Dir, nil
	case "logging.level":
		return cfg.Logging.Level, nil
	case "logging.format":
		return cfg.Logging.Format, nil
	case "logging.file":
		return cfg.Logging.File, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		if err := config.ValidateAPIKey(value); err != nil && !strings.HasPrefix(value, "${") {
			return err
		}
		cfg.Anthropic.APIKey = value
	case "anthropic.use_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %s", key, value)
		}
		cfg.Anthropic.UseBedrock = b
	case "anthropic.aws_region":
		cfg.Anthropic.AWSRegion = value
	case "anthropic.aws_profile":
		cfg.Anthropic.AWSProfile = value
	case "ollama.host":
		cfg.Ollama.Host = value
	case "ollama.model":
		cfg.Ollama.Model = value
	case "ollama.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %s", key, value)
		}
		cfg.Ollama.Timeout = d
	case "router.classifier":
		cfg.Router.Classifier = value
	case "router.classifier_model":
		cfg.Router.ClassifierModel = value
	case "router.history_turns":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %s", key, value)
		}
		cfg.Router.HistoryTurns = n
	case "sessions.dir":
		cfg.Sessions.Dir = value
	case "sessions.max_history":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %s", key, value)
		}
		cfg.Sessions.MaxHistory = n
	case "sessions.history_window":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %s", key, value)
		}
		cfg.Sessions.HistoryWindow = n
	case "sessions.archive_truncated":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %s", key, value)
		}
		cfg.Sessions.ArchiveTruncated = b
	case "sessions.index_db":
		cfg.Sessions.IndexDB = value
	case "agents.config":
		cfg.Agents.Config = value
	case "agents.prompts_dir":
		cfg.Agents.PromptsDir = value
	case "pipelines.dir":
		cfg.Pipelines.Dir = value
	case "logging.level":
		cfg.Logging.Level = value
	case "logging.format":
		cfg.Logging.Format = value
	case "logging.file":
		cfg.Logging.File = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
