package agent

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/ShayCichocki/gads/internal/llm"
	"github.com/ShayCichocki/gads/pkg/models"
)

// Config is one agent's entry in agents.yaml.
type Config struct {
	// Provider is anthropic or ollama.
	Provider string `mapstructure:"provider"`
	// Model is the model name; empty uses the provider default.
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int64   `mapstructure:"max_tokens"`
	// SystemPromptPath is resolved against the prompts directory by file name.
	SystemPromptPath string `mapstructure:"system_prompt_path"`
	// BaseURL overrides the Ollama host for this agent.
	BaseURL string `mapstructure:"base_url"`
	// Timeout bounds a single invocation. Zero means no bound.
	Timeout time.Duration `mapstructure:"timeout"`
}

var defaultTemperatures = map[models.AgentName]float64{
	models.AgentArchitect:   0.7,
	models.AgentDesigner:    0.7,
	models.AgentDeveloper2D: 0.3,
	models.AgentDeveloper3D: 0.3,
	models.AgentArtDirector: 0.8,
	models.AgentQA:          0.2,
}

// DefaultConfig returns the built-in configuration for a role.
func DefaultConfig(name models.AgentName) Config {
	temp, ok := defaultTemperatures[name]
	if !ok {
		temp = 0.7
	}
	return Config{
		Provider:    string(llm.ProviderOllama),
		Model:       llm.DefaultOllamaModel,
		Temperature: temp,
		MaxTokens:   4096,
	}
}

// DefaultConfigs returns the built-in configuration for every role.
func DefaultConfigs() map[models.AgentName]Config {
	out := make(map[models.AgentName]Config)
	for _, name := range models.AllAgents() {
		out[name] = DefaultConfig(name)
	}
	return out
}

// LoadConfigs reads agents.yaml. Only the agents listed in the file are
// returned; fields an entry leaves out keep their defaults. A missing file
// yields DefaultConfigs.
func LoadConfigs(path string) (map[models.AgentName]Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfigs(), nil
		}
		return nil, fmt.Errorf("read agents config %s: %w", path, err)
	}

	out := make(map[models.AgentName]Config)
	for key := range v.AllSettings() {
		name := models.AgentName(key)
		if !name.Valid() {
			return nil, fmt.Errorf("agents config %s: unknown agent %q", path, key)
		}
		cfg := DefaultConfig(name)
		if err := v.UnmarshalKey(key, &cfg); err != nil {
			return nil, fmt.Errorf("agents config %s: agent %s: %w", path, key, err)
		}
		if _, err := llm.ParseProviderName(cfg.Provider); err != nil {
			return nil, fmt.Errorf("agents config %s: agent %s: %w", path, key, err)
		}
		out[name] = cfg
	}
	return out, nil
}

// ProviderSource hands out the provider an agent entry asks for.
type ProviderSource interface {
	Provider(name llm.ProviderName, cfg Config) (llm.Provider, error)
}

// Providers lazily builds and caches one provider per backend and host.
type Providers struct {
	Anthropic llm.AnthropicConfig
	Ollama    llm.OllamaConfig
	// Tracker, when set, records usage of every provider handed out.
	Tracker *llm.TokenTracker

	mu    sync.Mutex
	cache map[string]llm.Provider
}

// Provider implements ProviderSource.
func (p *Providers) Provider(name llm.ProviderName, cfg Config) (llm.Provider, error) {
	key := string(name)
	if name == llm.ProviderOllama && cfg.BaseURL != "" {
		key += "|" + cfg.BaseURL
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if prov, ok := p.cache[key]; ok {
		return prov, nil
	}

	var prov llm.Provider
	switch name {
	case llm.ProviderAnthropic:
		ap, err := llm.NewAnthropicProvider(p.Anthropic)
		if err != nil {
			return nil, err
		}
		prov = ap
	case llm.ProviderOllama:
		oc := p.Ollama
		if cfg.BaseURL != "" {
			oc.Host = cfg.BaseURL
		}
		prov = llm.NewOllamaProvider(oc)
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	if p.Tracker != nil {
		prov = llm.WithTracker(prov, p.Tracker)
	}

	if p.cache == nil {
		p.cache = make(map[string]llm.Provider)
	}
	p.cache[key] = prov
	return prov, nil
}

// Factory builds PromptAgents from configuration.
type Factory struct {
	configs       map[models.AgentName]Config
	promptsDir    string
	providers     ProviderSource
	historyWindow int
	logger        *slog.Logger
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithPromptsDir sets the directory system prompt files are resolved in.
func WithPromptsDir(dir string) FactoryOption {
	return func(f *Factory) { f.promptsDir = dir }
}

// WithAgentHistoryWindow sets the history window of every built agent.
func WithAgentHistoryWindow(n int) FactoryOption {
	return func(f *Factory) { f.historyWindow = n }
}

// WithFactoryLogger sets the logger.
func WithFactoryLogger(l *slog.Logger) FactoryOption {
	return func(f *Factory) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFactory creates a factory over the given agent configurations.
func NewFactory(configs map[models.AgentName]Config, providers ProviderSource, opts ...FactoryOption) *Factory {
	f := &Factory{
		configs:       configs,
		providers:     providers,
		historyWindow: DefaultHistoryWindow,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Available returns the configured agent names in sorted order.
func (f *Factory) Available() []models.AgentName {
	names := make([]models.AgentName, 0, len(f.configs))
	for name := range f.configs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Build creates the agent for one configured role.
func (f *Factory) Build(name models.AgentName) (*PromptAgent, error) {
	cfg, ok := f.configs[name]
	if !ok {
		return nil, fmt.Errorf("agent %s is not configured", name)
	}
	pn, err := llm.ParseProviderName(cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", name, err)
	}
	prov, err := f.providers.Provider(pn, cfg)
	if err != nil {
		return nil, fmt.Errorf("agent %s: provider %s: %w", name, pn, err)
	}

	opts := []PromptOption{
		WithTemperature(cfg.Temperature),
		WithHistoryWindow(f.historyWindow),
		WithTimeout(cfg.Timeout),
	}
	if cfg.Model != "" {
		opts = append(opts, WithModel(cfg.Model))
	}
	if cfg.MaxTokens > 0 {
		opts = append(opts, WithMaxTokens(cfg.MaxTokens))
	}
	if prompt := f.loadSystemPrompt(name, cfg.SystemPromptPath); prompt != "" {
		opts = append(opts, WithSystemPrompt(prompt))
	}
	return NewPromptAgent(name, prov, opts...), nil
}

// BuildAll builds every configured agent into reg.
func (f *Factory) BuildAll(reg *Registry) error {
	for _, name := range f.Available() {
		a, err := f.Build(name)
		if err != nil {
			return err
		}
		reg.Register(a)
		f.logger.Debug("agent registered", "agent", name, "model", a.Model())
	}
	return nil
}

// loadSystemPrompt returns the prompt file content, or "" to keep the
// built-in prompt.
func (f *Factory) loadSystemPrompt(name models.AgentName, path string) string {
	if path == "" {
		return ""
	}
	if f.promptsDir != "" {
		candidate := filepath.Join(f.promptsDir, filepath.Base(path))
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		f.logger.Warn("system prompt unreadable, using built-in prompt", "agent", name, "path", path, "error", err)
		return ""
	}
	return string(data)
}
