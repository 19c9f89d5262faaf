package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/gads/internal/llm"
	"github.com/ShayCichocki/gads/pkg/models"
)

// DefaultHistoryWindow is how many history messages are sent to the model.
const DefaultHistoryWindow = 10

// PromptAgent is an Agent backed by a system prompt and a language model.
type PromptAgent struct {
	name          models.AgentName
	provider      llm.Provider
	model         string
	temperature   *float64
	maxTokens     int64
	systemPrompt  string
	historyWindow int
	timeout       time.Duration
	extract       Extractor
}

// PromptOption configures a PromptAgent.
type PromptOption func(*PromptAgent)

// WithModel overrides the provider's default model.
func WithModel(model string) PromptOption {
	return func(a *PromptAgent) { a.model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) PromptOption {
	return func(a *PromptAgent) { a.temperature = llm.Float(t) }
}

// WithMaxTokens caps the response length.
func WithMaxTokens(n int64) PromptOption {
	return func(a *PromptAgent) { a.maxTokens = n }
}

// WithSystemPrompt replaces the role's built-in system prompt.
func WithSystemPrompt(prompt string) PromptOption {
	return func(a *PromptAgent) {
		if strings.TrimSpace(prompt) != "" {
			a.systemPrompt = prompt
		}
	}
}

// WithHistoryWindow sets how many history messages are sent.
func WithHistoryWindow(n int) PromptOption {
	return func(a *PromptAgent) {
		if n >= 0 {
			a.historyWindow = n
		}
	}
}

// WithTimeout bounds each Execute call. Zero means no bound.
func WithTimeout(d time.Duration) PromptOption {
	return func(a *PromptAgent) { a.timeout = d }
}

// WithExtractor replaces the role's artifact extractor.
func WithExtractor(e Extractor) PromptOption {
	return func(a *PromptAgent) {
		if e != nil {
			a.extract = e
		}
	}
}

// NewPromptAgent creates an agent for the given role.
func NewPromptAgent(name models.AgentName, provider llm.Provider, opts ...PromptOption) *PromptAgent {
	a := &PromptAgent{
		name:          name,
		provider:      provider,
		systemPrompt:  DefaultSystemPrompt(name),
		historyWindow: DefaultHistoryWindow,
		extract:       ExtractorFor(name),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the agent's role.
func (a *PromptAgent) Name() models.AgentName {
	return a.name
}

// Model returns the model the agent calls.
func (a *PromptAgent) Model() string {
	if a.model != "" {
		return a.model
	}
	return a.provider.DefaultModel()
}

// SystemPrompt returns the agent's base system prompt.
func (a *PromptAgent) SystemPrompt() string {
	return a.systemPrompt
}

// Execute sends the request, the most recent history and the rendered
// project context to the model.
func (a *PromptAgent) Execute(ctx context.Context, input string, c Context, history []llm.Message) (*Response, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	system, err := a.buildSystemPrompt(c)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, err)
	}

	if len(history) > a.historyWindow {
		history = history[len(history)-a.historyWindow:]
	}
	msgs := make([]llm.Message, 0, len(history)+1)
	msgs = append(msgs, history...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: input})

	completion, err := a.provider.Complete(ctx, llm.Request{
		System:      system,
		Messages:    msgs,
		Model:       a.model,
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, err)
	}

	model := completion.Model
	if model == "" {
		model = a.Model()
	}
	return &Response{
		Content:   completion.Text,
		AgentName: a.name,
		Model:     model,
		Artifacts: a.extract(completion.Text),
		Usage:     completion.Usage,
	}, nil
}

func (a *PromptAgent) buildSystemPrompt(c Context) (string, error) {
	rendered, err := RenderContext(c)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString(strings.TrimRight(a.systemPrompt, "\n"))
	sb.WriteString("\n\n## Project Context\n\n```yaml\n")
	sb.WriteString(rendered)
	sb.WriteString("```\n")
	return sb.String(), nil
}

// RenderContext renders the flattened context as YAML.
func RenderContext(c Context) (string, error) {
	out, err := yaml.Marshal(c.Flatten())
	if err != nil {
		return "", fmt.Errorf("render context: %w", err)
	}
	return string(out), nil
}
