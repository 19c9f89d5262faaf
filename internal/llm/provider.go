// Package llm provides the language-model collaborators used by agents and
// by the router's classifier: Anthropic (direct API or AWS Bedrock) and a
// local Ollama server.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ShayCichocki/gads/pkg/models"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("empty model response")

// Role is the speaker of a chat message in provider-neutral terms.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a single chat completion call.
type Request struct {
	System   string
	Messages []Message
	// Model overrides the provider's default model when set.
	Model string
	// Temperature is left to the provider default when nil.
	Temperature *float64
	// MaxTokens is left to the provider default when zero.
	MaxTokens int64
}

// Completion is the text answer of a call plus its accounting.
type Completion struct {
	Text  string
	Model string
	// Usage is nil when the provider did not report token counts.
	Usage *models.TokenUsage
}

// Provider sends chat requests to a language model.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
	// DefaultModel is the model used when a request does not name one.
	DefaultModel() string
}

// Float returns a pointer to f, for Request.Temperature.
func Float(f float64) *float64 {
	return &f
}

// ProviderName selects a Provider implementation.
type ProviderName string

const (
	ProviderAnthropic ProviderName = "anthropic"
	ProviderOllama    ProviderName = "ollama"
)

// ParseProviderName validates a provider name from configuration.
func ParseProviderName(s string) (ProviderName, error) {
	switch p := ProviderName(s); p {
	case ProviderAnthropic, ProviderOllama:
		return p, nil
	default:
		return "", fmt.Errorf("unknown provider %q", s)
	}
}
