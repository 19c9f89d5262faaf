package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ShayCichocki/gads/pkg/models"
)

// DefaultOllamaHost is the address of a local Ollama server.
const DefaultOllamaHost = "http://localhost:11434"

// DefaultOllamaModel is the local model used when none is configured.
const DefaultOllamaModel = "qwen2.5-coder:14b"

// OllamaConfig contains configuration for an OllamaProvider.
type OllamaConfig struct {
	Host  string
	Model string
	// Timeout bounds a whole call. Zero means no timeout beyond ctx.
	Timeout time.Duration
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// OllamaProvider calls the /api/chat endpoint of an Ollama server.
type OllamaProvider struct {
	host  string
	model string
	http  *http.Client
}

// NewOllamaProvider creates a provider for the given server.
func NewOllamaProvider(cfg OllamaConfig) *OllamaProvider {
	host := strings.TrimRight(cfg.Host, "/")
	if host == "" {
		host = DefaultOllamaHost
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOllamaModel
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &OllamaProvider{host: host, model: model, http: client}
}

// DefaultModel returns the configured model name.
func (p *OllamaProvider) DefaultModel() string {
	return p.model
}

// Host returns the server base URL.
func (p *OllamaProvider) Host() string {
	return p.host
}

type ollamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  int64    `json:"num_predict,omitempty"`
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []Message     `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

// Complete sends one non-streaming chat request. The system prompt is sent
// as a leading system message.
func (p *OllamaProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	msgs := make([]Message, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, Message{Role: "system", Content: req.System})
	}
	msgs = append(msgs, req.Messages...)

	body, err := json.Marshal(ollamaChatRequest{
		Model:    model,
		Messages: msgs,
		Stream:   false,
		Options:  ollamaOptions{Temperature: req.Temperature, NumPredict: req.MaxTokens},
	})
	if err != nil {
		return nil, fmt.Errorf("encode ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ollama response: %w", err)
	}

	if msg := gjson.GetBytes(data, "error"); msg.Exists() {
		if strings.Contains(strings.ToLower(msg.String()), "not found") {
			return nil, fmt.Errorf("ollama model %q not found, run: ollama pull %s", model, model)
		}
		return nil, fmt.Errorf("ollama error: %s", msg.String())
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama API error: HTTP %d", resp.StatusCode)
	}

	content := gjson.GetBytes(data, "message.content")
	if !content.Exists() {
		return nil, fmt.Errorf("unexpected ollama response format: %s", truncate(string(data), 200))
	}
	if strings.TrimSpace(content.String()) == "" {
		return nil, fmt.Errorf("ollama %s: %w", model, ErrEmptyResponse)
	}

	out := &Completion{Text: content.String(), Model: model}
	in, outTok := gjson.GetBytes(data, "prompt_eval_count"), gjson.GetBytes(data, "eval_count")
	if in.Exists() || outTok.Exists() {
		out.Usage = &models.TokenUsage{InputTokens: in.Int(), OutputTokens: outTok.Int()}
	}
	return out, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
