package models

import "strings"

// ModelPricing contains pricing per 1M tokens for a model.
type ModelPricing struct {
	InputPerMillion  float64 // Cost per 1M input tokens
	OutputPerMillion float64 // Cost per 1M output tokens
}

// DefaultModelPricing contains pricing for known hosted models.
// Local models (Ollama) are free and are not listed; see IsLocalModel.
var DefaultModelPricing = map[string]ModelPricing{
	"claude-opus-4-5-20251101":   {InputPerMillion: 15.00, OutputPerMillion: 75.00},
	"claude-opus-4-1-20250805":   {InputPerMillion: 15.00, OutputPerMillion: 75.00},
	"claude-sonnet-4-5-20250929": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-sonnet-4-20250514":   {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-haiku-4-5-20251001":  {InputPerMillion: 0.80, OutputPerMillion: 4.00},
	"claude-3-5-sonnet-20241022": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-3-5-haiku-20241022":  {InputPerMillion: 0.80, OutputPerMillion: 4.00},
}

// fallbackPricing prices unknown hosted models at the most expensive tier so
// that estimates err on the high side.
var fallbackPricing = ModelPricing{InputPerMillion: 15.00, OutputPerMillion: 75.00}

// TokenUsage is the token accounting reported for one model call.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int64 {
	return u.InputTokens + u.OutputTokens
}

// Add returns the sum of two usages.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
	}
}

// EstimateCost returns the estimated USD cost of the usage on the given model.
func (u TokenUsage) EstimateCost(model string) float64 {
	if IsLocalModel(model) {
		return 0
	}
	p, ok := DefaultModelPricing[model]
	if !ok {
		p = fallbackPricing
	}
	return float64(u.InputTokens)/1_000_000*p.InputPerMillion +
		float64(u.OutputTokens)/1_000_000*p.OutputPerMillion
}

// IsLocalModel reports whether the model name refers to a locally served
// model. Ollama tags carry a ":" size suffix (qwen2.5-coder:14b); Bedrock
// inference profiles also contain ":" and are excluded.
func IsLocalModel(model string) bool {
	if strings.HasPrefix(model, "us.anthropic.") {
		return false
	}
	return strings.Contains(model, ":")
}
