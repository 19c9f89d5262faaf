package llm

import "context"

// Classification calls use a low temperature and a short answer budget.
const (
	classifierTemperature = 0.1
	classifierMaxTokens   = 50
)

// Classifier adapts a Provider to the router's single-label classifier.
type Classifier struct {
	provider Provider
	model    string
}

// NewClassifier returns a classifier that asks model on provider. An empty
// model uses the provider default.
func NewClassifier(p Provider, model string) *Classifier {
	return &Classifier{provider: p, model: model}
}

// Classify returns the raw label text. Validation is the caller's job.
func (c *Classifier) Classify(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.provider.Complete(ctx, Request{
		System:      systemPrompt,
		Messages:    []Message{{Role: RoleUser, Content: userPrompt}},
		Model:       c.model,
		Temperature: Float(classifierTemperature),
		MaxTokens:   classifierMaxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
