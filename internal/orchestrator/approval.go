package orchestrator

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ShayCichocki/gads/internal/pipeline"
)

// ApprovalPrompt is an approval request handed to an interactive front end.
type ApprovalPrompt struct {
	// ID identifies the prompt in SubmitResponse.
	ID string
	pipeline.ApprovalRequest
}

// ApprovalResponse is the human's answer to an ApprovalPrompt.
type ApprovalResponse struct {
	ID       string
	Approved bool
}

// ApprovalManager bridges the synchronous approval gate to a front end
// that answers asynchronously, such as the TUI.
type ApprovalManager struct {
	// pending maps prompt ids to channels waiting for an answer.
	pending   map[string]chan ApprovalResponse
	requestCh chan ApprovalPrompt
	mu        sync.Mutex
}

// NewApprovalManager creates a new ApprovalManager.
func NewApprovalManager() *ApprovalManager {
	return &ApprovalManager{
		pending:   make(map[string]chan ApprovalResponse),
		requestCh: make(chan ApprovalPrompt, 10),
	}
}

// RequestCh returns the channel the front end reads prompts from.
func (m *ApprovalManager) RequestCh() <-chan ApprovalPrompt {
	return m.requestCh
}

// WaitForApproval sends req to the front end and blocks until it answers
// or ctx is done.
func (m *ApprovalManager) WaitForApproval(ctx context.Context, req pipeline.ApprovalRequest) (ApprovalResponse, error) {
	prompt := ApprovalPrompt{ID: uuid.New().String(), ApprovalRequest: req}
	responseCh := make(chan ApprovalResponse, 1)

	m.mu.Lock()
	m.pending[prompt.ID] = responseCh
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.pending, prompt.ID)
		m.mu.Unlock()
	}()

	select {
	case m.requestCh <- prompt:
	case <-ctx.Done():
		return ApprovalResponse{}, ctx.Err()
	}

	select {
	case resp := <-responseCh:
		return resp, nil
	case <-ctx.Done():
		return ApprovalResponse{}, ctx.Err()
	}
}

// SubmitResponse delivers an answer to a pending prompt. Answers for
// unknown or already answered prompts are ignored.
func (m *ApprovalManager) SubmitResponse(resp ApprovalResponse) {
	m.mu.Lock()
	ch, exists := m.pending[resp.ID]
	m.mu.Unlock()

	if exists {
		select {
		case ch <- resp:
		default:
		}
	}
}

// HasPending reports whether the prompt with id is still waiting.
func (m *ApprovalManager) HasPending(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.pending[id]
	return exists
}

// Approver returns an approval gate backed by the manager. A cancelled
// context counts as a denial.
func (m *ApprovalManager) Approver() pipeline.ApprovalFunc {
	return func(ctx context.Context, req pipeline.ApprovalRequest) bool {
		resp, err := m.WaitForApproval(ctx, req)
		if err != nil {
			return false
		}
		return resp.Approved
	}
}
