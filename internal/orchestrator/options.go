package orchestrator

import (
	"log/slog"

	"github.com/ShayCichocki/gads/internal/agent"
	"github.com/ShayCichocki/gads/internal/pipeline"
	"github.com/ShayCichocki/gads/internal/state"
)

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*orchestratorOptions)

type orchestratorOptions struct {
	approve       pipeline.ApprovalFunc
	historyWindow int
	runLog        state.RunLog
	logger        *slog.Logger
}

func defaultOptions() orchestratorOptions {
	return orchestratorOptions{
		approve:       pipeline.AutoApprove,
		historyWindow: agent.DefaultHistoryWindow,
		logger:        slog.Default(),
	}
}

// WithApproval sets the approval gate for single requests and pipeline
// steps. The default approves everything.
func WithApproval(fn pipeline.ApprovalFunc) Option {
	return func(o *orchestratorOptions) {
		if fn != nil {
			o.approve = fn
		}
	}
}

// WithHistoryWindow sets how many recent messages are handed to agents.
func WithHistoryWindow(n int) Option {
	return func(o *orchestratorOptions) {
		if n > 0 {
			o.historyWindow = n
		}
	}
}

// WithRunLog records every pipeline run and its events.
func WithRunLog(l state.RunLog) Option {
	return func(o *orchestratorOptions) { o.runLog = l }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *orchestratorOptions) {
		if l != nil {
			o.logger = l
		}
	}
}
