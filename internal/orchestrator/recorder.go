package orchestrator

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/ShayCichocki/gads/internal/pipeline"
	"github.com/ShayCichocki/gads/internal/state"
)

// Recorder writes pipeline runs and their event streams to a run log.
// Recording failures are logged and never fail the run.
type Recorder struct {
	log    state.RunLog
	logger *slog.Logger
}

// NewRecorder creates a Recorder over l.
func NewRecorder(l state.RunLog, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{log: l, logger: logger}
}

// Recording is one run in progress.
type Recording struct {
	r   *Recorder
	run *state.Run
	ok  bool
}

// Begin records the start of a run of pipelineName in sessionID.
func (r *Recorder) Begin(sessionID, pipelineName string) *Recording {
	run := &state.Run{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Pipeline:  pipelineName,
		PID:       os.Getpid(),
	}
	rec := &Recording{r: r, run: run}
	if err := r.log.StartRun(run); err != nil {
		r.logger.Warn("record run start failed", "run", run.ID, "error", err)
		return rec
	}
	rec.ok = true
	return rec
}

// RunID returns the id of the recorded run.
func (rec *Recording) RunID() string {
	return rec.run.ID
}

// Observer returns an observer that records each event and then passes it
// on to next, which may be nil.
func (rec *Recording) Observer(next pipeline.Observer) pipeline.Observer {
	return func(ev pipeline.Event) {
		rec.record(ev)
		if next != nil {
			next(ev)
		}
	}
}

func (rec *Recording) record(ev pipeline.Event) {
	if !rec.ok {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		rec.r.logger.Warn("encode run event failed", "run", rec.run.ID, "kind", ev.Kind(), "error", err)
		payload = nil
	}
	e := &state.RunEvent{
		RunID:   rec.run.ID,
		Kind:    string(ev.Kind()),
		Step:    ev.StepName(),
		Payload: payload,
	}
	if err := rec.r.log.AppendRunEvent(e); err != nil {
		rec.r.logger.Warn("record run event failed", "run", rec.run.ID, "kind", ev.Kind(), "error", err)
	}
}

// Finish records the outcome of the run.
func (rec *Recording) Finish(res *pipeline.Result) {
	if !rec.ok {
		return
	}
	rec.run.Status = runStatus(res.Status)
	rec.run.CompletedSteps = append([]string(nil), res.CompletedSteps...)
	rec.run.Error = res.Error
	rec.run.Usage = res.Usage
	rec.run.Cost = res.Cost
	if err := rec.r.log.FinishRun(rec.run); err != nil {
		rec.r.logger.Warn("record run finish failed", "run", rec.run.ID, "error", err)
	}
}

func runStatus(s pipeline.Status) state.RunStatus {
	switch s {
	case pipeline.StatusCompleted:
		return state.RunCompleted
	case pipeline.StatusCancelled:
		return state.RunCancelled
	case pipeline.StatusFailed:
		return state.RunFailed
	default:
		return state.RunRunning
	}
}
