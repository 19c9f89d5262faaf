package orchestrator

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ShayCichocki/gads/internal/agent"
	"github.com/ShayCichocki/gads/internal/llm"
	"github.com/ShayCichocki/gads/internal/pipeline"
	"github.com/ShayCichocki/gads/internal/router"
	"github.com/ShayCichocki/gads/internal/session"
	"github.com/ShayCichocki/gads/internal/state"
	"github.com/ShayCichocki/gads/pkg/models"
)

// call records one Execute invocation.
type call struct {
	input   string
	context agent.Context
	history []llm.Message
}

// scriptedAgent answers with a fixed reply or error and records its calls.
type scriptedAgent struct {
	name  models.AgentName
	reply string
	err   error
	calls []call
}

func (a *scriptedAgent) Name() models.AgentName { return a.name }

func (a *scriptedAgent) Execute(ctx context.Context, input string, c agent.Context, history []llm.Message) (*agent.Response, error) {
	a.calls = append(a.calls, call{input: input, context: c, history: history})
	if a.err != nil {
		return nil, a.err
	}
	return &agent.Response{
		Content:   a.reply,
		AgentName: a.name,
		Model:     "test-model",
		Artifacts: map[string]any{},
		Usage:     &models.TokenUsage{InputTokens: 10, OutputTokens: 5},
	}, nil
}

type brokenClassifier struct{}

func (brokenClassifier) Classify(context.Context, string, string) (string, error) {
	return "", errors.New("connection refused")
}

type fixture struct {
	orch   *Orchestrator
	store  *session.FileStore
	agents map[models.AgentName]*scriptedAgent
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store, err := session.NewFileStore(t.TempDir(), 50)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	reg := agent.NewRegistry()
	agents := make(map[models.AgentName]*scriptedAgent)
	for _, name := range models.AllAgents() {
		a := &scriptedAgent{name: name, reply: string(name) + " reply"}
		agents[name] = a
		reg.Register(a)
	}

	r := router.New(reg, router.WithClassifier(brokenClassifier{}))
	orch, err := New(RequiredConfig{Store: store, Router: r, Agents: reg}, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return &fixture{orch: orch, store: store, agents: agents}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(RequiredConfig{}); err == nil {
		t.Error("expected error without collaborators")
	}
}

func TestRun_KeywordFallbackEndToEnd(t *testing.T) {
	f := newFixture(t)
	sess, err := f.orch.NewProject("Platformer", "A jumping game", models.Kind2D, "pixel-art")
	if err != nil {
		t.Fatalf("NewProject failed: %v", err)
	}

	resp, err := f.orch.Run(context.Background(), "Implement a double-jump ability", nil, "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if resp.AgentName != models.AgentDeveloper2D {
		t.Errorf("agent = %s, want %s", resp.AgentName, models.AgentDeveloper2D)
	}

	if len(sess.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(sess.History))
	}
	last := sess.History[len(sess.History)-1]
	if last.AgentName != models.AgentDeveloper2D || last.Role != session.RoleAgent {
		t.Errorf("last message = %+v", last)
	}
	if last.Metadata["task_type"] != string(models.TaskImplementFeature2D) {
		t.Errorf("task_type metadata = %v", last.Metadata["task_type"])
	}
	if last.Metadata["classification"] != string(router.SourceKeyword) {
		t.Errorf("classification metadata = %v", last.Metadata["classification"])
	}

	loaded, err := f.store.Load(sess.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.History) != 2 {
		t.Errorf("persisted history length = %d, want 2", len(loaded.History))
	}
}

func TestRun_ExplicitTaskType(t *testing.T) {
	f := newFixture(t)
	if _, err := f.orch.NewProject("Racer", "", models.Kind3D, ""); err != nil {
		t.Fatalf("NewProject failed: %v", err)
	}

	resp, err := f.orch.Run(context.Background(), "anything at all", nil, models.TaskTest)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if resp.AgentName != models.AgentQA {
		t.Errorf("agent = %s, want qa", resp.AgentName)
	}
	if got := len(f.agents[models.AgentQA].calls); got != 1 {
		t.Errorf("qa calls = %d", got)
	}
}

func TestRun_CreatesSessionWhenNoneCurrent(t *testing.T) {
	f := newFixture(t)
	if _, err := f.orch.GetSession(""); !errors.Is(err, ErrNoCurrentSession) {
		t.Errorf("expected ErrNoCurrentSession, got %v", err)
	}

	if _, err := f.orch.Run(context.Background(), "write a unit test", nil, ""); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	cur := f.orch.Current()
	if cur == nil || cur.Project.Name != DefaultProjectName {
		t.Fatalf("current = %+v", cur)
	}
	list, err := f.orch.ListSessions()
	if err != nil || len(list) != 1 {
		t.Errorf("ListSessions = %v, %v", list, err)
	}
}

func TestRun_ApprovalDenied(t *testing.T) {
	var asked []pipeline.ApprovalRequest
	deny := func(ctx context.Context, req pipeline.ApprovalRequest) bool {
		asked = append(asked, req)
		return false
	}
	f := newFixture(t, WithApproval(deny))
	sess, _ := f.orch.NewProject("Puzzle", "", models.Kind2D, "")

	resp, err := f.orch.Run(context.Background(), "brainstorm a game idea", sess, models.TaskGameConcept)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if resp.AgentName != models.AgentSystem || resp.Content != CancelledMessage {
		t.Errorf("response = %+v", resp)
	}
	if len(asked) != 1 || asked[0].Step != "" || asked[0].Decision.AgentName != models.AgentArchitect {
		t.Errorf("approval requests = %+v", asked)
	}
	if len(f.agents[models.AgentArchitect].calls) != 0 {
		t.Error("architect should not run after denial")
	}

	loaded, err := f.store.Load(sess.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(loaded.History))
	}
	if m := loaded.History[1]; m.Role != session.RoleSystem || m.Content != CancelledMessage {
		t.Errorf("denial message = %+v", m)
	}
}

func TestRun_InvocationFailure(t *testing.T) {
	f := newFixture(t)
	sess, _ := f.orch.NewProject("Shooter", "", models.Kind2D, "")
	boom := errors.New("provider unavailable")
	f.agents[models.AgentQA].err = boom

	_, err := f.orch.Run(context.Background(), "test the player", sess, models.TaskTest)
	var invErr *InvocationError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected *InvocationError, got %v", err)
	}
	if invErr.Agent != models.AgentQA || invErr.TaskType != models.TaskTest || invErr.Step != "" {
		t.Errorf("invocation error = %+v", invErr)
	}
	if !errors.Is(err, boom) {
		t.Error("InvocationError should unwrap to the provider error")
	}

	loaded, err := f.store.Load(sess.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.History) != 2 || loaded.History[1].Role != session.RoleSystem {
		t.Errorf("history = %+v", loaded.History)
	}
}

func TestRun_UnknownTaskType(t *testing.T) {
	f := newFixture(t)
	sess, _ := f.orch.NewProject("Maze", "", models.Kind2D, "")

	_, err := f.orch.Run(context.Background(), "compose a soundtrack", sess, models.TaskType("compose_music"))
	if !errors.Is(err, router.ErrUnknownTaskType) {
		t.Errorf("expected ErrUnknownTaskType, got %v", err)
	}
}

func TestRun_HistoryAndContext(t *testing.T) {
	f := newFixture(t, WithHistoryWindow(2))
	sess, _ := f.orch.NewProject("Farm", "Grow crops", models.Kind2D, "cozy")
	sess.Project.DesignSpec = map[string]any{"genre": "sim"}
	sess.Memory(models.AgentQA)["last_suite"] = "crops"

	ctx := context.Background()
	for _, in := range []string{"test one", "test two", "test three"} {
		if _, err := f.orch.Run(ctx, in, sess, models.TaskTest); err != nil {
			t.Fatalf("Run %q failed: %v", in, err)
		}
	}

	calls := f.agents[models.AgentQA].calls
	if len(calls) != 3 {
		t.Fatalf("calls = %d", len(calls))
	}
	if len(calls[0].history) != 0 {
		t.Errorf("first call history = %+v", calls[0].history)
	}
	want := []llm.Message{
		{Role: llm.RoleUser, Content: "test two"},
		{Role: llm.RoleAssistant, Content: "qa reply"},
	}
	if !reflect.DeepEqual(calls[2].history, want) {
		t.Errorf("third call history = %+v, want %+v", calls[2].history, want)
	}

	c := calls[2].context
	if c.Project.Name != "Farm" || c.Project.StyleHint != "cozy" || c.Project.Kind != models.Kind2D {
		t.Errorf("project summary = %+v", c.Project)
	}
	if c.DesignSpec["genre"] != "sim" || c.Memory["last_suite"] != "crops" {
		t.Errorf("context = %+v", c)
	}
}

func TestRunPipeline_HistoryKeepsTrailingHumanMessage(t *testing.T) {
	f := newFixture(t)
	sess, _ := f.orch.NewProject("Farm", "", models.Kind2D, "")
	sess.AddMessage(session.RoleHuman, "", "make the crops grow faster", nil)

	p := &pipeline.Pipeline{Name: "review", Steps: []pipeline.Step{
		{Name: "review", TaskType: models.TaskReview},
	}}
	if _, err := f.orch.RunPipeline(context.Background(), p, sess, "check growth.gd", nil, nil); err != nil {
		t.Fatalf("RunPipeline failed: %v", err)
	}

	calls := f.agents[models.AgentQA].calls
	want := []llm.Message{{Role: llm.RoleUser, Content: "make the crops grow faster"}}
	if len(calls) != 1 || !reflect.DeepEqual(calls[0].history, want) {
		t.Errorf("history = %+v, want %+v", calls, want)
	}
}

func TestBuildContext_DoesNotCreateMemory(t *testing.T) {
	sess := session.New("Arena", "", models.Kind3D, "")

	c := BuildContext(sess, models.AgentDeveloper3D, nil)

	if c.Memory != nil {
		t.Errorf("memory = %v, want nil", c.Memory)
	}
	if _, ok := sess.AgentMemory[models.AgentDeveloper3D]; ok {
		t.Error("building a context must not add agent memory to the session")
	}
}

func TestBuildContext_ExtrasOverride(t *testing.T) {
	sess := session.New("Arena", "", models.Kind3D, "")
	sess.Project.TechnicalSpec = map[string]any{"renderer": "forward+"}

	c := BuildContext(sess, models.AgentDeveloper3D, map[string]any{
		agent.KeyTechnicalSpec: "override",
		"design":               "from step one",
	})
	flat := c.Flatten()
	if flat[agent.KeyTechnicalSpec] != "override" {
		t.Errorf("extras should be applied last, got %v", flat[agent.KeyTechnicalSpec])
	}
	if flat["design"] != "from step one" {
		t.Errorf("extra field missing: %v", flat)
	}
}

func TestGetSession(t *testing.T) {
	f := newFixture(t)
	sess, _ := f.orch.NewProject("Golf", "", models.Kind3D, "")

	got, err := f.orch.GetSession(sess.ID)
	if err != nil || got != sess {
		t.Errorf("GetSession(current id) = %v, %v", got, err)
	}
	got, err = f.orch.GetSession("")
	if err != nil || got != sess {
		t.Errorf("GetSession(\"\") = %v, %v", got, err)
	}
	if _, err := f.orch.GetSession("missing"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// memRunLog is an in-memory state.RunLog.
type memRunLog struct {
	runs   map[string]*state.Run
	events []state.RunEvent
}

func newMemRunLog() *memRunLog {
	return &memRunLog{runs: make(map[string]*state.Run)}
}

func (m *memRunLog) StartRun(r *state.Run) error {
	r.Status = state.RunRunning
	cp := *r
	m.runs[r.ID] = &cp
	return nil
}

func (m *memRunLog) FinishRun(r *state.Run) error {
	cp := *r
	m.runs[r.ID] = &cp
	return nil
}

func (m *memRunLog) AppendRunEvent(e *state.RunEvent) error {
	e.Seq = len(m.events) + 1
	m.events = append(m.events, *e)
	return nil
}

func (m *memRunLog) ListRuns(string, int) ([]state.Run, error) { return nil, nil }

func (m *memRunLog) RunEvents(string) ([]state.RunEvent, error) { return m.events, nil }

func TestRunPipeline_RecordsRun(t *testing.T) {
	runLog := newMemRunLog()
	f := newFixture(t, WithRunLog(runLog))
	sess, _ := f.orch.NewProject("Tower", "", models.Kind2D, "")

	p := &pipeline.Pipeline{
		Name: "check",
		Steps: []pipeline.Step{
			{Name: "review", TaskType: models.TaskReview, OutputKey: "review"},
			{Name: "validate", TaskType: models.TaskValidate, InputKey: "review", OutputKey: "validation"},
		},
	}

	var seen []pipeline.EventKind
	res, err := f.orch.RunPipeline(context.Background(), p, sess, "the tower code", nil, func(ev pipeline.Event) {
		seen = append(seen, ev.Kind())
	})
	if err != nil {
		t.Fatalf("RunPipeline failed: %v", err)
	}
	if res.Status != pipeline.StatusCompleted {
		t.Fatalf("status = %s (%s)", res.Status, res.Error)
	}
	if got := f.agents[models.AgentQA].calls[1].input; got != "qa reply" {
		t.Errorf("validate input = %q", got)
	}

	if len(runLog.runs) != 1 {
		t.Fatalf("runs = %d", len(runLog.runs))
	}
	for _, run := range runLog.runs {
		if run.Status != state.RunCompleted || run.SessionID != sess.ID || run.Pipeline != "check" {
			t.Errorf("run = %+v", run)
		}
		if !reflect.DeepEqual(run.CompletedSteps, []string{"review", "validate"}) {
			t.Errorf("completed steps = %v", run.CompletedSteps)
		}
		if run.Usage.InputTokens != 20 {
			t.Errorf("usage = %+v", run.Usage)
		}
	}
	if len(runLog.events) != len(seen) || len(seen) == 0 {
		t.Errorf("recorded %d events, observer saw %d", len(runLog.events), len(seen))
	}
	if runLog.events[0].Kind != string(pipeline.KindStepStarted) || runLog.events[0].Step != "review" {
		t.Errorf("first event = %+v", runLog.events[0])
	}
}

func TestRunPipeline_InvocationFailureCarriesStep(t *testing.T) {
	f := newFixture(t)
	f.agents[models.AgentDeveloper2D].err = errors.New("timeout")

	p := &pipeline.Pipeline{
		Name: "fix",
		Steps: []pipeline.Step{
			{Name: "review", TaskType: models.TaskReview, OutputKey: "review"},
			{Name: "fix", TaskType: models.TaskDebug2D, InputKey: "review"},
			{Name: "validate", TaskType: models.TaskValidate},
		},
	}
	res, err := f.orch.RunPipeline(context.Background(), p, nil, "bug report", nil, nil)
	if err != nil {
		t.Fatalf("RunPipeline failed: %v", err)
	}
	if res.Status != pipeline.StatusFailed || !reflect.DeepEqual(res.CompletedSteps, []string{"review"}) {
		t.Errorf("result = %+v", res)
	}
	var invErr *InvocationError
	if !errors.As(res.Err, &invErr) || invErr.Step != "fix" || invErr.Agent != models.AgentDeveloper2D {
		t.Errorf("err = %#v", res.Err)
	}
	if len(f.agents[models.AgentQA].calls) != 1 {
		t.Errorf("validate should not run, qa calls = %d", len(f.agents[models.AgentQA].calls))
	}
	if cur := f.orch.Current(); cur == nil || cur.Project.Name != PipelineProjectName {
		t.Errorf("current = %+v", cur)
	}
}
