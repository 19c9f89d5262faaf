package pipeline

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ShayCichocki/gads/internal/agent"
	"github.com/ShayCichocki/gads/internal/router"
	"github.com/ShayCichocki/gads/internal/session"
	"github.com/ShayCichocki/gads/pkg/models"
)

type agentSet map[models.AgentName]bool

func (a agentSet) Has(name models.AgentName) bool { return a[name] }

func allAgents() agentSet {
	set := agentSet{}
	for _, name := range models.AllAgents() {
		set[name] = true
	}
	return set
}

type invocation struct {
	taskType models.TaskType
	input    string
	extra    map[string]any
}

// scriptedInvoker answers by task type and records every call.
type scriptedInvoker struct {
	replies map[models.TaskType]string
	fail    map[models.TaskType]error
	calls   []invocation
}

func (s *scriptedInvoker) Invoke(ctx context.Context, d router.Decision, input string, sess *session.Session) (*agent.Response, error) {
	s.calls = append(s.calls, invocation{taskType: d.TaskType, input: input, extra: d.Context})
	if err := s.fail[d.TaskType]; err != nil {
		return nil, err
	}
	reply, ok := s.replies[d.TaskType]
	if !ok {
		reply = "output of " + string(d.TaskType)
	}
	return &agent.Response{
		Content:   reply,
		AgentName: d.AgentName,
		Model:     "claude-sonnet-4-20250514",
		Artifacts: map[string]any{"task": string(d.TaskType)},
		Usage:     &models.TokenUsage{InputTokens: 1000, OutputTokens: 100},
	}, nil
}

func (s *scriptedInvoker) called(tt models.TaskType) bool {
	for _, c := range s.calls {
		if c.taskType == tt {
			return true
		}
	}
	return false
}

type countingSaver struct {
	saves   int
	err     error
	lengths []int
}

func (c *countingSaver) Save(sess *session.Session) error {
	c.saves++
	c.lengths = append(c.lengths, len(sess.History))
	return c.err
}

func newEngine(inv Invoker, saver Saver, opts ...EngineOption) *Engine {
	return NewEngine(router.New(allAgents()), inv, saver, opts...)
}

func newSession() *session.Session {
	return session.New("Skyhop", "A vertical platformer", models.Kind2D, "")
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind()
	}
	return out
}

func TestExecute_ContextThreading(t *testing.T) {
	inv := &scriptedInvoker{replies: map[models.TaskType]string{models.TaskMechanicDesign: "dash design"}}
	saver := &countingSaver{}
	p := &Pipeline{Name: "thread", Steps: []Step{
		{Name: "design", TaskType: models.TaskMechanicDesign, OutputKey: "design"},
		{Name: "implement", TaskType: models.TaskImplementFeature2D, InputKey: "design", OutputKey: "code"},
	}}
	sess := newSession()

	res := newEngine(inv, saver).Execute(context.Background(), p, sess, "add a dash", nil, nil)

	if res.Status != StatusCompleted {
		t.Fatalf("status = %s (%s)", res.Status, res.Error)
	}
	if len(inv.calls) != 2 {
		t.Fatalf("expected 2 invocations, got %d", len(inv.calls))
	}
	if inv.calls[0].input != "add a dash" {
		t.Errorf("step 1 input = %q", inv.calls[0].input)
	}
	if inv.calls[1].input != "dash design" {
		t.Errorf("step 2 input = %q, want step 1 output", inv.calls[1].input)
	}
	if inv.calls[1].extra["design"] != "dash design" {
		t.Error("routing context should carry earlier outputs")
	}
	if res.Outputs["code"] != "output of implement_feature_2d" {
		t.Errorf("outputs = %v", res.Outputs)
	}
	if _, ok := res.Outputs["design"+ArtifactsSuffix]; !ok {
		t.Error("artifacts should be stored under the derived key")
	}
	if res.Outputs[InputKey] != "add a dash" {
		t.Error("initial input should be kept under the reserved key")
	}
	if len(sess.History) != 2 || sess.History[1].AgentName != models.AgentDeveloper2D {
		t.Errorf("history = %+v", sess.History)
	}
	if sess.History[0].Metadata["pipeline_step"] != "design" {
		t.Errorf("metadata = %v", sess.History[0].Metadata)
	}
	if saver.saves != 2 {
		t.Errorf("saves = %d, want one per step", saver.saves)
	}
	if res.Usage.InputTokens != 2000 || res.Cost <= 0 {
		t.Errorf("usage = %+v cost = %v", res.Usage, res.Cost)
	}
}

func TestExecute_FailFast(t *testing.T) {
	boom := errors.New("model unavailable")
	inv := &scriptedInvoker{fail: map[models.TaskType]error{models.TaskImplementFeature2D: boom}}
	saver := &countingSaver{}
	p := &Pipeline{Name: "abc", Steps: []Step{
		{Name: "A", TaskType: models.TaskMechanicDesign, OutputKey: "a"},
		{Name: "B", TaskType: models.TaskImplementFeature2D, InputKey: "a", OutputKey: "b"},
		{Name: "C", TaskType: models.TaskReview, InputKey: "b"},
	}}
	var events []Event

	res := newEngine(inv, saver).Execute(context.Background(), p, newSession(), "go", nil, func(ev Event) {
		events = append(events, ev)
	})

	if res.Status != StatusFailed {
		t.Fatalf("status = %s", res.Status)
	}
	if !reflect.DeepEqual(res.CompletedSteps, []string{"A"}) {
		t.Errorf("completed = %v", res.CompletedSteps)
	}
	if inv.called(models.TaskReview) {
		t.Error("step C must never run")
	}
	if !errors.Is(res.Err, boom) || !strings.Contains(res.Error, `"B"`) {
		t.Errorf("error = %q / %v", res.Error, res.Err)
	}
	if res.CurrentStep != "B" {
		t.Errorf("current step = %q", res.CurrentStep)
	}
	if res.Outputs != nil {
		t.Error("outputs are only set on completion")
	}
	if saver.saves != 2 {
		t.Errorf("step A and the failure should each be saved, got %d", saver.saves)
	}
	last, ok := events[len(events)-1].(PipelineFailed)
	if !ok || last.Step != "B" || !reflect.DeepEqual(last.CompletedSteps, []string{"A"}) {
		t.Errorf("last event = %#v", events[len(events)-1])
	}
}

func TestExecute_ApprovalDenied(t *testing.T) {
	inv := &scriptedInvoker{}
	saver := &countingSaver{}
	var asked []ApprovalRequest
	deny := func(ctx context.Context, req ApprovalRequest) bool {
		asked = append(asked, req)
		return false
	}
	p := &Pipeline{Name: "ab", Steps: []Step{
		{Name: "A", TaskType: models.TaskGameConcept, OutputKey: "concept"},
		{Name: "B", TaskType: models.TaskMechanicDesign, InputKey: "concept"},
	}}
	var events []Event

	res := newEngine(inv, saver, WithApproval(deny)).Execute(context.Background(), p, newSession(), "a roguelike", nil, func(ev Event) {
		events = append(events, ev)
	})

	if res.Status != StatusCancelled {
		t.Fatalf("status = %s", res.Status)
	}
	if len(res.CompletedSteps) != 0 {
		t.Errorf("completed = %v", res.CompletedSteps)
	}
	if len(inv.calls) != 0 {
		t.Errorf("no agent should run, got %d calls", len(inv.calls))
	}
	if res.Err != nil || res.Error == "" {
		t.Errorf("cancellation carries a reason but no error: %q / %v", res.Error, res.Err)
	}
	if len(asked) != 1 || asked[0].Step != "A" || asked[0].Decision.AgentName != models.AgentArchitect {
		t.Errorf("approval requests = %+v", asked)
	}
	if saver.saves != 1 {
		t.Errorf("cancelled run should be saved, got %d", saver.saves)
	}
	want := []EventKind{KindStepStarted, KindApprovalNeeded, KindApprovalDenied}
	if !reflect.DeepEqual(kinds(events), want) {
		t.Errorf("events = %v, want %v", kinds(events), want)
	}
}

func TestExecute_EventOrder(t *testing.T) {
	inv := &scriptedInvoker{}
	p := &Pipeline{Name: "events", Steps: []Step{
		{Name: "concept", TaskType: models.TaskGameConcept, OutputKey: "concept"},
		{Name: "skip-me", TaskType: models.TaskReview, Condition: &Condition{WhenPresent: []string{"code"}}},
		{Name: "mechanics", TaskType: models.TaskMechanicDesign, InputKey: "concept"},
	}}
	var events []Event

	res := newEngine(inv, &countingSaver{}).Execute(context.Background(), p, newSession(), "idea", nil, func(ev Event) {
		events = append(events, ev)
	})

	if res.Status != StatusCompleted {
		t.Fatalf("status = %s (%s)", res.Status, res.Error)
	}
	want := []EventKind{
		KindStepStarted, KindApprovalNeeded, KindApprovalGranted, KindInvocationStarted, KindStepCompleted,
		KindStepSkipped,
		KindStepStarted, KindInvocationStarted, KindStepCompleted,
		KindPipelineCompleted,
	}
	if !reflect.DeepEqual(kinds(events), want) {
		t.Errorf("events = %v\nwant %v", kinds(events), want)
	}
	if !reflect.DeepEqual(res.CompletedSteps, []string{"concept", "mechanics"}) {
		t.Errorf("completed = %v", res.CompletedSteps)
	}

	skipped := events[5].(StepSkipped)
	if skipped.Index != 2 || skipped.Total != 3 {
		t.Errorf("skipped position = %d/%d", skipped.Index, skipped.Total)
	}
	done := events[4].(StepCompleted)
	if done.Usage == nil || done.Cost <= 0 || done.Agent != models.AgentArchitect {
		t.Errorf("step complete = %+v", done)
	}
}

func TestExecute_InputFallsBackWhenUnset(t *testing.T) {
	inv := &scriptedInvoker{}
	p := &Pipeline{Name: "fallback", Steps: []Step{
		{Name: "review", TaskType: models.TaskReview, InputKey: "code"},
	}}

	newEngine(inv, &countingSaver{}).Execute(context.Background(), p, newSession(), "check player.gd", map[string]any{"code": ""}, nil)

	if len(inv.calls) != 1 || inv.calls[0].input != "check player.gd" {
		t.Errorf("calls = %+v", inv.calls)
	}
}

func TestExecute_InitialContext(t *testing.T) {
	inv := &scriptedInvoker{}
	p := &Pipeline{Name: "ctx", Steps: []Step{
		{Name: "review", TaskType: models.TaskReview, InputKey: "code", OutputKey: "review"},
	}}

	res := newEngine(inv, &countingSaver{}).Execute(context.Background(), p, newSession(), "", map[string]any{"code": "extends Node"}, nil)

	if inv.calls[0].input != "extends Node" {
		t.Errorf("input = %q", inv.calls[0].input)
	}
	if res.Outputs["code"] != "extends Node" {
		t.Error("initial context should survive into outputs")
	}
}

func TestExecute_RoutingFailure(t *testing.T) {
	inv := &scriptedInvoker{}
	eng := NewEngine(router.New(agentSet{models.AgentDesigner: true}), inv, &countingSaver{})
	p := &Pipeline{Name: "missing", Steps: []Step{
		{Name: "design", TaskType: models.TaskMechanicDesign},
		{Name: "implement", TaskType: models.TaskImplementFeature2D},
	}}

	res := eng.Execute(context.Background(), p, newSession(), "x", nil, nil)

	if res.Status != StatusFailed || !errors.Is(res.Err, router.ErrAgentNotRegistered) {
		t.Fatalf("status = %s err = %v", res.Status, res.Err)
	}
	if !reflect.DeepEqual(res.CompletedSteps, []string{"design"}) {
		t.Errorf("completed = %v", res.CompletedSteps)
	}
}

func TestExecute_InvalidPipeline(t *testing.T) {
	saver := &countingSaver{}
	p := &Pipeline{Name: "bad", Steps: []Step{{Name: "x", TaskType: "compose_music"}}}

	res := newEngine(&scriptedInvoker{}, saver).Execute(context.Background(), p, newSession(), "", nil, nil)

	if res.Status != StatusFailed || !errors.Is(res.Err, ErrInvalidDefinition) {
		t.Fatalf("status = %s err = %v", res.Status, res.Err)
	}
	if saver.saves != 0 {
		t.Error("nothing ran, nothing should be saved")
	}
}

func TestExecute_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inv := &scriptedInvoker{}

	res := newEngine(inv, &countingSaver{}).Execute(ctx, &Pipeline{Name: "c", Steps: []Step{
		{Name: "design", TaskType: models.TaskMechanicDesign},
	}}, newSession(), "", nil, nil)

	if res.Status != StatusFailed || !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("status = %s err = %v", res.Status, res.Err)
	}
	if len(inv.calls) != 0 {
		t.Error("no agent should run after cancellation")
	}
}

func TestExecute_SaveFailure(t *testing.T) {
	saver := &countingSaver{err: errors.New("disk full")}
	res := newEngine(&scriptedInvoker{}, saver).Execute(context.Background(), &Pipeline{Name: "s", Steps: []Step{
		{Name: "design", TaskType: models.TaskMechanicDesign},
	}}, newSession(), "", nil, nil)

	if res.Status != StatusFailed || !strings.Contains(res.Error, "disk full") {
		t.Errorf("status = %s error = %q", res.Status, res.Error)
	}
}

func TestExecute_SavesAfterEachStep(t *testing.T) {
	saver := &countingSaver{}
	var savesAtCompletion []int
	p := &Pipeline{Name: "design", Steps: []Step{
		{Name: "a", TaskType: models.TaskMechanicDesign, OutputKey: "a"},
		{Name: "b", TaskType: models.TaskLevelDesign, InputKey: "a", OutputKey: "b"},
		{Name: "c", TaskType: models.TaskBalancing, InputKey: "b"},
	}}

	res := newEngine(&scriptedInvoker{}, saver).Execute(context.Background(), p, newSession(), "idea", nil, func(ev Event) {
		if _, ok := ev.(StepCompleted); ok {
			savesAtCompletion = append(savesAtCompletion, saver.saves)
		}
	})

	if res.Status != StatusCompleted {
		t.Fatalf("status = %s (%s)", res.Status, res.Error)
	}
	if !reflect.DeepEqual(saver.lengths, []int{1, 2, 3}) {
		t.Errorf("history length at each save = %v, want [1 2 3]", saver.lengths)
	}
	if !reflect.DeepEqual(savesAtCompletion, []int{1, 2, 3}) {
		t.Errorf("saves before each StepCompleted = %v", savesAtCompletion)
	}
}

func TestExecute_SkippedPipelineStillSaved(t *testing.T) {
	saver := &countingSaver{}
	p := &Pipeline{Name: "skip", Steps: []Step{
		{Name: "a", TaskType: models.TaskMechanicDesign, Condition: &Condition{WhenPresent: []string{"design"}}},
	}}

	res := newEngine(&scriptedInvoker{}, saver).Execute(context.Background(), p, newSession(), "idea", nil, nil)

	if res.Status != StatusCompleted || saver.saves != 1 {
		t.Errorf("status = %s saves = %d", res.Status, saver.saves)
	}
}

func TestExecute_StepSaveFailureStopsRun(t *testing.T) {
	inv := &scriptedInvoker{}
	saver := &countingSaver{err: errors.New("disk full")}
	p := &Pipeline{Name: "ab", Steps: []Step{
		{Name: "a", TaskType: models.TaskMechanicDesign, OutputKey: "a"},
		{Name: "b", TaskType: models.TaskLevelDesign, InputKey: "a"},
	}}

	res := newEngine(inv, saver).Execute(context.Background(), p, newSession(), "idea", nil, nil)

	if res.Status != StatusFailed || res.CurrentStep != "a" {
		t.Fatalf("status = %s step = %q", res.Status, res.CurrentStep)
	}
	if len(res.CompletedSteps) != 0 {
		t.Errorf("an unsaved step is not completed: %v", res.CompletedSteps)
	}
	if inv.called(models.TaskLevelDesign) {
		t.Error("step b must not run after a failed save")
	}
}

func TestCondition_ShouldRun(t *testing.T) {
	ctx := map[string]any{
		"design": "dash",
		"empty":  "  ",
		"kind":   "3d",
		"count":  3,
	}
	tests := []struct {
		name string
		cond *Condition
		want bool
	}{
		{"nil", nil, true},
		{"present", &Condition{WhenPresent: []string{"design"}}, true},
		{"present but blank", &Condition{WhenPresent: []string{"empty"}}, false},
		{"absent", &Condition{WhenAbsent: []string{"code"}}, true},
		{"absent but set", &Condition{WhenAbsent: []string{"design"}}, false},
		{"equals", &Condition{WhenEquals: map[string]string{"kind": "3d"}}, true},
		{"equals number", &Condition{WhenEquals: map[string]string{"count": "3"}}, true},
		{"not equal", &Condition{WhenEquals: map[string]string{"kind": "2d"}}, false},
		{"func", &Condition{Func: func(map[string]any) bool { return false }}, false},
		{"all clauses", &Condition{WhenPresent: []string{"design"}, WhenAbsent: []string{"code"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cond.ShouldRun(ctx); got != tt.want {
				t.Errorf("ShouldRun = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPipeline_Validate(t *testing.T) {
	tests := []struct {
		name string
		p    *Pipeline
	}{
		{"nil", nil},
		{"no name", &Pipeline{Steps: []Step{{Name: "a", TaskType: models.TaskReview}}}},
		{"no steps", &Pipeline{Name: "x"}},
		{"unnamed step", &Pipeline{Name: "x", Steps: []Step{{TaskType: models.TaskReview}}}},
		{"duplicate step", &Pipeline{Name: "x", Steps: []Step{
			{Name: "a", TaskType: models.TaskReview}, {Name: "a", TaskType: models.TaskTest},
		}}},
		{"unknown task", &Pipeline{Name: "x", Steps: []Step{{Name: "a", TaskType: "paint"}}}},
		{"reserved output", &Pipeline{Name: "x", Steps: []Step{{Name: "a", TaskType: models.TaskReview, OutputKey: InputKey}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.p.Validate(); !errors.Is(err, ErrInvalidDefinition) {
				t.Errorf("Validate = %v, want ErrInvalidDefinition", err)
			}
		})
	}
	for _, p := range Builtins() {
		if err := p.Validate(); err != nil {
			t.Errorf("builtin %s invalid: %v", p.Name, err)
		}
	}
}
