package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShayCichocki/gads/internal/agent"
	"github.com/ShayCichocki/gads/internal/orchestrator"
	"github.com/ShayCichocki/gads/internal/pipeline"
	"github.com/ShayCichocki/gads/internal/router"
	"github.com/ShayCichocki/gads/pkg/models"
)

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func testPipeline() *pipeline.Pipeline {
	return &pipeline.Pipeline{
		Name: "new-game",
		Steps: []pipeline.Step{
			{Name: "concept", TaskType: models.TaskGameConcept, OutputKey: "concept"},
			{Name: "mechanics", TaskType: models.TaskMechanicDesign, InputKey: "concept"},
			{Name: "polish", TaskType: models.TaskReview},
		},
	}
}

func TestProgressState_Apply(t *testing.T) {
	s := NewProgressState(testPipeline())

	s.Apply(pipeline.StepStarted{Step: "concept", Index: 1, Total: 3, Agent: models.AgentArchitect, TaskType: models.TaskGameConcept})
	s.Apply(pipeline.ApprovalNeeded{Step: "concept", Agent: models.AgentArchitect})
	if s.Steps[0].Status != StepAwaitingApproval {
		t.Errorf("concept status = %s", s.Steps[0].Status)
	}
	s.Apply(pipeline.ApprovalGranted{Step: "concept"})
	s.Apply(pipeline.InvocationStarted{Step: "concept", Agent: models.AgentArchitect})
	s.Apply(pipeline.StepCompleted{
		Step: "concept", Agent: models.AgentArchitect, Model: "claude-sonnet-4-20250514",
		Usage: &models.TokenUsage{InputTokens: 100, OutputTokens: 50}, Cost: 0.01, Preview: "A cozy farming game",
	})
	s.Apply(pipeline.StepSkipped{Step: "mechanics"})
	s.Apply(pipeline.StepStarted{Step: "polish", Agent: models.AgentQA, TaskType: models.TaskReview})
	s.Apply(pipeline.PipelineFailed{Step: "polish", Error: "timeout"})

	want := []StepStatus{StepCompleted, StepSkipped, StepFailed}
	for i, st := range want {
		if s.Steps[i].Status != st {
			t.Errorf("step %d status = %s, want %s", i, s.Steps[i].Status, st)
		}
	}
	if s.Finished() != 2 {
		t.Errorf("finished = %d", s.Finished())
	}
	if !s.Done || s.Status != pipeline.StatusFailed || s.Error != "timeout" {
		t.Errorf("state = %+v", s)
	}
	if s.Usage.Total() != 150 || s.Cost != 0.01 {
		t.Errorf("usage = %+v cost = %v", s.Usage, s.Cost)
	}
}

func TestProgressState_Denied(t *testing.T) {
	s := NewProgressState(testPipeline())
	s.Apply(pipeline.StepStarted{Step: "concept"})
	s.Apply(pipeline.ApprovalDenied{Step: "concept"})

	if s.Steps[0].Status != StepCancelled || s.Status != pipeline.StatusCancelled || !s.Done {
		t.Errorf("state = %+v", s)
	}
}

func TestProgressView_Render(t *testing.T) {
	v := NewProgressView(NewProgressState(testPipeline()))
	v.Apply(pipeline.StepCompleted{Step: "concept", Agent: models.AgentArchitect, Preview: "first line\nsecond line"})

	out := v.View("*")
	for _, want := range []string{"Pipeline: new-game", "concept", "mechanics", "first line", "1/3"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "second line") {
		t.Error("preview should show only its first line")
	}
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		in       string
		wantTask models.TaskType
		wantText string
	}{
		{"make the jump floatier", "", "make the jump floatier"},
		{"@qa check the save system", models.TaskReview, "check the save system"},
		{"/debug_3d camera clips walls", models.TaskDebug3D, "camera clips walls"},
		{"@nobody hello", "", "@nobody hello"},
		{"/compose_music battle theme", "", "/compose_music battle theme"},
		{"  @designer   balance the shop  ", models.TaskMechanicDesign, "balance the shop"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			task, text := ParseRequest(tt.in)
			if task != tt.wantTask || text != tt.wantText {
				t.Errorf("ParseRequest(%q) = (%q, %q), want (%q, %q)", tt.in, task, text, tt.wantTask, tt.wantText)
			}
		})
	}
}

func TestPipelineApp_Approval(t *testing.T) {
	var answers []orchestrator.ApprovalResponse
	cancelled := false
	app := NewPipelineApp(testPipeline(), func(r orchestrator.ApprovalResponse) {
		answers = append(answers, r)
	}, func() { cancelled = true })

	prompt := orchestrator.ApprovalPrompt{
		ID: "p-1",
		ApprovalRequest: pipeline.ApprovalRequest{
			Step:     "concept",
			Decision: router.Decision{AgentName: models.AgentArchitect, TaskType: models.TaskGameConcept},
			Message:  "Pipeline step 'concept' requires approval. Proceed?",
		},
	}
	app.Update(ApprovalPromptMsg{Prompt: prompt})
	if !strings.Contains(app.View(), "requires approval") {
		t.Error("approval prompt not rendered")
	}

	app.Update(keyRunes("y"))
	if len(answers) != 1 || answers[0].ID != "p-1" || !answers[0].Approved {
		t.Fatalf("answers = %+v", answers)
	}

	app.Update(keyRunes("y"))
	if len(answers) != 1 {
		t.Error("key without a pending prompt should not answer")
	}

	app.Update(ApprovalPromptMsg{Prompt: prompt})
	_, cmd := app.Update(keyRunes("q"))
	if cmd == nil {
		t.Error("q should quit")
	}
	if len(answers) != 2 || answers[1].Approved {
		t.Errorf("quitting should deny the pending prompt, answers = %+v", answers)
	}
	if !cancelled {
		t.Error("quitting a running pipeline should cancel it")
	}
}

func TestPipelineApp_Done(t *testing.T) {
	app := NewPipelineApp(testPipeline(), nil, nil)
	app.Update(EventMsg{Event: pipeline.PipelineCompleted{Pipeline: "new-game"}})
	app.Update(PipelineDoneMsg{Result: &pipeline.Result{Status: pipeline.StatusCompleted}})

	if !strings.Contains(app.View(), "Pipeline complete") {
		t.Errorf("view = %s", app.View())
	}
	if _, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd == nil {
		t.Error("enter should quit after completion")
	}
	if app.Result() == nil || !app.State().Done {
		t.Error("result not recorded")
	}
}

func TestChatApp_SubmitAndRespond(t *testing.T) {
	var gotText string
	var gotTask models.TaskType
	submit := func(text string, tt models.TaskType) tea.Cmd {
		gotText, gotTask = text, tt
		return func() tea.Msg { return nil }
	}
	app := NewChatApp("Farm", submit, nil)

	_, cmd := app.Update(RequestSubmittedMsg{Text: "write tests", TaskType: models.TaskTest})
	if cmd == nil || !app.Busy() {
		t.Fatal("submission should start a request")
	}
	if gotText != "write tests" || gotTask != models.TaskTest {
		t.Errorf("submitted (%q, %q)", gotText, gotTask)
	}

	app.Update(ResponseMsg{Response: &agent.Response{Content: "extends GutTest", AgentName: models.AgentQA, Model: "qwen2.5-coder:14b"}})
	if app.Busy() {
		t.Error("response should clear busy")
	}
	out := app.View()
	if !strings.Contains(out, "extends GutTest") || !strings.Contains(out, "qa (qwen2.5-coder:14b)") {
		t.Errorf("view = %s", out)
	}

	app.Update(RequestSubmittedMsg{Text: "again"})
	app.Update(ResponseMsg{Err: errors.New("agent qa (test): boom")})
	if !strings.Contains(app.View(), "boom") {
		t.Error("error not shown")
	}
}
