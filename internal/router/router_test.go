package router

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ShayCichocki/gads/internal/session"
	"github.com/ShayCichocki/gads/pkg/models"
)

type fakeClassifier struct {
	label  string
	err    error
	calls  int
	prompt string
}

func (f *fakeClassifier) Classify(ctx context.Context, system, user string) (string, error) {
	f.calls++
	f.prompt = user
	return f.label, f.err
}

type agentSet map[models.AgentName]bool

func (a agentSet) Has(name models.AgentName) bool { return a[name] }

func allAgents() agentSet {
	set := agentSet{}
	for _, a := range models.AllAgents() {
		set[a] = true
	}
	return set
}

func TestClassify_ModelLabel(t *testing.T) {
	fc := &fakeClassifier{label: "  `Level_Design`.\n"}
	r := New(allAgents(), WithClassifier(fc))
	sess := session.New("Skyward", "cloud platformer", models.Kind2D, "")

	got := r.ClassifyDetailed(context.Background(), "anything", sess)
	if got.TaskType != models.TaskLevelDesign || got.Source != SourceModel {
		t.Errorf("ClassifyDetailed = %+v", got)
	}
	if !strings.Contains(fc.prompt, "Project: Skyward") || !strings.Contains(fc.prompt, "Project Type: 2d") {
		t.Errorf("prompt missing session summary:\n%s", fc.prompt)
	}
}

func TestClassify_FallbackOnInvalidLabel(t *testing.T) {
	fc := &fakeClassifier{label: "make_the_game_fun"}
	r := New(allAgents(), WithClassifier(fc))
	sess := session.New("p", "", models.Kind2D, "")

	got := r.ClassifyDetailed(context.Background(), "Implement a double-jump ability", sess)
	if got.TaskType != models.TaskImplementFeature2D || got.Source != SourceKeyword {
		t.Errorf("ClassifyDetailed = %+v", got)
	}
}

func TestClassify_FallbackOnError(t *testing.T) {
	fc := &fakeClassifier{err: errors.New("connection refused")}
	r := New(allAgents(), WithClassifier(fc))
	sess := session.New("p", "", models.Kind3D, "")

	if got := r.Classify(context.Background(), "fix the crash bug", sess); got != models.TaskDebug3D {
		t.Errorf("Classify = %q, want debug_3d", got)
	}
	if fc.calls != 1 {
		t.Errorf("classifier calls = %d, want 1", fc.calls)
	}
}

func TestClassify_NoClassifier(t *testing.T) {
	r := New(allAgents())
	got := r.ClassifyDetailed(context.Background(), "please review my work", nil)
	if got.TaskType != models.TaskReview || got.Source != SourceKeyword {
		t.Errorf("ClassifyDetailed = %+v", got)
	}
}

func TestResolve_ExplicitSkipsClassifier(t *testing.T) {
	fc := &fakeClassifier{label: "review"}
	r := New(allAgents(), WithClassifier(fc))

	got := r.Resolve(context.Background(), "anything", nil, models.TaskBalancing)
	if got.TaskType != models.TaskBalancing || got.Source != SourceExplicit {
		t.Errorf("Resolve = %+v", got)
	}
	if fc.calls != 0 {
		t.Error("classifier called for explicit task type")
	}
}

func TestRoute(t *testing.T) {
	r := New(allAgents())

	d, err := r.Route(models.TaskVisualStyle, map[string]any{"palette": "warm"})
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if d.AgentName != models.AgentArtDirector || !d.RequiresApproval || d.Context["palette"] != "warm" {
		t.Errorf("Decision = %+v", d)
	}

	d, err = r.Route(models.TaskImplementFeature2D, nil)
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if d.RequiresApproval || d.Context == nil {
		t.Errorf("Decision = %+v", d)
	}
}

func TestRoute_Errors(t *testing.T) {
	r := New(agentSet{models.AgentQA: true})

	if _, err := r.Route(models.TaskType("make_it_pop"), nil); !errors.Is(err, ErrUnknownTaskType) {
		t.Errorf("unknown tag error = %v", err)
	}
	if _, err := r.Route(models.TaskGameConcept, nil); !errors.Is(err, ErrAgentNotRegistered) {
		t.Errorf("unregistered agent error = %v", err)
	}
	if _, err := r.Route(models.TaskReview, nil); err != nil {
		t.Errorf("registered agent error = %v", err)
	}
}

func TestNormalizeLabel(t *testing.T) {
	tests := map[string]string{
		"game_concept":              "game_concept",
		" \"DEBUG_2D\" ":            "debug_2d",
		"Task type: review.":        "review",
		"**test**\nbecause reasons": "test",
	}
	for in, want := range tests {
		if got := NormalizeLabel(in); got != want {
			t.Errorf("NormalizeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInferProjectKind(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *session.Session)
		want  models.ProjectKind
	}{
		{"explicit kind wins", func(s *session.Session) {
			s.Project.Kind = models.Kind2D
			s.Project.Assets3D = []string{"a.glb"}
		}, models.Kind2D},
		{"design hint", func(s *session.Session) {
			s.Project.Kind = ""
			s.Project.DesignSpec["project_type"] = "3D"
		}, models.Kind3D},
		{"rendering hint", func(s *session.Session) {
			s.Project.Kind = ""
			s.Project.TechnicalSpec["rendering"] = "Forward+"
		}, models.Kind3D},
		{"3d asset", func(s *session.Session) {
			s.Project.Kind = ""
			s.Project.Assets3D = []string{"tree.glb"}
		}, models.Kind3D},
		{"default", func(s *session.Session) { s.Project.Kind = "" }, models.Kind2D},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := session.New("p", "", models.Kind2D, "")
			tt.setup(s)
			if got := InferProjectKind(s); got != tt.want {
				t.Errorf("InferProjectKind = %q, want %q", got, tt.want)
			}
		})
	}
	if InferProjectKind(nil) != models.Kind2D {
		t.Error("nil session should be 2d")
	}
}

func TestBuildClassifierPrompt_TruncatesHistory(t *testing.T) {
	s := session.New("p", "", models.Kind2D, "")
	s.AddMessage(session.RoleHuman, "", "old message", nil)
	s.AddMessage(session.RoleAgent, models.AgentDesigner, strings.Repeat("x", 150), nil)

	p := buildClassifierPrompt("next", s, 1)
	if strings.Contains(p, "old message") {
		t.Error("prompt included messages beyond the turn limit")
	}
	if !strings.Contains(p, strings.Repeat("x", 100)+"...") {
		t.Error("long history entry was not truncated")
	}
}
