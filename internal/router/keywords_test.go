package router

import (
	"testing"

	"github.com/ShayCichocki/gads/pkg/models"
)

func TestKeywordClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		kind models.ProjectKind
		want models.TaskType
	}{
		{"concept", "I have an idea for a game about bees", models.Kind2D, models.TaskGameConcept},
		{"architecture", "Plan the autoload architecture", models.Kind2D, models.TaskArchitecture},
		{"mechanic", "Design a wall-run ability", models.Kind2D, models.TaskMechanicDesign},
		{"implementation verb beats mechanic", "Implement a double-jump ability", models.Kind2D, models.TaskImplementFeature2D},
		{"implementation in 3d project", "Implement a double-jump ability", models.Kind3D, models.TaskImplementFeature3D},
		{"level", "Sketch the first world layout", models.Kind2D, models.TaskLevelDesign},
		{"balance", "The boss difficulty is too high", models.Kind2D, models.TaskBalancing},
		{"explicit 3d overrides 2d project", "Add a mesh for the door scene", models.Kind2D, models.TaskCreateScene3D},
		{"explicit 3d script", "Write a CharacterBody3D controller script", models.Kind2D, models.TaskWriteScript3D},
		{"explicit 2d overrides 3d project", "Fix the sprite flicker bug", models.Kind3D, models.TaskDebug2D},
		{"explicit 2d defaults to implement", "Add a Camera2D that follows the player", models.Kind3D, models.TaskImplementFeature2D},
		{"generic scene uses kind", "Create the pause menu scene", models.Kind3D, models.TaskCreateScene3D},
		{"generic debug uses kind", "There is an error when saving", models.Kind2D, models.TaskDebug2D},
		{"visual", "Pick a color style for the UI", models.Kind2D, models.TaskVisualStyle},
		{"asset", "List the texture sizes we need", models.Kind2D, models.TaskAssetSpec},
		{"prompt", "Write a stable diffusion prompt for the hero", models.Kind2D, models.TaskPromptEngineering},
		{"test", "Verify the save system", models.Kind2D, models.TaskTest},
		{"validate routes to review", "Validate the inventory against the doc", models.Kind2D, models.TaskReview},
		{"review", "Please review the player", models.Kind2D, models.TaskReview},
		{"default", "hello there", models.Kind2D, models.TaskGameConcept},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := KeywordClassify(tt.text, tt.kind)
			if got.TaskType != tt.want {
				t.Errorf("KeywordClassify(%q, %s) = %q (%s %q), want %q",
					tt.text, tt.kind, got.TaskType, got.Reason, got.Keyword, tt.want)
			}
			if got.Source != SourceKeyword {
				t.Errorf("Source = %q, want keyword", got.Source)
			}
		})
	}
}

func TestKeywordClassify_Deterministic(t *testing.T) {
	inputs := []string{
		"Implement a double-jump ability",
		"Create a Camera3D rig scene",
		"Review the combat code",
		"something unrelated",
	}
	for _, in := range inputs {
		for _, kind := range []models.ProjectKind{models.Kind2D, models.Kind3D} {
			first := KeywordClassify(in, kind)
			for i := 0; i < 20; i++ {
				if got := KeywordClassify(in, kind); got != first {
					t.Fatalf("KeywordClassify(%q, %s) changed: %+v then %+v", in, kind, first, got)
				}
			}
		}
	}
}

func TestKeywordClassify_DimensionalityOverride(t *testing.T) {
	for _, kind := range []models.ProjectKind{models.Kind2D, models.Kind3D} {
		if got := KeywordClassify("implement the 3d orbit camera", kind).TaskType; got != models.TaskImplementFeature3D {
			t.Errorf("3d request in %s project = %q", kind, got)
		}
		if got := KeywordClassify("implement the 2d parallax background", kind).TaskType; got != models.TaskImplementFeature2D {
			t.Errorf("2d request in %s project = %q", kind, got)
		}
	}
}
