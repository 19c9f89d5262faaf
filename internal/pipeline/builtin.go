package pipeline

import "github.com/ShayCichocki/gads/pkg/models"

// Builtins returns fresh copies of the built-in pipelines.
func Builtins() []*Pipeline {
	return []*Pipeline{
		{
			Name:        "new-game",
			Description: "Create a complete game concept from a brief description",
			Steps: []Step{
				{Name: "concept", TaskType: models.TaskGameConcept, OutputKey: "concept"},
				{Name: "architecture", TaskType: models.TaskArchitecture, InputKey: "concept", OutputKey: "architecture"},
				{Name: "visual_style", TaskType: models.TaskVisualStyle, InputKey: "concept", OutputKey: "art_style"},
				{Name: "mechanics", TaskType: models.TaskMechanicDesign, InputKey: "concept", OutputKey: "core_mechanics"},
			},
		},
		{
			Name:        "feature",
			Description: "Design, implement, and review a new feature",
			Steps: []Step{
				{Name: "design", TaskType: models.TaskMechanicDesign, OutputKey: "design"},
				{Name: "implement", TaskType: models.TaskImplementFeature2D, InputKey: "design", OutputKey: "code"},
				{Name: "review", TaskType: models.TaskReview, InputKey: "code", OutputKey: "review"},
			},
		},
		{
			Name:        "asset",
			Description: "Create specifications and prompts for game assets",
			Steps: []Step{
				{Name: "spec", TaskType: models.TaskAssetSpec, OutputKey: "asset_spec"},
				{Name: "prompts", TaskType: models.TaskPromptEngineering, InputKey: "asset_spec", OutputKey: "sd_prompts"},
			},
		},
		{
			Name:        "iterate",
			Description: "Review and improve existing code",
			Steps: []Step{
				{Name: "review", TaskType: models.TaskReview, OutputKey: "review"},
				{Name: "fix", TaskType: models.TaskDebug2D, InputKey: "review", OutputKey: "fixes"},
				{Name: "validate", TaskType: models.TaskValidate, InputKey: "fixes", OutputKey: "validation"},
			},
		},
	}
}
