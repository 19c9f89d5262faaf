package router

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/gads/internal/session"
)

// ClassificationSystemPrompt constrains the classifier to a single label.
const ClassificationSystemPrompt = `You are a task classifier for a Godot game development system. Your job is to analyze user requests and classify them into the correct task type.

Available task types and when to use them:

ARCHITECT TASKS (high-level design):
- game_concept: New game ideas, "I want to make a game about...", initial concepts
- system_design: Overall system architecture, how components interact
- architecture: Technical structure, scene organization, autoloads
- creative_direction: Theme, tone, overall vision

DESIGNER TASKS (mechanics and levels):
- mechanic_design: Gameplay mechanics, abilities, controls, player actions
- level_design: Level layouts, environments, world design
- balancing: Difficulty tuning, number tweaking, progression curves

DEVELOPER TASKS - 2D (code for 2D games):
- implement_feature_2d: Implement/code features for 2D games
- create_scene_2d: Create 2D scenes, node hierarchies
- write_script_2d: Write GDScript for 2D (CharacterBody2D, Sprite2D, etc.)
- debug_2d: Fix bugs in 2D code

DEVELOPER TASKS - 3D (code for 3D games):
- implement_feature_3d: Implement/code features for 3D games
- create_scene_3d: Create 3D scenes, node hierarchies
- write_script_3d: Write GDScript for 3D (CharacterBody3D, MeshInstance3D, etc.)
- debug_3d: Fix bugs in 3D code

ART DIRECTOR TASKS (visuals):
- visual_style: Art direction, color palettes, aesthetic choices
- asset_spec: Asset specifications, dimensions, formats
- prompt_engineering: Creating prompts for Stable Diffusion or image generation

QA TASKS (testing and review):
- test: Write tests, test scenarios, verify functionality
- validate: Check implementation matches design
- review: Code review, quality checks

IMPORTANT RULES:
1. For developer tasks, choose 2D or 3D based on context clues:
   - Mentions of Sprite2D, CharacterBody2D, TileMap, Camera2D → use 2D variants
   - Mentions of MeshInstance3D, CharacterBody3D, Camera3D → use 3D variants
   - If project_type is provided, use that as default
   - If unclear, default to 2D
2. "Implement", "code", "create", "write" with code context → developer tasks
3. "Design" without code context → designer or architect tasks
4. Bug fixes, errors, debugging → debug tasks
5. New game ideas with no existing project → game_concept

Respond with ONLY the task type (e.g., "game_concept" or "implement_feature_2d"). No explanation.`

// historySnippetLen caps each history line in the classifier summary.
const historySnippetLen = 100

// buildClassifierPrompt renders the session summary and the request.
func buildClassifierPrompt(text string, sess *session.Session, turns int) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	if sess != nil {
		fmt.Fprintf(&b, "Project: %s\n", sess.Project.Name)
		fmt.Fprintf(&b, "Project Type: %s\n", InferProjectKind(sess))
		fmt.Fprintf(&b, "Current Phase: %s\n", sess.Project.CurrentPhase)
		if sess.Project.Description != "" {
			fmt.Fprintf(&b, "Description: %s\n", sess.Project.Description)
		}
		if recent := sess.RecentHistory(turns); len(recent) > 0 {
			b.WriteString("Recent conversation:\n")
			for _, m := range recent {
				fmt.Fprintf(&b, "- %s: %s\n", m.Role, snippet(m.Content, historySnippetLen))
			}
		}
	}
	fmt.Fprintf(&b, "\nUser request to classify:\n%s\n\nTask type:", text)
	return b.String()
}

func snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
