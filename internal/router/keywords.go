package router

import (
	"strings"

	"github.com/ShayCichocki/gads/pkg/models"
)

// keywordGroup is one entry of the fallback table. A group matches when the
// lower-cased request contains any keyword and none of the unless words.
// Groups with a family resolve to a development task by sub-keyword.
type keywordGroup struct {
	name     string
	keywords []string
	unless   []string
	task     models.TaskType
	family   *devFamily
}

// devFamily picks a development task by sub-keyword. Generic families take
// their dimensionality from the project kind instead of dim.
type devFamily struct {
	dim     models.ProjectKind
	subs    []devSub
	generic bool
}

type devKind int

const (
	devImplement devKind = iota
	devScene
	devScript
	devDebug
)

type devSub struct {
	kind     devKind
	keywords []string
}

// implementationVerbs mark a request as asking for code even when it names a
// gameplay concept ("implement a double-jump ability").
var implementationVerbs = []string{"implement", "code", "script", "debug", "bug", "fix"}

// explicitSubs select the task inside a dimension-explicit family.
var explicitSubs = []devSub{
	{devImplement, []string{"implement", "code", "feature"}},
	{devScene, []string{"scene", "node"}},
	{devScript, []string{"script", "gdscript"}},
	{devDebug, []string{"bug", "fix", "debug"}},
}

// genericSubs select the task when no dimensionality is named.
var genericSubs = []devSub{
	{devImplement, []string{"implement", "code", "create feature", "add feature"}},
	{devScene, []string{"scene", "node"}},
	{devScript, []string{"script", "gdscript"}},
	{devDebug, []string{"bug", "fix", "debug", "error"}},
}

// fallbackGroups is checked in order; the first matching group wins.
// Explicit 3D vocabulary is checked before 2D vocabulary, and both before
// generic development phrases, so a named dimensionality always beats the
// project's declared kind.
var fallbackGroups = []keywordGroup{
	{name: "concept", keywords: []string{"concept", "idea", "game about", "design a game", "new game"}, task: models.TaskGameConcept},
	{name: "architecture", keywords: []string{"architecture", "system design", "structure"}, task: models.TaskArchitecture},
	{name: "mechanic", keywords: []string{"mechanic", "gameplay", "ability", "control"}, unless: implementationVerbs, task: models.TaskMechanicDesign},
	{name: "level", keywords: []string{"level", "map", "environment", "world"}, unless: implementationVerbs, task: models.TaskLevelDesign},
	{name: "balance", keywords: []string{"balance", "difficulty", "tuning"}, task: models.TaskBalancing},
	{name: "3d", keywords: []string{"3d", "mesh", "camera3d", "characterbody3d"}, family: &devFamily{dim: models.Kind3D, subs: explicitSubs}},
	{name: "2d", keywords: []string{"2d", "sprite", "camera2d", "characterbody2d", "tilemap"}, family: &devFamily{dim: models.Kind2D, subs: explicitSubs}},
	{name: "development", keywords: flatten(genericSubs), family: &devFamily{subs: genericSubs, generic: true}},
	{name: "visual", keywords: []string{"visual", "style", "art direction", "look and feel"}, task: models.TaskVisualStyle},
	{name: "asset", keywords: []string{"asset", "model", "texture"}, task: models.TaskAssetSpec},
	{name: "prompt", keywords: []string{"prompt", "stable diffusion", "generate image"}, task: models.TaskPromptEngineering},
	{name: "test", keywords: []string{"test", "verify"}, task: models.TaskTest},
	{name: "review", keywords: []string{"review", "check", "validate"}, task: models.TaskReview},
}

// KeywordClassify maps a request to a task type with the deterministic
// keyword table. kind breaks ties for development requests that name no
// dimensionality. The result depends only on the arguments.
func KeywordClassify(text string, kind models.ProjectKind) Classification {
	lower := strings.ToLower(text)

	for _, g := range fallbackGroups {
		kw, ok := firstMatch(lower, g.keywords)
		if !ok {
			continue
		}
		if _, blocked := firstMatch(lower, g.unless); blocked {
			continue
		}
		if g.family == nil {
			return Classification{
				TaskType: g.task,
				Source:   SourceKeyword,
				Keyword:  kw,
				Reason:   "matched " + g.name + " keyword",
			}
		}

		dim := g.family.dim
		if g.family.generic {
			dim = kind
		}
		dk := devImplement
		for _, sub := range g.family.subs {
			if _, ok := firstMatch(lower, sub.keywords); ok {
				dk = sub.kind
				break
			}
		}
		return Classification{
			TaskType: devTask(dk, dim),
			Source:   SourceKeyword,
			Keyword:  kw,
			Reason:   "matched " + g.name + " keyword",
		}
	}

	return Classification{
		TaskType: models.TaskGameConcept,
		Source:   SourceKeyword,
		Reason:   "no keyword match, defaulting to game concept",
	}
}

func devTask(k devKind, dim models.ProjectKind) models.TaskType {
	switch k {
	case devScene:
		return models.ForKind(dim, models.TaskCreateScene2D, models.TaskCreateScene3D)
	case devScript:
		return models.ForKind(dim, models.TaskWriteScript2D, models.TaskWriteScript3D)
	case devDebug:
		return models.ForKind(dim, models.TaskDebug2D, models.TaskDebug3D)
	default:
		return models.ForKind(dim, models.TaskImplementFeature2D, models.TaskImplementFeature3D)
	}
}

func firstMatch(lower string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

func flatten(subs []devSub) []string {
	var out []string
	for _, s := range subs {
		out = append(out, s.keywords...)
	}
	return out
}
