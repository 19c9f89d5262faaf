package agent

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/ShayCichocki/gads/pkg/models"
)

// Artifact keys.
const (
	ArtifactContainsCode    = "contains_code"
	ArtifactGDScriptBlocks  = "gdscript_blocks"
	ArtifactCodeBlocks      = "code_blocks"
	ArtifactJSONBlocks      = "json_blocks"
	ArtifactHasArchitecture = "has_architecture"
	ArtifactHasGameConcept  = "has_game_concept"
	ArtifactHasCritical     = "has_critical_issues"
	ArtifactVerdict         = "verdict"
	ArtifactHasImagePrompts = "has_sd_prompts"
	ArtifactImagePrompts    = "image_prompts"
	ArtifactHasColorPalette = "has_color_palette"
	ArtifactHexColors       = "hex_colors"
)

// Extractor derives display artifacts from a response body.
type Extractor func(content string) map[string]any

var (
	fencedBlock    = regexp.MustCompile("(?s)```(\\w*)[ \\t]*\\n(.*?)```")
	positivePrompt = regexp.MustCompile(`(?im)^\W*positive[ _]prompt\W*:\s*(.+)$`)
	hexColor       = regexp.MustCompile(`#[0-9A-Fa-f]{6}\b`)
)

// CodeBlock is one fenced block of a response.
type CodeBlock struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// ExtractCodeBlocks returns every fenced block in content, in order.
func ExtractCodeBlocks(content string) []CodeBlock {
	matches := fencedBlock.FindAllStringSubmatch(content, -1)
	blocks := make([]CodeBlock, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, CodeBlock{
			Language: strings.ToLower(m[1]),
			Code:     strings.TrimSpace(m[2]),
		})
	}
	return blocks
}

// ExtractorFor returns the artifact extractor for an agent role.
func ExtractorFor(name models.AgentName) Extractor {
	switch name {
	case models.AgentArchitect:
		return architectArtifacts
	case models.AgentDesigner:
		return designerArtifacts
	case models.AgentDeveloper2D, models.AgentDeveloper3D:
		return developerArtifacts
	case models.AgentArtDirector:
		return artArtifacts
	case models.AgentQA:
		return qaArtifacts
	default:
		return baseArtifacts
	}
}

// baseArtifacts flags whether the response looks like it carries code.
func baseArtifacts(content string) map[string]any {
	out := map[string]any{}
	if looksLikeCode(content) {
		out[ArtifactContainsCode] = true
	}
	return out
}

func looksLikeCode(content string) bool {
	if fencedBlock.MatchString(content) {
		return true
	}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "extends ") || strings.HasPrefix(line, "func ") {
			return true
		}
	}
	return false
}

func gdscriptBlocks(blocks []CodeBlock) []string {
	var out []string
	for _, b := range blocks {
		if b.Language == "gdscript" {
			out = append(out, b.Code)
		}
	}
	return out
}

func jsonBlocks(blocks []CodeBlock) []any {
	var out []any
	for _, b := range blocks {
		if b.Language != "json" {
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(b.Code), &v); err == nil {
			out = append(out, v)
		}
	}
	return out
}

func developerArtifacts(content string) map[string]any {
	out := baseArtifacts(content)
	if code := gdscriptBlocks(ExtractCodeBlocks(content)); len(code) > 0 {
		out[ArtifactGDScriptBlocks] = code
	}
	return out
}

func architectArtifacts(content string) map[string]any {
	out := baseArtifacts(content)
	blocks := ExtractCodeBlocks(content)
	if len(blocks) > 0 {
		out[ArtifactCodeBlocks] = blocks
	}
	if js := jsonBlocks(blocks); len(js) > 0 {
		out[ArtifactJSONBlocks] = js
	}
	if strings.Contains(content, "## Scene Structure") || strings.Contains(content, "## Core Systems") {
		out[ArtifactHasArchitecture] = true
	}
	if strings.Contains(content, "## Core Loop") || strings.Contains(content, "## Key Features") {
		out[ArtifactHasGameConcept] = true
	}
	return out
}

func designerArtifacts(content string) map[string]any {
	out := baseArtifacts(content)
	if js := jsonBlocks(ExtractCodeBlocks(content)); len(js) > 0 {
		out[ArtifactJSONBlocks] = js
	}
	return out
}

func artArtifacts(content string) map[string]any {
	out := baseArtifacts(content)
	var prompts []string
	for _, m := range positivePrompt.FindAllStringSubmatch(content, -1) {
		if p := strings.Trim(m[1], "\"`* \t"); p != "" {
			prompts = append(prompts, p)
		}
	}
	if len(prompts) > 0 || strings.Contains(content, "positive_prompt") {
		out[ArtifactHasImagePrompts] = true
	}
	if len(prompts) > 0 {
		out[ArtifactImagePrompts] = prompts
	}
	colors := hexColor.FindAllString(content, -1)
	if len(colors) > 0 || strings.Contains(content, "Color Palette") {
		out[ArtifactHasColorPalette] = true
	}
	if len(colors) > 0 {
		out[ArtifactHexColors] = colors
	}
	return out
}

func qaArtifacts(content string) map[string]any {
	out := baseArtifacts(content)
	if code := gdscriptBlocks(ExtractCodeBlocks(content)); len(code) > 0 {
		out[ArtifactGDScriptBlocks] = code
	}
	lower := strings.ToLower(content)
	if strings.Contains(lower, "critical") {
		out[ArtifactHasCritical] = true
	}
	switch {
	case strings.Contains(lower, "pass") || strings.Contains(lower, "approved"):
		out[ArtifactVerdict] = "pass"
	case strings.Contains(lower, "fail"):
		out[ArtifactVerdict] = "fail"
	}
	return out
}
