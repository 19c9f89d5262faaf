package router

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/gads/internal/session"
	"github.com/ShayCichocki/gads/pkg/models"
)

// InferProjectKind decides whether a session describes a 2D or 3D project.
// The kind recorded on the project wins; then a project_type hint in the
// design spec; then a 3D rendering hint in the technical spec; then any
// tracked 3D asset. Everything else is 2D.
func InferProjectKind(sess *session.Session) models.ProjectKind {
	if sess == nil {
		return models.Kind2D
	}
	p := sess.Project
	if p.Kind.Valid() {
		return p.Kind
	}

	if hint := specString(p.DesignSpec, "project_type"); hint != "" {
		if strings.Contains(hint, "3d") {
			return models.Kind3D
		}
		if strings.Contains(hint, "2d") {
			return models.Kind2D
		}
	}

	if r := specString(p.TechnicalSpec, "rendering"); strings.Contains(r, "3d") || strings.Contains(r, "forward+") {
		return models.Kind3D
	}

	if len(p.Assets3D) > 0 {
		return models.Kind3D
	}
	return models.Kind2D
}

func specString(spec map[string]any, key string) string {
	v, ok := spec[key]
	if !ok || v == nil {
		return ""
	}
	return strings.ToLower(fmt.Sprint(v))
}
