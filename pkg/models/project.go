package models

import "strings"

// ProjectKind is the declared dimensionality of a project.
type ProjectKind string

const (
	// Kind2D is a 2D project. It is also the default when nothing is declared.
	Kind2D ProjectKind = "2d"
	// Kind3D is a 3D project.
	Kind3D ProjectKind = "3d"
)

// Valid returns true if the kind is a known value.
func (k ProjectKind) Valid() bool {
	return k == Kind2D || k == Kind3D
}

// ParseProjectKind normalises user input ("2D", " 3d ") into a ProjectKind.
// Empty input yields Kind2D.
func ParseProjectKind(s string) (ProjectKind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Kind2D, true
	}
	k := ProjectKind(s)
	return k, k.Valid()
}
