// Package models defines the domain types shared across the build pipeline.
package models

import "time"

// Dependency is a layout or partial consumed while compiling a document.
// Resolved is false when the referenced file did not exist at compile time;
// the edge is still recorded so that creating the file triggers a rebuild.
type Dependency struct {
	Path     string `json:"path"`
	Resolved bool   `json:"resolved"`
}

// Paths returns the dependency paths in order.
func Paths(deps []Dependency) []string {
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		out = append(out, d.Path)
	}
	return out
}

// DocumentMeta is a lightweight representation returned by enumeration.
type DocumentMeta struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}
