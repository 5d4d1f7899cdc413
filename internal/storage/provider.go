// Package storage defines the site file-system abstraction.
package storage

import (
	"io/fs"

	"github.com/starford/xo/internal/models"
)

// Provider is the interface for file operations scoped to one tree.
type Provider interface {
	// Root returns the absolute path of the tree.
	Root() string
	// List returns metadata for every .md file under dir (relative to root),
	// skipping directories whose name starts with "_".
	List(dir string) ([]models.DocumentMeta, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to root).
	Delete(path string) error
	// Stat returns file info for path (relative to root).
	Stat(path string) (fs.FileInfo, error)
	// Resolve returns the absolute path for a relative one, rejecting traversal.
	Resolve(path string) (string, error)
}
