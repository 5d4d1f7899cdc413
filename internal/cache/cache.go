package cache

import "github.com/starford/xo/internal/models"

// Cache defines the persistence operations used by the build pipeline.
// Consumers depend on this interface rather than *Store.
type Cache interface {
	PutDigest(path, digest string) error
	GetDigest(path string) (string, error)
	AllDigests() (map[string]string, error)
	ReplaceEdges(document string, deps []models.Dependency) error
	DeleteDocument(document string) error
	AllEdges() (map[string][]models.Dependency, error)
	Close() error
}

var _ Cache = (*Store)(nil)
