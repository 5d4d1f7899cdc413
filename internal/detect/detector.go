// Package detect decides whether a changed file actually needs a rebuild by
// comparing content digests against the last recorded value.
package detect

import (
	"log/slog"
	"sync"

	"github.com/starford/xo/internal/checksum"
)

// Persister stores digests outside the process, e.g. the build cache.
type Persister interface {
	PutDigest(path, digest string) error
}

// Option configures a Detector.
type Option func(*Detector)

// WithPersister writes every stored digest through to p.
func WithPersister(p Persister) Option {
	return func(d *Detector) { d.persist = p }
}

// WithLogger sets the logger used to report persistence failures.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) { d.logger = l }
}

// Detector tracks the last seen digest for every path.
type Detector struct {
	mu      sync.Mutex
	digests map[string]string
	persist Persister
	logger  *slog.Logger
}

// New creates an empty Detector.
func New(opts ...Option) *Detector {
	d := &Detector{
		digests: make(map[string]string),
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ShouldRebuild reports whether the content of path differs from the last
// recorded digest. An unreadable file digests to "". The stored digest is
// updated only when it changed.
func (d *Detector) ShouldRebuild(path string) bool {
	digest := checksum.File(path)

	d.mu.Lock()
	prev, ok := d.digests[path]
	if ok && prev == digest {
		d.mu.Unlock()
		return false
	}
	d.digests[path] = digest
	d.mu.Unlock()

	if d.persist != nil {
		if err := d.persist.PutDigest(path, digest); err != nil {
			d.logger.Warn("detect: persist digest failed",
				slog.String("path", path), slog.String("error", err.Error()))
		}
	}
	return true
}

// Seed loads previously persisted digests. Existing entries are overwritten.
func (d *Detector) Seed(digests map[string]string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for p, dg := range digests {
		d.digests[p] = dg
	}
}

// Digest returns the recorded digest for path.
func (d *Detector) Digest(path string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dg, ok := d.digests[path]
	return dg, ok
}

// Len returns the number of tracked paths.
func (d *Detector) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.digests)
}
