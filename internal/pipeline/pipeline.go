// Package pipeline assembles the change detector, dependency graph, compiler
// and orchestrator for one site.
package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/starford/xo/internal/cache"
	"github.com/starford/xo/internal/checksum"
	"github.com/starford/xo/internal/compiler"
	"github.com/starford/xo/internal/depgraph"
	"github.com/starford/xo/internal/detect"
	"github.com/starford/xo/internal/metrics"
	"github.com/starford/xo/internal/rebuild"
	"github.com/starford/xo/internal/storage"
)

// Paths locates the site. All entries are absolute.
type Paths struct {
	Root     string
	Content  string
	Layouts  string
	Partials string
	Output   string
}

// Settings holds template options passed to the compiler.
type Settings struct {
	DefaultLayout string
	AuxPartial    string
	BaseURL       string
}

// Option configures New.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	notifier rebuild.Notifier
	recorder metrics.Recorder
	cache    cache.Cache
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithNotifier sets the reload notifier.
func WithNotifier(n rebuild.Notifier) Option { return func(o *options) { o.notifier = n } }

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option { return func(o *options) { o.recorder = r } }

// WithCache persists digests and edges in c.
func WithCache(c cache.Cache) Option { return func(o *options) { o.cache = c } }

// Pipeline holds the wired components.
type Pipeline struct {
	Paths        Paths
	Content      *storage.FS
	Output       *storage.FS
	Graph        *depgraph.Graph
	Detector     *detect.Detector
	Compiler     *compiler.Compiler
	Orchestrator *rebuild.Orchestrator

	cache  cache.Cache
	logger *slog.Logger
}

// New wires a pipeline. The content and output directories are created when
// missing.
func New(paths Paths, settings Settings, opts ...Option) (*Pipeline, error) {
	o := options{logger: slog.Default(), recorder: metrics.NoopRecorder{}}
	for _, opt := range opts {
		opt(&o)
	}

	content, err := storage.NewFS(paths.Content)
	if err != nil {
		return nil, fmt.Errorf("pipeline: content: %w", err)
	}
	output, err := storage.NewFS(paths.Output)
	if err != nil {
		return nil, fmt.Errorf("pipeline: output: %w", err)
	}

	detOpts := []detect.Option{detect.WithLogger(o.logger)}
	orchOpts := []rebuild.Option{rebuild.WithLogger(o.logger), rebuild.WithRecorder(o.recorder)}
	if o.cache != nil {
		detOpts = append(detOpts, detect.WithPersister(o.cache))
		orchOpts = append(orchOpts, rebuild.WithEdgeStore(o.cache))
	}
	if o.notifier != nil {
		orchOpts = append(orchOpts, rebuild.WithNotifier(o.notifier))
	}

	graph := depgraph.New()
	det := detect.New(detOpts...)
	comp := compiler.New(compiler.Config{
		Root:          paths.Root,
		LayoutDir:     paths.Layouts,
		PartialsDir:   paths.Partials,
		DefaultLayout: settings.DefaultLayout,
		AuxPartial:    settings.AuxPartial,
		BaseURL:       settings.BaseURL,
	}, compiler.WithLogger(o.logger))

	return &Pipeline{
		Paths:        paths,
		Content:      content,
		Output:       output,
		Graph:        graph,
		Detector:     det,
		Compiler:     comp,
		Orchestrator: rebuild.New(content, output, graph, det, comp, orchOpts...),
		cache:        o.cache,
		logger:       o.logger,
	}, nil
}

// Warm loads persisted digests and edges from the cache, if one is wired.
func (p *Pipeline) Warm() error {
	if p.cache == nil {
		return nil
	}
	digests, err := p.cache.AllDigests()
	if err != nil {
		return fmt.Errorf("pipeline: load digests: %w", err)
	}
	edges, err := p.cache.AllEdges()
	if err != nil {
		return fmt.Errorf("pipeline: load edges: %w", err)
	}
	// Digests of files edited while the process was down are dropped.
	current := make(map[string]string, len(digests))
	for path, d := range digests {
		if checksum.File(path) == d {
			current[path] = d
		}
	}
	p.Detector.Seed(current)
	p.Orchestrator.Restore(edges)
	p.logger.Info("pipeline: cache loaded",
		slog.Int("digests", len(current)),
		slog.Int("stale", len(digests)-len(current)),
		slog.Int("documents", len(edges)))
	return nil
}

// WatchRoots returns the directories the dev loop observes.
func (p *Pipeline) WatchRoots() []string {
	return []string{p.Paths.Content, p.Paths.Layouts, p.Paths.Partials}
}
