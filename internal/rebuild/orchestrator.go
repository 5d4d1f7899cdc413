// Package rebuild turns a single file change into the minimal set of
// document compiles and one reload notification.
package rebuild

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/starford/xo/internal/apperr"
	"github.com/starford/xo/internal/compiler"
	"github.com/starford/xo/internal/depgraph"
	"github.com/starford/xo/internal/metrics"
	"github.com/starford/xo/internal/models"
	"github.com/starford/xo/internal/storage"
)

// ReloadMessage is the payload broadcast after a successful rebuild.
const ReloadMessage = "refresh"

// Detector decides whether a path changed since it was last seen.
type Detector interface {
	ShouldRebuild(path string) bool
}

// Compiler builds one document.
type Compiler interface {
	Compile(ctx context.Context, path string) (*compiler.Result, error)
}

// Notifier fans a message out to connected browsers.
type Notifier interface {
	Broadcast(msg string)
}

// EdgeStore persists dependency edges across restarts.
type EdgeStore interface {
	ReplaceEdges(document string, deps []models.Dependency) error
	DeleteDocument(document string) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNotifier sets the reload notifier.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithEdgeStore writes every recorded edge set through to s.
func WithEdgeStore(s EdgeStore) Option {
	return func(o *Orchestrator) { o.edges = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// Orchestrator owns the dependency graph and drives compiles.
type Orchestrator struct {
	content  storage.Provider
	output   storage.Provider
	graph    *depgraph.Graph
	detector Detector
	compiler Compiler
	notifier Notifier
	recorder metrics.Recorder
	edges    EdgeStore
	logger   *slog.Logger

	mu   sync.Mutex
	last *Result
}

// New creates an Orchestrator reading documents from content and writing
// artifacts to output.
func New(content, output storage.Provider, graph *depgraph.Graph, det Detector, comp Compiler, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		content:  content,
		output:   output,
		graph:    graph,
		detector: det,
		compiler: comp,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Graph exposes the dependency graph for read-only introspection.
func (o *Orchestrator) Graph() *depgraph.Graph { return o.graph }

// Last returns the most recent result, if any.
func (o *Orchestrator) Last() (Result, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == nil {
		return Result{}, false
	}
	return *o.last, true
}

// Restore loads previously persisted edges into the graph.
func (o *Orchestrator) Restore(edges map[string][]models.Dependency) {
	for doc, deps := range edges {
		o.graph.Record(doc, models.Paths(deps))
	}
	o.recorder.SetGraphDocuments(o.graph.Len())
}

// IsDocument reports whether path is a content document: a .md file under
// the content root with no "_"-prefixed directory on the way.
func (o *Orchestrator) IsDocument(path string) bool {
	rel, err := filepath.Rel(o.content.Root(), path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return false
	}
	if !strings.HasSuffix(rel, ".md") {
		return false
	}
	for _, seg := range strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/") {
		if strings.HasPrefix(seg, storage.ExcludedPrefix) {
			return false
		}
	}
	return true
}

// OutputPath maps a document to its artifact path relative to the output
// root: the root index.md becomes index.html, anything else a/b.md becomes
// a/b/index.html.
func (o *Orchestrator) OutputPath(document string) (string, error) {
	rel, err := filepath.Rel(o.content.Root(), document)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "index.md" {
		return "index.html", nil
	}
	return strings.TrimSuffix(rel, ".md") + "/index.html", nil
}

// HandleChange processes one filesystem event for path.
func (o *Orchestrator) HandleChange(ctx context.Context, path string) Result {
	start := time.Now()
	path = filepath.Clean(path)

	if !o.detector.ShouldRebuild(path) {
		res := Result{Trigger: path, Status: StatusSkipped}
		o.finish(&res, start)
		return res
	}

	res := Result{Trigger: path}
	affected := make(map[string]struct{})

	if o.IsDocument(path) {
		if exists(path) {
			affected[path] = struct{}{}
		} else {
			o.forget(path)
			res.Removed = append(res.Removed, path)
		}
	}
	for _, doc := range o.graph.Dependents(path) {
		if exists(doc) {
			affected[doc] = struct{}{}
			continue
		}
		o.forget(doc)
		res.Removed = append(res.Removed, doc)
	}

	var docs []string
	if len(affected) == 0 {
		res.Full = true
		all, err := o.enumerate()
		if err != nil {
			o.logger.Error("rebuild: enumerate failed", slog.String("error", err.Error()))
			res.Failures = append(res.Failures, Failure{Path: o.content.Root(), Err: err})
		} else {
			res.Removed = append(res.Removed, o.pruneMissing(all)...)
		}
		docs = all
	} else {
		for d := range affected {
			docs = append(docs, d)
		}
		sort.Strings(docs)
	}

	o.compileAll(ctx, docs, &res)
	o.finish(&res, start)
	return res
}

// Build compiles docs, or every content document when docs is empty.
// Paths that are not content documents fail with apperr.ErrNotDocument.
func (o *Orchestrator) Build(ctx context.Context, docs []string) Result {
	start := time.Now()
	res := Result{}

	var targets []string
	if len(docs) == 0 {
		res.Full = true
		all, err := o.enumerate()
		if err != nil {
			o.logger.Error("rebuild: enumerate failed", slog.String("error", err.Error()))
			res.Failures = append(res.Failures, Failure{Path: o.content.Root(), Err: err})
		} else {
			res.Removed = o.pruneMissing(all)
		}
		targets = all
	} else {
		for _, d := range docs {
			d = filepath.Clean(d)
			if !o.IsDocument(d) {
				res.Failures = append(res.Failures, Failure{Path: d, Err: apperr.ErrNotDocument})
				continue
			}
			if !exists(d) {
				res.Failures = append(res.Failures, Failure{Path: d, Err: apperr.ErrNotFound})
				continue
			}
			targets = append(targets, d)
		}
		sort.Strings(targets)
	}

	o.compileAll(ctx, targets, &res)
	o.finish(&res, start)
	return res
}

func (o *Orchestrator) compileAll(ctx context.Context, docs []string, res *Result) {
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			res.Failures = append(res.Failures, Failure{Path: doc, Err: err})
			continue
		}
		if err := o.compileOne(ctx, doc); err != nil {
			o.logger.Warn("rebuild: document failed",
				slog.String("path", doc), slog.String("error", err.Error()))
			res.Failures = append(res.Failures, Failure{Path: doc, Err: err})
			continue
		}
		res.Built = append(res.Built, doc)
	}
	res.Status = statusOf(len(res.Built), len(res.Failures))
}

func (o *Orchestrator) compileOne(ctx context.Context, doc string) error {
	start := time.Now()
	out, err := o.compiler.Compile(ctx, doc)
	o.recorder.ObserveCompile(err == nil, time.Since(start))
	if err != nil {
		return err
	}

	o.graph.Record(doc, models.Paths(out.Dependencies))
	if o.edges != nil {
		if err := o.edges.ReplaceEdges(doc, out.Dependencies); err != nil {
			o.logger.Warn("rebuild: persist edges failed",
				slog.String("path", doc), slog.String("error", err.Error()))
		}
	}

	rel, err := o.OutputPath(doc)
	if err != nil {
		return &apperr.WriteError{Path: doc, Err: err}
	}
	if err := o.output.Write(rel, out.HTML); err != nil {
		return &apperr.WriteError{Path: filepath.Join(o.output.Root(), rel), Err: err}
	}
	o.logger.Debug("rebuild: built", slog.String("path", doc), slog.String("output", rel))
	return nil
}

func (o *Orchestrator) finish(res *Result, start time.Time) {
	res.Duration = time.Since(start)

	if len(res.Built) > 0 && o.notifier != nil {
		o.notifier.Broadcast(ReloadMessage)
		o.recorder.IncReloadBroadcast()
	}

	o.recorder.ObserveRebuild(string(res.Status), res.Duration)
	o.recorder.SetGraphDocuments(o.graph.Len())

	if res.Status != StatusSkipped {
		attrs := []any{
			slog.String("status", string(res.Status)),
			slog.Int("built", len(res.Built)),
			slog.Int("failed", len(res.Failures)),
			slog.Bool("full", res.Full),
			slog.Duration("duration", res.Duration),
		}
		if res.Trigger != "" {
			attrs = append(attrs, slog.String("trigger", res.Trigger))
		}
		o.logger.Info("rebuild: done", attrs...)
	}

	o.mu.Lock()
	cp := *res
	o.last = &cp
	o.mu.Unlock()
}

// enumerate lists every content document as an absolute path.
func (o *Orchestrator) enumerate() ([]string, error) {
	metas, err := o.content.List("")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(metas))
	for _, m := range metas {
		out = append(out, filepath.Join(o.content.Root(), m.Path))
	}
	return out, nil
}

// pruneMissing forgets graph documents absent from present.
func (o *Orchestrator) pruneMissing(present []string) []string {
	keep := make(map[string]struct{}, len(present))
	for _, p := range present {
		keep[p] = struct{}{}
	}
	var removed []string
	for _, doc := range o.graph.Documents() {
		if _, ok := keep[doc]; ok {
			continue
		}
		o.forget(doc)
		removed = append(removed, doc)
	}
	return removed
}

// forget drops a deleted document from the graph, the cache and the output tree.
func (o *Orchestrator) forget(doc string) {
	o.graph.Forget(doc)
	if o.edges != nil {
		if err := o.edges.DeleteDocument(doc); err != nil {
			o.logger.Warn("rebuild: forget edges failed",
				slog.String("path", doc), slog.String("error", err.Error()))
		}
	}
	rel, err := o.OutputPath(doc)
	if err != nil {
		return
	}
	if err := o.output.Delete(rel); err != nil && !errors.Is(err, fs.ErrNotExist) {
		o.logger.Warn("rebuild: remove output failed",
			slog.String("path", rel), slog.String("error", err.Error()))
	}
	o.logger.Info("rebuild: document removed", slog.String("path", doc))
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
