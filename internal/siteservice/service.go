// Package siteservice exposes read and rebuild operations over the running
// build pipeline to the HTTP API and the MCP server.
package siteservice

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/starford/xo/internal/apperr"
	"github.com/starford/xo/internal/rebuild"
)

// ClientCounter reports connected live-reload clients.
type ClientCounter interface {
	ClientCount() int
}

// FailureItem is one failed document in a rebuild summary.
type FailureItem struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Summary is the serialisable form of a rebuild result. Paths are relative
// to the project root.
type Summary struct {
	Trigger    string        `json:"trigger,omitempty"`
	Status     string        `json:"status"`
	Full       bool          `json:"full"`
	Built      []string      `json:"built"`
	Failures   []FailureItem `json:"failures"`
	Removed    []string      `json:"removed,omitempty"`
	DurationMS int64         `json:"duration_ms"`
}

// Status describes the current pipeline state.
type Status struct {
	LastRebuild *Summary `json:"last_rebuild,omitempty"`
	Clients     int      `json:"clients"`
	Documents   int      `json:"documents"`
	Resources   int      `json:"resources"`
}

// Service coordinates the orchestrator and the live-reload hub.
type Service struct {
	orch    *rebuild.Orchestrator
	root    string
	clients ClientCounter
}

// NewService creates a service. root is the project directory used to
// resolve and report relative paths; clients may be nil.
func NewService(orch *rebuild.Orchestrator, root string, clients ClientCounter) *Service {
	return &Service{orch: orch, root: filepath.Clean(root), clients: clients}
}

// Status returns the last rebuild result and graph counters.
func (s *Service) Status(_ context.Context) Status {
	g := s.orch.Graph()
	st := Status{Documents: g.Len(), Resources: g.Resources()}
	if s.clients != nil {
		st.Clients = s.clients.ClientCount()
	}
	if last, ok := s.orch.Last(); ok {
		sum := s.summarize(last)
		st.LastRebuild = &sum
	}
	return st
}

// Dependents lists the documents that consumed the resource at path.
func (s *Service) Dependents(_ context.Context, path string) ([]string, error) {
	abs, err := s.Resolve(path)
	if err != nil {
		return nil, err
	}
	return s.relAll(s.orch.Graph().Dependents(abs)), nil
}

// Dependencies lists the layout and partials a document consumed on its
// last successful compile.
func (s *Service) Dependencies(_ context.Context, path string) ([]string, error) {
	abs, err := s.Resolve(path)
	if err != nil {
		return nil, err
	}
	if !s.orch.IsDocument(abs) {
		return nil, apperr.ErrNotDocument
	}
	return s.relAll(s.orch.Graph().Dependencies(abs)), nil
}

// Documents lists every document tracked by the graph.
func (s *Service) Documents(_ context.Context) []string {
	return s.relAll(s.orch.Graph().Documents())
}

// Rebuild builds the given documents, or the whole site when paths is empty.
func (s *Service) Rebuild(ctx context.Context, paths []string) (Summary, error) {
	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		a, err := s.Resolve(p)
		if err != nil {
			return Summary{}, err
		}
		abs = append(abs, a)
	}
	return s.summarize(s.orch.Build(ctx, abs)), nil
}

// Resolve turns a path relative to the project root (or an absolute path
// inside it) into a cleaned absolute path.
func (s *Service) Resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("siteservice: empty path")
	}
	p := filepath.Clean(filepath.FromSlash(path))
	if !filepath.IsAbs(p) {
		p = filepath.Join(s.root, p)
	}
	if p != s.root && !strings.HasPrefix(p, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("siteservice: path escapes project root: %s", path)
	}
	return p, nil
}

func (s *Service) rel(abs string) string {
	r, err := filepath.Rel(s.root, abs)
	if err != nil || strings.HasPrefix(r, "..") {
		return abs
	}
	return filepath.ToSlash(r)
}

func (s *Service) relAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, s.rel(p))
	}
	return out
}

func (s *Service) summarize(r rebuild.Result) Summary {
	sum := Summary{
		Status:     string(r.Status),
		Full:       r.Full,
		Built:      s.relAll(r.Built),
		Failures:   make([]FailureItem, 0, len(r.Failures)),
		DurationMS: r.Duration.Milliseconds(),
	}
	if r.Trigger != "" {
		sum.Trigger = s.rel(r.Trigger)
	}
	if len(r.Removed) > 0 {
		sum.Removed = s.relAll(r.Removed)
	}
	for _, f := range r.Failures {
		sum.Failures = append(sum.Failures, FailureItem{Path: s.rel(f.Path), Error: f.Err.Error()})
	}
	return sum
}
