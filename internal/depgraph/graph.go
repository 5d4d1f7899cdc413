// Package depgraph maintains the bidirectional mapping between content
// documents and the layouts and partials they consume.
package depgraph

import (
	"sort"
	"sync"
)

type set map[string]struct{}

// Graph records, for every successfully compiled document, the resources it
// consumed (forward) and, for every resource, the documents consuming it
// (reverse). Both directions are mutated under one lock so readers never
// observe a half-applied update.
type Graph struct {
	mu      sync.RWMutex
	forward map[string]set
	reverse map[string]set
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		forward: make(map[string]set),
		reverse: make(map[string]set),
	}
}

// Record replaces the dependency set of document with resources.
// Duplicate resources collapse to one edge.
func (g *Graph) Record(document string, resources []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.unlinkLocked(document)

	fwd := make(set, len(resources))
	for _, r := range resources {
		fwd[r] = struct{}{}
		rev, ok := g.reverse[r]
		if !ok {
			rev = make(set)
			g.reverse[r] = rev
		}
		rev[document] = struct{}{}
	}
	g.forward[document] = fwd
}

// Forget removes document from both directions.
func (g *Graph) Forget(document string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unlinkLocked(document)
	delete(g.forward, document)
}

// unlinkLocked drops document from the reverse set of every prior dependency.
// Empty reverse sets are deleted. Caller holds the write lock.
func (g *Graph) unlinkLocked(document string) {
	for r := range g.forward[document] {
		rev := g.reverse[r]
		delete(rev, document)
		if len(rev) == 0 {
			delete(g.reverse, r)
		}
	}
}

// Dependents returns the documents that consumed resource, sorted.
func (g *Graph) Dependents(resource string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.reverse[resource])
}

// Dependencies returns the resources document consumed on its last
// successful compile, sorted.
func (g *Graph) Dependencies(document string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.forward[document])
}

// Documents returns every document with a forward entry, sorted.
func (g *Graph) Documents() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.forward))
	for d := range g.forward {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of tracked documents.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.forward)
}

// Resources returns the number of resources with at least one dependent.
func (g *Graph) Resources() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.reverse)
}

func sortedKeys(s set) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
