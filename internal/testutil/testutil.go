// Package testutil provides shared test helpers for temporary site trees and caches.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/xo/internal/cache"
)

// Site is a temporary project tree laid out like a scaffolded site.
type Site struct {
	Root     string
	Content  string
	Layouts  string
	Partials string
	Dist     string
	Public   string
}

// NewSite creates the directory skeleton under t.TempDir().
func NewSite(t *testing.T) *Site {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s := &Site{
		Root:     root,
		Content:  filepath.Join(root, "content"),
		Layouts:  filepath.Join(root, "layouts"),
		Partials: filepath.Join(root, "content", "_partials"),
		Dist:     filepath.Join(root, "dist"),
		Public:   filepath.Join(root, "public"),
	}
	for _, d := range []string{s.Content, s.Layouts, s.Partials, s.Dist, s.Public} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

// Write creates or replaces the file at an absolute path and returns it.
func Write(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// Doc writes a content document relative to the content dir.
func (s *Site) Doc(t *testing.T, rel, content string) string {
	t.Helper()
	return Write(t, filepath.Join(s.Content, filepath.FromSlash(rel)), content)
}

// Layout writes layouts/<name>.html.
func (s *Site) Layout(t *testing.T, name, content string) string {
	t.Helper()
	return Write(t, filepath.Join(s.Layouts, name+".html"), content)
}

// Partial writes content/_partials/<name>.md.
func (s *Site) Partial(t *testing.T, name, content string) string {
	t.Helper()
	return Write(t, filepath.Join(s.Partials, filepath.FromSlash(name)+".md"), content)
}

// Output reads a file under the output dir, returning "" when absent.
func (s *Site) Output(t *testing.T, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(s.Dist, filepath.FromSlash(rel)))
	if err != nil {
		return ""
	}
	return string(b)
}

// NewTestCache opens a temporary build cache that is closed on cleanup.
func NewTestCache(t *testing.T) *cache.Store {
	t.Helper()
	c, err := cache.Open(filepath.Join(t.TempDir(), "xo-cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// Eventually polls fn every tick until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}
