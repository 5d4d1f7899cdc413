package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/xo/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDigests(t *testing.T) {
	s := testStore(t)

	if err := s.PutDigest("/c/a.md", "aaa"); err != nil {
		t.Fatal(err)
	}
	if err := s.PutDigest("/c/a.md", "bbb"); err != nil {
		t.Fatal(err)
	}
	if err := s.PutDigest("/c/b.md", ""); err != nil {
		t.Fatal(err)
	}

	dg, err := s.GetDigest("/c/a.md")
	if err != nil {
		t.Fatal(err)
	}
	if dg != "bbb" {
		t.Errorf("digest = %q, want bbb", dg)
	}

	missing, err := s.GetDigest("/nope")
	if err != nil || missing != "" {
		t.Errorf("missing digest = %q, %v", missing, err)
	}

	all, err := s.AllDigests()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all["/c/a.md"] != "bbb" || all["/c/b.md"] != "" {
		t.Errorf("all = %v", all)
	}
}

func TestReplaceEdges(t *testing.T) {
	s := testStore(t)

	first := []models.Dependency{
		{Path: "/l/default.html", Resolved: true},
		{Path: "/p/header.md", Resolved: true},
		{Path: "/p/missing.md", Resolved: false},
	}
	if err := s.ReplaceEdges("/c/a.md", first); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceEdges("/c/a.md", first[:1]); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceEdges("/c/b.md", first); err != nil {
		t.Fatal(err)
	}

	edges, err := s.AllEdges()
	if err != nil {
		t.Fatal(err)
	}
	if len(edges["/c/a.md"]) != 1 {
		t.Errorf("a edges = %v, want 1", edges["/c/a.md"])
	}
	b := edges["/c/b.md"]
	if len(b) != 3 {
		t.Fatalf("b edges = %v, want 3", b)
	}
	for i, want := range first {
		if b[i] != want {
			t.Errorf("b[%d] = %+v, want %+v", i, b[i], want)
		}
	}
}

func TestDeleteDocument(t *testing.T) {
	s := testStore(t)

	_ = s.PutDigest("/c/a.md", "aaa")
	_ = s.ReplaceEdges("/c/a.md", []models.Dependency{{Path: "/l/default.html", Resolved: true}})
	_ = s.ReplaceEdges("/c/b.md", []models.Dependency{{Path: "/l/default.html", Resolved: true}})

	if err := s.DeleteDocument("/c/a.md"); err != nil {
		t.Fatal(err)
	}
	edges, _ := s.AllEdges()
	if _, ok := edges["/c/a.md"]; ok {
		t.Error("edges for deleted document still present")
	}
	if len(edges["/c/b.md"]) != 1 {
		t.Error("sibling edges should survive")
	}
	if dg, _ := s.GetDigest("/c/a.md"); dg != "" {
		t.Errorf("digest = %q, want empty", dg)
	}
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = s.PutDigest("/c/a.md", "aaa")
	_ = s.ReplaceEdges("/c/a.md", []models.Dependency{{Path: "/l/default.html", Resolved: true}})
	s.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file missing: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	all, _ := s2.AllDigests()
	if all["/c/a.md"] != "aaa" {
		t.Errorf("digest after reopen = %q", all["/c/a.md"])
	}
	edges, _ := s2.AllEdges()
	if len(edges["/c/a.md"]) != 1 {
		t.Errorf("edges after reopen = %v", edges)
	}
}
