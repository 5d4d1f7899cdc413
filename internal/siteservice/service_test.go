package siteservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/xo/internal/apperr"
	"github.com/starford/xo/internal/pipeline"
	"github.com/starford/xo/internal/testutil"
)

type fixedClients int

func (f fixedClients) ClientCount() int { return int(f) }

func newService(t *testing.T) (*testutil.Site, *Service) {
	t.Helper()
	s := testutil.NewSite(t)
	s.Layout(t, "default", "<body>{{{content}}}</body>")
	p, err := pipeline.New(pipeline.Paths{
		Root:     s.Root,
		Content:  s.Content,
		Layouts:  s.Layouts,
		Partials: s.Partials,
		Output:   s.Dist,
	}, pipeline.Settings{}, pipeline.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return s, NewService(p.Orchestrator, s.Root, fixedClients(2))
}

func TestStatus_BeforeAnyBuild(t *testing.T) {
	_, svc := newService(t)
	st := svc.Status(context.Background())
	assert.Nil(t, st.LastRebuild)
	assert.Equal(t, 2, st.Clients)
	assert.Equal(t, 0, st.Documents)
}

func TestRebuild_SummaryUsesRelativePaths(t *testing.T) {
	s, svc := newService(t)
	s.Doc(t, "a.md", "a\n")
	s.Doc(t, "b.md", "---\nlayout: missing\n---\nb\n")

	sum, err := svc.Rebuild(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "partial", sum.Status)
	assert.Equal(t, []string{"content/a.md"}, sum.Built)
	require.Len(t, sum.Failures, 1)
	assert.Equal(t, "content/b.md", sum.Failures[0].Path)
	assert.Contains(t, sum.Failures[0].Error, "compile")

	st := svc.Status(context.Background())
	require.NotNil(t, st.LastRebuild)
	assert.Equal(t, "partial", st.LastRebuild.Status)
	assert.Equal(t, 1, st.Documents)
}

func TestResolve(t *testing.T) {
	s, svc := newService(t)

	abs, err := svc.Resolve("content/a.md")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Content, "a.md"), abs)

	abs, err = svc.Resolve(filepath.Join(s.Layouts, "default.html"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Layouts, "default.html"), abs)

	_, err = svc.Resolve("../outside.md")
	assert.Error(t, err)
	_, err = svc.Resolve("  ")
	assert.Error(t, err)
}

func TestDependencies_NotDocument(t *testing.T) {
	_, svc := newService(t)
	_, err := svc.Dependencies(context.Background(), "layouts/default.html")
	assert.True(t, errors.Is(err, apperr.ErrNotDocument))
}
