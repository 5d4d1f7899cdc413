package compiler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/xo/internal/apperr"
	"github.com/starford/xo/internal/models"
	"github.com/starford/xo/internal/testutil"
)

const baseLayout = "<html><head><title>{{title}}</title></head><body>{{{content}}}</body></html>"

func newCompiler(s *testutil.Site) *Compiler {
	return New(Config{
		Root:        s.Root,
		LayoutDir:   s.Layouts,
		PartialsDir: s.Partials,
		BaseURL:     "/blog/",
	})
}

func TestCompile_Basic(t *testing.T) {
	s := testutil.NewSite(t)
	layout := s.Layout(t, "default", baseLayout)
	doc := s.Doc(t, "about.md", "---\ntitle: About\n---\n# About us\n\nSome *text*.\n")

	res, err := newCompiler(s).Compile(context.Background(), doc)
	require.NoError(t, err)

	html := string(res.HTML)
	assert.Contains(t, html, "<title>About</title>")
	assert.Contains(t, html, "<h1>About us</h1>")
	assert.Contains(t, html, "<em>text</em>")
	assert.Equal(t, "About", res.Title)
	assert.Equal(t, doc, res.Path)

	require.Len(t, res.Dependencies, 2)
	assert.Equal(t, models.Dependency{Path: layout, Resolved: true}, res.Dependencies[0])
	assert.Equal(t, filepath.Join(s.Partials, "async.md"), res.Dependencies[1].Path)
	assert.False(t, res.Dependencies[1].Resolved)
}

func TestCompile_PartialsInOrder(t *testing.T) {
	s := testutil.NewSite(t)
	s.Layout(t, "default", baseLayout)
	header := s.Partial(t, "header", "HEADER-TEXT")
	footer := s.Partial(t, "blog/footer", "FOOTER-TEXT")
	doc := s.Doc(t, "post.md", "{{> header}}\n\nbody\n\n{{> blog/footer}}\n\n{{> header}}\n")

	res, err := newCompiler(s).Compile(context.Background(), doc)
	require.NoError(t, err)

	html := string(res.HTML)
	assert.Equal(t, 2, strings.Count(html, "HEADER-TEXT"))
	assert.Contains(t, html, "FOOTER-TEXT")

	paths := models.Paths(res.Dependencies)
	assert.Equal(t, []string{
		filepath.Join(s.Layouts, "default.html"),
		header,
		footer,
		filepath.Join(s.Partials, "async.md"),
	}, paths)
}

func TestCompile_MissingPartial(t *testing.T) {
	s := testutil.NewSite(t)
	s.Layout(t, "default", baseLayout)
	doc := s.Doc(t, "a.md", "before\n\n{{> missing-frag}}\n\nafter\n")

	res, err := newCompiler(s).Compile(context.Background(), doc)
	require.NoError(t, err)

	assert.Contains(t, string(res.HTML), "<!-- Missing partial: missing-frag -->")
	assert.Contains(t, res.Dependencies, models.Dependency{
		Path:     filepath.Join(s.Partials, "missing-frag.md"),
		Resolved: false,
	})
}

func TestCompile_NestedPartials(t *testing.T) {
	s := testutil.NewSite(t)
	s.Layout(t, "default", baseLayout)
	outer := s.Partial(t, "outer", "OUTER {{> inner}}")
	inner := s.Partial(t, "inner", "INNER")
	loop := s.Partial(t, "loop", "LOOP {{> loop}}")
	doc := s.Doc(t, "a.md", "{{> outer}}\n\n{{> loop}}\n")

	res, err := newCompiler(s).Compile(context.Background(), doc)
	require.NoError(t, err)

	html := string(res.HTML)
	assert.Contains(t, html, "OUTER INNER")
	assert.Contains(t, html, "<!-- Recursive partial: loop -->")

	paths := models.Paths(res.Dependencies)
	assert.Contains(t, paths, outer)
	assert.Contains(t, paths, inner)
	assert.Contains(t, paths, loop)
}

func TestCompile_NestingDepthCapped(t *testing.T) {
	s := testutil.NewSite(t)
	s.Layout(t, "default", baseLayout)
	for i := 0; i < 10; i++ {
		s.Partial(t, fmt.Sprintf("p%d", i), fmt.Sprintf("L%d-TEXT {{> p%d}}", i, i+1))
	}
	doc := s.Doc(t, "a.md", "{{> p0}}\n")

	res, err := newCompiler(s).Compile(context.Background(), doc)
	require.NoError(t, err)

	html := string(res.HTML)
	assert.Contains(t, html, "L7-TEXT")
	assert.Contains(t, html, "<!-- Recursive partial: p8 -->")
	assert.NotContains(t, html, "L8-TEXT")

	paths := models.Paths(res.Dependencies)
	assert.Contains(t, paths, filepath.Join(s.Partials, "p8.md"))
	assert.NotContains(t, paths, filepath.Join(s.Partials, "p9.md"))
}

func TestCompile_PartialOutsideTreeRejected(t *testing.T) {
	s := testutil.NewSite(t)
	s.Layout(t, "default", baseLayout)
	secret := testutil.Write(t, filepath.Join(s.Root, "secret.md"), "SECRET-TEXT")
	doc := s.Doc(t, "a.md", "{{> ../../secret}}\n")

	res, err := newCompiler(s).Compile(context.Background(), doc)
	require.NoError(t, err)

	html := string(res.HTML)
	assert.NotContains(t, html, "SECRET-TEXT")
	assert.Contains(t, html, "<!-- Missing partial: ../../secret -->")
	assert.NotContains(t, models.Paths(res.Dependencies), secret)
}

func TestCompile_AuxPartialAndTemplateData(t *testing.T) {
	s := testutil.NewSite(t)
	s.Layout(t, "default", baseLayout)
	aux := s.Partial(t, "async", "ASYNC-{{baseUrl}}")
	doc := s.Doc(t, "blog/post.md", "---\nauthor: Ada\n---\nby {{author}} {{> async}} {{assets}}\n")

	res, err := newCompiler(s).Compile(context.Background(), doc)
	require.NoError(t, err)

	html := string(res.HTML)
	assert.Contains(t, html, "by Ada")
	assert.Contains(t, html, "ASYNC-/blog/")
	assert.Contains(t, html, "content/blog/assets")

	last := res.Dependencies[len(res.Dependencies)-1]
	assert.Equal(t, models.Dependency{Path: aux, Resolved: true}, last)
	assert.Len(t, res.Dependencies, 2, "explicit async reference collapses with the auxiliary partial")
}

func TestCompile_CustomLayout(t *testing.T) {
	s := testutil.NewSite(t)
	s.Layout(t, "default", baseLayout)
	post := s.Layout(t, "post", "<article>{{{content}}}</article>")
	doc := s.Doc(t, "a.md", "---\nlayout: post\n---\nhello\n")

	res, err := newCompiler(s).Compile(context.Background(), doc)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(res.HTML), "<article>"))
	assert.Equal(t, post, res.Dependencies[0].Path)
}

func TestCompile_MissingLayout(t *testing.T) {
	s := testutil.NewSite(t)
	doc := s.Doc(t, "a.md", "---\nlayout: nope\n---\nhello\n")

	_, err := newCompiler(s).Compile(context.Background(), doc)
	require.Error(t, err)

	var ce *apperr.CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, doc, ce.Path)

	var re *apperr.ReadError
	assert.True(t, errors.As(err, &re))
}

func TestCompile_LayoutSyntaxError(t *testing.T) {
	s := testutil.NewSite(t)
	s.Layout(t, "broken", "<body>{{#broken}}{{{content}}}</body>")
	doc := s.Doc(t, "a.md", "---\nlayout: broken\n---\nhello\n")

	_, err := newCompiler(s).Compile(context.Background(), doc)
	var ce *apperr.CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, doc, ce.Path)
}

func TestCompile_UnreadableDocumentCompilesEmpty(t *testing.T) {
	s := testutil.NewSite(t)
	s.Layout(t, "default", baseLayout)
	doc := filepath.Join(s.Content, "ghost.md")

	res, err := newCompiler(s).Compile(context.Background(), doc)
	require.NoError(t, err)
	assert.Contains(t, string(res.HTML), "<body></body>")
}

func TestCompile_RawHTMLSurvives(t *testing.T) {
	s := testutil.NewSite(t)
	s.Layout(t, "default", baseLayout)
	doc := s.Doc(t, "a.md", "<div class=\"note\">raw</div>\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")

	res, err := newCompiler(s).Compile(context.Background(), doc)
	require.NoError(t, err)

	html := string(res.HTML)
	assert.Contains(t, html, `<div class="note">raw</div>`)
	assert.Contains(t, html, "<table>")
}

func TestCompile_CanceledContext(t *testing.T) {
	s := testutil.NewSite(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newCompiler(s).Compile(ctx, filepath.Join(s.Content, "a.md"))
	assert.ErrorIs(t, err, context.Canceled)
}
