// Package compiler turns one content document into HTML and reports every
// layout and partial consumed along the way.
package compiler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cbroglie/mustache"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/starford/xo/internal/apperr"
	"github.com/starford/xo/internal/models"
	"github.com/starford/xo/internal/parser"
)

// Config locates the site sources. All directories are absolute.
type Config struct {
	Root          string
	LayoutDir     string
	PartialsDir   string
	DefaultLayout string
	AuxPartial    string
	BaseURL       string
}

// Result is the outcome of a successful compile.
type Result struct {
	Path         string
	HTML         []byte
	Dependencies []models.Dependency
	Title        string
}

// Compiler runs the partial, template, markdown and layout stages.
type Compiler struct {
	cfg    Config
	md     goldmark.Markdown
	logger *slog.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger used for missing-partial warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// New creates a Compiler for the given site layout.
func New(cfg Config, opts ...Option) *Compiler {
	if cfg.DefaultLayout == "" {
		cfg.DefaultLayout = "default"
	}
	if cfg.AuxPartial == "" {
		cfg.AuxPartial = "async"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "/"
	}
	c := &Compiler{
		cfg: cfg,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// LayoutPath returns the template file for a layout name.
func (c *Compiler) LayoutPath(name string) string {
	if name == "" {
		name = c.cfg.DefaultLayout
	}
	return filepath.Join(c.cfg.LayoutDir, name+".html")
}

// PartialPath returns the file backing a partial identifier.
func (c *Compiler) PartialPath(name string) string {
	return filepath.Join(c.cfg.PartialsDir, filepath.FromSlash(name)+".md")
}

// inPartials reports whether path lies inside the partials directory.
func (c *Compiler) inPartials(path string) bool {
	rel, err := filepath.Rel(c.cfg.PartialsDir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Compile builds the document at path. An unreadable document compiles as
// empty content. A missing layout or a template syntax error yields an
// *apperr.CompileError.
func (c *Compiler) Compile(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		c.logger.Warn("compiler: document unreadable, compiling empty content",
			slog.String("path", path),
			slog.String("error", err.Error()))
		raw = nil
	}

	doc, err := parser.Parse(raw)
	if err != nil {
		return nil, &apperr.CompileError{Path: path, Err: err}
	}

	x := &expander{c: c, seen: make(map[string]struct{})}
	body := x.expand(doc.Body, nil)

	data := c.templateData(path, doc.Frontmatter)

	auxPath := c.PartialPath(c.cfg.AuxPartial)
	aux, _ := c.readPartial(auxPath)
	partials := &mustache.StaticProvider{Partials: map[string]string{c.cfg.AuxPartial: aux}}

	rendered, err := mustache.RenderPartials(body, partials, data)
	if err != nil {
		return nil, &apperr.CompileError{Path: path, Err: fmt.Errorf("render body: %w", err)}
	}

	var buf bytes.Buffer
	if err := c.md.Convert([]byte(rendered), &buf); err != nil {
		return nil, &apperr.CompileError{Path: path, Err: fmt.Errorf("markdown: %w", err)}
	}

	layoutPath := c.LayoutPath(doc.Layout)
	layoutSrc, err := os.ReadFile(layoutPath)
	if err != nil {
		return nil, &apperr.CompileError{Path: path, Err: &apperr.ReadError{Path: layoutPath, Err: err}}
	}
	tmpl, err := mustache.ParseString(string(layoutSrc))
	if err != nil {
		return nil, &apperr.CompileError{Path: path, Err: fmt.Errorf("parse layout %s: %w", layoutPath, err)}
	}
	data["content"] = buf.String()
	out, err := tmpl.Render(data)
	if err != nil {
		return nil, &apperr.CompileError{Path: path, Err: fmt.Errorf("render layout %s: %w", layoutPath, err)}
	}

	deps := make([]models.Dependency, 0, len(x.deps)+2)
	deps = append(deps, models.Dependency{Path: layoutPath, Resolved: true})
	deps = append(deps, x.deps...)
	if _, dup := x.seen[auxPath]; !dup {
		_, statErr := os.Stat(auxPath)
		deps = append(deps, models.Dependency{Path: auxPath, Resolved: statErr == nil})
	}

	return &Result{
		Path:         path,
		HTML:         []byte(out),
		Dependencies: deps,
		Title:        doc.Title,
	}, nil
}

func (c *Compiler) templateData(path string, fm map[string]interface{}) map[string]interface{} {
	data := make(map[string]interface{}, len(fm)+3)
	for k, v := range fm {
		data[k] = v
	}
	assets := filepath.Join(filepath.Dir(path), "assets")
	if c.cfg.Root != "" {
		if rel, err := filepath.Rel(c.cfg.Root, assets); err == nil {
			assets = rel
		}
	}
	data["assets"] = filepath.ToSlash(assets)
	data["baseUrl"] = c.cfg.BaseURL
	return data
}

func (c *Compiler) readPartial(path string) (string, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(b), true
}

// maxDepth bounds nested partial expansion.
const maxDepth = 8

// expander substitutes {{> name}} references and collects the partial
// files they point at, in order of first reference.
type expander struct {
	c    *Compiler
	deps []models.Dependency
	seen map[string]struct{}
}

func (x *expander) expand(body string, stack []string) string {
	return parser.PartialRef.ReplaceAllStringFunc(body, func(ref string) string {
		name := parser.PartialRef.FindStringSubmatch(ref)[1]
		path := x.c.PartialPath(name)
		if !x.c.inPartials(path) {
			x.c.logger.Warn("compiler: partial outside partials dir",
				slog.String("partial", name), slog.String("path", path))
			return fmt.Sprintf("<!-- Missing partial: %s -->", name)
		}

		content, ok := x.c.readPartial(path)
		x.track(path, ok)
		if !ok {
			x.c.logger.Warn("compiler: missing partial",
				slog.String("partial", name), slog.String("path", path))
			return fmt.Sprintf("<!-- Missing partial: %s -->", name)
		}

		for _, p := range stack {
			if p == path {
				return fmt.Sprintf("<!-- Recursive partial: %s -->", name)
			}
		}
		if len(stack) >= maxDepth {
			x.c.logger.Warn("compiler: partial nesting too deep",
				slog.String("partial", name), slog.Int("depth", len(stack)))
			return fmt.Sprintf("<!-- Recursive partial: %s -->", name)
		}
		return x.expand(content, append(stack, path))
	})
}

func (x *expander) track(path string, resolved bool) {
	if _, ok := x.seen[path]; ok {
		return
	}
	x.seen[path] = struct{}{}
	x.deps = append(x.deps, models.Dependency{Path: path, Resolved: resolved})
}
