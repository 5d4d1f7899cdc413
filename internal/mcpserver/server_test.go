package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/xo/internal/pipeline"
	"github.com/starford/xo/internal/siteservice"
	"github.com/starford/xo/internal/testutil"
)

func testServer(t *testing.T) (*Server, *testutil.Site) {
	t.Helper()

	s := testutil.NewSite(t)
	s.Layout(t, "default", "<body>{{{content}}}</body>")
	s.Partial(t, "header", "H")
	s.Doc(t, "index.md", "{{> header}}\nhome\n")
	s.Doc(t, "about.md", "about\n")

	p, err := pipeline.New(pipeline.Paths{
		Root:     s.Root,
		Content:  s.Content,
		Layouts:  s.Layouts,
		Partials: s.Partials,
		Output:   s.Dist,
	}, pipeline.Settings{}, pipeline.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatal(err)
	}

	svc := siteservice.NewService(p.Orchestrator, s.Root, nil)
	return New(svc, p.Content, "test"), s
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "build_site":
		result, err = srv.buildSite(ctx, req)
	case "list_dependents":
		result, err = srv.listDependents(ctx, req)
	case "list_dependencies":
		result, err = srv.listDependencies(ctx, req)
	case "list_documents":
		result, err = srv.listDocuments(ctx, req)
	case "read_document":
		result, err = srv.readDocument(ctx, req)
	case "site_status":
		result, err = srv.siteStatus(ctx, req)
	case "get_content_format":
		result, err = srv.getContentFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestBuildSite(t *testing.T) {
	srv, s := testServer(t)

	r := callTool(t, srv, "build_site", map[string]interface{}{})
	if r.IsError {
		t.Fatalf("build failed: %s", resultText(r))
	}
	var sum siteservice.Summary
	if err := json.Unmarshal([]byte(resultText(r)), &sum); err != nil {
		t.Fatal(err)
	}
	if sum.Status != "succeeded" || len(sum.Built) != 2 {
		t.Errorf("summary = %+v", sum)
	}
	if !strings.Contains(s.Output(t, "index.html"), "H") {
		t.Error("index not written")
	}
}

func TestBuildSite_Paths(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "build_site", map[string]interface{}{
		"paths": []interface{}{"content/about.md"},
	})
	var sum siteservice.Summary
	_ = json.Unmarshal([]byte(resultText(r)), &sum)
	if len(sum.Built) != 1 || sum.Built[0] != "content/about.md" {
		t.Errorf("built = %v", sum.Built)
	}
}

func TestDependents(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "build_site", map[string]interface{}{})

	r := callTool(t, srv, "list_dependents", map[string]interface{}{"path": "content/_partials/header.md"})
	if text := resultText(r); text != "content/index.md" {
		t.Errorf("dependents = %q", text)
	}

	r = callTool(t, srv, "list_dependents", map[string]interface{}{"path": "layouts/unused.html"})
	if text := resultText(r); text != "no dependents found" {
		t.Errorf("dependents = %q", text)
	}
}

func TestDependencies(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "build_site", map[string]interface{}{})

	r := callTool(t, srv, "list_dependencies", map[string]interface{}{"path": "content/about.md"})
	text := resultText(r)
	if !strings.Contains(text, "layouts/default.html") || !strings.Contains(text, "content/_partials/async.md") {
		t.Errorf("dependencies = %q", text)
	}

	r = callTool(t, srv, "list_dependencies", map[string]interface{}{"path": "layouts/default.html"})
	if !r.IsError {
		t.Error("expected error for a non-document")
	}
}

func TestListDocuments(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "build_site", map[string]interface{}{})

	r := callTool(t, srv, "list_documents", map[string]interface{}{})
	if text := resultText(r); text != "content/about.md\ncontent/index.md" {
		t.Errorf("documents = %q", text)
	}
}

func TestReadDocument(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "read_document", map[string]interface{}{"path": "about.md"})
	if text := resultText(r); text != "about\n" {
		t.Errorf("read = %q", text)
	}

	r = callTool(t, srv, "read_document", map[string]interface{}{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}
}

func TestRequiredPath(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "list_dependents", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error when path is missing")
	}
}

func TestSiteStatusAndFormat(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "build_site", map[string]interface{}{})

	var st siteservice.Status
	if err := json.Unmarshal([]byte(resultText(callTool(t, srv, "site_status", nil))), &st); err != nil {
		t.Fatal(err)
	}
	if st.Documents != 2 {
		t.Errorf("documents = %d", st.Documents)
	}

	if !strings.Contains(resultText(callTool(t, srv, "get_content_format", nil)), "{{> name}}") {
		t.Error("format contract missing partial syntax")
	}
}
