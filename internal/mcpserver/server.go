// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes xo build and dependency tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/xo/internal/siteservice"
	"github.com/starford/xo/internal/storage"
)

const contractURI = "xo://content-format"

// Server wraps the MCP server with xo tools.
type Server struct {
	mcp     *server.MCPServer
	svc     *siteservice.Service
	content storage.Provider
}

// New creates a new MCP server with all xo tools registered.
func New(svc *siteservice.Service, content storage.Provider, version string) *Server {
	s := &Server{svc: svc, content: content}

	s.mcp = server.NewMCPServer(
		"xo",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("build_site",
		mcp.WithDescription("Compile content documents to HTML. Without paths the whole site is rebuilt."),
		mcp.WithArray("paths",
			mcp.Description("Optional document paths relative to the project root (e.g. content/blog/post.md)"),
			mcp.WithStringItems()),
	), s.buildSite)

	s.mcp.AddTool(mcp.NewTool("list_dependents",
		mcp.WithDescription("List the documents that include a layout or partial."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Layout or partial path relative to the project root")),
	), s.listDependents)

	s.mcp.AddTool(mcp.NewTool("list_dependencies",
		mcp.WithDescription("List the layout and partials a document consumed on its last successful build."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path relative to the project root")),
	), s.listDependencies)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List every document the dependency graph tracks."),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the source of a content document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path relative to the content directory (e.g. blog/post.md)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("site_status",
		mcp.WithDescription("Report the last build result and dependency graph size."),
	), s.siteStatus)

	s.mcp.AddTool(mcp.NewTool("get_content_format",
		mcp.WithDescription("Returns the xo content format: front-matter, partial syntax, layouts and output paths."),
	), s.getContentFormat)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Content Format",
			mcp.WithResourceDescription("How documents, partials and layouts are written."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContentFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) buildSite(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths := req.GetStringSlice("paths", nil)
	sum, err := s.svc.Rebuild(ctx, paths)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(sum), nil
}

func (s *Server) listDependents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	docs, err := s.svc.Dependents(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(docs) == 0 {
		return mcp.NewToolResultText("no dependents found"), nil
	}
	return mcp.NewToolResultText(strings.Join(docs, "\n")), nil
}

func (s *Server) listDependencies(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	deps, err := s.svc.Dependencies(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(deps) == 0 {
		return mcp.NewToolResultText("no dependencies recorded"), nil
	}
	return mcp.NewToolResultText(strings.Join(deps, "\n")), nil
}

func (s *Server) listDocuments(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(strings.Join(s.svc.Documents(ctx), "\n")), nil
}

func (s *Server) readDocument(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.content.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) siteStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Status(ctx)), nil
}

func (s *Server) getContentFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ContentFormatContract), nil
}

func (s *Server) readContentFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     ContentFormatContract,
		},
	}, nil
}
