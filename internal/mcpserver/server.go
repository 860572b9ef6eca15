// Package mcpserver exposes read-only blog tools over MCP (Model Context
// Protocol) on stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/blogservice"
)

const contentModelURI = "folio://content-model"

// Server wraps the MCP server with the blog tools.
type Server struct {
	mcp     *server.MCPServer
	svc     *blogservice.Service
	baseURL string
}

// New creates an MCP server with every tool registered. baseURL prefixes
// the post links it reports.
func New(svc *blogservice.Service, baseURL, version string) *Server {
	s := &Server{svc: svc, baseURL: strings.TrimSuffix(baseURL, "/")}

	s.mcp = server.NewMCPServer(
		"Folio",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_posts",
		mcp.WithDescription("List published blog posts, newest first, one page at a time."),
		mcp.WithNumber("page", mcp.Description("1-based page number (default 1)")),
		mcp.WithString("category", mcp.Description("Optional category slug to filter by")),
	), s.listPosts)

	s.mcp.AddTool(mcp.NewTool("get_post",
		mcp.WithDescription("Read one post: metadata, table of contents and the body as plain text."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Post slug as it appears in the URL")),
	), s.getPost)

	s.mcp.AddTool(mcp.NewTool("list_categories",
		mcp.WithDescription("List categories with their post counts, most used first."),
	), s.listCategories)

	s.mcp.AddTool(mcp.NewTool("get_content_model",
		mcp.WithDescription("Describe the database properties and block types the blog understands."),
	), s.getContentModel)

	s.mcp.AddResource(
		mcp.NewResource(contentModelURI, "Content Model",
			mcp.WithResourceDescription("Database properties and block types the blog understands."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContentModel,
	)

	return s
}

// ServeStdio serves MCP on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page := req.GetInt("page", 1)
	category := req.GetString("category", "")

	var (
		l   blogservice.Listing
		err error
	)
	if category != "" {
		l, err = s.svc.Category(ctx, category, page)
	} else {
		l, err = s.svc.Index(ctx, page)
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("unknown category: %s", category)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(l.ListResult, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.Post(ctx, slug)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", slug)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	p := d.Post
	fmt.Fprintf(&b, "# %s\n\n", p.Title)
	fmt.Fprintf(&b, "url: %s%s/%s\n", s.baseURL, s.svc.IndexPath(), p.Slug)
	fmt.Fprintf(&b, "published: %s\n", p.PublishedAt)
	if p.Category != "" {
		fmt.Fprintf(&b, "category: %s\n", p.Category)
	}
	if len(p.Tags) > 0 {
		fmt.Fprintf(&b, "tags: %s\n", strings.Join(p.Tags, ", "))
	}
	fmt.Fprintf(&b, "reading time: %d min\n", p.ReadingTime)
	if p.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", p.Description)
	}
	if len(d.TOC) > 0 {
		b.WriteString("\n## Contents\n\n")
		for _, item := range d.TOC {
			fmt.Fprintf(&b, "%s- %s (#%s)\n", strings.Repeat("  ", item.Level-1), item.Text, item.ID)
		}
	}
	b.WriteString("\n---\n\n")
	b.WriteString(Outline(d.Blocks))
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) listCategories(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cats, err := s.svc.Categories(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(cats) == 0 {
		return mcp.NewToolResultText("no categories found"), nil
	}
	out, _ := json.MarshalIndent(cats, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getContentModel(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ContentModel), nil
}

func (s *Server) readContentModel(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contentModelURI,
			MIMEType: "text/markdown",
			Text:     ContentModel,
		},
	}, nil
}
