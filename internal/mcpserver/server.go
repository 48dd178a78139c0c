// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the LiveTagger tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/livetag/internal/apperr"
	"github.com/starford/livetag/internal/storage"
	"github.com/starford/livetag/internal/tagservice"
)

const tagFormatURI = "livetag://tag-format"

// Server wraps the MCP server with the LiveTagger tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *tagservice.Service
	store storage.Provider
}

// New creates a new MCP server with all tools registered.
func New(svc *tagservice.Service, store storage.Provider, version string) *Server {
	s := &Server{svc: svc, store: store}

	s.mcp = server.NewMCPServer(
		"LiveTagger",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(tagTool("add_tags",
		"Add tags to every sample matched by the include glob. "+
			"Tags use the Category|Subcategory format; read the tag format first via "+
			"the get_tag_format tool or the "+tagFormatURI+" resource.",
		true), s.applyTags(tagservice.OpAdd))

	s.mcp.AddTool(tagTool("remove_tags",
		"Remove the given tags from every sample matched by the include glob.",
		true), s.applyTags(tagservice.OpRemove))

	s.mcp.AddTool(tagTool("remove_all_tags",
		"Remove every tag from the samples matched by the include glob.",
		false), s.applyTags(tagservice.OpRemoveAll))

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("Show the tags of every sample matched by the include glob. Reads the folder documents directly."),
		mcp.WithString("include", mcp.Required(), mcp.Description("Glob relative to the library root (e.g. Drums/**/*.wav)")),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("search_files",
		mcp.WithDescription("Full-text search through the sample catalog by file name and tag."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchFiles)

	s.mcp.AddTool(mcp.NewTool("read_folder_metadata",
		mcp.WithDescription("Read the parsed tag metadata of one sample folder, including the raw XMP document."),
		mcp.WithString("folder", mcp.Required(), mcp.Description("Folder relative to the library root (. for the root)")),
	), s.readFolderMetadata)

	s.mcp.AddTool(mcp.NewTool("get_tag_format",
		mcp.WithDescription("Returns the tag format and file selection rules. "+
			"Call this before tagging to ensure correct tags."),
	), s.getTagFormat)

	s.mcp.AddTool(mcp.NewTool("import_sample",
		mcp.WithDescription("Download a sample from an http(s) URL or a base64 data URI into a library folder, "+
			"optionally tagging it. The import is always committed."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:audio/...;base64,... URI")),
		mcp.WithString("folder", mcp.Description("Destination folder relative to the library root (default .)")),
		mcp.WithString("filename", mcp.Description("File name to save as; derived from the URL when empty")),
		mcp.WithArray("tags", mcp.Description("Tags to add to the imported sample"), mcp.WithStringItems()),
	), s.importSample)

	// Resource: tag format contract.
	s.mcp.AddResource(
		mcp.NewResource(tagFormatURI, "Tag Format",
			mcp.WithResourceDescription("How tags are written and how files are selected."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTagFormatResource,
	)

	return s
}

// tagTool builds the schema shared by the three tag operations.
func tagTool(name, description string, withTags bool) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithString("include", mcp.Required(), mcp.Description("Glob relative to the library root (e.g. Drums/**/*.wav)")),
	}
	if withTags {
		opts = append(opts, mcp.WithArray("tags", mcp.Required(),
			mcp.Description("Tags in Category|Subcategory format"), mcp.WithStringItems()))
	}
	opts = append(opts,
		mcp.WithBoolean("commit", mcp.Description("Write the changes; false means dry run")),
		mcp.WithBoolean("backup", mcp.Description("Keep the previous document as .bak before writing")),
		mcp.WithBoolean("keep_going", mcp.Description("Continue with other folders after a failure")),
	)
	return mcp.NewTool(name, opts...)
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) applyTags(op tagservice.Operation) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		include, err := req.RequireString("include")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var tags []string
		if op != tagservice.OpRemoveAll {
			if tags, err = req.RequireStringSlice("tags"); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}

		res, err := s.svc.Apply(ctx, tagservice.Request{
			Op:        op,
			Include:   include,
			Tags:      tags,
			Commit:    req.GetBool("commit", false),
			Backup:    req.GetBool("backup", false),
			KeepGoing: req.GetBool("keep_going", false),
		})
		if err != nil && res == nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out, _ := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(err.Error() + "\n" + string(out)), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}

func (s *Server) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	include, err := req.RequireString("include")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	files, err := s.svc.ListTags(ctx, include)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(files) == 0 {
		return mcp.NewToolResultText("no samples matched"), nil
	}
	out, _ := json.MarshalIndent(files, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readFolderMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder, err := req.RequireString("folder")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.Folder(ctx, folder, true)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError("no metadata document in " + folder), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(detail, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getTagFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(TagFormatContract), nil
}

func (s *Server) readTagFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      tagFormatURI,
			MIMEType: "text/markdown",
			Text:     TagFormatContract,
		},
	}, nil
}
