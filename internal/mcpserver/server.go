// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the to-do list tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/tasklist/internal/apperr"
	"github.com/starford/tasklist/internal/itemservice"
	"github.com/starford/tasklist/internal/models"
)

const contractURI = "tasklist://item-contract"

// Server wraps the MCP server with the item tools.
type Server struct {
	mcp *server.MCPServer
	svc *itemservice.Service
}

// New creates a new MCP server with all item tools registered.
func New(svc *itemservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Tasklist",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_items",
		mcp.WithDescription("List all to-do items, newest first."),
	), s.listItems)

	s.mcp.AddTool(mcp.NewTool("get_item",
		mcp.WithDescription("Fetch a single to-do item by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item id as returned by list_items")),
	), s.getItem)

	s.mcp.AddTool(mcp.NewTool("create_item",
		mcp.WithDescription("Create a new to-do item. The item starts as not done."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Non-blank title; surrounding white space is trimmed")),
	), s.createItem)

	s.mcp.AddTool(mcp.NewTool("update_item",
		mcp.WithDescription("Change the title and/or done flag of an item. Omitted fields are left untouched."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithBoolean("done", mcp.Description("New completion state")),
	), s.updateItem)

	s.mcp.AddTool(mcp.NewTool("delete_item",
		mcp.WithDescription("Permanently delete a to-do item."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
	), s.deleteItem)

	s.mcp.AddTool(mcp.NewTool("get_item_contract",
		mcp.WithDescription("Returns the item field contract and the rules the tools enforce."),
	), s.getItemContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Item Contract",
			mcp.WithResourceDescription("Fields and rules of a to-do item."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
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

func (s *Server) listItems(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.ListItems(ctx)
	if err != nil {
		return toolError("list_items", err), nil
	}
	return jsonResult(items), nil
}

func (s *Server) getItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	item, err := s.svc.GetItem(ctx, id)
	if err != nil {
		return toolError("get_item", err), nil
	}
	return jsonResult(item), nil
}

func (s *Server) createItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	item, err := s.svc.CreateItem(ctx, title)
	if err != nil {
		return toolError("create_item", err), nil
	}
	return jsonResult(item), nil
}

func (s *Server) updateItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var patch models.ItemPatch
	args := req.GetArguments()
	if v, ok := args["title"]; ok && v != nil {
		title, ok := v.(string)
		if !ok {
			return mcp.NewToolResultError("title must be a string"), nil
		}
		patch.Title = &title
	}
	if v, ok := args["done"]; ok && v != nil {
		done, ok := v.(bool)
		if !ok {
			return mcp.NewToolResultError("done must be a boolean"), nil
		}
		patch.Done = &done
	}

	item, err := s.svc.UpdateItem(ctx, id, patch)
	if err != nil {
		return toolError("update_item", err), nil
	}
	return jsonResult(item), nil
}

func (s *Server) deleteItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteItem(ctx, id); err != nil {
		return toolError("delete_item", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) getItemContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ItemContract), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     ItemContract,
		},
	}, nil
}

// toolError turns domain errors into tool-level errors the model can act on.
// Anything else is logged and reported without detail.
func toolError(tool string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("item not found")
	case errors.Is(err, apperr.ErrInvalidID):
		return mcp.NewToolResultError("invalid item id")
	case errors.Is(err, apperr.ErrInvalidInput):
		return mcp.NewToolResultError(err.Error())
	default:
		slog.Error("tool failed", slog.String("tool", tool), slog.String("error", err.Error()))
		return mcp.NewToolResultError("internal error")
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}
