// Package mcpserver exposes the responder to MCP clients over stdio, so an
// assistant can hold a conversation with parlo as a tool.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/flemzord/parlo/internal/responder"
	"github.com/flemzord/parlo/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Tool names.
const (
	ToolChat    = "chat"
	ToolHistory = "session_history"
	ToolStats   = "session_stats"
)

// Replier turns a chat request into a reply.
type Replier interface {
	Reply(ctx context.Context, req responder.Request) (responder.Reply, error)
}

// Sessions is the read side of session.Store used by the tools.
type Sessions interface {
	History(id string, limit int) []session.Exchange
	Stats() session.Stats
}

// Server wraps an MCP server with parlo's tools registered.
type Server struct {
	replier  Replier
	sessions Sessions
	logger   *slog.Logger
	mcp      *server.MCPServer
}

// New registers the chat, history and stats tools.
func New(replier Replier, sessions Sessions, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		replier:  replier,
		sessions: sessions,
		logger:   logger.With("component", "mcp"),
		mcp:      server.NewMCPServer("parlo", version, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool(ToolChat,
		mcp.WithDescription("Send a message to the parlo responder and get its reply. "+
			"Pass the returned session_id back to continue the same conversation."),
		mcp.WithString("message", mcp.Required(), mcp.Description("User message, French or English")),
		mcp.WithString("session_id", mcp.Description("Conversation to continue; omit to start a new one")),
		mcp.WithString("name", mcp.Description("User name to remember for this conversation")),
	), s.handleChat)

	s.mcp.AddTool(mcp.NewTool(ToolHistory,
		mcp.WithDescription("Return the most recent exchanges of a conversation, oldest first."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation id")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of exchanges (default 10, max 50)")),
	), s.handleHistory)

	s.mcp.AddTool(mcp.NewTool(ToolStats,
		mcp.WithDescription("Return aggregate session statistics."),
	), s.handleStats)

	return s
}

// Serve speaks MCP over in/out until ctx is cancelled or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	s.logger.Info("mcp server ready")
	err := stdio.Listen(ctx, in, out)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("mcpserver: %w", err)
	}
	return nil
}

func (s *Server) handleChat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	reply, err := s.replier.Reply(ctx, responder.Request{
		SessionID: req.GetString("session_id", ""),
		Message:   message,
		Name:      req.GetString("name", ""),
	})
	if err != nil {
		if errors.Is(err, responder.ErrEmptyMessage) || errors.Is(err, responder.ErrMessageTooLong) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		s.logger.Error("mcp chat failed", "error", err)
		return mcp.NewToolResultError("internal error"), nil
	}

	return jsonResult(reply)
}

func (s *Server) handleHistory(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", 10)
	if limit < 1 {
		return mcp.NewToolResultError("limit must be a positive integer"), nil
	}
	return jsonResult(s.sessions.History(id, min(limit, 50)))
}

func (s *Server) handleStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.sessions.Stats())
}

// jsonResult renders v as a single JSON text block.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcpserver: encoding result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
