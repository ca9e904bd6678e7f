package mcp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	appworkflow "github.com/webforge/backend/internal/application/workflow"
	"github.com/webforge/backend/internal/domain/workflow"
	"github.com/webforge/backend/internal/infrastructure/log"
)

// Version 对外声明的服务版本
const Version = "0.1.0"

// Conversation 对话工作流
type Conversation interface {
	ProcessMessage(ctx context.Context, message, sessionID string) (*workflow.Result, error)
}

// SessionManager 会话管理
type SessionManager interface {
	Clear(ctx context.Context, sessionID string) error
	ProjectFiles(ctx context.Context, sessionID string) (*appworkflow.ProjectSnapshot, error)
}

// MCPServer MCP 服务器
type MCPServer struct {
	server       *mcp.Server
	handler      http.Handler
	conversation Conversation
	sessions     SessionManager
	logger       *slog.Logger
}

// NewServer 创建 MCP 服务器
func NewServer(conversation Conversation, sessions SessionManager) *MCPServer {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "webforge",
			Version: Version,
		},
		nil,
	)

	s := &MCPServer{
		server:       server,
		conversation: conversation,
		sessions:     sessions,
		logger:       log.NewModuleLogger("mcp", "server"),
	}

	mcp.AddTool(server, &mcp.Tool{
		Name: "generate_site",
		Description: `Create or edit a small static website (index.html, styles.css, app.js) from a natural language request.

The first message of a session creates a new project; later messages in the same session edit it.

Parameters:
- message (string, required): What to build or change
- session_id (string, optional): Conversation id, defaults to "default"

Returns: assistant reply, project name and project path.`,
	}, s.generateSiteTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "clear_session",
		Description: "Reset a session: delete its conversation state and generated project. Parameters: session_id (string, optional) - defaults to \"default\". Returns: status and message.",
	}, s.clearSessionTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_project_files",
		Description: "Read the current index.html, styles.css and app.js of a session's project. Parameters: session_id (string, optional) - defaults to \"default\". Returns: found flag, project name, path and file contents.",
	}, s.getProjectFilesTool)

	s.handler = mcp.NewSSEHandler(
		func(r *http.Request) *mcp.Server {
			return server
		},
		nil,
	)
	return s
}

// Server 底层 MCP 服务器
func (s *MCPServer) Server() *mcp.Server {
	return s.server
}

// GetHandler 获取 HTTP Handler（挂到 HTTP 服务器的 /mcp/sse）
func (s *MCPServer) GetHandler() http.Handler {
	return s.handler
}
