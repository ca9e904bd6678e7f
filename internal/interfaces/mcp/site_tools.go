package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/webforge/backend/internal/domain/workflow"
	"github.com/webforge/backend/internal/infrastructure/log"
)

// GenerateSiteInput 生成站点工具输入
type GenerateSiteInput struct {
	Message   string `json:"message" jsonschema:"What to build or change"`
	SessionID string `json:"session_id,omitempty" jsonschema:"Conversation id, defaults to default"`
}

// GenerateSiteOutput 生成站点工具输出
type GenerateSiteOutput struct {
	Response    string                    `json:"response" jsonschema:"Assistant reply"`
	ProjectName string                    `json:"project_name,omitempty" jsonschema:"Generated project name"`
	ProjectPath string                    `json:"project_path,omitempty" jsonschema:"Generated project directory"`
	Mode        string                    `json:"mode" jsonschema:"create or edit"`
	Changes     []workflow.ArtifactChange `json:"changes,omitempty" jsonschema:"Per-file line changes on edit runs"`
}

// SessionInput 只带会话 ID 的输入
type SessionInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"Conversation id, defaults to default"`
}

// ClearSessionOutput 清空会话输出
type ClearSessionOutput struct {
	Status  string `json:"status" jsonschema:"success"`
	Message string `json:"message" jsonschema:"Result message"`
}

// ProjectFilesOutput 项目文件输出
type ProjectFilesOutput struct {
	Found       bool              `json:"found" jsonschema:"Whether the session has a project"`
	ProjectName string            `json:"project_name,omitempty" jsonschema:"Project name"`
	ProjectPath string            `json:"project_path,omitempty" jsonschema:"Project directory"`
	Files       map[string]string `json:"files,omitempty" jsonschema:"File name to content"`
}

func sessionOrDefault(id string) string {
	if id == "" {
		return workflow.DefaultSessionID
	}
	return id
}

// toolError 只暴露错误类别，完整原因写日志
func (s *MCPServer) toolError(ctx context.Context, tool string, err error) error {
	class := workflow.Classify(err)
	log.FromContext(ctx, s.logger).Error("MCP tool failed",
		"tool", tool,
		"class", class,
		"error", err,
	)
	return fmt.Errorf("%s failed: %s", tool, class)
}

// generateSiteTool 创建或修改站点
func (s *MCPServer) generateSiteTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GenerateSiteInput,
) (*mcp.CallToolResult, GenerateSiteOutput, error) {
	if input.Message == "" {
		return nil, GenerateSiteOutput{}, fmt.Errorf("message is required")
	}
	sessionID := sessionOrDefault(input.SessionID)
	ctx = log.WithSessionID(ctx, sessionID)

	result, err := s.conversation.ProcessMessage(ctx, input.Message, sessionID)
	if err != nil {
		return nil, GenerateSiteOutput{}, s.toolError(ctx, "generate_site", err)
	}
	return nil, GenerateSiteOutput{
		Response:    result.Response,
		ProjectName: result.ProjectName,
		ProjectPath: result.ProjectPath,
		Mode:        string(result.Mode),
		Changes:     result.Changes,
	}, nil
}

// clearSessionTool 重置会话
func (s *MCPServer) clearSessionTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, ClearSessionOutput, error) {
	sessionID := sessionOrDefault(input.SessionID)
	ctx = log.WithSessionID(ctx, sessionID)

	if err := s.sessions.Clear(ctx, sessionID); err != nil {
		return nil, ClearSessionOutput{}, s.toolError(ctx, "clear_session", err)
	}
	return nil, ClearSessionOutput{
		Status:  "success",
		Message: fmt.Sprintf("Session '%s' cleared and reset.", sessionID),
	}, nil
}

// getProjectFilesTool 读取会话当前项目
func (s *MCPServer) getProjectFilesTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, ProjectFilesOutput, error) {
	sessionID := sessionOrDefault(input.SessionID)
	ctx = log.WithSessionID(ctx, sessionID)

	snapshot, err := s.sessions.ProjectFiles(ctx, sessionID)
	if err != nil {
		return nil, ProjectFilesOutput{}, s.toolError(ctx, "get_project_files", err)
	}
	if snapshot == nil {
		return nil, ProjectFilesOutput{Found: false}, nil
	}
	return nil, ProjectFilesOutput{
		Found:       true,
		ProjectName: snapshot.ProjectName,
		ProjectPath: snapshot.ProjectPath,
		Files:       snapshot.Files,
	}, nil
}
