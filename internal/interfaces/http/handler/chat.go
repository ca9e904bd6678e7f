package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	appworkflow "github.com/webforge/backend/internal/application/workflow"
	"github.com/webforge/backend/internal/domain/workflow"
	"github.com/webforge/backend/internal/infrastructure/log"
	"github.com/webforge/backend/internal/interfaces/http/response"
)

// Conversation 对话工作流
type Conversation interface {
	ProcessMessage(ctx context.Context, message, sessionID string) (*workflow.Result, error)
	History(ctx context.Context, sessionID string) ([]workflow.Turn, error)
}

// SessionManager 会话管理
type SessionManager interface {
	Clear(ctx context.Context, sessionID string) error
	ProjectFiles(ctx context.Context, sessionID string) (*appworkflow.ProjectSnapshot, error)
}

// ChatHandler 对话处理器
type ChatHandler struct {
	conversation Conversation
	sessions     SessionManager
	logger       *slog.Logger
}

// NewChatHandler 创建对话处理器
func NewChatHandler(conversation Conversation, sessions SessionManager) *ChatHandler {
	return &ChatHandler{
		conversation: conversation,
		sessions:     sessions,
		logger:       log.NewModuleLogger("http", "chat"),
	}
}

// ChatRequest 对话请求
type ChatRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id"`
}

// ClearResponse 清空会话响应
type ClearResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HistoryDTO 会话历史
type HistoryDTO struct {
	SessionID string          `json:"session_id"`
	Turns     []workflow.Turn `json:"turns"`
}

func sessionOrDefault(id string) string {
	if id == "" {
		return workflow.DefaultSessionID
	}
	return id
}

// Chat 处理一条用户消息
// 成功时直接返回运行结果，前端按平铺字段读取
// @Summary 发送消息
// @Tags 对话
// @Accept json
// @Produce json
// @Param body body ChatRequest true "消息"
// @Success 200 {object} workflow.Result
// @Failure 400 {object} response.ErrorResponse
// @Failure 502 {object} response.ErrorResponse
// @Failure 503 {object} response.ErrorResponse
// @Failure 504 {object} response.ErrorResponse
// @Router /chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, codeInvalidRequest, "请求参数错误: "+err.Error())
		return
	}
	sessionID := sessionOrDefault(req.SessionID)
	ctx := log.WithSessionID(c.Request.Context(), sessionID)

	result, err := h.conversation.ProcessMessage(ctx, req.Message, sessionID)
	if err != nil {
		workflowError(c, log.FromContext(ctx, h.logger), err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Clear 重置会话
// @Summary 清空会话
// @Tags 对话
// @Produce json
// @Param session_id query string false "会话 ID" default(default)
// @Success 200 {object} ClearResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /clear [post]
func (h *ChatHandler) Clear(c *gin.Context) {
	sessionID := sessionOrDefault(c.Query("session_id"))
	ctx := log.WithSessionID(c.Request.Context(), sessionID)

	if err := h.sessions.Clear(ctx, sessionID); err != nil {
		workflowError(c, log.FromContext(ctx, h.logger), err)
		return
	}
	c.JSON(http.StatusOK, ClearResponse{
		Status:  "success",
		Message: fmt.Sprintf("Session '%s' cleared and reset.", sessionID),
	})
}

// History 获取会话对话记录
// @Summary 会话历史
// @Tags 对话
// @Produce json
// @Param session_id path string true "会话 ID"
// @Success 200 {object} response.Response{data=HistoryDTO}
// @Failure 500 {object} response.ErrorResponse
// @Router /sessions/{session_id}/history [get]
func (h *ChatHandler) History(c *gin.Context) {
	sessionID := sessionOrDefault(c.Param("session_id"))
	ctx := log.WithSessionID(c.Request.Context(), sessionID)

	turns, err := h.conversation.History(ctx, sessionID)
	if err != nil {
		workflowError(c, log.FromContext(ctx, h.logger), err)
		return
	}
	response.Success(c, HistoryDTO{SessionID: sessionID, Turns: turns})
}

// Project 获取会话当前项目的文件
// @Summary 当前项目
// @Tags 对话
// @Produce json
// @Param session_id path string true "会话 ID"
// @Success 200 {object} response.Response{data=appworkflow.ProjectSnapshot}
// @Failure 404 {object} response.ErrorResponse
// @Router /sessions/{session_id}/project [get]
func (h *ChatHandler) Project(c *gin.Context) {
	sessionID := sessionOrDefault(c.Param("session_id"))
	ctx := log.WithSessionID(c.Request.Context(), sessionID)

	snapshot, err := h.sessions.ProjectFiles(ctx, sessionID)
	if err != nil {
		workflowError(c, log.FromContext(ctx, h.logger), err)
		return
	}
	if snapshot == nil {
		response.Error(c, http.StatusNotFound, codeProjectNotFound, "会话尚未生成项目")
		return
	}
	response.Success(c, snapshot)
}
