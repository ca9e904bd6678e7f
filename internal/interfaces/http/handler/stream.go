package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SessionStream 会话进度推送
type SessionStream interface {
	ServeWS(w http.ResponseWriter, r *http.Request, sessionID string)
}

// StreamHandler 进度推送处理器
type StreamHandler struct {
	stream SessionStream
}

// NewStreamHandler 创建进度推送处理器
func NewStreamHandler(stream SessionStream) *StreamHandler {
	return &StreamHandler{stream: stream}
}

// Connect 升级为 WebSocket 并订阅会话的阶段事件
// @Summary 订阅阶段进度
// @Tags 对话
// @Param session_id query string false "会话 ID" default(default)
// @Success 101
// @Router /ws [get]
func (h *StreamHandler) Connect(c *gin.Context) {
	h.stream.ServeWS(c.Writer, c.Request, sessionOrDefault(c.Query("session_id")))
}
