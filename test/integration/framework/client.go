//go:build integration
// +build integration

// APIClient 基于 resty 封装的 HTTP 客户端，直接复用业务结构体
package framework

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/webforge/backend/internal/domain/workflow"
	"github.com/webforge/backend/internal/interfaces/http/handler"
)

// APIClient 测试用 HTTP 客户端
type APIClient struct {
	client  *resty.Client
	baseURL string
}

// NewAPIClient 创建测试用 HTTP 客户端
func NewAPIClient(baseURL string) *APIClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &APIClient{
		client:  client,
		baseURL: baseURL,
	}
}

// APIResponse 通用 API 响应（复用 response.Response 的 JSON 结构）
type APIResponse[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

// ErrorBody 错误响应（复用 response.ErrorResponse 的 JSON 结构）
type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// ChatResult 对话结果及 HTTP 状态
type ChatResult struct {
	Status int
	Result workflow.Result
	Error  ErrorBody
}

// HealthCheck 健康检查
func (c *APIClient) HealthCheck() error {
	var body map[string]string
	resp, err := c.client.R().SetResult(&body).Get("/health")
	if err != nil {
		return err
	}
	if resp.StatusCode() != 200 || body["service"] != "webforge" {
		return fmt.Errorf("health check failed: status %d", resp.StatusCode())
	}
	return nil
}

// Chat 发送一条消息
func (c *APIClient) Chat(sessionID, message string) (*ChatResult, error) {
	var out ChatResult
	resp, err := c.client.R().
		SetBody(handler.ChatRequest{Message: message, SessionID: sessionID}).
		SetResult(&out.Result).
		SetError(&out.Error).
		Post("/api/chat")
	if err != nil {
		return nil, err
	}
	out.Status = resp.StatusCode()
	return &out, nil
}

// Clear 清空会话
func (c *APIClient) Clear(sessionID string) (*handler.ClearResponse, error) {
	var out handler.ClearResponse
	resp, err := c.client.R().
		SetQueryParam("session_id", sessionID).
		SetResult(&out).
		Post("/api/clear")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("clear failed: status %d", resp.StatusCode())
	}
	return &out, nil
}

// History 获取会话历史
func (c *APIClient) History(sessionID string) (*APIResponse[handler.HistoryDTO], error) {
	var out APIResponse[handler.HistoryDTO]
	_, err := c.client.R().
		SetResult(&out).
		SetError(&out).
		Get("/api/sessions/" + sessionID + "/history")
	return &out, err
}

// Generated 读取生成文件，返回状态码和内容
func (c *APIClient) Generated(projectName, file string) (int, string, error) {
	resp, err := c.client.R().Get("/generated/" + projectName + "/" + file)
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode(), resp.String(), nil
}

// Download 下载项目 zip
func (c *APIClient) Download(projectName string) (int, []byte, error) {
	resp, err := c.client.R().Get("/api/download/" + projectName)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode(), resp.Body(), nil
}
