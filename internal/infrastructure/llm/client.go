// Package llm 提供代码生成使用的文本生成客户端
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/webforge/backend/internal/domain/workflow"
	"github.com/webforge/backend/internal/infrastructure/log"
)

// Client OpenAI 兼容的 chat/completions 客户端
// 未配置 API Key 时处于未就绪状态，所有调用立即返回 ErrModelNotReady
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	system     string
	httpClient *http.Client
	logger     *slog.Logger
}

// ChatRequest Chat API 请求
type ChatRequest struct {
	Model     string    `json:"model,omitempty"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

// Message Chat 消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse Chat API 响应
type ChatResponse struct {
	ID      string `json:"id,omitempty"`
	Model   string `json:"model,omitempty"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewClient 创建客户端
// 超时由调用方通过 context 控制
func NewClient(baseURL, apiKey, model, systemInstruction string) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		system:     systemInstruction,
		httpClient: &http.Client{},
		logger:     log.NewModuleLogger("llm", "openai"),
	}
	if apiKey == "" {
		c.logger.Warn("Generation API key is not configured, every generation request will fail",
			"base_url", c.baseURL,
			"model", model,
		)
	} else {
		c.logger.Info("Generation client initialized",
			"base_url", c.baseURL,
			"model", model,
		)
	}
	return c
}

// Ready 是否已配置凭证
func (c *Client) Ready() bool {
	return c.apiKey != ""
}

// Generate 生成文本并去掉首尾空白
func (c *Client) Generate(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	if !c.Ready() {
		return "", workflow.ErrModelNotReady
	}

	messages := make([]Message, 0, 2)
	if c.system != "" {
		messages = append(messages, Message{Role: "system", Content: c.system})
	}
	messages = append(messages, Message{Role: "user", Content: prompt})

	jsonData, err := json.Marshal(ChatRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: maxOutputTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to marshal request: %v", workflow.ErrGenerationFailed, err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", workflow.ErrGenerationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug("Sending generation request",
		"url", url,
		"model", c.model,
		"prompt_tokens_estimate", countTokens(prompt),
		"max_output_tokens", maxOutputTokens,
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%w: %w", workflow.ErrGenerationFailed, ctxErr)
		}
		return "", fmt.Errorf("%w: request failed: %v", workflow.ErrGenerationFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: API returned status %d: %s",
			workflow.ErrGenerationFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", workflow.ErrGenerationFailed, err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("%w: %s", workflow.ErrGenerationFailed, chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: API returned no choices", workflow.ErrGenerationFailed)
	}

	choice := chatResp.Choices[0]
	text := strings.TrimSpace(choice.Message.Content)
	completionTokens := chatResp.Usage.CompletionTokens
	if completionTokens == 0 {
		completionTokens = countTokens(text)
	}
	c.logger.Info("Generation completed",
		"model", c.model,
		"finish_reason", choice.FinishReason,
		"completion_tokens", completionTokens,
	)
	if choice.FinishReason == "length" {
		c.logger.Warn("Generation hit the output token limit, result may be truncated",
			"max_output_tokens", maxOutputTokens,
		)
	}
	return text, nil
}

// IsTimeout 判断错误是否由 context 超时造成
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
