package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	ollama "github.com/ollama/ollama/api"
	"github.com/webforge/backend/internal/domain/workflow"
	"github.com/webforge/backend/internal/infrastructure/log"
)

// OllamaClient 本地 Ollama 生成客户端
type OllamaClient struct {
	client *ollama.Client
	model  string
	system string
	ready  atomic.Bool
	logger *slog.Logger
}

// NewOllamaClient 创建客户端
// baseURL 为空时读取 OLLAMA_HOST
func NewOllamaClient(baseURL, model, systemInstruction string) (*OllamaClient, error) {
	var (
		client *ollama.Client
		err    error
	)
	if baseURL == "" {
		client, err = ollama.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("could not create ollama client: %w", err)
		}
	} else {
		u, perr := url.Parse(strings.TrimSuffix(baseURL, "/"))
		if perr != nil {
			return nil, fmt.Errorf("invalid ollama url %q: %w", baseURL, perr)
		}
		client = ollama.NewClient(u, http.DefaultClient)
	}

	c := &OllamaClient{
		client: client,
		model:  model,
		system: systemInstruction,
		logger: log.NewModuleLogger("llm", "ollama"),
	}
	c.ready.Store(true)
	return c, nil
}

// Ping 检查 Ollama 服务，失败时标记为未就绪
func (c *OllamaClient) Ping(ctx context.Context) error {
	if err := c.client.Heartbeat(ctx); err != nil {
		c.ready.Store(false)
		c.logger.Warn("Ollama is not reachable, generation disabled",
			"model", c.model,
			"error", err,
		)
		return err
	}
	c.ready.Store(true)
	return nil
}

// Ready 是否可用
func (c *OllamaClient) Ready() bool {
	return c.ready.Load()
}

// Generate 生成文本
func (c *OllamaClient) Generate(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	if !c.Ready() {
		return "", workflow.ErrModelNotReady
	}

	stream := false
	req := &ollama.GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		System: c.system,
		Stream: &stream,
		Options: map[string]any{
			"num_predict": maxOutputTokens,
		},
	}

	var sb strings.Builder
	err := c.client.Generate(ctx, req, func(resp ollama.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%w: %w", workflow.ErrGenerationFailed, ctxErr)
		}
		return "", fmt.Errorf("%w: ollama generate failed: %v", workflow.ErrGenerationFailed, err)
	}

	text := strings.TrimSpace(sb.String())
	c.logger.Info("Generation completed",
		"model", c.model,
		"completion_tokens", countTokens(text),
	)
	return text, nil
}
