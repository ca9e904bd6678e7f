package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	ollama "github.com/ollama/ollama/api"
	"github.com/webforge/backend/internal/infrastructure/log"
)

// OllamaEmbedder 使用本地 Ollama 向量化
type OllamaEmbedder struct {
	client *ollama.Client
	model  string
	logger *slog.Logger
}

// NewOllamaEmbedder 创建 Ollama 向量化客户端
func NewOllamaEmbedder(baseURL, model string) (*OllamaEmbedder, error) {
	if baseURL == "" {
		client, err := ollama.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("could not create ollama client: %w", err)
		}
		return &OllamaEmbedder{client: client, model: model, logger: log.NewModuleLogger("embedding", "ollama")}, nil
	}
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", baseURL, err)
	}
	return &OllamaEmbedder{
		client: ollama.NewClient(u, http.DefaultClient),
		model:  model,
		logger: log.NewModuleLogger("embedding", "ollama"),
	}, nil
}

// EmbedTexts 批量向量化文本
func (e *OllamaEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts cannot be empty")
	}
	resp, err := e.client.Embed(ctx, &ollama.EmbedRequest{
		Model: e.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed failed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}
	e.logger.Debug("Embedded texts", "count", len(texts), "model", e.model)
	return resp.Embeddings, nil
}
