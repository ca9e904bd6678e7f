package embedding

import (
	"fmt"

	"github.com/google/wire"
	"github.com/webforge/backend/internal/infrastructure/config"
)

// NewEmbedder 按配置选择向量化客户端
func NewEmbedder(cfg *config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		return NewOllamaEmbedder(cfg.URL, cfg.Model)
	case config.ProviderOpenAI:
		return NewClient(cfg.URL, cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
}

// ProviderSet 向量化 ProviderSet
var ProviderSet = wire.NewSet(NewEmbedder)
