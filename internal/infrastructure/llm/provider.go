package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/webforge/backend/internal/domain/workflow"
	"github.com/webforge/backend/internal/infrastructure/config"
)

// NewGenerator 按配置选择生成客户端
func NewGenerator(cfg *config.GenerationConfig) (workflow.Generator, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		c, err := NewOllamaClient(cfg.BaseURL, cfg.Model, cfg.SystemInstruction)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		// 不可达时保持未就绪，生成请求会快速失败
		_ = c.Ping(ctx)
		return c, nil
	case config.ProviderOpenAI, "":
		return NewClient(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.SystemInstruction), nil
	default:
		return nil, fmt.Errorf("unknown generation provider: %q", cfg.Provider)
	}
}
