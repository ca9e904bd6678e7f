package vector

import (
	"github.com/google/wire"
	"github.com/webforge/backend/internal/infrastructure/config"
)

// ProvideCodeCollection 按配置创建代码片段集合
func ProvideCodeCollection(manager *QdrantManager, cfg *config.VectorConfig) *CodeCollection {
	return NewCodeCollection(manager, cfg.Collection)
}

// ProviderSet 向量存储 ProviderSet
var ProviderSet = wire.NewSet(
	NewQdrantManager,
	ProvideCodeCollection,
)
