package storage

import (
	"github.com/google/wire"
	"github.com/webforge/backend/internal/domain/workflow"
)

// ProviderSet Storage 基础设施层 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideCheckpointRepository, // 会话快照仓储，持有数据库连接
	wire.Bind(new(workflow.StateRepository), new(*CheckpointRepository)),
)
