package config

import "github.com/google/wire"

// ProviderSet 配置 ProviderSet
// *Config 由调用方注入（命令行已完成加载和覆盖）
var ProviderSet = wire.NewSet(
	NewDatabaseConfig,
	NewServerConfig,
	NewWorkspaceConfig,
	NewGenerationConfig,
	NewEmbeddingConfig,
	NewVectorConfig,
	NewWatcherConfig,
	NewWebSocketConfig,
)
