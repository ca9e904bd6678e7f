package llm

import "github.com/google/wire"

// ProviderSet 生成客户端 ProviderSet
var ProviderSet = wire.NewSet(
	NewGenerator,
)
