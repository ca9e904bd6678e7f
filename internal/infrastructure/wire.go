package infrastructure

import (
	"github.com/google/wire"
	"github.com/webforge/backend/internal/infrastructure/config"
	"github.com/webforge/backend/internal/infrastructure/discovery"
	"github.com/webforge/backend/internal/infrastructure/embedding"
	"github.com/webforge/backend/internal/infrastructure/llm"
	"github.com/webforge/backend/internal/infrastructure/project"
	"github.com/webforge/backend/internal/infrastructure/storage"
	"github.com/webforge/backend/internal/infrastructure/vector"
	"github.com/webforge/backend/internal/infrastructure/watcher"
	"github.com/webforge/backend/internal/infrastructure/websocket"
)

// ProviderSet Infrastructure 层总 ProviderSet
var ProviderSet = wire.NewSet(
	config.ProviderSet,
	storage.ProviderSet,
	project.ProviderSet,
	llm.ProviderSet,
	embedding.ProviderSet,
	vector.ProviderSet,
	watcher.ProviderSet,
	websocket.ProviderSet,
	discovery.ProviderSet,
)
