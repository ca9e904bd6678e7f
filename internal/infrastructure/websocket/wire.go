package websocket

import (
	"github.com/google/wire"
	"github.com/webforge/backend/internal/domain/workflow"
)

// ProviderSet WebSocket ProviderSet
var ProviderSet = wire.NewSet(
	NewHub,
	wire.Bind(new(workflow.ProgressNotifier), new(*Hub)),
)
