package mcp

import (
	"github.com/google/wire"
	appworkflow "github.com/webforge/backend/internal/application/workflow"
)

// ProviderSet MCP ProviderSet
var ProviderSet = wire.NewSet(
	NewServer,
	wire.Bind(new(Conversation), new(*appworkflow.Engine)),
	wire.Bind(new(SessionManager), new(*appworkflow.SessionService)),
)
