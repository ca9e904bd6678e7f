package handler

import (
	"github.com/google/wire"
	appworkflow "github.com/webforge/backend/internal/application/workflow"
	"github.com/webforge/backend/internal/infrastructure/project"
	"github.com/webforge/backend/internal/infrastructure/websocket"
)

// ProviderSet Handler ProviderSet
var ProviderSet = wire.NewSet(
	NewChatHandler,
	NewProjectHandler,
	NewStreamHandler,
	wire.Bind(new(Conversation), new(*appworkflow.Engine)),
	wire.Bind(new(SessionManager), new(*appworkflow.SessionService)),
	wire.Bind(new(ProjectFiles), new(*project.FSStore)),
	wire.Bind(new(SessionStream), new(*websocket.Hub)),
)
