package workflow

import (
	"github.com/google/wire"
	"github.com/webforge/backend/internal/application/retrieval"
	"github.com/webforge/backend/internal/infrastructure/project"
)

// ProviderSet 工作流 ProviderSet
var ProviderSet = wire.NewSet(
	NewEngine,
	NewSessionService,
	wire.Bind(new(ProjectRemover), new(*project.FSStore)),
	wire.Bind(new(CodeIndexer), new(*retrieval.CodeIndex)),
)
