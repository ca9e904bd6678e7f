package retrieval

import (
	"github.com/google/wire"
	"github.com/webforge/backend/internal/domain/workflow"
	"github.com/webforge/backend/internal/infrastructure/vector"
)

// ProviderSet 检索 ProviderSet
var ProviderSet = wire.NewSet(
	NewCodeIndex,
	wire.Bind(new(VectorCollection), new(*vector.CodeCollection)),
	wire.Bind(new(workflow.ContextRetriever), new(*CodeIndex)),
)
