package application

import (
	"github.com/google/wire"
	"github.com/webforge/backend/internal/application/retrieval"
	"github.com/webforge/backend/internal/application/workflow"
)

// ProviderSet Application 层总 ProviderSet
var ProviderSet = wire.NewSet(
	retrieval.ProviderSet,
	workflow.ProviderSet,
)
