package project

import (
	"github.com/google/wire"
	"github.com/webforge/backend/internal/domain/workflow"
)

// ProviderSet 项目存储 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideFSStore,
	wire.Bind(new(workflow.ProjectStore), new(*FSStore)),
)
