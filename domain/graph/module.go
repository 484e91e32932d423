package graph

import (
	"go.uber.org/fx"
)

// Module provides graph dependencies
var Module = fx.Module("graph",
	fx.Provide(NewRepository),
)
