//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/gamecore/internal/config"
	"github.com/zeusync/gamecore/internal/engine"
)

func InitializeEngine(cfg *config.Config) *engine.Engine {
	wire.Build(ProviderSet)
	return nil
}
