//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/xsyncd/internal/daemon"
)

func InitializeDaemon(cfg daemon.Config) (*daemon.Daemon, error) {
	wire.Build(daemon.ProviderSet)
	return nil, nil
}
