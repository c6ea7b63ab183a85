package daemon

import (
	"github.com/google/wire"

	"github.com/zeusync/xsyncd/internal/core/effects"
	"github.com/zeusync/xsyncd/internal/core/observability/log"
	"github.com/zeusync/xsyncd/internal/core/settings"
)

// ProviderSet builds a Daemon from a Config.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	ProvideStore,
	ProvideDisplayOpener,
	ProvideSpawner,
	ProvideSessionEnv,
	New,
)

func ProvideLogger(cfg Config) *log.Logger {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = log.LevelInfo
	}
	return log.NewWithConfig(log.Config{Level: level, Encoding: cfg.Log.Encoding})
}

func ProvideStore(cfg Config) (*settings.Store, error) {
	return settings.Open(cfg.SettingsPath)
}

func ProvideDisplayOpener() DisplayOpener {
	return OpenX11
}

func ProvideSpawner(logger log.Log) effects.Spawner {
	return effects.NewExecSpawner(logger)
}

// ProvideSessionEnv connects to the session bus. Without one, exports are
// logged and dropped.
func ProvideSessionEnv(logger log.Log) effects.SessionEnv {
	env, err := effects.NewDBusSessionEnv()
	if err != nil {
		logger.Warn("Session bus unavailable, session environment will not be updated", log.Error(err))
		return nopSessionEnv{logger: logger}
	}
	return env
}

type nopSessionEnv struct {
	logger log.Log
}

func (n nopSessionEnv) Setenv(name, value string) error {
	n.logger.Debug("Dropping session variable", log.String("name", name), log.String("value", value))
	return nil
}
