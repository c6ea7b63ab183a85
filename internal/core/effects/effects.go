// Package effects runs the one-shot side effects of a window scale change:
// exporting the Qt scaling variables at session start, and restarting the
// processes that cannot pick up a new scale at runtime.
package effects

import (
	"strconv"
	"time"

	"github.com/zeusync/xsyncd/internal/core/loop"
	"github.com/zeusync/xsyncd/internal/core/observability/log"
	"github.com/zeusync/xsyncd/internal/core/settings"
)

const (
	EnvDisableAutoScale = "QT_AUTO_SCREEN_SCALE_FACTOR"
	EnvScaleFactor      = "QT_SCALE_FACTOR"

	DefaultIconsOffDelay = time.Second
	DefaultIconsOnDelay  = 2 * time.Second
)

// Spawner starts a helper process without waiting for it.
type Spawner interface {
	Spawn(argv []string) error
}

// SessionEnv exports a variable into the session manager's environment.
type SessionEnv interface {
	Setenv(name, value string) error
}

// Store is the part of the settings store the icon toggle needs.
type Store interface {
	settings.Reader
	settings.Writer
}

type Config struct {
	WindowManagerCommand []string
	PanelCommand         []string
	IconsOffDelay        time.Duration
	IconsOnDelay         time.Duration
}

type Effects struct {
	cfg       Config
	spawner   Spawner
	env       SessionEnv
	store     Store
	scheduler loop.Scheduler
	logger    log.Log
}

func New(cfg Config, spawner Spawner, env SessionEnv, store Store, scheduler loop.Scheduler, logger log.Log) *Effects {
	if cfg.IconsOffDelay <= 0 {
		cfg.IconsOffDelay = DefaultIconsOffDelay
	}
	if cfg.IconsOnDelay <= 0 {
		cfg.IconsOnDelay = DefaultIconsOnDelay
	}
	return &Effects{
		cfg:       cfg,
		spawner:   spawner,
		env:       env,
		store:     store,
		scheduler: scheduler,
		logger:    logger.With(log.String("component", "effects")),
	}
}

// OnResolved reacts to a resolved window scale. Nothing happens when the
// scale did not change. On the first resolution only the session
// environment is touched; later transitions restart the window manager and
// the panel and make the desktop relayout its icons.
func (e *Effects) OnResolved(oldScale, newScale int, first bool) {
	if oldScale == newScale {
		return
	}

	if first {
		e.setenv(EnvDisableAutoScale, "0")
		e.setenv(EnvScaleFactor, strconv.Itoa(newScale))
		return
	}

	e.logger.Info("Window scale changed, restarting session helpers",
		log.Int("old_scale", oldScale), log.Int("new_scale", newScale))

	e.spawn("window manager", e.cfg.WindowManagerCommand)
	e.spawn("panel", e.cfg.PanelCommand)
	e.toggleDesktopIcons()
}

func (e *Effects) setenv(name, value string) {
	if err := e.env.Setenv(name, value); err != nil {
		e.logger.Warn("Cannot export session variable",
			log.String("name", name), log.String("value", value), log.Error(err))
	}
}

func (e *Effects) spawn(what string, argv []string) {
	if len(argv) == 0 {
		return
	}
	if err := e.spawner.Spawn(argv); err != nil {
		e.logger.Warn("Cannot restart "+what, log.Strings("argv", argv), log.Error(err))
	}
}

func (e *Effects) toggleDesktopIcons() {
	show, ok := e.store.Bool(settings.SchemaDesktop, settings.KeyShowDesktopIcons)
	if !ok || !show {
		return
	}

	e.scheduler.AfterFunc(e.cfg.IconsOffDelay, func() {
		e.setIcons(false)
		e.scheduler.AfterFunc(e.cfg.IconsOnDelay, func() {
			e.setIcons(true)
		})
	})
}

func (e *Effects) setIcons(show bool) {
	if err := e.store.Set(settings.SchemaDesktop, settings.KeyShowDesktopIcons, show); err != nil {
		e.logger.Warn("Cannot toggle desktop icons", log.Bool("show", show), log.Error(err))
	}
}
