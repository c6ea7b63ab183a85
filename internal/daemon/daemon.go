// Package daemon owns the settings daemon's collaborators and their
// lifecycle: it connects to the display, takes the XSETTINGS selections,
// wires the store, the bus and the dispatcher together and runs the event
// loop alongside the watchers.
package daemon

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/xsyncd/internal/core/dispatcher"
	"github.com/zeusync/xsyncd/internal/core/effects"
	"github.com/zeusync/xsyncd/internal/core/events"
	"github.com/zeusync/xsyncd/internal/core/events/bus"
	"github.com/zeusync/xsyncd/internal/core/fontwatch"
	"github.com/zeusync/xsyncd/internal/core/loop"
	"github.com/zeusync/xsyncd/internal/core/observability/log"
	"github.com/zeusync/xsyncd/internal/core/scale"
	"github.com/zeusync/xsyncd/internal/core/settings"
	"github.com/zeusync/xsyncd/internal/core/translation"
	"github.com/zeusync/xsyncd/internal/core/xresource"
	"github.com/zeusync/xsyncd/internal/core/xsettings"
)

const eventSource = "xsyncd"

// Daemon represents the settings daemon
type Daemon struct {
	config Config
	logger log.Log

	// Collaborators
	store      *settings.Store
	open       DisplayOpener
	spawner    effects.Spawner
	sessionEnv effects.SessionEnv

	// Built by Start
	display    Display
	loop       *loop.Loop
	bus        bus.EventBus
	managers   []*xsettings.Manager
	dispatcher *dispatcher.Dispatcher
	fonts      *fontwatch.Watcher
	storeSubs  []func()
	busSubs    []bus.Subscription
	observer   *busObserver

	// Daemon state
	running int32 // atomic bool
}

// New creates a daemon. Nothing touches the display before Start.
func New(
	config Config,
	store *settings.Store,
	open DisplayOpener,
	spawner effects.Spawner,
	sessionEnv effects.SessionEnv,
	logger log.Log,
) *Daemon {
	d := &Daemon{
		config:     config,
		logger:     logger.With(log.String("component", "daemon")),
		store:      store,
		open:       open,
		spawner:    spawner,
		sessionEnv: sessionEnv,
	}

	d.logger.Info("Daemon created",
		log.String("display", config.Display),
		log.String("settings_path", config.SettingsPath))

	return d
}

// Start connects to the display, takes every screen's XSETTINGS selection
// and pushes the initial state. Failures are returned as *InitError.
func (d *Daemon) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&d.running, 0, 1) {
		return ErrAlreadyRunning
	}
	if err := d.start(ctx); err != nil {
		d.teardown()
		atomic.StoreInt32(&d.running, 0)
		d.logger.Error("Failed to start daemon", log.Error(err))
		return err
	}
	d.logger.Info("Daemon started", log.Int("screens", len(d.managers)))
	return nil
}

func (d *Daemon) start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &InitError{Step: "start", Err: err}
	}

	display, err := d.open(d.config.Display, d.logger)
	if err != nil {
		return &InitError{Step: "open display", Err: err}
	}
	d.display = display

	d.managers = make([]*xsettings.Manager, 0, display.Screens())
	for n := 0; n < display.Screens(); n++ {
		m, err := xsettings.Start(display.Screen(n), d.logger)
		if err != nil {
			return &InitError{Step: "xsettings", Err: err}
		}
		d.managers = append(d.managers, m)
	}

	d.loop = loop.New(d.logger, d.config.QueueSize)
	d.bus = bus.New()
	d.observer = &busObserver{logger: d.logger}
	d.bus.AddObserver(d.observer)

	sinks := make([]dispatcher.ProtocolSink, len(d.managers))
	for i, m := range d.managers {
		sinks[i] = m
	}
	registry := translation.Default()
	d.dispatcher = dispatcher.New(
		registry,
		d.store,
		scale.NewResolver(d.store, display.Geometry(), d.logger),
		sinks,
		xresource.NewSink(display.Resources(), d.logger),
		effects.New(effects.Config{
			WindowManagerCommand: d.config.WindowManagerCommand,
			PanelCommand:         d.config.PanelCommand,
		}, d.spawner, d.sessionEnv, d.store, d.loop, d.logger),
		dispatcher.Options{FallbackIconTheme: d.config.FallbackIconTheme},
		d.logger,
	)

	d.busSubs, err = d.dispatcher.Subscribe(d.bus)
	if err != nil {
		return &InitError{Step: "subscribe", Err: err}
	}

	// Store notifications arrive on the loop: Watch posts reloads there and
	// the only writer, the icon toggle, runs there too.
	for _, schema := range watchedSchemas(registry) {
		d.storeSubs = append(d.storeSubs, d.store.Subscribe(schema, func(key string) {
			d.publish(events.ConfigChanged(eventSource, events.ConfigChange{Schema: schema, Key: key}))
		}))
	}

	d.fonts = fontwatch.New(d.config.FontDirs, d.config.FontDebounce, d.loop, func() {
		d.publish(events.FontcacheChanged(eventSource, time.Now()))
	}, d.logger)

	d.dispatcher.Bootstrap()
	return nil
}

// Run drives the event loop and the watchers until ctx is cancelled or one
// of them fails.
func (d *Daemon) Run(ctx context.Context) error {
	if atomic.LoadInt32(&d.running) == 0 {
		return ErrNotRunning
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return d.loop.Run(gctx)
	})
	g.Go(func() error {
		return d.store.Watch(gctx, func(fn func()) { d.loop.Post(fn) }, d.logger)
	})
	g.Go(func() error {
		return d.fonts.Run(gctx)
	})
	g.Go(func() error {
		return d.display.Pump(gctx, pumpSink{d})
	})

	d.logger.Info("Daemon running")
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

// Stop releases the selections and closes the display connection. It must
// be called after Run has returned.
func (d *Daemon) Stop() error {
	if !atomic.CompareAndSwapInt32(&d.running, 1, 0) {
		return ErrNotRunning
	}
	d.logger.Info("Stopping daemon")
	d.teardown()
	d.logger.Info("Daemon stopped")
	return nil
}

func (d *Daemon) teardown() {
	for _, unsubscribe := range d.storeSubs {
		unsubscribe()
	}
	d.storeSubs = nil

	for _, sub := range d.busSubs {
		_ = sub.Cancel()
	}
	d.busSubs = nil

	for _, m := range d.managers {
		if err := m.Stop(); err != nil && !errors.Is(err, xsettings.ErrNotRunning) {
			d.logger.Warn("Failed to release XSETTINGS selection", log.Int("screen", m.Screen()), log.Error(err))
		}
	}
	d.managers = nil

	if d.display != nil {
		d.display.Close()
		d.display = nil
	}
	if c, ok := d.sessionEnv.(io.Closer); ok {
		_ = c.Close()
	}
}

// publish must run on the loop. Handler failures are logged by the observer.
func (d *Daemon) publish(e bus.Event) {
	_ = d.bus.Publish(e)
}

func (d *Daemon) selectionCleared(window uint32) {
	for _, m := range d.managers {
		if m.Owns(window) {
			m.SelectionLost()
		}
	}
}

// watchedSchemas lists every schema the dispatcher reacts to, once each.
func watchedSchemas(registry *translation.Registry) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, schema := range append(dispatcher.ScaleSchemas(), registry.Schemas()...) {
		if _, ok := seen[schema]; ok {
			continue
		}
		seen[schema] = struct{}{}
		out = append(out, schema)
	}
	return out
}

// pumpSink moves display events from the pump goroutine onto the loop.
type pumpSink struct {
	d *Daemon
}

func (p pumpSink) GeometryChanged() {
	p.d.loop.Post(func() {
		p.d.publish(events.GeometryChanged(eventSource))
	})
}

func (p pumpSink) SelectionCleared(window uint32) {
	p.d.loop.Post(func() {
		p.d.selectionCleared(window)
	})
}

// busObserver logs failed deliveries.
type busObserver struct {
	logger log.Log
}

func (o *busObserver) OnPublish(eventType string, _ bus.Event) {
	o.logger.Debug("Event published", log.String("event", eventType))
}

func (o *busObserver) OnDelivered(eventType string, handlers int, err error, duration time.Duration) {
	if err != nil {
		o.logger.Warn("Event delivery failed",
			log.String("event", eventType),
			log.Int("handlers", handlers),
			log.Duration("duration", duration),
			log.Error(err))
	}
}
