// Package dispatcher drives the XSETTINGS managers and the resource database
// towards the state described by the settings store.
//
// Every method must be called from the event loop.
package dispatcher

import (
	"errors"
	"fmt"
	"time"

	"github.com/zeusync/xsyncd/internal/core/events"
	"github.com/zeusync/xsyncd/internal/core/events/bus"
	"github.com/zeusync/xsyncd/internal/core/observability/log"
	"github.com/zeusync/xsyncd/internal/core/scale"
	"github.com/zeusync/xsyncd/internal/core/settings"
	"github.com/zeusync/xsyncd/internal/core/translation"
	"github.com/zeusync/xsyncd/internal/core/xresource"
	"github.com/zeusync/xsyncd/internal/core/xsettings"
)

const (
	PropFallbackIconTheme = "Net/FallbackIconTheme"
	PropFontconfigStamp   = "Fontconfig/Timestamp"

	DefaultFallbackIconTheme = "hicolor"
)

// ProtocolSink is one XSETTINGS endpoint. *xsettings.Manager implements it.
type ProtocolSink interface {
	SetInt(name string, value int32)
	SetString(name string, value string)
	Commit() error
}

type ResourceSink interface {
	Apply(entries []xresource.Entry) error
}

type Resolver interface {
	Resolve() scale.Settings
}

type Effects interface {
	OnResolved(oldScale, newScale int, first bool)
}

type Options struct {
	FallbackIconTheme string
	Now               func() time.Time
}

type Dispatcher struct {
	registry  *translation.Registry
	store     settings.Reader
	resolver  Resolver
	sinks     []ProtocolSink
	resources ResourceSink
	effects   Effects
	opts      Options
	logger    log.Log

	// windowScale is the last resolved scale, 0 before the first resolution.
	windowScale int
	fontStamp   int32
}

func New(
	registry *translation.Registry,
	store settings.Reader,
	resolver Resolver,
	sinks []ProtocolSink,
	resources ResourceSink,
	effects Effects,
	opts Options,
	logger log.Log,
) *Dispatcher {
	if opts.FallbackIconTheme == "" {
		opts.FallbackIconTheme = DefaultFallbackIconTheme
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Dispatcher{
		registry:  registry,
		store:     store,
		resolver:  resolver,
		sinks:     sinks,
		resources: resources,
		effects:   effects,
		opts:      opts,
		logger:    logger.With(log.String("component", "dispatcher")),
	}
}

// IsScaleKey reports whether (schema, key) feeds the scale resolver.
func IsScaleKey(schema, key string) bool {
	switch schema {
	case settings.SchemaXSettings:
		return key == settings.KeyScalingFactor || key == settings.KeyDPI
	case settings.SchemaFontRendering:
		return key == settings.KeyAntialiasing || key == settings.KeyHinting || key == settings.KeyRGBAOrder
	case settings.SchemaMouse:
		return key == settings.KeyCursorTheme || key == settings.KeyCursorSize
	}
	return false
}

// ScaleSchemas lists the schemas holding scale keys.
func ScaleSchemas() []string {
	return []string{settings.SchemaXSettings, settings.SchemaFontRendering, settings.SchemaMouse}
}

// WindowScale returns the last resolved window scale, 0 if none yet.
func (d *Dispatcher) WindowScale() int {
	return d.windowScale
}

// Bootstrap pushes every translated key and a first scale resolution, then
// commits once.
func (d *Dispatcher) Bootstrap() {
	for _, e := range d.registry.Entries() {
		d.pushTranslation(e)
	}
	d.setAllString(PropFallbackIconTheme, d.opts.FallbackIconTheme)
	d.applyScale()
	d.commitAll()
}

// OnConfigChanged handles one changed key of the settings store.
func (d *Dispatcher) OnConfigChanged(schema, key string) {
	if IsScaleKey(schema, key) {
		d.logger.Debug("Scale key changed", log.String("schema", schema), log.String("key", key))
		d.applyScale()
		d.commitAll()
		return
	}

	entry, ok := d.registry.Find(schema, key)
	if !ok {
		return
	}
	d.pushTranslation(entry)
	d.setAllString(PropFallbackIconTheme, d.opts.FallbackIconTheme)
	d.commitAll()
}

// OnGeometryChanged re-resolves after outputs were added, removed or resized.
func (d *Dispatcher) OnGeometryChanged() {
	d.logger.Debug("Output geometry changed")
	d.applyScale()
	d.commitAll()
}

// OnFontcacheChanged bumps the fontconfig timestamp so clients reload fonts.
func (d *Dispatcher) OnFontcacheChanged() {
	stamp := int32(d.opts.Now().Unix())
	if stamp <= d.fontStamp {
		stamp = d.fontStamp + 1
	}
	d.fontStamp = stamp
	d.setAllInt(PropFontconfigStamp, stamp)
	d.commitAll()
	d.logger.Info("Font cache changed", log.Int64("timestamp", int64(stamp)))
}

// Subscribe routes the bus events onto the dispatcher.
func (d *Dispatcher) Subscribe(b bus.EventBus) ([]bus.Subscription, error) {
	handlers := map[string]bus.EventHandler{
		events.TypeConfigChanged: func(e bus.Event) error {
			change, ok := e.Data().(events.ConfigChange)
			if !ok {
				return fmt.Errorf("%s: unexpected payload %T", e.Type(), e.Data())
			}
			d.OnConfigChanged(change.Schema, change.Key)
			return nil
		},
		events.TypeGeometryChanged: func(bus.Event) error {
			d.OnGeometryChanged()
			return nil
		},
		events.TypeFontcacheChanged: func(bus.Event) error {
			d.OnFontcacheChanged()
			return nil
		},
	}

	subs := make([]bus.Subscription, 0, len(handlers))
	for _, typ := range []string{events.TypeConfigChanged, events.TypeGeometryChanged, events.TypeFontcacheChanged} {
		sub, err := b.Subscribe(typ, handlers[typ])
		if err != nil {
			for _, s := range subs {
				_ = s.Cancel()
			}
			return nil, fmt.Errorf("subscribe %s: %w", typ, err)
		}
		d.logger.Debug("Subscribed to events", log.String("event", typ), log.String("subscription", sub.ID()))
		subs = append(subs, sub)
	}
	return subs, nil
}

// pushTranslation publishes the stored value, or the entry's default when the
// key is missing or unusable, so removed keys converge too.
func (d *Dispatcher) pushTranslation(e translation.Entry) {
	v, fromStore := e.Resolve(d.store)
	if !fromStore {
		d.logger.Debug("No usable value for translated key, publishing default",
			log.String("schema", e.Schema), log.String("key", e.Key))
	}
	switch v.Kind {
	case translation.KindInt:
		d.setAllInt(e.Property, v.Int)
	case translation.KindString:
		d.setAllString(e.Property, v.Str)
	}
}

func (d *Dispatcher) applyScale() {
	s := d.resolver.Resolve()

	for _, sink := range d.sinks {
		sink.SetInt("Xft/Antialias", boolInt(s.Antialias))
		sink.SetInt("Xft/Hinting", boolInt(s.Hinting))
		sink.SetString("Xft/HintStyle", s.HintStyle.String())
		sink.SetString("Xft/RGBA", s.SubpixelOrder.String())
		sink.SetInt("Xft/DPI", int32(s.DPIScaled))
		sink.SetInt("Gdk/WindowScalingFactor", int32(s.WindowScale))
		sink.SetInt("Gdk/UnscaledDPI", int32(s.DPIUnscaled))
		sink.SetString("Gtk/CursorThemeName", s.CursorTheme)
		sink.SetInt("Gtk/CursorThemeSize", int32(s.CursorSize))
	}

	if err := d.resources.Apply(xresource.EntriesFor(s)); err != nil {
		d.logger.Warn("Resource database not updated", log.Error(err))
	}

	previous := d.windowScale
	d.windowScale = s.WindowScale
	d.effects.OnResolved(previous, s.WindowScale, previous == 0)
}

func (d *Dispatcher) setAllInt(name string, v int32) {
	for _, sink := range d.sinks {
		sink.SetInt(name, v)
	}
}

func (d *Dispatcher) setAllString(name, v string) {
	for _, sink := range d.sinks {
		sink.SetString(name, v)
	}
}

func (d *Dispatcher) commitAll() {
	for i, sink := range d.sinks {
		err := sink.Commit()
		switch {
		case err == nil:
		case errors.Is(err, xsettings.ErrSelectionLost):
			d.logger.Debug("Skipping commit for replaced manager", log.Int("sink", i))
		default:
			d.logger.Warn("XSETTINGS commit failed", log.Int("sink", i), log.Error(err))
		}
	}
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
