package dispatcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zeusync/xsyncd/internal/core/events"
	"github.com/zeusync/xsyncd/internal/core/events/bus"
	"github.com/zeusync/xsyncd/internal/core/observability/log"
	"github.com/zeusync/xsyncd/internal/core/scale"
	"github.com/zeusync/xsyncd/internal/core/settings"
	"github.com/zeusync/xsyncd/internal/core/translation"
	"github.com/zeusync/xsyncd/internal/core/xresource"
	"github.com/zeusync/xsyncd/internal/core/xsettings"
)

// journal records calls across all fakes so ordering can be asserted.
type journal struct {
	entries []string
}

func (j *journal) add(format string, args ...any) {
	j.entries = append(j.entries, fmt.Sprintf(format, args...))
}

type fakeSink struct {
	name      string
	j         *journal
	ints      map[string]int32
	strings   map[string]string
	commits   int
	commitErr error
}

func newFakeSink(name string, j *journal) *fakeSink {
	return &fakeSink{name: name, j: j, ints: map[string]int32{}, strings: map[string]string{}}
}

func (f *fakeSink) SetInt(name string, v int32) {
	f.ints[name] = v
	f.j.add("%s set %s", f.name, name)
}

func (f *fakeSink) SetString(name, v string) {
	f.strings[name] = v
	f.j.add("%s set %s", f.name, name)
}

func (f *fakeSink) Commit() error {
	f.commits++
	f.j.add("%s commit", f.name)
	return f.commitErr
}

type fakeResources struct {
	j       *journal
	applied [][]xresource.Entry
	err     error
}

func (f *fakeResources) Apply(entries []xresource.Entry) error {
	f.applied = append(f.applied, entries)
	f.j.add("resources apply")
	return f.err
}

type fakeResolver struct {
	settings scale.Settings
	calls    int
}

func (f *fakeResolver) Resolve() scale.Settings {
	f.calls++
	return f.settings
}

type transition struct {
	old, new int
	first    bool
}

type fakeEffects struct {
	j     *journal
	calls []transition
}

func (f *fakeEffects) OnResolved(oldScale, newScale int, first bool) {
	f.calls = append(f.calls, transition{oldScale, newScale, first})
	f.j.add("effects %d->%d", oldScale, newScale)
}

type fixture struct {
	d         *Dispatcher
	j         *journal
	sinks     []*fakeSink
	resources *fakeResources
	resolver  *fakeResolver
	effects   *fakeEffects
	store     *settings.Store
	now       time.Time
}

func snapshot(windowScale int) scale.Settings {
	return scale.Settings{
		Antialias:     true,
		Hinting:       true,
		HintStyle:     scale.HintSlight,
		SubpixelOrder: scale.SubpixelRGB,
		LCDFilter:     scale.LCDFilterDefault,
		WindowScale:   windowScale,
		DPIScaled:     96 * 1024 * windowScale,
		DPIUnscaled:   96 * 1024,
		CursorTheme:   "default",
		CursorSize:    24,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	j := &journal{}
	f := &fixture{
		j:         j,
		sinks:     []*fakeSink{newFakeSink("s0", j), newFakeSink("s1", j)},
		resources: &fakeResources{j: j},
		resolver:  &fakeResolver{settings: snapshot(1)},
		effects:   &fakeEffects{j: j},
		now:       time.Unix(1_800_000_000, 0),
		store: settings.NewMemory(map[string]map[string]any{
			settings.SchemaInterface: {
				"gtk-theme":     "Adwaita",
				"cursor-blink":  true,
				"toolbar-style": "both_horiz",
			},
			settings.SchemaSound: {"theme-name": "freedesktop"},
		}),
	}
	sinks := []ProtocolSink{f.sinks[0], f.sinks[1]}
	f.d = New(translation.Default(), f.store, f.resolver, sinks, f.resources, f.effects,
		Options{Now: func() time.Time { return f.now }}, log.Nop())
	return f
}

func (f *fixture) reset() {
	f.j.entries = nil
	for _, s := range f.sinks {
		s.ints = map[string]int32{}
		s.strings = map[string]string{}
		s.commits = 0
	}
	f.resources.applied = nil
}

func TestUnregisteredKeyIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.d.OnConfigChanged("org.x.sound", "unregistered-key")
	f.d.OnConfigChanged(settings.SchemaSound, "unregistered-key")

	require.Empty(t, f.j.entries, "no sink or resource mutation")
	require.Zero(t, f.resolver.calls)
}

func TestTranslatedKeyReachesEverySink(t *testing.T) {
	f := newFixture(t)
	f.d.OnConfigChanged(settings.SchemaInterface, "toolbar-style")

	for _, s := range f.sinks {
		require.Equal(t, "both-horiz", s.strings["Gtk/ToolbarStyle"])
		require.Equal(t, DefaultFallbackIconTheme, s.strings[PropFallbackIconTheme])
		require.Equal(t, 1, s.commits)
	}
	require.Empty(t, f.resources.applied)
	require.Zero(t, f.resolver.calls)

	f.reset()
	f.d.OnConfigChanged(settings.SchemaInterface, "cursor-blink")
	require.Equal(t, int32(1), f.sinks[0].ints["Net/CursorBlink"])
}

func TestTranslatedKeyWithoutValuePublishesDefault(t *testing.T) {
	f := newFixture(t)
	f.d.OnConfigChanged(settings.SchemaInterface, "icon-theme")

	entry, ok := translation.Default().Find(settings.SchemaInterface, "icon-theme")
	require.True(t, ok)
	for _, s := range f.sinks {
		require.Equal(t, entry.Default.Str, s.strings["Net/IconThemeName"])
		require.Equal(t, 1, s.commits)
	}
}

func TestRemovedKeyConvergesToDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("org.zeusync.interface:\n  gtk-theme: Foo\n  font-name: Cantarell 11\n"), 0o600))
	store, err := settings.Open(path)
	require.NoError(t, err)

	j := &journal{}
	sink := newFakeSink("s0", j)
	d := New(translation.Default(), store, &fakeResolver{settings: snapshot(1)}, []ProtocolSink{sink},
		&fakeResources{j: j}, &fakeEffects{j: j}, Options{}, log.Nop())
	store.Subscribe(settings.SchemaInterface, func(key string) {
		d.OnConfigChanged(settings.SchemaInterface, key)
	})

	d.Bootstrap()
	require.Equal(t, "Foo", sink.strings["Net/ThemeName"])

	require.NoError(t, os.WriteFile(path, []byte("org.zeusync.interface:\n  font-name: Cantarell 11\n"), 0o600))
	require.NoError(t, store.Reload())

	entry, _ := translation.Default().Find(settings.SchemaInterface, "gtk-theme")
	require.Equal(t, entry.Default.Str, sink.strings["Net/ThemeName"])
	require.Equal(t, 2, sink.commits)
}

func TestScaleKeyConvergesBothSinks(t *testing.T) {
	f := newFixture(t)
	f.resolver.settings = snapshot(2)
	f.d.OnConfigChanged(settings.SchemaXSettings, settings.KeyScalingFactor)

	require.Equal(t, 1, f.resolver.calls)
	for _, s := range f.sinks {
		require.Equal(t, int32(2), s.ints["Gdk/WindowScalingFactor"])
		require.Equal(t, int32(192*1024), s.ints["Xft/DPI"])
		require.Equal(t, int32(96*1024), s.ints["Gdk/UnscaledDPI"])
		require.Equal(t, "hintslight", s.strings["Xft/HintStyle"])
		require.Equal(t, "rgb", s.strings["Xft/RGBA"])
		require.Equal(t, "default", s.strings["Gtk/CursorThemeName"])
		require.Equal(t, int32(24), s.ints["Gtk/CursorThemeSize"])
		require.Equal(t, int32(1), s.ints["Xft/Antialias"])
	}
	require.Len(t, f.resources.applied, 1)
	require.Equal(t, []transition{{0, 2, true}}, f.effects.calls)
	require.Equal(t, 2, f.d.WindowScale())

	// Effects run after every set and before the commits.
	n := len(f.j.entries)
	require.Equal(t, "effects 0->2", f.j.entries[n-3])
	require.Equal(t, "s0 commit", f.j.entries[n-2])
	require.Equal(t, "s1 commit", f.j.entries[n-1])
	require.Equal(t, "resources apply", f.j.entries[n-4])
}

func TestGeometryChangeTracksPreviousScale(t *testing.T) {
	f := newFixture(t)
	f.d.OnGeometryChanged()
	f.resolver.settings = snapshot(2)
	f.d.OnGeometryChanged()
	f.d.OnGeometryChanged()

	require.Equal(t, []transition{
		{0, 1, true},
		{1, 2, false},
		{2, 2, false},
	}, f.effects.calls)
}

func TestResourceFailureDoesNotBlockProtocol(t *testing.T) {
	f := newFixture(t)
	f.resources.err = xresource.ErrResourceWrite
	f.d.OnConfigChanged(settings.SchemaMouse, settings.KeyCursorSize)

	for _, s := range f.sinks {
		require.Equal(t, 1, s.commits)
		require.Contains(t, s.ints, "Gdk/WindowScalingFactor")
	}
}

func TestCommitFailureOnOneSinkStillCommitsOthers(t *testing.T) {
	f := newFixture(t)
	f.sinks[0].commitErr = xsettings.ErrSelectionLost
	f.d.OnConfigChanged(settings.SchemaInterface, "gtk-theme")
	require.Equal(t, 1, f.sinks[1].commits)

	f.sinks[0].commitErr = errors.New("BadWindow")
	f.d.OnConfigChanged(settings.SchemaSound, "theme-name")
	require.Equal(t, 2, f.sinks[1].commits)
}

func TestFontcacheTimestampIsMonotonic(t *testing.T) {
	f := newFixture(t)
	f.d.OnFontcacheChanged()
	first := f.sinks[0].ints[PropFontconfigStamp]
	require.Equal(t, int32(1_800_000_000), first)

	f.d.OnFontcacheChanged()
	require.Equal(t, first+1, f.sinks[0].ints[PropFontconfigStamp])

	f.now = f.now.Add(-time.Hour)
	f.d.OnFontcacheChanged()
	require.Equal(t, first+2, f.sinks[1].ints[PropFontconfigStamp])
	require.Equal(t, 3, f.sinks[1].commits)
}

func TestBootstrapPushesEverything(t *testing.T) {
	f := newFixture(t)
	f.d.Bootstrap()

	s := f.sinks[0]
	require.Equal(t, "Adwaita", s.strings["Net/ThemeName"])
	require.Equal(t, "freedesktop", s.strings["Net/SoundThemeName"])
	require.Equal(t, "both-horiz", s.strings["Gtk/ToolbarStyle"])
	require.Equal(t, DefaultFallbackIconTheme, s.strings[PropFallbackIconTheme])
	require.Equal(t, int32(1), s.ints["Gdk/WindowScalingFactor"])
	require.Equal(t, 1, s.commits)
	require.Equal(t, []transition{{0, 1, true}}, f.effects.calls)
}

func TestSubscribeRoutesBusEvents(t *testing.T) {
	f := newFixture(t)
	b := bus.New()
	subs, err := f.d.Subscribe(b)
	require.NoError(t, err)
	require.Len(t, subs, 3)

	require.NoError(t, b.Publish(events.ConfigChanged("test", events.ConfigChange{
		Schema: settings.SchemaInterface, Key: "gtk-theme",
	})))
	require.Equal(t, "Adwaita", f.sinks[0].strings["Net/ThemeName"])

	require.NoError(t, b.Publish(events.GeometryChanged("test")))
	require.Equal(t, 1, f.resolver.calls)

	require.NoError(t, b.Publish(events.FontcacheChanged("test", f.now)))
	require.Contains(t, f.sinks[0].ints, PropFontconfigStamp)

	require.Error(t, b.Publish(bus.NewEvent(events.TypeConfigChanged, "test", "garbage")))

	for _, s := range subs {
		require.NoError(t, s.Cancel())
	}
	require.NoError(t, b.Publish(events.GeometryChanged("test")))
	require.Equal(t, 1, f.resolver.calls)
}

func TestSubscribeLogsSubscriptionIDs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	d := New(translation.Default(), settings.NewMemory(nil), &fakeResolver{}, nil,
		&fakeResources{j: &journal{}}, &fakeEffects{j: &journal{}}, Options{},
		log.FromZap(zap.New(core), log.LevelDebug))

	subs, err := d.Subscribe(bus.New())
	require.NoError(t, err)

	entries := logs.FilterMessage("Subscribed to events").All()
	require.Len(t, entries, len(subs))
	for i, e := range entries {
		require.Equal(t, subs[i].EventType(), e.ContextMap()["event"])
		require.Equal(t, subs[i].ID(), e.ContextMap()["subscription"])
		require.NotEmpty(t, subs[i].ID())
	}
}

func TestIsScaleKey(t *testing.T) {
	require.True(t, IsScaleKey(settings.SchemaXSettings, settings.KeyDPI))
	require.True(t, IsScaleKey(settings.SchemaMouse, settings.KeyCursorTheme))
	require.True(t, IsScaleKey(settings.SchemaFontRendering, settings.KeyHinting))
	require.False(t, IsScaleKey(settings.SchemaMouse, settings.KeyDoubleClick))
	require.False(t, IsScaleKey(settings.SchemaInterface, settings.KeyDPI))
}
