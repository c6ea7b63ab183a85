package translation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/xsyncd/internal/core/settings"
)

func TestFindIsExact(t *testing.T) {
	r := Default()

	e, ok := r.Find(settings.SchemaInterface, "gtk-theme")
	require.True(t, ok)
	require.Equal(t, "Net/ThemeName", e.Property)

	_, ok = r.Find(settings.SchemaInterface, "gtk-them")
	require.False(t, ok)
	_, ok = r.Find(settings.SchemaSound, "gtk-theme")
	require.False(t, ok, "key under the wrong schema must not match")
	_, ok = r.Find("org.x.sound", "unregistered-key")
	require.False(t, ok)
}

func TestDefaultTableHasUniqueProperties(t *testing.T) {
	seen := make(map[string]string)
	for _, e := range Default().Entries() {
		prev, dup := seen[e.Property]
		require.False(t, dup, "%s used by %s and %s", e.Property, prev, e.Key)
		seen[e.Property] = e.Key
	}
	require.ElementsMatch(t,
		[]string{settings.SchemaMouse, settings.SchemaInterface, settings.SchemaSound, settings.SchemaWM},
		Default().Schemas())
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry([]Entry{
		{"s", "k", "A/B", IntToInt, Int(0)},
		{"s", "k", "A/C", IntToInt, Int(0)},
	})
	require.Error(t, err)

	_, err = NewRegistry([]Entry{{"s", "k", "A/B", nil, Int(0)}})
	require.Error(t, err)
	_, err = NewRegistry([]Entry{{"s", "k", "", IntToInt, Int(0)}})
	require.Error(t, err)
}

func TestResolveFallsBackToDefault(t *testing.T) {
	store := settings.NewMemory(map[string]map[string]any{
		settings.SchemaInterface: {"gtk-theme": "Numix", "cursor-blink": "yes"},
	})
	r := Default()

	theme, _ := r.Find(settings.SchemaInterface, "gtk-theme")
	v, fromStore := theme.Resolve(store)
	require.True(t, fromStore)
	require.Equal(t, String("Numix"), v)

	icons, _ := r.Find(settings.SchemaInterface, "icon-theme")
	v, fromStore = icons.Resolve(store)
	require.False(t, fromStore, "missing key")
	require.Equal(t, icons.Default, v)

	blink, _ := r.Find(settings.SchemaInterface, "cursor-blink")
	v, fromStore = blink.Resolve(store)
	require.False(t, fromStore, "wrong type")
	require.Equal(t, Bool(true), v)
}

func TestDefaultTableDefaultsMatchConverterKind(t *testing.T) {
	full := settings.NewMemory(map[string]map[string]any{})
	for _, e := range Default().Entries() {
		// Seed a value of the right type so the converter's output kind is known.
		switch e.Default.Kind {
		case KindInt:
			_ = full.Set(e.Schema, e.Key, 1)
			if _, ok := e.Convert(full, e.Schema, e.Key); !ok {
				_ = full.Set(e.Schema, e.Key, true)
			}
		case KindString:
			_ = full.Set(e.Schema, e.Key, "x")
		}
		v, ok := e.Convert(full, e.Schema, e.Key)
		require.True(t, ok, e.Key)
		require.Equal(t, e.Default.Kind, v.Kind, e.Key)
	}
}

func TestConverters(t *testing.T) {
	store := settings.NewMemory(map[string]map[string]any{
		"s": {
			"flag":    true,
			"off":     false,
			"number":  250,
			"name":    "Adwaita",
			"toolbar": "both_horiz",
			"icons":   "icons",
		},
	})

	t.Run("bool to int", func(t *testing.T) {
		v, ok := BoolToInt(store, "s", "flag")
		require.True(t, ok)
		require.Equal(t, Value{Kind: KindInt, Int: 1}, v)
		v, ok = BoolToInt(store, "s", "off")
		require.True(t, ok)
		require.Equal(t, int32(0), v.Int)
		_, ok = BoolToInt(store, "s", "name")
		require.False(t, ok)
	})

	t.Run("int to int", func(t *testing.T) {
		v, ok := IntToInt(store, "s", "number")
		require.True(t, ok)
		require.Equal(t, int32(250), v.Int)
		_, ok = IntToInt(store, "s", "missing")
		require.False(t, ok)
	})

	t.Run("string to string", func(t *testing.T) {
		v, ok := StringToString(store, "s", "name")
		require.True(t, ok)
		require.Equal(t, Value{Kind: KindString, Str: "Adwaita"}, v)
	})

	t.Run("toolbar style rewrite", func(t *testing.T) {
		v, ok := ToolbarStyle(store, "s", "toolbar")
		require.True(t, ok)
		require.Equal(t, "both-horiz", v.Str)
		v, ok = ToolbarStyle(store, "s", "icons")
		require.True(t, ok)
		require.Equal(t, "icons", v.Str)
	})
}
