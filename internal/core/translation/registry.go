// Package translation maps configuration keys onto XSETTINGS property names.
//
// The table is static process-wide data. Keys that have no protocol
// counterpart are simply absent; callers ignore lookups that miss.
package translation

import (
	"fmt"

	"github.com/zeusync/xsyncd/internal/core/settings"
)

// Kind is the XSETTINGS value type a converter produces.
type Kind uint8

const (
	KindInt Kind = iota
	KindString
)

// Value is the converted, typed value ready for a protocol sink.
type Value struct {
	Kind Kind
	Int  int32
	Str  string
}

// Converter reads a key from the store and turns it into a protocol value.
// ok is false when the key is missing or has the wrong type.
type Converter func(r settings.Reader, schema, key string) (v Value, ok bool)

// Entry binds one configuration key to a property. Default is published
// whenever the store has no usable value for the key.
type Entry struct {
	Schema   string
	Key      string
	Property string
	Convert  Converter
	Default  Value
}

// Resolve converts the stored value. fromStore is false when Default was used.
func (e Entry) Resolve(r settings.Reader) (v Value, fromStore bool) {
	if v, ok := e.Convert(r, e.Schema, e.Key); ok {
		return v, true
	}
	return e.Default, false
}

func Int(n int32) Value {
	return Value{Kind: KindInt, Int: n}
}

func Bool(b bool) Value {
	if b {
		return Int(1)
	}
	return Int(0)
}

func String(s string) Value {
	return Value{Kind: KindString, Str: s}
}

type entryKey struct {
	schema string
	key    string
}

type Registry struct {
	entries []Entry
	index   map[entryKey]int
}

// NewRegistry indexes entries. Duplicate (schema, key) pairs are rejected.
func NewRegistry(entries []Entry) (*Registry, error) {
	r := &Registry{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[entryKey]int, len(entries)),
	}
	for _, e := range entries {
		k := entryKey{schema: e.Schema, key: e.Key}
		if _, dup := r.index[k]; dup {
			return nil, fmt.Errorf("duplicate translation for %s %s", e.Schema, e.Key)
		}
		if e.Convert == nil {
			return nil, fmt.Errorf("translation %s %s has no converter", e.Schema, e.Key)
		}
		if e.Property == "" {
			return nil, fmt.Errorf("translation %s %s has no property", e.Schema, e.Key)
		}
		r.index[k] = len(r.entries)
		r.entries = append(r.entries, e)
	}
	return r, nil
}

// Find performs an exact (schema, key) lookup.
func (r *Registry) Find(schema, key string) (Entry, bool) {
	i, ok := r.index[entryKey{schema: schema, key: key}]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Entries returns the table in declaration order.
func (r *Registry) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Schemas lists every schema that has at least one translation.
func (r *Registry) Schemas() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range r.entries {
		if _, ok := seen[e.Schema]; ok {
			continue
		}
		seen[e.Schema] = struct{}{}
		out = append(out, e.Schema)
	}
	return out
}

var defaultRegistry = mustRegistry(defaultEntries())

// Default returns the built-in table.
func Default() *Registry {
	return defaultRegistry
}

func mustRegistry(entries []Entry) *Registry {
	r, err := NewRegistry(entries)
	if err != nil {
		panic(err)
	}
	return r
}

const defaultColorPalette = "black:white:gray50:red:purple:blue:light blue:green:yellow:orange:" +
	"lavender:brown:goldenrod4:dodger blue:pink:light green:gray10:gray30:gray75:gray90"

func defaultEntries() []Entry {
	return []Entry{
		{settings.SchemaMouse, settings.KeyDoubleClick, "Net/DoubleClickTime", IntToInt, Int(400)},
		{settings.SchemaMouse, settings.KeyDragThreshold, "Net/DndDragThreshold", IntToInt, Int(8)},

		{settings.SchemaInterface, "gtk-color-palette", "Gtk/ColorPalette", StringToString, String(defaultColorPalette)},
		{settings.SchemaInterface, "font-name", "Gtk/FontName", StringToString, String("Sans 10")},
		{settings.SchemaInterface, "gtk-key-theme", "Gtk/KeyThemeName", StringToString, String("Default")},
		{settings.SchemaInterface, "toolbar-style", "Gtk/ToolbarStyle", ToolbarStyle, String("both-horiz")},
		{settings.SchemaInterface, "toolbar-icons-size", "Gtk/ToolbarIconSize", StringToString, String("large")},
		{settings.SchemaInterface, "can-change-accels", "Gtk/CanChangeAccels", BoolToInt, Bool(false)},
		{settings.SchemaInterface, "cursor-blink", "Net/CursorBlink", BoolToInt, Bool(true)},
		{settings.SchemaInterface, "cursor-blink-time", "Net/CursorBlinkTime", IntToInt, Int(1200)},
		{settings.SchemaInterface, "cursor-blink-timeout", "Gtk/CursorBlinkTimeout", IntToInt, Int(10)},
		{settings.SchemaInterface, "gtk-theme", "Net/ThemeName", StringToString, String("Adwaita")},
		{settings.SchemaInterface, "icon-theme", "Net/IconThemeName", StringToString, String("Adwaita")},
		{settings.SchemaInterface, "menus-have-icons", "Gtk/MenuImages", BoolToInt, Bool(true)},
		{settings.SchemaInterface, "buttons-have-icons", "Gtk/ButtonImages", BoolToInt, Bool(false)},
		{settings.SchemaInterface, "menubar-accel", "Gtk/MenuBarAccel", StringToString, String("F10")},
		{settings.SchemaInterface, "enable-animations", "Gtk/EnableAnimations", BoolToInt, Bool(true)},
		{settings.SchemaInterface, "show-input-method-menu", "Gtk/ShowInputMethodMenu", BoolToInt, Bool(false)},
		{settings.SchemaInterface, "show-unicode-menu", "Gtk/ShowUnicodeMenu", BoolToInt, Bool(false)},
		{settings.SchemaInterface, "automatic-mnemonics", "Gtk/AutoMnemonics", BoolToInt, Bool(true)},
		{settings.SchemaInterface, "gtk-im-module", "Gtk/IMModule", StringToString, String("")},

		{settings.SchemaSound, "theme-name", "Net/SoundThemeName", StringToString, String("freedesktop")},
		{settings.SchemaSound, "event-sounds", "Net/EnableEventSounds", BoolToInt, Bool(true)},
		{settings.SchemaSound, "input-feedback-sounds", "Net/EnableInputFeedbackSounds", BoolToInt, Bool(false)},

		{settings.SchemaWM, "button-layout", "Gtk/DecorationLayout", StringToString, String("menu:minimize,maximize,close")},
		{settings.SchemaWM, "action-double-click-titlebar", "Gtk/TitlebarDoubleClick", StringToString, String("toggle-maximize")},
		{settings.SchemaWM, "action-middle-click-titlebar", "Gtk/TitlebarMiddleClick", StringToString, String("lower")},
		{settings.SchemaWM, "action-right-click-titlebar", "Gtk/TitlebarRightClick", StringToString, String("menu")},
	}
}
