// Package events names the notifications that drive the synchronization
// engine and the payloads they carry.
package events

import (
	"time"

	"github.com/zeusync/xsyncd/internal/core/events/bus"
)

const (
	// TypeConfigChanged is published once per changed (schema, key).
	TypeConfigChanged = "settings.changed"
	// TypeGeometryChanged is published when an output is added, removed or resized.
	TypeGeometryChanged = "display.geometry"
	// TypeFontcacheChanged is published after the fontconfig caches settle.
	TypeFontcacheChanged = "fontconfig.cache"
)

// ConfigChange identifies one changed key of the settings store.
type ConfigChange struct {
	Schema string
	Key    string
}

func ConfigChanged(source string, change ConfigChange) bus.Event {
	return bus.NewEvent(TypeConfigChanged, source, change)
}

func GeometryChanged(source string) bus.Event {
	return bus.NewEvent(TypeGeometryChanged, source, nil)
}

func FontcacheChanged(source string, at time.Time) bus.Event {
	return bus.NewEvent(TypeFontcacheChanged, source, at)
}
