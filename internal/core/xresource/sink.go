package xresource

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/zeusync/xsyncd/internal/core/observability/log"
	"github.com/zeusync/xsyncd/internal/core/scale"
)

// ErrResourceWrite wraps failures to read or replace the resource database.
var ErrResourceWrite = errors.New("resource database write failed")

// Store reads and replaces the whole resource string.
type Store interface {
	ReadResources() (string, error)
	WriteResources(doc string) error
}

type Entry struct {
	Key   string
	Value string
}

type Sink struct {
	store  Store
	logger log.Log
}

func NewSink(store Store, logger log.Log) *Sink {
	return &Sink{
		store:  store,
		logger: logger.With(log.String("component", "xresource")),
	}
}

// Apply re-reads the current document, merges every entry and writes the
// result back in a single replace. Nothing is written when the merge leaves
// the document unchanged.
func (s *Sink) Apply(entries []Entry) error {
	current, err := s.store.ReadResources()
	if err != nil {
		return fmt.Errorf("%w: read: %v", ErrResourceWrite, err)
	}

	updated := current
	for _, e := range entries {
		updated = Merge(updated, e.Key, e.Value)
	}
	if updated == current {
		return nil
	}

	if err := s.store.WriteResources(updated); err != nil {
		return fmt.Errorf("%w: %v", ErrResourceWrite, err)
	}
	s.logger.Debug("Resource database updated", log.Int("entries", len(entries)))
	return nil
}

// EntriesFor renders a resolved snapshot as resource entries. The cursor
// size is written in device pixels since resource consumers do not scale.
func EntriesFor(s scale.Settings) []Entry {
	return []Entry{
		{Key: "Xft.dpi", Value: strconv.Itoa((s.DPIScaled + 512) / 1024)},
		{Key: "Xft.antialias", Value: boolValue(s.Antialias)},
		{Key: "Xft.hinting", Value: boolValue(s.Hinting)},
		{Key: "Xft.hintstyle", Value: s.HintStyle.String()},
		{Key: "Xft.rgba", Value: s.SubpixelOrder.String()},
		{Key: "Xft.lcdfilter", Value: s.LCDFilter},
		{Key: "Xcursor.theme", Value: s.CursorTheme},
		{Key: "Xcursor.size", Value: strconv.Itoa(s.CursorSize * s.WindowScale)},
	}
}

func boolValue(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
