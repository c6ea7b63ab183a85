// Package xsettings implements the XSETTINGS manager side: one Manager per
// X screen owns the _XSETTINGS_S<n> selection and publishes batched setting
// changes through the _XSETTINGS_SETTINGS property.
package xsettings

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/xsyncd/internal/core/observability/log"
)

// Screen is the X plumbing for one screen.
type Screen interface {
	Number() int
	// SelectionOwned reports whether any client owns _XSETTINGS_S<n>.
	SelectionOwned() (bool, error)
	// Acquire creates the manager window, takes the selection and announces
	// the new manager on the root window. It returns the window id.
	Acquire() (uint32, error)
	// WriteSettings replaces _XSETTINGS_SETTINGS on the manager window.
	WriteSettings(data []byte) error
	// Release destroys the manager window, dropping the selection.
	Release() error
}

type Manager struct {
	screen   Screen
	window   uint32
	settings map[string]Setting
	serial   uint32
	dirty    bool
	lastHash uint64
	running  bool
	lost     bool
	logger   log.Log
}

// Start takes ownership of the screen's XSETTINGS selection. It fails with
// ErrManagerRunning when another manager is already present.
func Start(screen Screen, logger log.Log) (*Manager, error) {
	m := &Manager{
		screen:   screen,
		settings: make(map[string]Setting),
		logger:   logger.With(log.String("component", "xsettings"), log.Int("screen", screen.Number())),
	}

	owned, err := screen.SelectionOwned()
	if err != nil {
		return nil, fmt.Errorf("screen %d: query selection owner: %w", screen.Number(), err)
	}
	if owned {
		return nil, fmt.Errorf("screen %d: %w", screen.Number(), ErrManagerRunning)
	}

	window, err := screen.Acquire()
	if err != nil {
		return nil, fmt.Errorf("screen %d: acquire selection: %w", screen.Number(), err)
	}
	m.window = window
	m.running = true
	m.logger.Info("XSETTINGS manager started", log.Uint32("window", window))
	return m, nil
}

// Screen returns the screen number this manager serves.
func (m *Manager) Screen() int {
	return m.screen.Number()
}

// Owns reports whether window is this manager's selection window.
func (m *Manager) Owns(window uint32) bool {
	return m.running && m.window == window
}

func (m *Manager) SetInt(name string, value int32) {
	m.set(Setting{Name: name, Type: TypeInt, Int: value})
}

func (m *Manager) SetString(name string, value string) {
	m.set(Setting{Name: name, Type: TypeString, Str: value})
}

func (m *Manager) set(s Setting) {
	if prev, ok := m.settings[s.Name]; ok && prev.sameValue(s) {
		return
	}
	s.Serial = m.serial
	m.settings[s.Name] = s
	m.dirty = true
}

// Get returns the current, possibly uncommitted, value of name.
func (m *Manager) Get(name string) (Setting, bool) {
	s, ok := m.settings[name]
	return s, ok
}

// Serial is the serial the next commit will carry.
func (m *Manager) Serial() uint32 {
	return m.serial
}

// Commit publishes every pending change in one property write. It is a
// no-op when nothing changed since the previous commit.
func (m *Manager) Commit() error {
	if !m.running {
		return ErrNotRunning
	}
	if m.lost {
		return ErrSelectionLost
	}
	if !m.dirty {
		return nil
	}

	list := m.list()
	h := contentHash(list)
	if h == m.lastHash && m.serial > 0 {
		m.dirty = false
		return nil
	}

	if err := m.screen.WriteSettings(Encode(m.serial, list)); err != nil {
		return fmt.Errorf("screen %d: write settings: %w", m.screen.Number(), err)
	}
	m.logger.Debug("XSETTINGS committed", log.Uint32("serial", m.serial), log.Int("settings", len(list)))
	m.lastHash = h
	m.dirty = false
	m.serial++
	return nil
}

// SelectionLost marks the manager as replaced. Later commits are refused.
func (m *Manager) SelectionLost() {
	if m.lost {
		return
	}
	m.lost = true
	m.logger.Warn("XSETTINGS selection taken over by another client, no longer publishing")
}

// Stop releases the selection window.
func (m *Manager) Stop() error {
	if !m.running {
		return ErrNotRunning
	}
	m.running = false
	if err := m.screen.Release(); err != nil {
		return fmt.Errorf("screen %d: release: %w", m.screen.Number(), err)
	}
	m.logger.Info("XSETTINGS manager stopped")
	return nil
}

func (m *Manager) list() []Setting {
	list := make([]Setting, 0, len(m.settings))
	for _, s := range m.settings {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// contentHash covers names, types and values but not serials.
func contentHash(list []Setting) uint64 {
	d := xxhash.New()
	var scratch [8]byte
	for _, s := range list {
		_, _ = d.WriteString(s.Name)
		scratch[0] = byte(s.Type)
		_, _ = d.Write(scratch[:1])
		switch s.Type {
		case TypeInt:
			binary.LittleEndian.PutUint32(scratch[:4], uint32(s.Int))
			_, _ = d.Write(scratch[:4])
		case TypeString:
			binary.LittleEndian.PutUint32(scratch[:4], uint32(len(s.Str)))
			_, _ = d.Write(scratch[:4])
			_, _ = d.WriteString(s.Str)
		case TypeColor:
			binary.LittleEndian.PutUint16(scratch[0:], s.Color.Red)
			binary.LittleEndian.PutUint16(scratch[2:], s.Color.Green)
			binary.LittleEndian.PutUint16(scratch[4:], s.Color.Blue)
			binary.LittleEndian.PutUint16(scratch[6:], s.Color.Alpha)
			_, _ = d.Write(scratch[:8])
		}
	}
	return d.Sum64()
}
