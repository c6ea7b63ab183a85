package xsettings

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/xsyncd/internal/core/observability/log"
)

type fakeScreen struct {
	number   int
	owned    bool
	ownedErr error
	writes   [][]byte
	writeErr error
	released bool
}

func (f *fakeScreen) Number() int                   { return f.number }
func (f *fakeScreen) SelectionOwned() (bool, error) { return f.owned, f.ownedErr }
func (f *fakeScreen) Acquire() (uint32, error)      { f.owned = true; return 0x400001, nil }
func (f *fakeScreen) Release() error                { f.released = true; return nil }

func (f *fakeScreen) WriteSettings(data []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, data)
	return nil
}

func (f *fakeScreen) last(t *testing.T) (uint32, map[string]Setting) {
	t.Helper()
	require.NotEmpty(t, f.writes)
	serial, list, err := Decode(f.writes[len(f.writes)-1])
	require.NoError(t, err)
	out := make(map[string]Setting, len(list))
	for _, s := range list {
		out[s.Name] = s
	}
	return serial, out
}

func TestStartFailsWhenSelectionOwned(t *testing.T) {
	_, err := Start(&fakeScreen{owned: true}, log.Nop())
	require.ErrorIs(t, err, ErrManagerRunning)

	_, err = Start(&fakeScreen{ownedErr: errors.New("connection reset")}, log.Nop())
	require.Error(t, err)
}

func TestSetsAreInvisibleUntilCommit(t *testing.T) {
	screen := &fakeScreen{}
	m, err := Start(screen, log.Nop())
	require.NoError(t, err)
	require.True(t, m.Owns(0x400001))

	m.SetString("Net/ThemeName", "Adwaita")
	m.SetInt("Xft/DPI", 96*1024)
	require.Empty(t, screen.writes)

	require.NoError(t, m.Commit())
	require.Len(t, screen.writes, 1)
	serial, got := screen.last(t)
	require.Equal(t, uint32(0), serial)
	require.Equal(t, "Adwaita", got["Net/ThemeName"].Str)
	require.Equal(t, int32(96*1024), got["Xft/DPI"].Int)
}

func TestCommitTracksChangeSerials(t *testing.T) {
	screen := &fakeScreen{}
	m, err := Start(screen, log.Nop())
	require.NoError(t, err)

	m.SetString("Net/ThemeName", "Adwaita")
	m.SetInt("Xft/DPI", 98304)
	require.NoError(t, m.Commit())

	m.SetInt("Xft/DPI", 98304) // unchanged
	require.NoError(t, m.Commit())
	require.Len(t, screen.writes, 1, "commit without changes writes nothing")

	m.SetInt("Xft/DPI", 196608)
	require.NoError(t, m.Commit())
	serial, got := screen.last(t)
	require.Equal(t, uint32(1), serial)
	require.Equal(t, uint32(0), got["Net/ThemeName"].Serial)
	require.Equal(t, uint32(1), got["Xft/DPI"].Serial)
	require.Equal(t, uint32(2), m.Serial())
}

func TestCommitSkipsNetNoChange(t *testing.T) {
	screen := &fakeScreen{}
	m, err := Start(screen, log.Nop())
	require.NoError(t, err)
	m.SetInt("Gdk/WindowScalingFactor", 1)
	require.NoError(t, m.Commit())

	m.SetInt("Gdk/WindowScalingFactor", 2)
	m.SetInt("Gdk/WindowScalingFactor", 1)
	require.NoError(t, m.Commit())
	require.Len(t, screen.writes, 1)
}

func TestCommitAfterSelectionLoss(t *testing.T) {
	screen := &fakeScreen{}
	m, err := Start(screen, log.Nop())
	require.NoError(t, err)

	m.SelectionLost()
	m.SetInt("Xft/DPI", 1)
	require.ErrorIs(t, m.Commit(), ErrSelectionLost)
	require.Empty(t, screen.writes)

	require.NoError(t, m.Stop())
	require.True(t, screen.released)
	require.False(t, m.Owns(0x400001))
	require.ErrorIs(t, m.Commit(), ErrNotRunning)
	require.ErrorIs(t, m.Stop(), ErrNotRunning)
}

func TestCommitWriteError(t *testing.T) {
	screen := &fakeScreen{writeErr: errors.New("BadWindow")}
	m, err := Start(screen, log.Nop())
	require.NoError(t, err)
	m.SetInt("Xft/DPI", 1)
	require.Error(t, m.Commit())

	screen.writeErr = nil
	require.NoError(t, m.Commit(), "pending changes survive a failed write")
	require.Len(t, screen.writes, 1)
}
