package fontwatch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/xsyncd/internal/core/loop"
	"github.com/zeusync/xsyncd/internal/core/observability/log"
)

func TestWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	l := loop.New(log.Nop(), 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	var fired atomic.Int32
	w := New([]string{dir, filepath.Join(dir, "missing")}, 100*time.Millisecond, l, func() { fired.Add(1) }, log.Nop())
	go func() { _ = w.Run(ctx) }()

	require.Eventually(t, func() bool {
		for i := 0; i < 3; i++ {
			name := filepath.Join(dir, "cache-"+time.Now().Format("150405.000000000"))
			_ = os.WriteFile(name, []byte("x"), 0o600)
		}
		time.Sleep(250 * time.Millisecond)
		return fired.Load() > 0
	}, 5*time.Second, 10*time.Millisecond)

	// A quiet period produces no further notifications.
	settled := fired.Load()
	time.Sleep(300 * time.Millisecond)
	require.Equal(t, settled, fired.Load())
}
