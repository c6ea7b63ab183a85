package loop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/xsyncd/internal/core/observability/log"
)

func TestLoopRunsPostedWorkInOrder(t *testing.T) {
	l := New(log.Nop(), 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		_ = l.Run(ctx)
		close(stopped)
	}()

	results := make(chan int, 3)
	for i := 0; i < 3; i++ {
		i := i
		require.True(t, l.Post(func() { results <- i }))
	}
	for want := 0; want < 3; want++ {
		select {
		case got := <-results:
			require.Equal(t, want, got)
		case <-time.After(time.Second):
			t.Fatal("posted work did not run")
		}
	}

	cancel()
	<-stopped
	require.False(t, l.Post(func() {}))
}

func TestLoopSurvivesPanics(t *testing.T) {
	l := New(log.Nop(), 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	l.Post(func() { panic("boom") })
	ran := make(chan struct{})
	l.Post(func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("loop died after panic")
	}
}

func TestAfterFuncPostsToLoop(t *testing.T) {
	l := New(log.Nop(), 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	fired := make(chan struct{})
	l.AfterFunc(10*time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}

	stop := l.AfterFunc(time.Hour, func() { t.Error("stopped timer fired") })
	require.True(t, stop.Stop())
}
