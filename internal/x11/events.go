package x11

import (
	"context"
	"errors"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/zeusync/xsyncd/internal/core/observability/log"
)

// ErrConnectionClosed is returned by Pump when the X server goes away.
var ErrConnectionClosed = errors.New("x connection closed")

// EventSink receives the X events the daemon reacts to. Calls come from the
// pump goroutine.
type EventSink interface {
	GeometryChanged()
	SelectionCleared(window uint32)
}

// Pump selects RandR change notifications on every root window and forwards
// events to sink until ctx is done or the connection drops.
func (c *Conn) Pump(ctx context.Context, sink EventSink) error {
	if c.randr {
		mask := uint16(randr.NotifyMaskScreenChange | randr.NotifyMaskCrtcChange | randr.NotifyMaskOutputChange)
		for _, root := range c.xu.Setup().Roots {
			if err := randr.SelectInputChecked(c.conn(), root.Root, mask).Check(); err != nil {
				c.logger.Warn("RandR notifications unavailable", log.Error(err))
			}
		}
	}

	events := make(chan xgb.Event)
	go func() {
		defer close(events)
		for {
			ev, xerr := c.conn().WaitForEvent()
			if ev == nil && xerr == nil {
				return
			}
			if xerr != nil {
				c.logger.Debug("X error", log.String("error", xerr.Error()))
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return ErrConnectionClosed
			}
			dispatchEvent(ev, sink, c.sizes)
		}
	}
}

// dispatchEvent refreshes sizes before the sink hears about a screen change.
func dispatchEvent(ev xgb.Event, sink EventSink, sizes *sizeCache) {
	switch e := ev.(type) {
	case randr.ScreenChangeNotifyEvent:
		sizes.update(e)
		sink.GeometryChanged()
	case randr.NotifyEvent:
		sink.GeometryChanged()
	case xproto.SelectionClearEvent:
		sink.SelectionCleared(uint32(e.Owner))
	}
}
