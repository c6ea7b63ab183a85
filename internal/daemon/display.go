package daemon

import (
	"context"

	"github.com/zeusync/xsyncd/internal/core/observability/log"
	"github.com/zeusync/xsyncd/internal/core/scale"
	"github.com/zeusync/xsyncd/internal/core/xresource"
	"github.com/zeusync/xsyncd/internal/core/xsettings"
	"github.com/zeusync/xsyncd/internal/x11"
)

// Display is the display server as the daemon sees it.
type Display interface {
	Screens() int
	Screen(n int) xsettings.Screen
	Resources() xresource.Store
	Geometry() scale.Geometry
	// Pump blocks delivering display events to sink until ctx is done.
	Pump(ctx context.Context, sink x11.EventSink) error
	Close()
}

// DisplayOpener connects to a display by name.
type DisplayOpener func(name string, logger log.Log) (Display, error)

// OpenX11 is the DisplayOpener for a real X server.
func OpenX11(name string, logger log.Log) (Display, error) {
	conn, err := x11.Open(name, logger)
	if err != nil {
		return nil, err
	}
	return x11Display{conn}, nil
}

type x11Display struct {
	*x11.Conn
}

func (d x11Display) Screen(n int) xsettings.Screen { return d.Conn.Screen(n) }
func (d x11Display) Resources() xresource.Store    { return d.Conn.Resources() }
func (d x11Display) Geometry() scale.Geometry      { return d.Conn.Geometry() }
