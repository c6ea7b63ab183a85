// Package x11 adapts an X server connection to the daemon's sinks: the
// XSETTINGS selection per screen, the RESOURCE_MANAGER property and RandR
// output geometry.
package x11

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/pkg/errors"

	"github.com/zeusync/xsyncd/internal/core/observability/log"
)

// Conn owns the X connection shared by every adapter in this package.
type Conn struct {
	xu     *xgbutil.XUtil
	randr  bool
	sizes  *sizeCache
	logger log.Log
}

// Open connects to display, or to $DISPLAY when display is empty.
func Open(display string, logger log.Log) (*Conn, error) {
	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to display %q", display)
	}

	c := &Conn{
		xu:     xu,
		sizes:  &sizeCache{root: xu.RootWin()},
		logger: logger.With(log.String("component", "x11")),
	}
	if err := randr.Init(xu.Conn()); err != nil {
		c.logger.Warn("RandR unavailable, falling back to core screen size", log.Error(err))
	} else {
		c.randr = true
	}
	return c, nil
}

func (c *Conn) conn() *xgb.Conn {
	return c.xu.Conn()
}

// Screens returns the number of X screens on the display.
func (c *Conn) Screens() int {
	return len(c.xu.Setup().Roots)
}

// Screen returns the XSETTINGS plumbing for screen n.
func (c *Conn) Screen(n int) *Screen {
	return &Screen{
		c:      c,
		number: n,
		root:   c.xu.Setup().Roots[n].Root,
	}
}

// Resources returns the RESOURCE_MANAGER store on the first screen's root.
func (c *Conn) Resources() *Resources {
	return &Resources{c: c}
}

// Geometry returns the RandR geometry source for the default screen.
func (c *Conn) Geometry() *Geometry {
	return &Geometry{c: c}
}

// Close drops the connection. Every window the daemon created goes with it.
func (c *Conn) Close() {
	c.xu.Conn().Close()
}

func (c *Conn) atom(name string) (xproto.Atom, error) {
	a, err := xprop.Atm(c.xu, name)
	if err != nil {
		return 0, errors.Wrapf(err, "intern atom %s", name)
	}
	return a, nil
}
