package x11

import (
	"sync"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/pkg/errors"

	"github.com/zeusync/xsyncd/internal/core/observability/log"
	"github.com/zeusync/xsyncd/internal/core/scale"
)

// Geometry implements scale.Geometry with RandR on the default screen.
type Geometry struct {
	c *Conn
}

// candidate is the subset of RandR output info the primary choice needs.
type candidate struct {
	id        randr.Output
	connected bool
	crtc      randr.Crtc
}

// choosePrimary prefers the RandR primary output and otherwise the first
// connected output driving a CRTC. It returns 0 when nothing is lit.
func choosePrimary(primary randr.Output, outputs []candidate) randr.Output {
	var fallback randr.Output
	for _, o := range outputs {
		if !o.connected || o.crtc == 0 {
			continue
		}
		if o.id == primary {
			return o.id
		}
		if fallback == 0 {
			fallback = o.id
		}
	}
	return fallback
}

func (g *Geometry) PrimaryOutput() (scale.Output, error) {
	if !g.c.randr {
		return scale.Output{}, errors.Wrap(scale.ErrGeometry, "randr not initialised")
	}
	conn := g.c.conn()
	root := g.c.xu.RootWin()

	res, err := randr.GetScreenResourcesCurrent(conn, root).Reply()
	if err != nil {
		return scale.Output{}, geometryErr(err, "get screen resources")
	}
	prim, err := randr.GetOutputPrimary(conn, root).Reply()
	if err != nil {
		return scale.Output{}, geometryErr(err, "get primary output")
	}

	infos := make(map[randr.Output]*randr.GetOutputInfoReply, len(res.Outputs))
	candidates := make([]candidate, 0, len(res.Outputs))
	for _, id := range res.Outputs {
		info, err := randr.GetOutputInfo(conn, id, res.ConfigTimestamp).Reply()
		if err != nil {
			g.c.logger.Debug("Skipping output", log.Uint32("output", uint32(id)), log.Error(err))
			continue
		}
		infos[id] = info
		candidates = append(candidates, candidate{
			id:        id,
			connected: info.Connection == randr.ConnectionConnected,
			crtc:      info.Crtc,
		})
	}

	id := choosePrimary(prim.Output, candidates)
	if id == 0 {
		return scale.Output{}, errors.Wrap(scale.ErrGeometry, "no active output")
	}
	info := infos[id]
	crtc, err := randr.GetCrtcInfo(conn, info.Crtc, res.ConfigTimestamp).Reply()
	if err != nil {
		return scale.Output{}, geometryErr(err, "get crtc info")
	}

	return scale.Output{
		Name: string(info.Name),
		Rect: scale.Rect{
			X:      int(crtc.X),
			Y:      int(crtc.Y),
			Width:  int(crtc.Width),
			Height: int(crtc.Height),
		},
		Scale:    1,
		WidthMM:  int(info.MmWidth),
		HeightMM: int(info.MmHeight),
	}, nil
}

// ScreenSize returns the size from the latest RandR screen change, or the
// connection setup values before any change was seen.
func (g *Geometry) ScreenSize() (scale.ScreenSize, error) {
	if size, ok := g.c.sizes.get(); ok {
		return size, nil
	}
	screen := g.c.xu.Screen()
	if screen == nil {
		return scale.ScreenSize{}, errors.Wrap(scale.ErrGeometry, "no default screen")
	}
	return scale.ScreenSize{
		Width:    int(screen.WidthInPixels),
		Height:   int(screen.HeightInPixels),
		WidthMM:  int(screen.WidthInMillimeters),
		HeightMM: int(screen.HeightInMillimeters),
	}, nil
}

func geometryErr(err error, op string) error {
	return errors.Wrapf(scale.ErrGeometry, "%s: %v", op, err)
}

// sizeCache keeps the default screen's size as reported by the last
// ScreenChangeNotify. The setup block is never refreshed by the server.
type sizeCache struct {
	mu    sync.Mutex
	root  xproto.Window
	size  scale.ScreenSize
	known bool
}

func (c *sizeCache) update(e randr.ScreenChangeNotifyEvent) {
	if e.Root != c.root {
		return
	}
	size := scale.ScreenSize{
		Width:    int(e.Width),
		Height:   int(e.Height),
		WidthMM:  int(e.Mwidth),
		HeightMM: int(e.Mheight),
	}
	// The event reports the unrotated size.
	if e.Rotation&(randr.RotationRotate90|randr.RotationRotate270) != 0 {
		size.Width, size.Height = size.Height, size.Width
		size.WidthMM, size.HeightMM = size.HeightMM, size.WidthMM
	}

	c.mu.Lock()
	c.size = size
	c.known = true
	c.mu.Unlock()
}

func (c *sizeCache) get() (scale.ScreenSize, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size, c.known
}
