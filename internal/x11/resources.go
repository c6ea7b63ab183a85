package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/pkg/errors"
)

const propResourceManager = "RESOURCE_MANAGER"

// Resources implements xresource.Store on the root window of screen 0,
// where Xlib reads the resource database from.
type Resources struct {
	c *Conn
}

// ReadResources returns the current database, or "" when the property is
// not set.
func (r *Resources) ReadResources() (string, error) {
	prop, err := r.c.atom(propResourceManager)
	if err != nil {
		return "", err
	}
	reply, err := xproto.GetProperty(r.c.conn(), false, r.c.xu.RootWin(), prop,
		xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
	if err != nil {
		return "", errors.Wrapf(err, "read %s", propResourceManager)
	}
	if reply.Format == 0 {
		return "", nil
	}
	if reply.Format != 8 {
		return "", errors.Errorf("%s has format %d", propResourceManager, reply.Format)
	}
	return string(reply.Value), nil
}

func (r *Resources) WriteResources(doc string) error {
	err := xprop.ChangeProp(r.c.xu, r.c.xu.RootWin(), 8, propResourceManager, "STRING", []byte(doc))
	return errors.Wrapf(err, "write %s", propResourceManager)
}
