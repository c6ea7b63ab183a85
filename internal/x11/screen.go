package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/pkg/errors"

	"github.com/zeusync/xsyncd/internal/core/observability/log"
)

const (
	propSettings = "_XSETTINGS_SETTINGS"
	atomManager  = "MANAGER"
)

// SelectionName returns the XSETTINGS selection of screen n.
func SelectionName(n int) string {
	return fmt.Sprintf("_XSETTINGS_S%d", n)
}

// Screen implements xsettings.Screen for one X screen.
type Screen struct {
	c      *Conn
	number int
	root   xproto.Window
	window xproto.Window
}

func (s *Screen) Number() int {
	return s.number
}

func (s *Screen) SelectionOwned() (bool, error) {
	selection, err := s.c.atom(SelectionName(s.number))
	if err != nil {
		return false, err
	}
	reply, err := xproto.GetSelectionOwner(s.c.conn(), selection).Reply()
	if err != nil {
		return false, errors.Wrap(err, "get selection owner")
	}
	return reply.Owner != xproto.WindowNone, nil
}

func (s *Screen) Acquire() (uint32, error) {
	selection, err := s.c.atom(SelectionName(s.number))
	if err != nil {
		return 0, err
	}
	manager, err := s.c.atom(atomManager)
	if err != nil {
		return 0, err
	}

	conn := s.c.conn()
	win, err := xproto.NewWindowId(conn)
	if err != nil {
		return 0, errors.Wrap(err, "allocate window id")
	}
	err = xproto.CreateWindowChecked(conn, 0, win, s.root,
		-1, -1, 1, 1, 0,
		xproto.WindowClassInputOnly, 0,
		xproto.CwOverrideRedirect|xproto.CwEventMask,
		[]uint32{1, xproto.EventMaskPropertyChange},
	).Check()
	if err != nil {
		return 0, errors.Wrap(err, "create manager window")
	}

	err = xproto.SetSelectionOwnerChecked(conn, win, selection, xproto.TimeCurrentTime).Check()
	if err != nil {
		_ = xproto.DestroyWindowChecked(conn, win).Check()
		return 0, errors.Wrap(err, "set selection owner")
	}

	// Another client may have raced us for the selection.
	owner, err := xproto.GetSelectionOwner(conn, selection).Reply()
	if err != nil || owner.Owner != win {
		_ = xproto.DestroyWindowChecked(conn, win).Check()
		if err == nil {
			err = fmt.Errorf("selection owned by window %#x", owner.Owner)
		}
		return 0, errors.Wrap(err, "verify selection owner")
	}

	announce := xproto.ClientMessageEvent{
		Format: 32,
		Window: s.root,
		Type:   manager,
		Data: xproto.ClientMessageDataUnionData32New([]uint32{
			uint32(xproto.TimeCurrentTime), uint32(selection), uint32(win), 0, 0,
		}),
	}
	err = xproto.SendEventChecked(conn, false, s.root,
		xproto.EventMaskStructureNotify, string(announce.Bytes())).Check()
	if err != nil {
		s.c.logger.Warn("MANAGER announcement failed", log.Int("screen", s.number), log.Error(err))
	}

	s.window = win
	return uint32(win), nil
}

func (s *Screen) WriteSettings(data []byte) error {
	if s.window == 0 {
		return errors.New("manager window not created")
	}
	prop, err := s.c.atom(propSettings)
	if err != nil {
		return err
	}
	err = xproto.ChangePropertyChecked(s.c.conn(), xproto.PropModeReplace, s.window,
		prop, prop, 8, uint32(len(data)), data).Check()
	return errors.Wrapf(err, "write %s", propSettings)
}

func (s *Screen) Release() error {
	if s.window == 0 {
		return nil
	}
	win := s.window
	s.window = 0
	return errors.Wrap(xproto.DestroyWindowChecked(s.c.conn(), win).Check(), "destroy manager window")
}
