package xsettings

import "errors"

var (
	ErrManagerRunning = errors.New("another XSETTINGS manager owns the screen")
	ErrSelectionLost  = errors.New("XSETTINGS selection was taken over")
	ErrNotRunning     = errors.New("XSETTINGS manager is not running")
	ErrMalformed      = errors.New("malformed XSETTINGS data")
)
