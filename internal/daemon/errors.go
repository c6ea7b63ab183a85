package daemon

import (
	"errors"
	"fmt"
)

// Daemon-specific errors
var (
	ErrAlreadyRunning = errors.New("daemon is already running")
	ErrNotRunning     = errors.New("daemon is not running")
	ErrInvalidConfig  = errors.New("invalid daemon configuration")
)

// InitError reports the startup step that failed. Start returns it when the
// display is unreachable or a screen already has an XSETTINGS manager.
type InitError struct {
	Step string
	Err  error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("daemon init: %s: %v", e.Step, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}
