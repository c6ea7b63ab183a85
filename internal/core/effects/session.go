package effects

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	sessionManagerName   = "org.gnome.SessionManager"
	sessionManagerPath   = dbus.ObjectPath("/org/gnome/SessionManager")
	sessionManagerSetenv = "org.gnome.SessionManager.Setenv"
)

// DBusSessionEnv exports variables through the session manager's Setenv
// method. Calls are sent without waiting for a reply.
type DBusSessionEnv struct {
	conn *dbus.Conn
}

func NewDBusSessionEnv() (*DBusSessionEnv, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &DBusSessionEnv{conn: conn}, nil
}

func (d *DBusSessionEnv) Setenv(name, value string) error {
	obj := d.conn.Object(sessionManagerName, sessionManagerPath)
	call := obj.Go(sessionManagerSetenv, dbus.FlagNoReplyExpected, nil, name, value)
	if call.Err != nil {
		return fmt.Errorf("%s %s: %w", sessionManagerSetenv, name, call.Err)
	}
	return nil
}

func (d *DBusSessionEnv) Close() error {
	return d.conn.Close()
}
