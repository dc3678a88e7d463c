package main

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	notifyDest  = "org.freedesktop.Notifications"
	notifyPath  = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyIface = "org.freedesktop.Notifications"

	// expireDefault lets the notification server pick the timeout.
	expireDefault int32 = -1
)

// dbusNotifier drives one desktop notification over the session bus.
// The id returned by the first Notify is passed as replaces_id on every
// later call, so the server updates the popup in place.
type dbusNotifier struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	id      uint32
	timeout time.Duration
}

// newDBusNotifier connects to the session bus and checks that a notification
// server answers.
func newDBusNotifier(timeout time.Duration) (*dbusNotifier, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}

	n := &dbusNotifier{
		conn:    conn,
		obj:     conn.Object(notifyDest, notifyPath),
		timeout: timeout,
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	var name, vendor, version, specVersion string
	err = n.obj.CallWithContext(ctx, notifyIface+".GetServerInformation", 0).
		Store(&name, &vendor, &version, &specVersion)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("query notification server: %w", err)
	}

	return n, nil
}

// Update implements Notifier.
func (n *dbusNotifier) Update(icon string, value int) error {
	hints := map[string]dbus.Variant{
		"value":                           dbus.MakeVariant(int32(value)),
		"synchronous":                     dbus.MakeVariant(notificationCategory),
		"x-canonical-private-synchronous": dbus.MakeVariant(notificationCategory),
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	var id uint32
	err := n.obj.CallWithContext(ctx, notifyIface+".Notify", 0,
		appName,       // app_name
		n.id,          // replaces_id
		icon,          // app_icon
		appName,       // summary
		"",            // body
		[]string{},    // actions
		hints,         // hints
		expireDefault, // expire_timeout
	).Store(&id)
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	n.id = id
	return nil
}

// Close implements Notifier.
func (n *dbusNotifier) Close() error {
	if n.id != 0 {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		_ = n.obj.CallWithContext(ctx, notifyIface+".CloseNotification", 0, n.id).Err
		cancel()
	}
	return n.conn.Close()
}
