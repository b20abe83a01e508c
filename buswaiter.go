// SPDX-License-Identifier: GPL-3.0-or-later

package padial

import (
	"context"
	"log/slog"

	"github.com/godbus/dbus/v5"
)

// BusWaiter subscribes to name-ownership changes for the daemon's
// well-known bus name on both the session and system buses, used only
// when `NO_FAIL` is set and no server was user-specified (spec.md §4.4).
type BusWaiter struct {
	logger SLogger

	sessionConn *dbus.Conn
	systemConn  *dbus.Conn
}

// NewBusWaiter returns a [*BusWaiter]. Connecting to the buses is
// deferred to [*BusWaiter.Wait] so construction never fails merely
// because a desktop bus is unavailable in this environment.
func NewBusWaiter(logger SLogger) *BusWaiter {
	return &BusWaiter{logger: logger}
}

// Wait blocks until a NameOwnerChanged signal for busName arrives on
// either bus, or ctx is cancelled (spec.md §4.4: "The context remains in
// Connecting indefinitely until such a signal arrives or the user
// disconnects"). It reports which [EndpointSet] to re-inject.
func (w *BusWaiter) Wait(ctx context.Context, busName string) (EndpointSet, error) {
	w.logger.Info("busWaitStart", slog.String("busName", busName))

	sessionCh, sessionErr := w.subscribe(&w.sessionConn, dbus.SessionBusPrivate, busName)
	systemCh, systemErr := w.subscribe(&w.systemConn, dbus.SystemBusPrivate, busName)
	if sessionErr != nil && systemErr != nil {
		return 0, sessionErr
	}

	select {
	case <-sessionCh:
		w.logger.Info("busNameOwnerChanged", slog.String("bus", "session"), slog.String("busName", busName))
		return EndpointSetPerUser, nil
	case <-systemCh:
		w.logger.Info("busNameOwnerChanged", slog.String("bus", "system"), slog.String("busName", busName))
		return EndpointSetSystemWide, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// subscribe connects via connectFn (if not already connected) and arms a
// NameOwnerChanged match for busName, returning a channel that receives
// once the new owner is non-empty (the name appeared).
func (w *BusWaiter) subscribe(slot **dbus.Conn, connectFn func(...dbus.ConnOption) (*dbus.Conn, error), busName string) (<-chan struct{}, error) {
	if *slot == nil {
		conn, err := connectFn()
		if err != nil {
			return nil, err
		}
		if err := conn.Auth(nil); err != nil {
			conn.Close()
			return nil, err
		}
		if err := conn.Hello(); err != nil {
			conn.Close()
			return nil, err
		}
		*slot = conn
	}
	conn := *slot

	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, busName),
	); err != nil {
		return nil, err
	}

	signals := make(chan *dbus.Signal, 8)
	conn.Signal(signals)

	out := make(chan struct{}, 1)
	go func() {
		for sig := range signals {
			if len(sig.Body) != 3 {
				continue
			}
			newOwner, _ := sig.Body[2].(string)
			if newOwner != "" {
				select {
				case out <- struct{}{}:
				default:
				}
				return
			}
		}
	}()
	return out, nil
}

// Close tears down both bus connections, if established.
func (w *BusWaiter) Close() error {
	var err error
	if w.sessionConn != nil {
		if e := w.sessionConn.Close(); e != nil {
			err = e
		}
	}
	if w.systemConn != nil {
		if e := w.systemConn.Close(); e != nil {
			err = e
		}
	}
	return err
}
