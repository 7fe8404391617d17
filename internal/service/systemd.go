// Package service controls systemd units over the D-Bus system bus.
// It covers the small slice of the org.freedesktop.systemd1 manager
// API the toolkit needs: unit start/stop/restart, enablement, daemon
// reload, and active-state queries.
package service

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	systemdService   = "org.freedesktop.systemd1"
	systemdPath      = "/org/freedesktop/systemd1"
	managerInterface = "org.freedesktop.systemd1.Manager"
	unitInterface    = "org.freedesktop.systemd1.Unit"
)

// "replace" supersedes any conflicting queued job for the same unit.
const jobMode = "replace"

// Conn is a connection to the systemd manager on the system bus.
type Conn struct {
	bus *dbus.Conn
	mgr dbus.BusObject
}

// Connect opens the system bus and binds the systemd manager object.
func Connect() (*Conn, error) {
	bus, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}
	return &Conn{
		bus: bus,
		mgr: bus.Object(systemdService, systemdPath),
	}, nil
}

// Close releases the bus connection.
func (c *Conn) Close() error {
	return c.bus.Close()
}

// Start enqueues a start job for unit.
func (c *Conn) Start(ctx context.Context, unit string) error {
	var job dbus.ObjectPath
	call := c.mgr.CallWithContext(ctx, managerInterface+".StartUnit", 0, unit, jobMode)
	if err := call.Store(&job); err != nil {
		return fmt.Errorf("start %s: %w", unit, err)
	}
	return nil
}

// Stop enqueues a stop job for unit.
func (c *Conn) Stop(ctx context.Context, unit string) error {
	var job dbus.ObjectPath
	call := c.mgr.CallWithContext(ctx, managerInterface+".StopUnit", 0, unit, jobMode)
	if err := call.Store(&job); err != nil {
		return fmt.Errorf("stop %s: %w", unit, err)
	}
	return nil
}

// Restart enqueues a restart job for unit. A stopped unit is started.
func (c *Conn) Restart(ctx context.Context, unit string) error {
	var job dbus.ObjectPath
	call := c.mgr.CallWithContext(ctx, managerInterface+".RestartUnit", 0, unit, jobMode)
	if err := call.Store(&job); err != nil {
		return fmt.Errorf("restart %s: %w", unit, err)
	}
	return nil
}

// Enable marks unit for start at boot. Runtime is false so the
// enablement persists, force replaces existing symlinks.
func (c *Conn) Enable(ctx context.Context, unit string) error {
	var carriesInfo bool
	var changes [][]interface{}
	call := c.mgr.CallWithContext(ctx, managerInterface+".EnableUnitFiles", 0, []string{unit}, false, true)
	if err := call.Store(&carriesInfo, &changes); err != nil {
		return fmt.Errorf("enable %s: %w", unit, err)
	}
	return nil
}

// DaemonReload reloads the systemd manager configuration.
func (c *Conn) DaemonReload(ctx context.Context) error {
	if call := c.mgr.CallWithContext(ctx, managerInterface+".Reload", 0); call.Err != nil {
		return fmt.Errorf("daemon reload: %w", call.Err)
	}
	return nil
}

// ActiveState returns the unit's active state, such as "active",
// "activating", "inactive", or "failed". LoadUnit is used rather than
// GetUnit so units not currently loaded still resolve.
func (c *Conn) ActiveState(ctx context.Context, unit string) (string, error) {
	var path dbus.ObjectPath
	call := c.mgr.CallWithContext(ctx, managerInterface+".LoadUnit", 0, unit)
	if err := call.Store(&path); err != nil {
		return "", fmt.Errorf("load unit %s: %w", unit, err)
	}

	obj := c.bus.Object(systemdService, path)
	prop, err := obj.GetProperty(unitInterface + ".ActiveState")
	if err != nil {
		return "", fmt.Errorf("query active state of %s: %w", unit, err)
	}

	var state string
	if err := prop.Store(&state); err != nil {
		return "", fmt.Errorf("decode active state of %s: %w", unit, err)
	}
	return state, nil
}

// IsActive reports whether the unit is in the "active" state.
func (c *Conn) IsActive(ctx context.Context, unit string) (bool, error) {
	state, err := c.ActiveState(ctx, unit)
	if err != nil {
		return false, err
	}
	return state == "active", nil
}
