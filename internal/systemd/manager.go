package systemd

import (
	"context"
	"fmt"

	"github.com/coreos/go-systemd/v22/dbus"
)

// unitConn is the part of *dbus.Conn the manager uses.
type unitConn interface {
	GetUnitPropertyContext(ctx context.Context, unit string, propertyName string) (*dbus.Property, error)
	Close()
}

// Manager reads unit state from the systemd manager over the system bus.
type Manager struct {
	conn unitConn
}

// NewManager creates a manager with a system-level D-Bus connection.
func NewManager(ctx context.Context) (*Manager, error) {
	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return nil, err
	}
	return &Manager{conn: conn}, nil
}

// ActiveState retrieves the ActiveState property of a unit, e.g. "active"
// or "failed".
func (m *Manager) ActiveState(ctx context.Context, unit string) (string, error) {
	prop, err := m.conn.GetUnitPropertyContext(ctx, unit, "ActiveState")
	if err != nil {
		return "", err
	}
	state, ok := prop.Value.Value().(string)
	if !ok {
		return "", fmt.Errorf("ActiveState of %s is %s", unit, prop.Value.Signature())
	}
	return state, nil
}

// UnitStates returns the ActiveState of every unit. Units whose state
// cannot be read are reported as "unknown".
func (m *Manager) UnitStates(ctx context.Context, units []string) map[string]string {
	states := make(map[string]string, len(units))
	for _, unit := range units {
		state, err := m.ActiveState(ctx, unit)
		if err != nil {
			state = "unknown"
		}
		states[unit] = state
	}
	return states
}

// Close cleanly closes the D-Bus connection.
func (m *Manager) Close() {
	if m.conn != nil {
		m.conn.Close()
	}
}

// HostUnits returns the OpenBMC units the power LED daemon depends on for
// host index n.
func HostUnits(n int) []string {
	return []string{
		fmt.Sprintf("xyz.openbmc_project.State.Host@%d.service", n),
		fmt.Sprintf("xyz.openbmc_project.State.Boot.PostCode@%d.service", n),
		"xyz.openbmc_project.LED.GroupManager.service",
	}
}
