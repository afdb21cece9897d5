package led

import (
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
)

const (
	groupManagerService = "xyz.openbmc_project.LED.GroupManager"
	groupPathPrefix     = "/xyz/openbmc_project/led/groups/"
	groupInterface      = "xyz.openbmc_project.Led.Group"
	propertiesSet       = "org.freedesktop.DBus.Properties.Set"
)

// ObjectGetter is the part of *dbus.Conn used to reach bus objects.
type ObjectGetter interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
}

// groupManager implements Controller on top of the OpenBMC LED GroupManager.
// Requests are sent without waiting for the reply; failures are logged.
type groupManager struct {
	conn   ObjectGetter
	logger *slog.Logger
}

// NewGroupManager creates a controller that sets the Asserted property of
// LED groups over D-Bus.
func NewGroupManager(conn ObjectGetter, logger *slog.Logger) Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &groupManager{conn: conn, logger: logger}
}

// groupPath returns the object path of an LED group.
func groupPath(group string) (dbus.ObjectPath, error) {
	path := dbus.ObjectPath(groupPathPrefix + group)
	if group == "" || !path.IsValid() {
		return "", fmt.Errorf("invalid LED group name %q", group)
	}
	return path, nil
}

// Set sends the Asserted property change for group.
func (g *groupManager) Set(group string, asserted bool) error {
	path, err := groupPath(group)
	if err != nil {
		return err
	}

	obj := g.conn.Object(groupManagerService, path)
	call := obj.Go(propertiesSet, 0, make(chan *dbus.Call, 1),
		groupInterface, "Asserted", dbus.MakeVariant(asserted))
	if call.Err != nil {
		return fmt.Errorf("failed to set LED group %s: %w", group, call.Err)
	}

	go func() {
		reply := <-call.Done
		if reply.Err != nil {
			actuationErrors.Inc()
			g.logger.Warn("Failed to set LED group",
				"group", group,
				"asserted", asserted,
				"error", reply.Err)
			return
		}
		g.logger.Debug("LED group set", "group", group, "asserted", asserted)
	}()

	return nil
}

// Available returns an empty list; the GroupManager owns the group set.
func (g *groupManager) Available() []string {
	return []string{}
}
