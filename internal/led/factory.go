package led

import (
	"fmt"
	"log/slog"
	"os"
)

// Backend names accepted by New.
const (
	BackendAuto  = "auto"
	BackendDBus  = "dbus"
	BackendSysfs = "sysfs"
	BackendNoop  = "noop"
)

// New creates an LED controller for the named backend.
// The auto backend prefers the D-Bus GroupManager when a bus connection is
// available, then sysfs LEDs, and falls back to the no-op controller.
func New(backend string, conn ObjectGetter, logger *slog.Logger) (Controller, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch backend {
	case BackendDBus:
		if conn == nil {
			return nil, fmt.Errorf("LED backend %q requires a D-Bus connection", backend)
		}
		return NewGroupManager(conn, logger), nil

	case BackendSysfs:
		return newSysfs(sysfsLEDPath), nil

	case BackendNoop:
		return newNoop(logger), nil

	case BackendAuto, "":
		switch {
		case conn != nil:
			logger.Info("Using D-Bus LED GroupManager")
			return NewGroupManager(conn, logger), nil
		case hasSysfsLEDs():
			logger.Info("No D-Bus connection, using sysfs LED controller")
			return newSysfs(sysfsLEDPath), nil
		default:
			logger.Info("No LED support detected, using no-op controller")
			return newNoop(logger), nil
		}

	default:
		return nil, fmt.Errorf("unknown LED backend %q", backend)
	}
}

// hasSysfsLEDs reports whether the LED class directory has any entries.
func hasSysfsLEDs() bool {
	entries, err := os.ReadDir(sysfsLEDPath)
	return err == nil && len(entries) > 0
}
