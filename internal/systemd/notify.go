package systemd

import (
	"github.com/coreos/go-systemd/v22/daemon"
)

// notify is swapped in tests.
var notify = daemon.SdNotify

// NotifyReady tells the service manager that startup finished. It reports
// false when the process was not started with a notification socket.
func NotifyReady() (bool, error) {
	return notify(false, daemon.SdNotifyReady)
}

// NotifyStopping tells the service manager that shutdown began.
func NotifyStopping() (bool, error) {
	return notify(false, daemon.SdNotifyStopping)
}

// NotifyStatus sends a free-form status line shown by systemctl status.
func NotifyStatus(status string) (bool, error) {
	return notify(false, "STATUS="+status)
}
