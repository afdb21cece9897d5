package led

import "log/slog"

// noop accepts every request without touching any LED. It backs hosts
// without LED support, where the daemon still tracks boot progress.
type noop struct {
	logger *slog.Logger
}

func newNoop(logger *slog.Logger) *noop {
	return &noop{logger: logger}
}

// Set only logs the request.
func (n *noop) Set(group string, asserted bool) error {
	n.logger.Debug("Ignoring LED group request, no LED backend",
		"group", group,
		"asserted", asserted)
	return nil
}

// Available reports no groups.
func (n *noop) Available() []string {
	return []string{}
}
