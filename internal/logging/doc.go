// Package logging provides structured logging with per-module log levels.
//
// Records are written to stdout when it is usable and to the systemd
// journal when journald is running, fanned out with slog-multi when both
// are present.
//
// Initialize once at startup, then fetch module loggers:
//
//	logging.Initialize(logging.Config{
//		Level:   "info",
//		Format:  "text",
//		Modules: map[string]string{"tracker": "debug"},
//	})
//	logger := logging.GetLogger("tracker")
//	logger.Info("Boot started", "code", code)
//
// Modules used by the daemon: main, tracker, led, phosphor, api, nats.
//
// # Viewing Logs
//
//	journalctl -t powerled -f
//	journalctl -t powerled MODULE=tracker
//	journalctl -t powerled HOST=0 -p warning
package logging
