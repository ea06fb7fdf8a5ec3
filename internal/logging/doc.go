// Package logging provides structured logging with per-module log levels.
//
// # Overview
//
// Loggers are log/slog loggers carrying a "module" attribute. Output goes to
// stderr, leaving stdout to the command reports, and additionally to the
// systemd journal when journald is reachable and stderr is not a terminal
// (the tool runs as a unit, e.g. "sunxidisp watch").
//
// # Usage
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"display": "debug",
//		},
//	})
//
//	logger := logging.GetLogger("display")
//	logger.Debug("ioctl", "cmd", cmd, "args", args)
//
// SetVerbose lowers every module to debug at runtime, which is what the
// -v flag does.
//
// # Viewing Logs
//
//	journalctl -t sunxidisp -f
//	journalctl -t sunxidisp MODULE=hotplug
//
// # Configuration
//
//	[logging]
//	level = "info"
//	format = "text"
//	display = "debug"
//	hotplug = "info"
package logging
