// Package systemd reports service state to the systemd manager when the
// process runs as a Type=notify unit. Outside systemd every call is a no-op.
package systemd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends sd_notify messages.
type Notifier struct {
	logger *slog.Logger
}

// NewNotifier returns a notifier logging send failures at debug level.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{logger: logger}
}

// Ready tells systemd that startup is complete.
func (n *Notifier) Ready() bool {
	return n.send(daemon.SdNotifyReady)
}

// Stopping tells systemd that shutdown has begun.
func (n *Notifier) Stopping() bool {
	return n.send(daemon.SdNotifyStopping)
}

// Status sets the one-line status shown by systemctl status.
func (n *Notifier) Status(format string, args ...any) bool {
	return n.send("STATUS=" + fmt.Sprintf(format, args...))
}

// Watchdog pings the service watchdog.
func (n *Notifier) Watchdog() bool {
	return n.send(daemon.SdNotifyWatchdog)
}

// WatchdogInterval returns how often Watchdog must be called, half the
// configured WatchdogSec, or zero when the watchdog is off for this process.
func (n *Notifier) WatchdogInterval() time.Duration {
	d, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		n.logger.Debug("Invalid watchdog environment", "error", err)
		return 0
	}
	return d / 2
}

// send reports whether the message was delivered. False with no error means
// NOTIFY_SOCKET is not set.
func (n *Notifier) send(state string) bool {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		n.logger.Debug("sd_notify failed", "state", state, "error", err)
	}
	return sent
}
