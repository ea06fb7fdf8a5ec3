package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/sunxidisp/internal/config"
	"github.com/smazurov/sunxidisp/internal/display"
	"github.com/smazurov/sunxidisp/internal/events"
	"github.com/smazurov/sunxidisp/internal/led"
	"github.com/smazurov/sunxidisp/internal/logging"
	"github.com/smazurov/sunxidisp/internal/metrics"
	"github.com/smazurov/sunxidisp/internal/systemd"
	"github.com/smazurov/sunxidisp/pkg/linuxav/hotplug"
	"github.com/smazurov/sunxidisp/pkg/linuxav/sunxi"
)

func newWatchCmd(a *app) *cobra.Command {
	var poll time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow HDMI hot-plug and enable the output when a display appears",
		Long: `Run in the foreground, following HDMI hot-plug through kernel uevents and
a periodic state poll. When a display is connected and watch.auto_enable is
set, the output is enabled the same way as "hdmi on". State changes are
logged, written as Prometheus textfile metrics when watch.metrics_file is
set, and shown on the board status LED when watch.led is set. The
configuration file is reloaded when it changes.

All driver calls happen on one goroutine. Do not run other sunxidisp
commands against the same device while watch is running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDisplay(func(d *display.Display) error {
				return a.runWatch(cmd.Context(), d, poll)
			})
		},
	}

	cmd.Flags().BoolVar(&a.opts.WatchAutoEnable, "auto-enable", a.opts.WatchAutoEnable, "Enable the output when a display is connected")
	cmd.Flags().StringVar(&a.opts.WatchMetricsFile, "metrics-file", a.opts.WatchMetricsFile, "Prometheus textfile to write (empty disables)")
	cmd.Flags().BoolVar(&a.opts.WatchLED, "led", a.opts.WatchLED, "Show HDMI state on the board status LED")
	cmd.Flags().DurationVar(&poll, "poll", 2*time.Second, "Hot-plug poll interval (0 disables polling)")
	return cmd
}

func (a *app) runWatch(ctx context.Context, d *display.Display, poll time.Duration) error {
	logger := logging.GetLogger("hotplug")

	bus := events.New()
	defer func() { _ = bus.Close() }()

	recorder := metrics.NewRecorder(bus, a.opts.WatchMetricsFile, logger)
	recorder.Start()
	defer recorder.Stop()

	if a.opts.WatchLED {
		ledManager := led.NewManager(led.New(logger), bus, logger)
		ledManager.Start()
		defer ledManager.Stop()
	}

	uevents := make(chan hotplug.Event, 16)
	mon, err := hotplug.NewMonitor()
	if err != nil {
		logger.Warn("Uevent monitor unavailable, relying on polling", "error", err)
		close(uevents)
		if poll <= 0 {
			return fmt.Errorf("no hot-plug source: uevent monitor failed (%w) and polling is disabled", err)
		}
	} else {
		defer func() { _ = mon.Close() }()
		mon.AddSubsystemFilter(hotplug.SubsystemSwitch)
		mon.AddSubsystemFilter(hotplug.SubsystemDRM)
		mon.AddSubsystemFilter(hotplug.SubsystemExtcon)
		go func() {
			if runErr := mon.Run(ctx, uevents); runErr != nil && ctx.Err() == nil {
				logger.Warn("Uevent monitor stopped", "error", runErr)
			}
		}()
	}

	reloads := make(chan config.Options, 1)
	if a.opts.Config != "" {
		watcher := config.NewConfigWatcher(a.opts.Config, config.Load, logger)
		watcher.OnReload(func(opts config.Options) {
			select {
			case reloads <- opts:
			default:
				// The loop has not applied the previous reload yet; keep
				// the newest one.
				select {
				case <-reloads:
				default:
				}
				reloads <- opts
			}
		})
		if startErr := watcher.Start(ctx); startErr != nil {
			logger.Warn("Failed to start config watcher, hot-reload disabled", "error", startErr)
		} else {
			defer func() { _ = watcher.Stop() }()
		}
	}

	var tick <-chan time.Time
	if poll > 0 {
		ticker := time.NewTicker(poll)
		defer ticker.Stop()
		tick = ticker.C
	}

	notifier := systemd.NewNotifier(logger)
	unsubStatus := bus.Subscribe(func(e events.HotplugChangedEvent) {
		notifier.Status("HDMI %s (%s)", hotplugLabel(e.State), e.Source)
	})
	defer unsubStatus()

	var watchdog <-chan time.Time
	if interval := notifier.WatchdogInterval(); interval > 0 {
		wd := time.NewTicker(interval)
		defer wd.Stop()
		watchdog = wd.C
	}

	loop := newHotplugLoop(d, bus, a.opts.WatchAutoEnable, logger)
	loop.check("startup")

	notifier.Ready()
	defer notifier.Stopping()

	logger.Info("Watching HDMI hot-plug", "screen", d.Screen(), "generation", d.Generation(),
		"auto_enable", a.opts.WatchAutoEnable, "poll", poll)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Watch stopped")
			return nil
		case ev, ok := <-uevents:
			if !ok {
				uevents = nil
				continue
			}
			if !ev.IsDisplayHotplug(hotplug.SwitchHDMI) {
				continue
			}
			logger.Debug("HDMI uevent", "action", ev.Action, "subsystem", ev.Subsystem, "kobj", ev.KObj)
			if state, ok := ev.SwitchState(); ok {
				loop.observe(display.Hotplug(state), "uevent")
			} else {
				loop.check("uevent")
			}
		case <-tick:
			loop.check("poll")
		case <-watchdog:
			notifier.Watchdog()
		case opts := <-reloads:
			a.applyReload(loop, d, opts, bus, logger)
		}
	}
}

// applyReload takes over the settings that can change while watching. Device
// paths, screen and generation need a restart.
func (a *app) applyReload(loop *hotplugLoop, d watchedDisplay, opts config.Options, bus *events.Bus, logger *slog.Logger) {
	if err := opts.Validate(); err != nil {
		logger.Warn("Ignoring invalid configuration", "path", opts.Config, "error", err)
		return
	}
	logging.Initialize(opts.Logging())
	logging.SetVerbose(a.opts.Verbose)

	a.opts.WatchAutoEnable = opts.WatchAutoEnable
	a.opts.DisplayForce = opts.DisplayForce
	d.SetForce(opts.DisplayForce)
	loop.autoEnable = opts.WatchAutoEnable

	logger.Info("Configuration reloaded", "path", opts.Config, "auto_enable", opts.WatchAutoEnable, "force", opts.DisplayForce)
	bus.Publish(events.ConfigReloadedEvent{Path: opts.Config, Timestamp: time.Now()})
}

// watchedDisplay is the part of *display.Display the hot-plug loop drives.
type watchedDisplay interface {
	Screen() int
	Hotplug() (display.Hotplug, error)
	EnableOutput() (display.Mode, error)
	OutputType() (sunxi.OutputType, error)
	OutputState() (display.OutputState, error)
	CurrentMode() (display.Mode, error)
	ScreenSize() (display.Geometry, error)
	SetForce(force bool)
}

// hotplugLoop turns hot-plug observations into output actions and events.
// It is only used from the watch goroutine.
type hotplugLoop struct {
	d          watchedDisplay
	bus        *events.Bus
	autoEnable bool
	logger     *slog.Logger

	seen bool
	last display.Hotplug
}

func newHotplugLoop(d watchedDisplay, bus *events.Bus, autoEnable bool, logger *slog.Logger) *hotplugLoop {
	return &hotplugLoop{d: d, bus: bus, autoEnable: autoEnable, logger: logger}
}

// check reads the hot-plug state and handles a change.
func (l *hotplugLoop) check(source string) {
	h, err := l.d.Hotplug()
	if err != nil {
		l.logger.Debug("Hot-plug read failed", "source", source, "error", err)
		h = display.HotplugUnknown
	}
	l.observe(h, source)
}

// observe handles one state reading. Repeated readings of the same state
// are ignored.
func (l *hotplugLoop) observe(h display.Hotplug, source string) {
	if l.seen && h == l.last {
		return
	}
	l.seen = true
	l.last = h

	screen := l.d.Screen()
	l.logger.Info("HDMI hot-plug changed", "screen", screen, "state", h, "source", source)
	l.bus.Publish(events.HotplugChangedEvent{
		Screen:    screen,
		State:     hotplugState(h),
		Source:    source,
		Timestamp: time.Now(),
	})

	enabled := false
	if h.Connected() && l.autoEnable {
		mode, err := l.d.EnableOutput()
		if err != nil {
			l.logger.Error("Failed to enable HDMI output", "screen", screen, "error", err)
			l.bus.Publish(events.EnableFailedEvent{Screen: screen, Error: err.Error(), Timestamp: time.Now()})
		} else {
			l.logger.Info("HDMI output enabled", "screen", screen, "mode", mode)
			enabled = true
		}
	}
	l.publishOutput(enabled)
}

func (l *hotplugLoop) publishOutput(enabled bool) {
	ev := events.OutputChangedEvent{
		Screen:    l.d.Screen(),
		Enabled:   enabled,
		ModeID:    int(sunxi.TVModeInvalid),
		Timestamp: time.Now(),
	}
	if t, err := l.d.OutputType(); err == nil {
		ev.Output = t.String()
	}
	state, err := l.d.OutputState()
	if err != nil {
		l.logger.Debug("Output state read failed", "error", err)
	}
	ev.State = state.String()
	if state != display.OutputOff {
		if m, err := l.d.CurrentMode(); err == nil {
			ev.Mode = m.String()
			ev.ModeID = int(m.ID)
		}
		if g, err := l.d.ScreenSize(); err == nil {
			ev.Width, ev.Height = int(g.Width), int(g.Height)
		}
	}
	l.bus.Publish(ev)
}

func hotplugState(h display.Hotplug) int {
	switch {
	case h.Connected():
		return events.HotplugConnected
	case h.Known():
		return events.HotplugDisconnected
	default:
		return events.HotplugUnknown
	}
}

func hotplugLabel(state int) string {
	switch state {
	case events.HotplugConnected:
		return "connected"
	case events.HotplugDisconnected:
		return "disconnected"
	default:
		return "state unknown"
	}
}
