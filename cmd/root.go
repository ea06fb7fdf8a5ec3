// Package cmd implements the sunxidisp command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smazurov/sunxidisp/internal/config"
	"github.com/smazurov/sunxidisp/internal/display"
	"github.com/smazurov/sunxidisp/internal/logging"
)

const rootLong = `Control HDMI output, video modes and framebuffer scaling through the
Allwinner sunxi display driver (/dev/disp). Both display engine generations
are supported: DE1 on A10/A20 and DE2 on H3/H5/A64. The generation is
detected from /proc/cpuinfo or the device tree unless --generation is set.

Settings are read from the TOML file given with --config, then from
SUNXIDISP_* environment variables, then from flags; flags win.

Only one instance may drive a display device at a time. Running two
sunxidisp processes against the same /dev/disp, including "watch" next to
a one-shot command, is not supported.`

// app is the state shared by every subcommand.
type app struct {
	opts   config.Options
	open   func(display.Options) (*display.Display, error)
	logger *slog.Logger
}

func newApp() *app {
	return &app{
		opts:   config.Defaults(),
		open:   display.Open,
		logger: logging.GetLogger("main"),
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(newApp())
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "sunxidisp",
		Short:         "Sunxi HDMI and framebuffer control utility",
		Long:          rootLong,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&a.opts.Config, "config", "c", a.opts.Config, "Path to configuration file")
	f.BoolVarP(&a.opts.Verbose, "verbose", "v", a.opts.Verbose, "Log every driver call")
	f.BoolVarP(&a.opts.DisplayForce, "force", "f", a.opts.DisplayForce, "Bypass the EDID mode check")
	f.IntVarP(&a.opts.DisplayScreen, "screen", "s", a.opts.DisplayScreen, "Screen to control (0 or 1)")
	f.StringVar(&a.opts.DisplayGeneration, "generation", a.opts.DisplayGeneration, "Display engine: auto, de1 or de2")
	f.StringVar(&a.opts.DisplayDispDevice, "disp-device", a.opts.DisplayDispDevice, "Display control device")
	f.StringVar(&a.opts.DisplayFBDevice, "fb-device", a.opts.DisplayFBDevice, "Framebuffer device")
	f.StringVar(&a.opts.LoggingFormat, "log-format", a.opts.LoggingFormat, "Log format (text, json)")

	root.AddCommand(
		newInfoCmd(a),
		newDebugCmd(a),
		newHDMICmd(a),
		newFBCmd(a),
		newScaleCmd(a),
		newScale2Cmd(a),
		newAutoScaleCmd(a),
		newNoScaleCmd(a),
		newLayerCmd(a),
		newScreenCmd(a),
		newWatchCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads the configuration and initializes logging before any
// subcommand runs.
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadConfig(&a.opts, cmd); err != nil {
		return err
	}
	if err := a.opts.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logging.Initialize(a.opts.Logging())
	logging.SetVerbose(a.opts.Verbose)
	a.logger = logging.GetLogger("main")
	a.logger.Debug("Configuration loaded", "config", a.opts.Config, "screen", a.opts.DisplayScreen)
	return nil
}

func (a *app) displayOptions() (display.Options, error) {
	gen, err := display.ParseGeneration(a.opts.DisplayGeneration)
	if err != nil {
		return display.Options{}, err
	}
	return display.Options{
		DispDevice:   a.opts.DisplayDispDevice,
		FBDevice:     a.opts.DisplayFBDevice,
		HDMIState:    a.opts.DisplayHDMIState,
		CPUInfo:      a.opts.DisplayCPUInfo,
		Screen:       a.opts.DisplayScreen,
		Force:        a.opts.DisplayForce,
		Generation:   gen,
		DefaultDepth: a.opts.DisplayDefaultDepth,
	}, nil
}

// withDisplay opens the display, runs fn and releases the device on every
// return path.
func (a *app) withDisplay(fn func(d *display.Display) error) error {
	opts, err := a.displayOptions()
	if err != nil {
		return err
	}
	d, err := a.open(opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := d.Close(); cerr != nil {
			a.logger.Warn("Failed to close display", "error", cerr)
		}
	}()
	return fn(d)
}

// Execute runs the command line and returns the process exit code: 0 on
// success, 1 on failure and 128+signal when interrupted.
func Execute() int {
	return run(NewRootCmd(), os.Args[1:], os.Stderr)
}

func run(root *cobra.Command, args []string, stderr io.Writer) int {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu     sync.Mutex
		caught os.Signal
	)
	go func() {
		select {
		case s := <-sigs:
			mu.Lock()
			caught = s
			mu.Unlock()
			cancel()
		case <-ctx.Done():
		}
	}()

	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	cancel()

	mu.Lock()
	sig := caught
	mu.Unlock()
	return exitCode(err, sig, stderr)
}

func exitCode(err error, sig os.Signal, stderr io.Writer) int {
	if s, ok := sig.(syscall.Signal); ok {
		if err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 128 + int(s)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
