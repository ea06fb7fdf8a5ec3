package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/smazurov/sunxidisp/internal/display"
	"github.com/smazurov/sunxidisp/pkg/linuxav/fbdev"
	"github.com/smazurov/sunxidisp/pkg/linuxav/sunxi"
)

// de2Kernel simulates the DE2 driver state behind /dev/disp.
type de2Kernel struct {
	output    sunxi.OutputType
	mode      sunxi.TVMode
	width     int
	height    int
	supported map[sunxi.TVMode]bool
	switches  int
}

func newDE2Kernel() *de2Kernel {
	return &de2Kernel{
		output:    sunxi.OutputHDMI,
		mode:      sunxi.TVMode720P50,
		width:     1280,
		height:    720,
		supported: map[sunxi.TVMode]bool{sunxi.TVMode720P50: true, sunxi.TVMode720P60: true},
	}
}

func (k *de2Kernel) Ioctl(cmd sunxi.Command, args *sunxi.Args) (int, error) {
	switch cmd {
	case sunxi.DE2GetScreenWidth:
		return k.width, nil
	case sunxi.DE2GetScreenHeight:
		return k.height, nil
	case sunxi.DE2GetOutputType:
		return int(k.output), nil
	case sunxi.DE2GetOutput:
		copy(args.Payload, sunxi.MustMarshal(&sunxi.DE2Output{Type: k.output, Mode: k.mode}))
		return 0, nil
	case sunxi.DE2HDMISupportMode:
		if k.supported[sunxi.TVMode(args.Words[1])] {
			return 1, nil
		}
		return 0, nil
	case sunxi.DE2DeviceSwitch:
		k.switches++
		k.output = sunxi.OutputType(args.Words[1])
		k.mode = sunxi.TVMode(args.Words[2])
		for _, m := range display.Modes() {
			if m.ID == k.mode {
				k.width, k.height = int(m.Width), int(m.Height)
			}
		}
		return 0, nil
	}
	return 0, nil
}

type fakeFB struct {
	v fbdev.VarScreenInfo
	f fbdev.FixScreenInfo
}

func newFakeFB(w, h, depth uint32) *fakeFB {
	fb := &fakeFB{}
	fb.v.XRes, fb.v.YRes = w, h
	fb.v.XResVirtual, fb.v.YResVirtual = w, h
	fb.v.SetDepth(depth)
	fb.f.SmemStart = 0x5e000000
	fb.f.LineLength = w * depth / 8
	fb.f.SmemLen = fb.f.LineLength * h
	return fb
}

func (f *fakeFB) VarScreenInfo() (fbdev.VarScreenInfo, error) { return f.v, nil }

func (f *fakeFB) PutVarScreenInfo(v *fbdev.VarScreenInfo) error {
	f.v = *v
	f.f.LineLength = v.XRes * v.BitsPerPixel / 8
	f.f.SmemLen = f.f.LineLength * v.YResVirtual
	return nil
}

func (f *fakeFB) FixScreenInfo() (fbdev.FixScreenInfo, error) { return f.f, nil }

func (f *fakeFB) Close() error { return nil }

// testApp wires the command tree to a fake kernel and framebuffer.
type testApp struct {
	*app
	opened   int
	lastOpts display.Options
}

func newTestApp(t *testing.T, conn sunxi.Conn, gen display.Generation, fb display.Framebuffer) *testApp {
	t.Helper()
	dir := t.TempDir()
	ta := &testApp{app: newApp()}
	ta.open = func(opts display.Options) (*display.Display, error) {
		ta.opened++
		ta.lastOpts = opts
		opts.Generation = gen
		opts.Framebuffer = fb
		opts.HDMIState = filepath.Join(dir, "hdmi-state")
		opts.CPUInfo = filepath.Join(dir, "cpuinfo")
		opts.DeviceTree = dir
		return display.New(conn, opts), nil
	}
	return ta
}

// execute runs the command line with a config path that does not exist.
func (ta *testApp) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(ta.app)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"-c", filepath.Join(t.TempDir(), "none.toml")}, args...))
	err := root.Execute()
	return out.String(), err
}
