package display

import (
	"errors"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/smazurov/sunxidisp/pkg/linuxav/fbdev"
	"github.com/smazurov/sunxidisp/pkg/linuxav/sunxi"
)

type ioctlCall struct {
	cmd     sunxi.Command
	words   [4]uintptr
	payload []byte
}

type reply struct {
	ret int
	err error
}

// fakeConn records every control call and answers from a table keyed by the
// typed command, so DE1 and DE2 codes with the same value do not collide.
type fakeConn struct {
	calls   []ioctlCall
	replies map[sunxi.Command]reply
	// fallback answers commands missing from replies.
	fallback reply
	// hook runs before the reply and may rewrite the payload in place.
	hook func(cmd sunxi.Command, args *sunxi.Args)
}

func newFakeConn() *fakeConn {
	return &fakeConn{replies: make(map[sunxi.Command]reply)}
}

func (c *fakeConn) on(cmd sunxi.Command, ret int, err error) *fakeConn {
	c.replies[cmd] = reply{ret: ret, err: err}
	return c
}

func (c *fakeConn) Ioctl(cmd sunxi.Command, args *sunxi.Args) (int, error) {
	c.calls = append(c.calls, ioctlCall{
		cmd:     cmd,
		words:   args.Words,
		payload: append([]byte(nil), args.Payload...),
	})
	if c.hook != nil {
		c.hook(cmd, args)
	}
	r, ok := c.replies[cmd]
	if !ok {
		r = c.fallback
	}
	return r.ret, r.err
}

func (c *fakeConn) commands() []sunxi.Command {
	out := make([]sunxi.Command, len(c.calls))
	for i, call := range c.calls {
		out[i] = call.cmd
	}
	return out
}

func (c *fakeConn) called(cmd sunxi.Command) bool {
	for _, call := range c.calls {
		if call.cmd == cmd {
			return true
		}
	}
	return false
}

func (c *fakeConn) last(cmd sunxi.Command) (ioctlCall, bool) {
	for i := len(c.calls) - 1; i >= 0; i-- {
		if c.calls[i].cmd == cmd {
			return c.calls[i], true
		}
	}
	return ioctlCall{}, false
}

func cmdErr(cmd sunxi.Command, errno unix.Errno) error {
	return &sunxi.CommandError{Cmd: cmd, Errno: errno}
}

type fakeFB struct {
	v      fbdev.VarScreenInfo
	f      fbdev.FixScreenInfo
	puts   int
	getErr error
	putErr error
	closed int
}

func newFakeFB(w, h, depth uint32) *fakeFB {
	fb := &fakeFB{}
	fb.v.XRes, fb.v.YRes = w, h
	fb.v.XResVirtual, fb.v.YResVirtual = w, h
	fb.v.SetDepth(depth)
	fb.f.SmemStart = 0x5e000000
	fb.f.SmemLen = w * h * depth / 8
	fb.f.LineLength = w * depth / 8
	return fb
}

func (f *fakeFB) VarScreenInfo() (fbdev.VarScreenInfo, error) {
	if f.getErr != nil {
		return fbdev.VarScreenInfo{}, f.getErr
	}
	return f.v, nil
}

func (f *fakeFB) PutVarScreenInfo(v *fbdev.VarScreenInfo) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.puts++
	f.v = *v
	f.f.LineLength = v.XRes * v.BitsPerPixel / 8
	f.f.SmemLen = f.f.LineLength * v.YResVirtual
	return nil
}

func (f *fakeFB) FixScreenInfo() (fbdev.FixScreenInfo, error) {
	if f.getErr != nil {
		return fbdev.FixScreenInfo{}, f.getErr
	}
	return f.f, nil
}

func (f *fakeFB) Close() error {
	f.closed++
	return nil
}

var errNoFB = errors.New("no framebuffer")

// newTestDisplay builds a Display with a fixed generation so construction
// issues no control calls.
func newTestDisplay(t *testing.T, gen Generation, conn *fakeConn, fb *fakeFB) *Display {
	t.Helper()
	opts := Options{
		Generation: gen,
		HDMIState:  filepath.Join(t.TempDir(), "missing-state"),
		CPUInfo:    filepath.Join(t.TempDir(), "missing-cpuinfo"),
	}
	if fb != nil {
		opts.Framebuffer = fb
	}
	return New(conn, opts)
}
