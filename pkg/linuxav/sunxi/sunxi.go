//go:build linux

// Package sunxi provides pure Go bindings to the Allwinner "sunxi" display
// driver control interface (/dev/disp) for both display-engine generations.
//
// The driver exposes a single ioctl entry point. Every command takes a pointer
// to four machine words; getters return their result as the ioctl return
// value, and commands that exchange structures carry a pointer to the
// structure in one of the words.
//
// # Generations
//
// DE1 (A10/A20, sun4i/sun7i) and DE2 (H3/H5/A64, sun8i/sun50i) share the
// transport but use different command codes and different structures. The
// command codes are typed (DE1Command, DE2Command) so that a code cannot be
// sent with the wrong generation's meaning by accident.
//
// # Wire structures
//
// Structures are not passed by Go memory layout. Each wire type states its
// field order and padding explicitly and is encoded with encoding/binary in
// native byte order:
//
//	para := sunxi.DE1FramebufferCreate{Width: 640, Height: 480}
//	payload := sunxi.MustMarshal(&para)
//	args := sunxi.NewArgs(0).WithPayload(1, payload)
//	_, err := conn.Ioctl(sunxi.DE1FBRequest, args)
//
// CheckLayout verifies every wire type against the kernel contract (sizes and
// critical offsets) and should be run before issuing structure commands.
package sunxi

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Command is a driver command code of either generation.
type Command interface {
	Code() uint32
	String() string
}

// Conn issues control commands against an open display device.
type Conn interface {
	Ioctl(cmd Command, args *Args) (int, error)
}

// Args is the four-word argument vector of a control command.
//
// When Payload is set, its address is written into Words[Slot] right before
// the call and the kernel may read or write the payload in place.
type Args struct {
	Words   [4]uintptr
	Payload []byte
	Slot    int
}

// NewArgs returns an argument vector with the leading words set.
func NewArgs(words ...uintptr) *Args {
	a := &Args{}
	copy(a.Words[:], words)
	return a
}

// WithPayload attaches an encoded structure whose address goes in word slot.
func (a *Args) WithPayload(slot int, payload []byte) *Args {
	a.Slot = slot
	a.Payload = payload
	return a
}

// String formats the vector like the driver debug traces.
func (a *Args) String() string {
	if a.Payload != nil {
		return fmt.Sprintf("{%d, %d, 0x%x, %d} payload=%dB@%d",
			a.Words[0], a.Words[1], a.Words[2], a.Words[3], len(a.Payload), a.Slot)
	}
	return fmt.Sprintf("{%d, %d, 0x%x, %d}", a.Words[0], a.Words[1], a.Words[2], a.Words[3])
}

// CommandError is returned when the driver rejects a command.
type CommandError struct {
	Cmd   Command
	Errno unix.Errno
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s (0x%x): %v", e.Cmd, e.Cmd.Code(), e.Errno)
}

func (e *CommandError) Unwrap() error {
	return e.Errno
}

// TVMode is the driver's disp_tv_mode enumeration, shared by DE1 and DE2.
type TVMode int32

// TV/HDMI timing modes.
const (
	TVMode480I         TVMode = 0x00
	TVMode576I         TVMode = 0x01
	TVMode480P         TVMode = 0x02
	TVMode576P         TVMode = 0x03
	TVMode720P50       TVMode = 0x04
	TVMode720P60       TVMode = 0x05
	TVMode1080I50      TVMode = 0x06
	TVMode1080I60      TVMode = 0x07
	TVMode1080P24      TVMode = 0x08
	TVMode1080P50      TVMode = 0x09
	TVMode1080P60      TVMode = 0x0a
	TVModePAL          TVMode = 0x0b
	TVModePALSVideo    TVMode = 0x0c
	TVModeNTSC         TVMode = 0x0e
	TVModeNTSCSVideo   TVMode = 0x0f
	TVModePALM         TVMode = 0x11
	TVModePALMSVideo   TVMode = 0x12
	TVModePALNC        TVMode = 0x14
	TVModePALNCSVideo  TVMode = 0x15
	TVMode1080P24_3DFP TVMode = 0x17
	TVMode720P50_3DFP  TVMode = 0x18
	TVMode720P60_3DFP  TVMode = 0x19
	TVMode1080P25      TVMode = 0x1a
	TVMode1080P30      TVMode = 0x1b
	TVMode2160P30      TVMode = 0x1c // DE2 only
	TVMode2160P25      TVMode = 0x1d // DE2 only
	TVMode2160P24      TVMode = 0x1e // DE2 only
	TVModeCount        TVMode = 0x1f

	// TVModeInvalid is reported when the current mode cannot be read.
	TVModeInvalid TVMode = -1
)

// OutputType is the driver's disp_output_type enumeration.
type OutputType int32

// Output types.
const (
	OutputNone OutputType = 0
	OutputLCD  OutputType = 1
	OutputTV   OutputType = 2
	OutputHDMI OutputType = 4
	OutputVGA  OutputType = 8
)

func (t OutputType) String() string {
	switch t {
	case OutputNone:
		return "None"
	case OutputLCD:
		return "LCD"
	case OutputTV:
		return "TV"
	case OutputHDMI:
		return "HDMI"
	case OutputVGA:
		return "VGA"
	default:
		return fmt.Sprintf("Unknown (%d)", int32(t))
	}
}

// Rect is disp_rect, 16 bytes.
type Rect struct {
	X      int32
	Y      int32
	Width  uint32
	Height uint32
}

// RectSize is disp_rectsz, 8 bytes.
type RectSize struct {
	Width  uint32
	Height uint32
}
