//go:build linux

// Package fbdev wraps the generic Linux framebuffer geometry ioctls
// (<linux/fb.h>): reading and writing the variable screen information and
// reading the fixed screen information.
package fbdev

import (
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DefaultDevicePath is the first framebuffer device.
const DefaultDevicePath = "/dev/fb0"

// <linux/fb.h> ioctls ('F').
const (
	fbioGetVScreenInfo = 0x4600
	fbioPutVScreenInfo = 0x4601
	fbioGetFScreenInfo = 0x4602
)

// BitField is struct fb_bitfield.
type BitField struct {
	Offset   uint32
	Length   uint32
	MsbRight uint32
}

// VarScreenInfo is struct fb_var_screeninfo.
type VarScreenInfo struct {
	XRes, YRes               uint32
	XResVirtual, YResVirtual uint32
	XOffset, YOffset         uint32
	BitsPerPixel             uint32
	Grayscale                uint32
	Red, Green, Blue, Alpha  BitField
	NonStd                   uint32
	Activate                 uint32
	Height, Width            uint32
	AccelFlags               uint32
	PixClock                 uint32
	LeftMargin, RightMargin  uint32
	UpperMargin, LowerMargin uint32
	HSyncLen, VSyncLen       uint32
	Sync                     uint32
	VMode                    uint32
	Rotate                   uint32
	ColorSpace               uint32
	_                        [4]uint32
}

// FixScreenInfo is struct fb_fix_screeninfo. The address fields are
// unsigned long in the kernel.
type FixScreenInfo struct {
	ID           [16]byte
	SmemStart    uintptr
	SmemLen      uint32
	Type         uint32
	TypeAux      uint32
	Visual       uint32
	XPanStep     uint16
	YPanStep     uint16
	YWrapStep    uint16
	LineLength   uint32
	MmioStart    uintptr
	MmioLen      uint32
	Accel        uint32
	Capabilities uint16
	_            [2]uint16
}

// Name returns the driver identification string.
func (f *FixScreenInfo) Name() string {
	n := 0
	for n < len(f.ID) && f.ID[n] != 0 {
		n++
	}
	return string(f.ID[:n])
}

// SetDepth sets bits_per_pixel and the matching RGB bitfields: RGB565 for 16,
// RGB888 for 24 and ARGB8888 for 32.
func (v *VarScreenInfo) SetDepth(depth uint32) {
	v.BitsPerPixel = depth
	v.Alpha = BitField{}
	switch depth {
	case 16:
		v.Red = BitField{Offset: 11, Length: 5}
		v.Green = BitField{Offset: 5, Length: 6}
		v.Blue = BitField{Offset: 0, Length: 5}
	case 24, 32:
		v.Red = BitField{Offset: 16, Length: 8}
		v.Green = BitField{Offset: 8, Length: 8}
		v.Blue = BitField{Offset: 0, Length: 8}
		if depth == 32 {
			v.Alpha = BitField{Offset: 24, Length: 8}
		}
	}
}

// Device is an open framebuffer device.
type Device struct {
	path string
	fd   int
}

// Open opens a framebuffer device read-write.
func Open(path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Device{path: path, fd: fd}, nil
}

// Path returns the device node path.
func (d *Device) Path() string {
	return d.path
}

// VarScreenInfo reads the variable screen information.
func (d *Device) VarScreenInfo() (VarScreenInfo, error) {
	var v VarScreenInfo
	if err := d.ioctl(fbioGetVScreenInfo, unsafe.Pointer(&v)); err != nil {
		return v, fmt.Errorf("FBIOGET_VSCREENINFO: %w", err)
	}
	return v, nil
}

// PutVarScreenInfo writes v. The driver may adjust v in place.
func (d *Device) PutVarScreenInfo(v *VarScreenInfo) error {
	if err := d.ioctl(fbioPutVScreenInfo, unsafe.Pointer(v)); err != nil {
		return fmt.Errorf("FBIOPUT_VSCREENINFO: %w", err)
	}
	return nil
}

// FixScreenInfo reads the fixed screen information.
func (d *Device) FixScreenInfo() (FixScreenInfo, error) {
	var f FixScreenInfo
	if err := d.ioctl(fbioGetFScreenInfo, unsafe.Pointer(&f)); err != nil {
		return f, fmt.Errorf("FBIOGET_FSCREENINFO: %w", err)
	}
	return f, nil
}

func (d *Device) ioctl(req uintptr, arg unsafe.Pointer) error {
	if d.fd < 0 {
		return fmt.Errorf("%s: device closed", d.path)
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), req, uintptr(arg))
	runtime.KeepAlive(arg)
	if errno != 0 {
		return errno
	}
	return nil
}

// Close releases the descriptor. Calling Close more than once is a no-op.
func (d *Device) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}
