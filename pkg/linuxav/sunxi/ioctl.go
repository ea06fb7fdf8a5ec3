//go:build linux

package sunxi

import (
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DefaultDevicePath is the display control node created by the sunxi driver.
const DefaultDevicePath = "/dev/disp"

// Device is an open display control descriptor.
type Device struct {
	path string
	fd   int
}

// Open opens the display control device read-write.
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

// Ioctl issues cmd with args and returns the driver's return value.
func (d *Device) Ioctl(cmd Command, args *Args) (int, error) {
	if d.fd < 0 {
		return -1, fmt.Errorf("%s: device closed", d.path)
	}

	// The vector lives on the heap so the address handed to the kernel
	// stays valid for the duration of the call.
	words := new([4]uintptr)
	*words = args.Words
	if len(args.Payload) > 0 {
		words[args.Slot] = uintptr(unsafe.Pointer(&args.Payload[0]))
	}

	r, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), uintptr(cmd.Code()), uintptr(unsafe.Pointer(words)))
	runtime.KeepAlive(words)
	runtime.KeepAlive(args.Payload)
	if errno != 0 {
		return -1, &CommandError{Cmd: cmd, Errno: errno}
	}
	return int(int32(r)), nil
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
