//go:build linux

package sunxi

import (
	"encoding/binary"
	"fmt"
)

// Marshal encodes a wire structure in native byte order. Blank padding
// fields are written as zeros, so the result is the zero-initialized kernel
// structure with the set fields populated. Types that are not fixed-size are
// rejected.
func Marshal(v any) ([]byte, error) {
	b, err := binary.Append(nil, binary.NativeEndian, v)
	if err != nil {
		return nil, fmt.Errorf("sunxi: marshal %T: %w", v, err)
	}
	return b, nil
}

// MustMarshal is Marshal for the package's own wire types. It panics if v is
// not fixed-size.
func MustMarshal(v any) []byte {
	b, err := Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// Unmarshal decodes a payload written back by the kernel into v.
func Unmarshal(b []byte, v any) error {
	n := binary.Size(v)
	if n < 0 {
		return fmt.Errorf("sunxi: %T is not a wire structure", v)
	}
	if len(b) < n {
		return fmt.Errorf("sunxi: short payload for %T: %d < %d bytes", v, len(b), n)
	}
	_, err := binary.Decode(b[:n], binary.NativeEndian, v)
	return err
}

// SizeOf returns the encoded size of a wire structure.
func SizeOf(v any) int {
	return binary.Size(v)
}
