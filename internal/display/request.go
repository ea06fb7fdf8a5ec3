package display

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/smazurov/sunxidisp/pkg/linuxav/sunxi"
)

// ErrInvalidInput is returned for malformed resolutions, depths and mode
// names. It is always reported before any device call is made.
var ErrInvalidInput = errors.New("invalid input")

// Geometry is a width and height in pixels.
type Geometry struct {
	Width  uint32
	Height uint32
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d", g.Width, g.Height)
}

// Resolution is a parsed WxH[@Hz] argument. Refresh is zero when omitted.
type Resolution struct {
	Width   uint32
	Height  uint32
	Refresh uint32
}

// Geometry drops the refresh rate.
func (r Resolution) Geometry() Geometry {
	return Geometry{Width: r.Width, Height: r.Height}
}

// ParseResolution parses "1280x720" or "1280x720@60". An empty rate after
// '@' is the same as none.
func ParseResolution(s string) (Resolution, error) {
	size, rate, hasRate := strings.Cut(s, "@")
	w, h, ok := strings.Cut(size, "x")
	if !ok {
		return Resolution{}, fmt.Errorf("%w: resolution %q, want WxH[@Hz]", ErrInvalidInput, s)
	}

	var r Resolution
	var err error
	if r.Width, err = parseDim(w); err != nil {
		return Resolution{}, fmt.Errorf("%w: resolution %q: width: %v", ErrInvalidInput, s, err)
	}
	if r.Height, err = parseDim(h); err != nil {
		return Resolution{}, fmt.Errorf("%w: resolution %q: height: %v", ErrInvalidInput, s, err)
	}
	if hasRate && rate != "" {
		if r.Refresh, err = parseDim(rate); err != nil {
			return Resolution{}, fmt.Errorf("%w: resolution %q: refresh: %v", ErrInvalidInput, s, err)
		}
	}
	return r, nil
}

// ParseGeometry parses "WxH" and rejects a refresh rate.
func ParseGeometry(s string) (Geometry, error) {
	r, err := ParseResolution(s)
	if err != nil {
		return Geometry{}, err
	}
	if r.Refresh != 0 {
		return Geometry{}, fmt.Errorf("%w: %q: refresh rate not allowed here", ErrInvalidInput, s)
	}
	return r.Geometry(), nil
}

// ParseGeometryDepth parses "WxHxDepth", e.g. "1920x1080x32".
func ParseGeometryDepth(s string) (Geometry, int, error) {
	i := strings.LastIndex(s, "x")
	if i < 0 {
		return Geometry{}, 0, fmt.Errorf("%w: %q, want WxHxDEPTH", ErrInvalidInput, s)
	}
	g, err := ParseGeometry(s[:i])
	if err != nil {
		return Geometry{}, 0, fmt.Errorf("%w: %q, want WxHxDEPTH", ErrInvalidInput, s)
	}
	depth, err := ParseDepth(s[i+1:])
	if err != nil {
		return Geometry{}, 0, err
	}
	return g, depth, nil
}

// ParseDepth parses a color depth of 16, 24 or 32 bits per pixel.
func ParseDepth(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: depth %q, use 16, 24 or 32", ErrInvalidInput, s)
	}
	if err := ValidateDepth(n); err != nil {
		return 0, err
	}
	return n, nil
}

// ValidateDepth rejects depths the display engines cannot scan out.
func ValidateDepth(depth int) error {
	switch depth {
	case 16, 24, 32:
		return nil
	default:
		return fmt.Errorf("%w: depth %d, use 16, 24 or 32", ErrInvalidInput, depth)
	}
}

// ParseMode resolves a catalog name ("720p60") or a driver mode number.
// Numbers below the driver's mode count that are not in the catalog are
// returned as a bare Mode carrying only the ID.
func ParseMode(s string) (Mode, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n >= int(sunxi.TVModeCount) {
			return Mode{}, fmt.Errorf("%w: mode number %d out of range 0-%d", ErrInvalidInput, n, int(sunxi.TVModeCount)-1)
		}
		if m, ok := ModeByID(sunxi.TVMode(n)); ok {
			return m, nil
		}
		return Mode{ID: sunxi.TVMode(n)}, nil
	}
	if m, ok := ModeByName(s); ok {
		return m, nil
	}
	return Mode{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, s)
}

// ScalingRequest describes a framebuffer of Source size shown on a screen of
// Dest size.
type ScalingRequest struct {
	Source Geometry
	Dest   Geometry
	Depth  int
}

// Validate checks that both sides are non-empty and the depth is supported.
func (r ScalingRequest) Validate() error {
	if r.Source.Width == 0 || r.Source.Height == 0 {
		return fmt.Errorf("%w: framebuffer size %s", ErrInvalidInput, r.Source)
	}
	if r.Dest.Width == 0 || r.Dest.Height == 0 {
		return fmt.Errorf("%w: screen size %s", ErrInvalidInput, r.Dest)
	}
	return ValidateDepth(r.Depth)
}

// NeedsScaling reports whether source and destination sizes differ.
func (r ScalingRequest) NeedsScaling() bool {
	return r.Source != r.Dest
}

func (r ScalingRequest) String() string {
	return fmt.Sprintf("%s -> %s @ %dbpp", r.Source, r.Dest, r.Depth)
}

func parseDim(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errors.New("not a positive number")
	}
	if n == 0 {
		return 0, errors.New("must be non-zero")
	}
	return uint32(n), nil
}
