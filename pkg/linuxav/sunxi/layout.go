//go:build linux

package sunxi

import (
	"errors"
	"fmt"
	"strings"
)

// ErrLayoutMismatch reports that a wire structure does not encode to the size
// or field offsets the driver expects.
var ErrLayoutMismatch = errors.New("wire structure layout mismatch")

// LayoutCheck is one size or offset assertion of the kernel contract.
type LayoutCheck struct {
	Struct string
	Field  string // empty for a size check
	Want   int
	Got    int
}

// OK reports whether the encoded value matches the contract.
func (c LayoutCheck) OK() bool {
	return c.Want == c.Got
}

func (c LayoutCheck) String() string {
	what := "sizeof(" + c.Struct + ")"
	if c.Field != "" {
		what = "offsetof(" + c.Struct + "." + c.Field + ")"
	}
	if c.OK() {
		return fmt.Sprintf("%s = %d", what, c.Got)
	}
	return fmt.Sprintf("%s = %d, want %d", what, c.Got, c.Want)
}

// LayoutError lists every failed assertion.
type LayoutError struct {
	Failed []LayoutCheck
}

func (e *LayoutError) Error() string {
	parts := make([]string, len(e.Failed))
	for i, c := range e.Failed {
		parts[i] = c.String()
	}
	return fmt.Sprintf("%v: %s", ErrLayoutMismatch, strings.Join(parts, "; "))
}

func (e *LayoutError) Unwrap() error {
	return ErrLayoutMismatch
}

type sizeProbe struct {
	name string
	v    any
	want int
}

// offsetProbe sets exactly one field to a value whose every byte is non-zero,
// so the first non-zero byte of the encoding is the field offset regardless
// of byte order.
type offsetProbe struct {
	st    string
	field string
	want  int
	set   func() any
}

var sizeProbes = []sizeProbe{
	{"disp_rect", &Rect{}, 16},
	{"disp_rectsz", &RectSize{}, 8},
	{"__disp_fb_t", &DE1Framebuffer{}, 64},
	{"__disp_layer_info_t", &DE1LayerInfo{}, 116},
	{"__disp_fb_create_para_t", &DE1FramebufferCreate{}, 56},
	{"disp_rect64", &Rect64{}, 32},
	{"disp_fb_info", &DE2FramebufferInfo{}, 128},
	{"disp_layer_info", &DE2LayerInfo{}, 168},
	{"disp_layer_config", &DE2LayerConfig{}, 184},
	{"disp_output", &DE2Output{}, 8},
	{"disp_fb_create_info", &DE2FramebufferCreate{}, 28},
}

var offsetProbes = []offsetProbe{
	{"__disp_fb_t", "size", 12, func() any { return &DE1Framebuffer{Size: RectSize{Width: ^uint32(0)}} }},
	{"__disp_fb_t", "format", 20, func() any { return &DE1Framebuffer{Format: ^DE1PixelFormat(0)} }},
	{"__disp_fb_t", "br_swap", 32, func() any { return &DE1Framebuffer{BRSwap: -1} }},
	{"__disp_fb_t", "cs_mode", 36, func() any { return &DE1Framebuffer{CSMode: ^DE1ColorSpace(0)} }},
	{"__disp_fb_t", "trd_right_addr", 48, func() any { return &DE1Framebuffer{TrdRightAddr: [3]uint32{^uint32(0)}} }},
	{"__disp_fb_t", "pre_multiply", 60, func() any { return &DE1Framebuffer{PreMultiply: -1} }},
	{"__disp_layer_info_t", "alpha_val", 8, func() any { return &DE1LayerInfo{AlphaVal: 0xffff} }},
	{"__disp_layer_info_t", "src_win", 12, func() any { return &DE1LayerInfo{SrcWin: Rect{X: -1}} }},
	{"__disp_layer_info_t", "scn_win", 28, func() any { return &DE1LayerInfo{ScnWin: Rect{X: -1}} }},
	{"__disp_layer_info_t", "fb", 44, func() any { return &DE1LayerInfo{FB: DE1Framebuffer{Addr: [3]uint32{^uint32(0)}}} }},
	{"__disp_layer_info_t", "b_trd_out", 108, func() any { return &DE1LayerInfo{TrdOut: -1} }},
	{"__disp_layer_info_t", "out_trd_mode", 112, func() any { return &DE1LayerInfo{OutTrdMode: ^uint32(0)} }},
	{"__disp_fb_create_para_t", "line_length", 40, func() any { return &DE1FramebufferCreate{LineLength: ^uint32(0)} }},
	{"__disp_fb_create_para_t", "smem_len", 44, func() any { return &DE1FramebufferCreate{SmemLen: ^uint32(0)} }},
	{"disp_fb_info", "crop", 88, func() any { return &DE2FramebufferInfo{Crop: Rect64{X: -1}} }},
	{"disp_layer_info", "fb", 32, func() any { return &DE2LayerInfo{FB: DE2FramebufferInfo{Addr: [3]uint64{^uint64(0)}}} }},
	{"disp_layer_info", "id", 160, func() any { return &DE2LayerInfo{ID: ^uint32(0)} }},
	{"disp_layer_config", "enable", 168, func() any { return &DE2LayerConfig{Enable: true} }},
	{"disp_layer_config", "layer_id", 176, func() any { return &DE2LayerConfig{LayerID: ^uint32(0)} }},
}

// Layout returns every size and offset assertion with the measured value.
func Layout() []LayoutCheck {
	return measureLayout(sizeProbes, offsetProbes)
}

// measureLayout reports a type that cannot be encoded as a failed check with
// Got -1.
func measureLayout(sizes []sizeProbe, offsets []offsetProbe) []LayoutCheck {
	checks := make([]LayoutCheck, 0, len(sizes)+len(offsets))
	for _, p := range sizes {
		checks = append(checks, LayoutCheck{Struct: p.name, Want: p.want, Got: SizeOf(p.v)})
	}
	for _, p := range offsets {
		got := -1
		if b, err := Marshal(p.set()); err == nil {
			got = firstSet(b)
		}
		checks = append(checks, LayoutCheck{Struct: p.st, Field: p.field, Want: p.want, Got: got})
	}
	return checks
}

// CheckLayout verifies the kernel contract and returns a *LayoutError listing
// the failures, or nil.
func CheckLayout() error {
	var failed []LayoutCheck
	for _, c := range Layout() {
		if !c.OK() {
			failed = append(failed, c)
		}
	}
	if len(failed) > 0 {
		return &LayoutError{Failed: failed}
	}
	return nil
}

func firstSet(b []byte) int {
	for i, v := range b {
		if v != 0 {
			return i
		}
	}
	return -1
}
