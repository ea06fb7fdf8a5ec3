//go:build linux

package sunxi

import "fmt"

// DE2Command is a command code of the H3/H5/A64 (sun8iw7/sun50iw1) driver.
type DE2Command uint32

// DE2 command codes (sunxi_display2.h, Linux 3.4/3.10 BSP).
const (
	DE2SetBackColor    DE2Command = 0x03
	DE2GetScreenWidth  DE2Command = 0x07
	DE2GetScreenHeight DE2Command = 0x08
	DE2GetOutputType   DE2Command = 0x09
	DE2DeviceSwitch    DE2Command = 0x0f
	DE2GetOutput       DE2Command = 0x10
	DE2LayerEnable     DE2Command = 0x40
	DE2LayerDisable    DE2Command = 0x41
	DE2LayerSetInfo    DE2Command = 0x42
	DE2LayerGetInfo    DE2Command = 0x43
	DE2LayerSetConfig  DE2Command = 0x47
	DE2LayerGetConfig  DE2Command = 0x48
	DE2HDMISupportMode DE2Command = 0xc4
	DE2HDMIGetEDID     DE2Command = 0xc6
	DE2FBRequest       DE2Command = 0x280
	DE2FBRelease       DE2Command = 0x281
)

var de2CommandNames = map[DE2Command]string{
	DE2SetBackColor:    "DE2_SET_BKCOLOR",
	DE2GetScreenWidth:  "DE2_GET_SCN_WIDTH",
	DE2GetScreenHeight: "DE2_GET_SCN_HEIGHT",
	DE2GetOutputType:   "DE2_GET_OUTPUT_TYPE",
	DE2DeviceSwitch:    "DE2_DEVICE_SWITCH",
	DE2GetOutput:       "DE2_GET_OUTPUT",
	DE2LayerEnable:     "DE2_LAYER_ENABLE",
	DE2LayerDisable:    "DE2_LAYER_DISABLE",
	DE2LayerSetInfo:    "DE2_LAYER_SET_INFO",
	DE2LayerGetInfo:    "DE2_LAYER_GET_INFO",
	DE2LayerSetConfig:  "DE2_LAYER_SET_CONFIG",
	DE2LayerGetConfig:  "DE2_LAYER_GET_CONFIG",
	DE2HDMISupportMode: "DE2_HDMI_SUPPORT_MODE",
	DE2HDMIGetEDID:     "DE2_HDMI_GET_EDID",
	DE2FBRequest:       "DE2_FB_REQUEST",
	DE2FBRelease:       "DE2_FB_RELEASE",
}

// Code implements Command.
func (c DE2Command) Code() uint32 { return uint32(c) }

func (c DE2Command) String() string {
	if name, ok := de2CommandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("DE2_CMD_0x%x", uint32(c))
}

// DE2PixelFormat is disp_pixel_format.
type DE2PixelFormat uint32

// DE2 RGB pixel formats.
const (
	DE2FormatARGB8888 DE2PixelFormat = 0x00
	DE2FormatABGR8888 DE2PixelFormat = 0x01
	DE2FormatRGBA8888 DE2PixelFormat = 0x02
	DE2FormatBGRA8888 DE2PixelFormat = 0x03
	DE2FormatXRGB8888 DE2PixelFormat = 0x04
	DE2FormatXBGR8888 DE2PixelFormat = 0x05
	DE2FormatRGBX8888 DE2PixelFormat = 0x06
	DE2FormatBGRX8888 DE2PixelFormat = 0x07
	DE2FormatRGB888   DE2PixelFormat = 0x08
	DE2FormatBGR888   DE2PixelFormat = 0x09
	DE2FormatRGB565   DE2PixelFormat = 0x0a
	DE2FormatBGR565   DE2PixelFormat = 0x0b
)

// DE2LayerMode is disp_layer_mode.
type DE2LayerMode uint32

// DE2 layer modes.
const (
	DE2LayerModeBuffer DE2LayerMode = 0
	DE2LayerModeColor  DE2LayerMode = 1
)

// Rect64 is disp_rect64, 32 bytes. DE2 crop rectangles are 32.32 fixed point.
type Rect64 struct {
	X      int64
	Y      int64
	Width  int64
	Height int64
}

// Fixed32 converts a 32.32 fixed-point crop value to its integer part.
func Fixed32(v int64) int64 {
	return v >> 32
}

// DE2FramebufferInfo is disp_fb_info, 128 bytes. 64-bit members are 8-byte
// aligned as on ARM EABI and arm64.
type DE2FramebufferInfo struct {
	Addr         [3]uint64      // offset 0
	Size         [3]RectSize    // offset 24
	Align        [3]uint32      // offset 48
	Format       DE2PixelFormat // offset 60
	ColorSpace   uint32         // offset 64
	TrdRightAddr [3]uint32      // offset 68
	PreMultiply  bool           // offset 80
	_            [7]byte
	Crop         Rect64 // offset 88
	Flags        uint32 // offset 120
	Scan         uint32 // offset 124
}

// DE2LayerInfo is disp_layer_info, 168 bytes. The anonymous union of a solid
// color and the framebuffer description starts at offset 32; the color
// shares its first four bytes with FB.Addr[0].
type DE2LayerInfo struct {
	Mode       DE2LayerMode // offset 0
	ZOrder     uint8        // offset 4
	AlphaMode  uint8        // offset 5
	AlphaValue uint8        // offset 6
	_          [1]byte
	ScreenWin  Rect // offset 8
	TrdOut     bool // offset 24
	_          [3]byte
	OutTrdMode uint32             // offset 28
	FB         DE2FramebufferInfo // offset 32
	ID         uint32             // offset 160
	_          [4]byte
}

// Color returns the union member used in DE2LayerModeColor.
func (l *DE2LayerInfo) Color() uint32 {
	return uint32(l.FB.Addr[0])
}

// DE2LayerConfig is disp_layer_config, 184 bytes.
type DE2LayerConfig struct {
	Info    DE2LayerInfo // offset 0
	Enable  bool         // offset 168
	_       [3]byte
	Channel uint32 // offset 172
	LayerID uint32 // offset 176
	_       [4]byte
}

// DE2Output is disp_output, the device-switch descriptor read by GET_OUTPUT.
type DE2Output struct {
	Type OutputType
	Mode TVMode
}

// DE2FramebufferCreate is disp_fb_create_info, 28 bytes.
type DE2FramebufferCreate struct {
	FBMode       uint32
	Mode         DE2LayerMode
	BufferNum    uint32
	Width        uint32
	Height       uint32
	OutputWidth  uint32
	OutputHeight uint32
}
