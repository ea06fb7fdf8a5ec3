//go:build linux

package sunxi

import "fmt"

// DE1Command is a command code of the A10/A20 (sun4i/sun7i) driver.
//
// For commands below 0x280 Words[0] is the screen id; the framebuffer
// commands take the framebuffer id instead.
type DE1Command uint32

// DE1 command codes (drv_display_sun7i.h, Linux 3.4).
const (
	DE1ScreenGetWidth  DE1Command = 0x08
	DE1ScreenGetHeight DE1Command = 0x09
	DE1GetOutputType   DE1Command = 0x0a
	DE1SetScreenSize   DE1Command = 0x1f

	DE1LayerRequest   DE1Command = 0x40
	DE1LayerRelease   DE1Command = 0x41
	DE1LayerOpen      DE1Command = 0x42
	DE1LayerClose     DE1Command = 0x43
	DE1LayerSetFB     DE1Command = 0x44
	DE1LayerGetFB     DE1Command = 0x45
	DE1LayerSetSrcWin DE1Command = 0x46
	DE1LayerGetSrcWin DE1Command = 0x47
	DE1LayerSetScnWin DE1Command = 0x48
	DE1LayerGetScnWin DE1Command = 0x49
	DE1LayerSetPara   DE1Command = 0x4a
	DE1LayerGetPara   DE1Command = 0x4b

	DE1HDMIOn          DE1Command = 0x1c0
	DE1HDMIOff         DE1Command = 0x1c1
	DE1HDMISetMode     DE1Command = 0x1c2
	DE1HDMIGetMode     DE1Command = 0x1c3
	DE1HDMISupportMode DE1Command = 0x1c4
	DE1HDMIGetHPD      DE1Command = 0x1c5

	DE1FBRequest DE1Command = 0x280
	DE1FBRelease DE1Command = 0x281
	DE1FBGetPara DE1Command = 0x282
)

var de1CommandNames = map[DE1Command]string{
	DE1ScreenGetWidth:  "DE1_SCN_GET_WIDTH",
	DE1ScreenGetHeight: "DE1_SCN_GET_HEIGHT",
	DE1GetOutputType:   "DE1_GET_OUTPUT_TYPE",
	DE1SetScreenSize:   "DE1_SET_SCREEN_SIZE",
	DE1LayerRequest:    "DE1_LAYER_REQUEST",
	DE1LayerRelease:    "DE1_LAYER_RELEASE",
	DE1LayerOpen:       "DE1_LAYER_OPEN",
	DE1LayerClose:      "DE1_LAYER_CLOSE",
	DE1LayerSetFB:      "DE1_LAYER_SET_FB",
	DE1LayerGetFB:      "DE1_LAYER_GET_FB",
	DE1LayerSetSrcWin:  "DE1_LAYER_SET_SRC_WIN",
	DE1LayerGetSrcWin:  "DE1_LAYER_GET_SRC_WIN",
	DE1LayerSetScnWin:  "DE1_LAYER_SET_SCN_WIN",
	DE1LayerGetScnWin:  "DE1_LAYER_GET_SCN_WIN",
	DE1LayerSetPara:    "DE1_LAYER_SET_PARA",
	DE1LayerGetPara:    "DE1_LAYER_GET_PARA",
	DE1HDMIOn:          "DE1_HDMI_ON",
	DE1HDMIOff:         "DE1_HDMI_OFF",
	DE1HDMISetMode:     "DE1_HDMI_SET_MODE",
	DE1HDMIGetMode:     "DE1_HDMI_GET_MODE",
	DE1HDMISupportMode: "DE1_HDMI_SUPPORT_MODE",
	DE1HDMIGetHPD:      "DE1_HDMI_GET_HPD",
	DE1FBRequest:       "DE1_FB_REQUEST",
	DE1FBRelease:       "DE1_FB_RELEASE",
	DE1FBGetPara:       "DE1_FB_GET_PARA",
}

// Code implements Command.
func (c DE1Command) Code() uint32 { return uint32(c) }

func (c DE1Command) String() string {
	if name, ok := de1CommandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("DE1_CMD_0x%x", uint32(c))
}

// DE1PixelFormat is __disp_pixel_fmt_t.
type DE1PixelFormat uint32

// DE1 pixel formats.
const (
	DE1Format1BPP     DE1PixelFormat = 0x0
	DE1Format2BPP     DE1PixelFormat = 0x1
	DE1Format4BPP     DE1PixelFormat = 0x2
	DE1Format8BPP     DE1PixelFormat = 0x3
	DE1FormatRGB655   DE1PixelFormat = 0x4
	DE1FormatRGB565   DE1PixelFormat = 0x5
	DE1FormatRGB556   DE1PixelFormat = 0x6
	DE1FormatARGB1555 DE1PixelFormat = 0x7
	DE1FormatRGBA5551 DE1PixelFormat = 0x8
	DE1FormatARGB888  DE1PixelFormat = 0x9
	DE1FormatARGB8888 DE1PixelFormat = 0xa
	DE1FormatRGB888   DE1PixelFormat = 0xb
	DE1FormatARGB4444 DE1PixelFormat = 0xc
)

// DE1FormatForDepth maps a framebuffer depth to the layer pixel format.
func DE1FormatForDepth(depth int) DE1PixelFormat {
	switch depth {
	case 16:
		return DE1FormatRGB565
	case 24:
		return DE1FormatRGB888
	default:
		return DE1FormatARGB8888
	}
}

// DE1PixelSeq is __disp_pixel_seq_t.
type DE1PixelSeq uint32

// DE1 pixel sequences used for RGB layers.
const (
	DE1SeqARGB  DE1PixelSeq = 0x0
	DE1SeqBGRA  DE1PixelSeq = 0x2
	DE1SeqP3210 DE1PixelSeq = 0xf
)

// DE1PixelMode is __disp_pixel_mod_t.
type DE1PixelMode uint32

// DE1ModeInterleaved is the only pixel mode used for RGB framebuffers.
const DE1ModeInterleaved DE1PixelMode = 0x1

// DE1ColorSpace is __disp_cs_mode_t.
type DE1ColorSpace uint32

// DE1 color spaces.
const (
	DE1BT601 DE1ColorSpace = 0
	DE1BT709 DE1ColorSpace = 1
)

// DE1WorkMode is __disp_layer_work_mode_t.
type DE1WorkMode uint32

// DE1 layer work modes.
const (
	DE1WorkModeNormal   DE1WorkMode = 0
	DE1WorkModePalette  DE1WorkMode = 1
	DE1WorkModeInterBuf DE1WorkMode = 2
	DE1WorkModeGamma    DE1WorkMode = 3
	DE1WorkModeScaler   DE1WorkMode = 4
)

func (m DE1WorkMode) String() string {
	switch m {
	case DE1WorkModeNormal:
		return "NORMAL"
	case DE1WorkModePalette:
		return "PALETTE"
	case DE1WorkModeInterBuf:
		return "INTER_BUF"
	case DE1WorkModeGamma:
		return "GAMMA"
	case DE1WorkModeScaler:
		return "SCALER"
	default:
		return fmt.Sprintf("WORK_MODE_%d", uint32(m))
	}
}

// DE1FBMode is __fb_mode_t.
type DE1FBMode uint32

// DE1 framebuffer modes.
const (
	DE1FBModeScreen0 DE1FBMode = 0
	DE1FBModeScreen1 DE1FBMode = 1
)

// DE1Framebuffer is __disp_fb_t, 64 bytes. __bool is a signed char and every
// enum is four bytes wide.
type DE1Framebuffer struct {
	Addr         [3]uint32      // offset 0
	Size         RectSize       // offset 12
	Format       DE1PixelFormat // offset 20
	Seq          DE1PixelSeq    // offset 24
	Mode         DE1PixelMode   // offset 28
	BRSwap       int8           // offset 32
	_            [3]byte
	CSMode       DE1ColorSpace // offset 36
	TrdSrc       int8          // offset 40
	_            [3]byte
	TrdMode      uint32    // offset 44
	TrdRightAddr [3]uint32 // offset 48
	PreMultiply  int8      // offset 60
	_            [3]byte
}

// DE1LayerInfo is __disp_layer_info_t, 116 bytes.
type DE1LayerInfo struct {
	Mode       DE1WorkMode // offset 0
	FromScreen int8        // offset 4
	Pipe       uint8       // offset 5
	Prio       uint8       // offset 6
	AlphaEn    int8        // offset 7
	AlphaVal   uint16      // offset 8
	CKEnable   int8        // offset 10
	_          [1]byte
	SrcWin     Rect           // offset 12
	ScnWin     Rect           // offset 28
	FB         DE1Framebuffer // offset 44
	TrdOut     int8           // offset 108
	_          [3]byte
	OutTrdMode uint32 // offset 112
}

// DE1FramebufferCreate is __disp_fb_create_para_t, 56 bytes. LineLength and
// SmemLen are filled in by the driver on FB_REQUEST.
type DE1FramebufferCreate struct {
	FBMode          DE1FBMode   // offset 0
	Mode            DE1WorkMode // offset 4
	BufferNum       uint32      // offset 8
	Width           uint32      // offset 12
	Height          uint32      // offset 16
	OutputWidth     uint32      // offset 20
	OutputHeight    uint32      // offset 24
	PrimaryScreenID uint32      // offset 28
	AuxOutputWidth  uint32      // offset 32
	AuxOutputHeight uint32      // offset 36
	LineLength      uint32      // offset 40
	SmemLen         uint32      // offset 44
	Ch1Offset       uint32      // offset 48
	Ch2Offset       uint32      // offset 52
}
