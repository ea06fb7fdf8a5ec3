package display

import (
	"fmt"
	"strings"

	"github.com/smazurov/sunxidisp/pkg/linuxav/sunxi"
)

// Mode is an HDMI timing mode known to both display engines.
type Mode struct {
	ID      sunxi.TVMode
	Name    string
	Width   uint32
	Height  uint32
	Refresh uint32
}

// DefaultMode is used when output has to be brought up without a usable
// current mode. 720p50 is accepted by practically every HDMI sink.
var DefaultMode = Mode{sunxi.TVMode720P50, "720p50", 1280, 720, 50}

// catalog order matters: resolution lookups without a refresh rate return
// the first match.
var catalog = []Mode{
	{sunxi.TVMode480I, "480i", 720, 480, 60},
	{sunxi.TVMode576I, "576i", 720, 576, 50},
	{sunxi.TVMode480P, "480p", 720, 480, 60},
	{sunxi.TVMode576P, "576p", 720, 576, 50},
	DefaultMode,
	{sunxi.TVMode720P60, "720p60", 1280, 720, 60},
	{sunxi.TVMode1080I50, "1080i50", 1920, 1080, 50},
	{sunxi.TVMode1080I60, "1080i60", 1920, 1080, 60},
	{sunxi.TVMode1080P24, "1080p24", 1920, 1080, 24},
	{sunxi.TVMode1080P50, "1080p50", 1920, 1080, 50},
	{sunxi.TVMode1080P60, "1080p60", 1920, 1080, 60},
	{sunxi.TVMode1080P25, "1080p25", 1920, 1080, 25},
	{sunxi.TVMode1080P30, "1080p30", 1920, 1080, 30},
	{sunxi.TVMode2160P30, "2160p30", 3840, 2160, 30},
	{sunxi.TVMode2160P25, "2160p25", 3840, 2160, 25},
	{sunxi.TVMode2160P24, "2160p24", 3840, 2160, 24},
}

// Modes returns a copy of the catalog in table order.
func Modes() []Mode {
	out := make([]Mode, len(catalog))
	copy(out, catalog)
	return out
}

// ModeByID looks a mode up by its driver identifier.
func ModeByID(id sunxi.TVMode) (Mode, bool) {
	for _, m := range catalog {
		if m.ID == id {
			return m, true
		}
	}
	return Mode{}, false
}

// ModeByName looks a mode up by name, ignoring case.
func ModeByName(name string) (Mode, bool) {
	for _, m := range catalog {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return Mode{}, false
}

// ModeByResolution returns the first mode with the given size. A refresh of
// zero matches any rate.
func ModeByResolution(width, height, refresh uint32) (Mode, bool) {
	for _, m := range catalog {
		if m.Width == width && m.Height == height && (refresh == 0 || m.Refresh == refresh) {
			return m, true
		}
	}
	return Mode{}, false
}

// UHD reports whether the mode is one of the 2160p timings only DE2 drives.
func (m Mode) UHD() bool {
	return m.Height >= 2160
}

func (m Mode) String() string {
	if m.Name == "" {
		return fmt.Sprintf("mode %d", int32(m.ID))
	}
	return fmt.Sprintf("%s (%dx%d @ %dHz)", m.Name, m.Width, m.Height, m.Refresh)
}
