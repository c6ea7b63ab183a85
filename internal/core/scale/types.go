package scale

import "fmt"

type HintStyle uint8

const (
	HintNone HintStyle = iota
	HintSlight
	HintMedium
	HintFull
)

// String returns the fontconfig spelling used by Xft/HintStyle and Xft.hintstyle.
func (h HintStyle) String() string {
	switch h {
	case HintNone:
		return "hintnone"
	case HintSlight:
		return "hintslight"
	case HintMedium:
		return "hintmedium"
	case HintFull:
		return "hintfull"
	default:
		return fmt.Sprintf("hintstyle(%d)", uint8(h))
	}
}

type SubpixelOrder uint8

const (
	SubpixelNone SubpixelOrder = iota
	SubpixelRGB
	SubpixelBGR
	SubpixelVRGB
	SubpixelVBGR
)

func (s SubpixelOrder) String() string {
	switch s {
	case SubpixelNone:
		return "none"
	case SubpixelRGB:
		return "rgb"
	case SubpixelBGR:
		return "bgr"
	case SubpixelVRGB:
		return "vrgb"
	case SubpixelVBGR:
		return "vbgr"
	default:
		return fmt.Sprintf("subpixel(%d)", uint8(s))
	}
}

const (
	LCDFilterDefault = "lcddefault"
	LCDFilterNone    = "none"
)

// Settings is one resolved snapshot. DPI values are in 1/1024 inch units.
// CursorSize is the configured, unscaled size.
type Settings struct {
	Antialias     bool
	Hinting       bool
	HintStyle     HintStyle
	SubpixelOrder SubpixelOrder
	LCDFilter     string
	WindowScale   int
	DPIUnscaled   int
	DPIScaled     int
	CursorTheme   string
	CursorSize    int
}

type Rect struct {
	X, Y          int
	Width, Height int
}

// Output describes the primary display output.
type Output struct {
	Name     string
	Rect     Rect
	Scale    int
	WidthMM  int
	HeightMM int
}

// ScreenSize is the size the display server reports for the whole screen.
type ScreenSize struct {
	Width, Height     int
	WidthMM, HeightMM int
}

// Geometry is implemented by the display adapter.
type Geometry interface {
	PrimaryOutput() (Output, error)
	ScreenSize() (ScreenSize, error)
}
