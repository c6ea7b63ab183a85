// Package scale resolves the effective window scale factor, DPI and font
// rendering parameters from configuration overrides and output geometry.
package scale

import (
	"errors"
	"fmt"
	"math"

	"github.com/zeusync/xsyncd/internal/core/observability/log"
	"github.com/zeusync/xsyncd/internal/core/settings"
)

const (
	FallbackDPI = 96.0
	MinDPI      = 50.0
	MaxDPI      = 500.0

	// HiDPIThreshold is the per-axis density above which auto-detection picks 2.
	HiDPIThreshold = 2 * FallbackDPI
	// MinLogicalHeight is the smallest output height that can fit a doubled UI.
	MinLogicalHeight = 1500
	MaxAutoScale     = 2

	DefaultCursorTheme = "default"
	DefaultCursorSize  = 24

	mmPerInch = 25.4
)

// ErrGeometry is wrapped by every geometry query failure.
var ErrGeometry = errors.New("geometry unavailable")

// Physical sizes some monitors report that encode an aspect ratio rather
// than a size.
var bogusPhysicalSizes = [...][2]int{
	{160, 90},
	{160, 100},
	{16, 9},
	{16, 10},
}

type Resolver struct {
	store    settings.Reader
	geometry Geometry
	logger   log.Log
}

func NewResolver(store settings.Reader, geometry Geometry, logger log.Log) *Resolver {
	return &Resolver{
		store:    store,
		geometry: geometry,
		logger:   logger.With(log.String("component", "scale")),
	}
}

// Resolve produces a fresh snapshot. Geometry failures fall back to scale 1
// and the fallback DPI; they are never returned.
func (r *Resolver) Resolve() Settings {
	s := Settings{}

	s.WindowScale = r.windowScale()
	dpi := r.dpi(s.WindowScale)
	s.DPIScaled = int(math.Round(dpi * 1024))
	s.DPIUnscaled = int(math.Round(dpi / float64(s.WindowScale) * 1024))

	r.fontRendering(&s)

	s.CursorTheme = DefaultCursorTheme
	if theme, ok := r.store.String(settings.SchemaMouse, settings.KeyCursorTheme); ok && theme != "" {
		s.CursorTheme = theme
	}
	s.CursorSize = DefaultCursorSize
	if size, ok := r.store.Int(settings.SchemaMouse, settings.KeyCursorSize); ok && size > 0 {
		s.CursorSize = size
	}

	r.logger.Debug("Resolved display settings",
		log.Int("window_scale", s.WindowScale),
		log.Float64("dpi", dpi),
		log.String("hint_style", s.HintStyle.String()),
		log.String("rgba", s.SubpixelOrder.String()))
	return s
}

func (r *Resolver) windowScale() int {
	if override, ok := r.store.Int(settings.SchemaXSettings, settings.KeyScalingFactor); ok && override > 0 {
		return override
	}

	out, err := r.geometry.PrimaryOutput()
	if err != nil {
		r.logger.Warn("Cannot query primary output, assuming scale 1", log.Error(err))
		return 1
	}
	return AutoWindowScale(out)
}

// AutoWindowScale picks 1 or 2 for an output from its density.
func AutoWindowScale(out Output) int {
	for _, bogus := range bogusPhysicalSizes {
		if out.WidthMM == bogus[0] && out.HeightMM == bogus[1] {
			return 1
		}
	}
	if out.WidthMM <= 0 || out.HeightMM <= 0 {
		return 1
	}

	perOutput := out.Scale
	if perOutput < 1 {
		perOutput = 1
	}
	if out.Rect.Height*perOutput < MinLogicalHeight {
		return 1
	}

	dpiX := float64(out.Rect.Width*perOutput) / (float64(out.WidthMM) / mmPerInch)
	dpiY := float64(out.Rect.Height*perOutput) / (float64(out.HeightMM) / mmPerInch)
	if dpiX > HiDPIThreshold && dpiY > HiDPIThreshold {
		return MaxAutoScale
	}
	return 1
}

func (r *Resolver) dpi(windowScale int) float64 {
	dpi, ok := r.store.Float(settings.SchemaXSettings, settings.KeyDPI)
	if !ok || dpi <= 0 {
		dpi = r.reportedDPI()
	}
	return clampDPI(dpi * float64(windowScale))
}

func (r *Resolver) reportedDPI() float64 {
	size, err := r.geometry.ScreenSize()
	if err != nil {
		r.logger.Warn("Cannot query screen size, using fallback DPI", log.Error(err))
		return FallbackDPI
	}
	dpi, err := ReportedDPI(size)
	if err != nil {
		r.logger.Debug("Ignoring reported screen DPI", log.Error(err))
		return FallbackDPI
	}
	return dpi
}

// ReportedDPI averages the per-axis density of a screen and rejects values
// outside the plausible band.
func ReportedDPI(size ScreenSize) (float64, error) {
	if size.WidthMM <= 0 || size.HeightMM <= 0 {
		return 0, fmt.Errorf("%w: screen reports no physical size", ErrGeometry)
	}
	dpiX := float64(size.Width) / (float64(size.WidthMM) / mmPerInch)
	dpiY := float64(size.Height) / (float64(size.HeightMM) / mmPerInch)
	dpi := (dpiX + dpiY) / 2
	if dpi < MinDPI || dpi > MaxDPI {
		return 0, fmt.Errorf("implausible screen DPI %.1f", dpi)
	}
	return dpi, nil
}

func clampDPI(dpi float64) float64 {
	return math.Min(MaxDPI, math.Max(MinDPI, dpi))
}

func (r *Resolver) fontRendering(s *Settings) {
	s.Antialias = true
	s.SubpixelOrder = SubpixelRGB

	order := SubpixelRGB
	if v, ok := r.store.String(settings.SchemaFontRendering, settings.KeyRGBAOrder); ok {
		switch v {
		case "bgr":
			order = SubpixelBGR
		case "vrgb":
			order = SubpixelVRGB
		case "vbgr":
			order = SubpixelVBGR
		}
	}

	mode, _ := r.store.String(settings.SchemaFontRendering, settings.KeyAntialiasing)
	switch mode {
	case "none":
		s.Antialias = false
		s.SubpixelOrder = SubpixelNone
	case "grayscale":
		s.SubpixelOrder = SubpixelNone
	default:
		s.SubpixelOrder = order
	}

	s.LCDFilter = LCDFilterNone
	if s.SubpixelOrder != SubpixelNone {
		s.Antialias = true
		s.LCDFilter = LCDFilterDefault
	}

	s.HintStyle = HintSlight
	if v, ok := r.store.String(settings.SchemaFontRendering, settings.KeyHinting); ok {
		switch v {
		case "none":
			s.HintStyle = HintNone
		case "medium":
			s.HintStyle = HintMedium
		case "full":
			s.HintStyle = HintFull
		}
	}
	s.Hinting = s.HintStyle != HintNone
}
