package brush

import (
	"image/color"
	"math"

	"CrayonBoard/internal/state"

	"github.com/lucasb-eyer/go-colorful"
)

// Point is a pointer sample in canvas coordinates.
type Point = state.Point

// Params is the crayon brush configuration. It is captured by value when a
// stroke begins, so edits made while drawing only affect the next stroke.
type Params struct {
	Color             string  `json:"color" toml:"color"`
	Width             float64 `json:"width" toml:"width"`
	Opacity           float64 `json:"opacity" toml:"opacity"`
	TextureScale      float64 `json:"textureScale" toml:"texture_scale"`
	StrokeVariation   float64 `json:"strokeVariation" toml:"stroke_variation"`
	PressureVariation float64 `json:"pressureVariation" toml:"pressure_variation"`
	Graininess        float64 `json:"graininess" toml:"graininess"`
	StrokeCount       int     `json:"strokeCount" toml:"stroke_count"`
	GrainSize         int     `json:"grainSize" toml:"grain_size"`

	// Animated strokes are emitted with a copy of Animation.
	Animated  bool                    `json:"animated" toml:"animated"`
	Animation state.AnimationSettings `json:"animation" toml:"animation"`
}

// DefaultParams returns the stock crayon.
func DefaultParams() Params {
	return Params{
		Color:             "#000000",
		Width:             10,
		Opacity:           0.8,
		TextureScale:      2,
		StrokeVariation:   0.5,
		PressureVariation: 0.3,
		Graininess:        0.7,
		StrokeCount:       5,
		GrainSize:         3,
		Animated:          true,
		Animation:         state.SubtleAnimation,
	}
}

// Normalize clamps every field into its usable range.
func (p Params) Normalize() Params {
	if !(p.Width > 0) || math.IsInf(p.Width, 0) {
		p.Width = 1
	}
	p.Opacity = clamp01(p.Opacity)
	if !(p.TextureScale >= 1) || math.IsInf(p.TextureScale, 0) {
		p.TextureScale = 1
	}
	p.StrokeVariation = clamp01(p.StrokeVariation)
	p.PressureVariation = clamp01(p.PressureVariation)
	p.Graininess = clamp01(p.Graininess)
	p.StrokeCount = max(p.StrokeCount, 1)
	p.GrainSize = max(p.GrainSize, 1)
	p.Animation = p.Animation.Sanitize()
	return p
}

// NRGBA parses Color. Unparseable colours fall back to black.
func (p Params) NRGBA() color.NRGBA {
	c, err := colorful.Hex(p.Color)
	if err != nil {
		state.Logger().Warn("[BRUSH] bad colour, using black", "color", p.Color, "err", err)
		return color.NRGBA{A: 0xff}
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}
}

// margin is how far a stroke can reach past its samples once line width
// and jitter are applied.
func (p Params) margin() float64 {
	return p.Width * p.TextureScale * (1 + p.StrokeVariation)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(math.Max(v, 0), 1)
}
