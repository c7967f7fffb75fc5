package state

import (
	"image"
	"math"

	"golang.org/x/image/math/f64"
)

// Zoom limits of the board viewport.
const (
	MinZoom = 0.3
	MaxZoom = 3.0
)

// RenderArea is a user chosen capture rectangle in screen space.
type RenderArea struct {
	X      float64 `json:"x" toml:"x"`
	Y      float64 `json:"y" toml:"y"`
	Width  float64 `json:"width" toml:"width"`
	Height float64 `json:"height" toml:"height"`
}

// Valid reports whether the area has a positive size.
func (a RenderArea) Valid() bool {
	return a.Width > 0 && a.Height > 0 &&
		!math.IsNaN(a.Width) && !math.IsNaN(a.Height)
}

// ToCanvas translates a screen-space area into canvas-element-local
// coordinates given the top-left of the canvas element on screen.
func (a RenderArea) ToCanvas(canvasOrigin Point) RenderArea {
	a.X -= canvasOrigin.X
	a.Y -= canvasOrigin.Y
	return a
}

// Rect returns the pixel rectangle covered by the area.
func (a RenderArea) Rect() image.Rectangle {
	x0 := int(math.Floor(a.X))
	y0 := int(math.Floor(a.Y))
	return image.Rect(x0, y0, x0+int(math.Round(a.Width)), y0+int(math.Round(a.Height)))
}

// Overlaps reports whether two areas intersect.
func (a RenderArea) Overlaps(b RenderArea) bool {
	return !(a.X+a.Width < b.X || b.X+b.Width < a.X ||
		a.Y+a.Height < b.Y || b.Y+b.Height < a.Y)
}

// Contains reports whether p lies inside the area.
func (a RenderArea) Contains(p Point) bool {
	return p.X >= a.X && p.X <= a.X+a.Width &&
		p.Y >= a.Y && p.Y <= a.Y+a.Height
}

// AreaPreset is a named capture size.
type AreaPreset struct {
	Name          string
	Width, Height float64
}

// AreaPresets are the sizes offered next to a free drag.
var AreaPresets = []AreaPreset{
	{Name: "1:1", Width: 400, Height: 400},
	{Name: "3:4", Width: 300, Height: 400},
	{Name: "5:3", Width: 500, Height: 300},
	{Name: "9:16", Width: 240, Height: 426},
}

// PresetByName looks a preset up by its name.
func PresetByName(name string) (AreaPreset, bool) {
	for _, p := range AreaPresets {
		if p.Name == name {
			return p, true
		}
	}
	return AreaPreset{}, false
}

// Centered places the preset in the middle of a w by h screen, never
// left of or above its origin.
func (p AreaPreset) Centered(w, h float64) RenderArea {
	return RenderArea{
		X:      math.Max(0, w/2-p.Width/2),
		Y:      math.Max(0, h/2-p.Height/2),
		Width:  p.Width,
		Height: p.Height,
	}
}

// Viewport is the pan/zoom of the board: screen = canvas*Zoom + Pan.
type Viewport struct {
	Zoom float64 `json:"zoom"`
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
}

// DefaultViewport shows the canvas 1:1.
func DefaultViewport() Viewport { return Viewport{Zoom: 1} }

func (v Viewport) zoom() float64 {
	if v.Zoom <= 0 || math.IsNaN(v.Zoom) {
		return 1
	}
	return v.Zoom
}

// Matrix maps canvas coordinates to screen coordinates.
func (v Viewport) Matrix() f64.Aff3 {
	z := v.zoom()
	return f64.Aff3{z, 0, v.PanX, 0, z, v.PanY}
}

// ToScreen maps a canvas point to the screen.
func (v Viewport) ToScreen(p Point) Point { return Apply(v.Matrix(), p) }

// ToCanvas maps a screen point to canvas coordinates.
func (v Viewport) ToCanvas(p Point) Point {
	z := v.zoom()
	return Point{X: (p.X - v.PanX) / z, Y: (p.Y - v.PanY) / z}
}

// ZoomAt scales by factor keeping the screen point under the cursor fixed.
func (v Viewport) ZoomAt(factor float64, screen Point) Viewport {
	anchor := v.ToCanvas(screen)
	z := math.Min(math.Max(v.zoom()*factor, MinZoom), MaxZoom)
	return Viewport{
		Zoom: z,
		PanX: screen.X - anchor.X*z,
		PanY: screen.Y - anchor.Y*z,
	}
}

// Pan shifts the view by a screen-space delta.
func (v Viewport) Pan(dx, dy float64) Viewport {
	v.PanX += dx
	v.PanY += dy
	return v
}
