// Package render composites scene objects into RGBA images.
package render

import (
	"image"
	"image/color"
	"math"

	"CrayonBoard/internal/state"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

// Renderer draws objects with their full transform, opacity included.
type Renderer struct {
	// Transformer resamples object pixels. Nil means draw.ApproxBiLinear.
	Transformer draw.Transformer
	// Background fills the destination first when set.
	Background color.Color
}

func (r *Renderer) transformer() draw.Transformer {
	if r.Transformer == nil {
		return draw.ApproxBiLinear
	}
	return r.Transformer
}

// Draw composites objects bottom to top into dst, mapping canvas
// coordinates through view.
func (r *Renderer) Draw(dst *image.RGBA, objects []*state.Object, view f64.Aff3) {
	if r.Background != nil {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(r.Background), image.Point{}, draw.Src)
	}
	for _, o := range objects {
		r.drawObject(dst, o, view, 1)
	}
}

// Frame renders the screen rectangle area of the board as seen through view.
func (r *Renderer) Frame(objects []*state.Object, view state.Viewport, area image.Rectangle) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, area.Dx(), area.Dy()))
	m := state.Mul(state.Translate(-float64(area.Min.X), -float64(area.Min.Y)), view.Matrix())
	r.Draw(dst, objects, m)
	return dst
}

func (r *Renderer) drawObject(dst *image.RGBA, o *state.Object, parent f64.Aff3, alpha float64) {
	if !o.Visible {
		return
	}
	m := state.Mul(parent, o.Matrix())
	alpha *= clampAlpha(o.Opacity)
	if alpha <= 0 {
		return
	}
	switch o.Kind {
	case state.KindRaster, state.KindImage:
		if o.Src != nil {
			r.blit(dst, o.Src, m, alpha)
		}
	case state.KindText:
		if txt := Text(o.Text, o.Fill); txt != nil {
			r.blit(dst, txt, m, alpha)
		}
	case state.KindGroup:
		for _, c := range o.Children {
			r.drawObject(dst, c, m, alpha)
		}
	}
}

func (r *Renderer) blit(dst *image.RGBA, src image.Image, m f64.Aff3, alpha float64) {
	if degenerate(m) {
		return
	}
	var opts *draw.Options
	if alpha < 1 {
		opts = &draw.Options{
			SrcMask:  image.NewUniform(color.Alpha16{A: uint16(math.Round(alpha * 0xffff))}),
			SrcMaskP: src.Bounds().Min,
		}
	}
	r.transformer().Transform(dst, m, src, src.Bounds(), draw.Over, opts)
}

// Text lays out s on the fixed 7×13 cell grid in fill, black by default.
func Text(s, fill string) *image.RGBA {
	n := len([]rune(s))
	if n == 0 {
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, n*state.TextCellWidth, state.TextCellHeight))
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(parseFill(fill)),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(0, basicfont.Face7x13.Ascent),
	}
	d.DrawString(s)
	return img
}

func parseFill(fill string) color.Color {
	if fill == "" {
		return color.Black
	}
	c, err := colorful.Hex(fill)
	if err != nil {
		return color.Black
	}
	return c
}

func clampAlpha(a float64) float64 {
	if math.IsNaN(a) {
		return 1
	}
	return math.Min(math.Max(a, 0), 1)
}

func degenerate(m f64.Aff3) bool {
	det := m[0]*m[4] - m[1]*m[3]
	return math.Abs(det) < 1e-12 || math.IsNaN(det) || math.IsInf(det, 0)
}
