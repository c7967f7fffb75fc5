package brush

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"

	"golang.org/x/image/draw"
)

// PatternBase is the pattern side at texture scale 1.
const PatternBase = 50

// Generator produces the grain texture used as stroke paint. It owns one
// buffer that is cleared and redrawn for every stroke.
type Generator struct {
	rand func() float64
	buf  *image.NRGBA
}

// NewGenerator returns a generator drawing from rnd, or from math/rand/v2
// when rnd is nil.
func NewGenerator(rnd func() float64) *Generator {
	if rnd == nil {
		rnd = rand.Float64
	}
	return &Generator{rand: rnd}
}

// Regenerate redraws the grain for p and returns the shared buffer, which
// stays valid until the next call. It returns nil when the pattern would be
// empty.
func (g *Generator) Regenerate(p Params) *image.NRGBA {
	side := int(math.Round(PatternBase * p.TextureScale))
	if side <= 0 {
		return nil
	}
	bounds := image.Rect(0, 0, side, side)
	if g.buf == nil || g.buf.Rect != bounds {
		g.buf = image.NewNRGBA(bounds)
	} else {
		clear(g.buf.Pix)
	}

	cell := max(p.GrainSize, 1)
	base := p.NRGBA()
	grain := &image.Uniform{}
	for x := 0; x < side; x += cell {
		for y := 0; y < side; y += cell {
			a := g.rand()*p.Graininess + (1-p.Graininess)/3
			c := base
			c.A = uint8(math.Round(clamp01(a) * 0xff))
			grain.C = c
			r := image.Rect(x, y, x+cell, y+cell).Intersect(bounds)
			draw.Draw(g.buf, r, grain, image.Point{}, draw.Src)
		}
	}
	return g.buf
}

// tiled repeats a pattern over the whole plane, with extra alpha applied.
type tiled struct {
	tile  *image.NRGBA
	alpha float64
}

func (t *tiled) ColorModel() color.Model { return color.NRGBAModel }

func (t *tiled) Bounds() image.Rectangle {
	return image.Rect(-1<<30, -1<<30, 1<<30, 1<<30)
}

func (t *tiled) At(x, y int) color.Color {
	w, h := t.tile.Rect.Dx(), t.tile.Rect.Dy()
	x, y = ((x%w)+w)%w, ((y%h)+h)%h
	c := t.tile.NRGBAAt(t.tile.Rect.Min.X+x, t.tile.Rect.Min.Y+y)
	c.A = uint8(math.Round(float64(c.A) * t.alpha))
	return c
}
