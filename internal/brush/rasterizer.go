package brush

import (
	"image"
	"math"
	"math/rand/v2"

	"CrayonBoard/internal/state"

	"github.com/anthonynsimon/bild/transform"
	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// Overlay shows the stroke in progress. buf is positioned at origin in
// canvas coordinates and must be copied if kept past the call.
type Overlay interface {
	Show(buf *image.RGBA, origin Point)
	Clear()
}

// Rasterizer turns pointer samples into crayon stroke objects.
//
// Every Extend redraws the whole stroke so the grain stays continuous where
// segments cross. The zero value is not usable; use NewRasterizer.
type Rasterizer struct {
	grain   *Generator
	rand    func() float64
	overlay Overlay

	active bool
	params Params
	paint  image.Image
	points []Point
	box    state.Rect
	buf    *image.RGBA
	origin image.Point
	cov    vector.Rasterizer
}

// Option configures a Rasterizer.
type Option func(*Rasterizer)

// WithRand sets the random source for jitter, grain and stroke phase.
func WithRand(fn func() float64) Option {
	return func(r *Rasterizer) { r.rand = fn }
}

// NewRasterizer returns a rasterizer previewing into overlay, which may be nil.
func NewRasterizer(overlay Overlay, opts ...Option) *Rasterizer {
	r := &Rasterizer{overlay: overlay, rand: rand.Float64}
	for _, opt := range opts {
		opt(r)
	}
	r.grain = NewGenerator(r.rand)
	return r
}

// Active reports whether a stroke is in progress.
func (r *Rasterizer) Active() bool { return r.active }

// Points returns the samples of the stroke in progress.
func (r *Rasterizer) Points() []Point { return r.points }

// Begin starts a stroke at pt with a snapshot of p.
func (r *Rasterizer) Begin(pt Point, p Params) {
	r.params = p.Normalize()
	r.points = append(r.points[:0], pt)
	r.buf = nil
	r.active = true

	if tile := r.grain.Regenerate(r.params); tile != nil {
		r.paint = &tiled{tile: tile, alpha: r.params.Opacity}
	} else {
		state.Logger().Warn("[BRUSH] grain pattern unavailable, painting flat colour")
		c := r.params.NRGBA()
		c.A = uint8(math.Round(r.params.Opacity * 0xff))
		r.paint = image.NewUniform(c)
	}

	m := r.params.margin()
	r.box = state.Rect{MinX: pt.X - m, MinY: pt.Y - m, MaxX: pt.X + m, MaxY: pt.Y + m}
	state.Logger().Debug("[BRUSH] begin", "x", pt.X, "y", pt.Y, "width", r.params.Width)
}

// Extend adds a sample and redraws the whole stroke into a fresh buffer.
func (r *Rasterizer) Extend(pt Point) {
	if !r.active || !finite(pt) {
		return
	}
	r.points = append(r.points, pt)
	m := r.params.margin()
	r.box = r.box.Union(state.Rect{MinX: pt.X - m, MinY: pt.Y - m, MaxX: pt.X + m, MaxY: pt.Y + m})

	r.origin = image.Pt(int(math.Floor(r.box.MinX)), int(math.Floor(r.box.MinY)))
	w := int(math.Ceil(r.box.MaxX)) - r.origin.X
	h := int(math.Ceil(r.box.MaxY)) - r.origin.Y
	if w <= 0 || h <= 0 {
		return
	}
	r.buf = image.NewRGBA(image.Rect(0, 0, w, h))

	p := r.params
	n := float64(len(r.points))
	ox, oy := float64(r.origin.X), float64(r.origin.Y)
	for i := 1; i < len(r.points); i++ {
		prev, cur := r.points[i-1], r.points[i]
		pressure := math.Sin(float64(i)/n*math.Pi)*p.PressureVariation + (1 - p.PressureVariation)
		for j := 0; j < p.StrokeCount; j++ {
			jx := (r.rand() - 0.5) * p.Width * p.StrokeVariation * p.TextureScale
			jy := (r.rand() - 0.5) * p.Width * p.StrokeVariation * p.TextureScale
			lw := p.Width * pressure * (1 - p.StrokeVariation/2 + r.rand()*p.StrokeVariation) * p.TextureScale
			r.segment(
				Point{X: prev.X - ox + jx, Y: prev.Y - oy + jy},
				Point{X: cur.X - ox + jx, Y: cur.Y - oy + jy},
				lw,
			)
		}
	}

	if r.overlay != nil {
		r.overlay.Show(r.buf, Point{X: ox, Y: oy})
	}
}

// segment paints one butt-capped line of width lw into buf.
func (r *Rasterizer) segment(a, b Point, lw float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 || !(lw > 0) {
		return
	}
	nx, ny := -dy/l*lw/2, dx/l*lw/2
	quad := [4]Point{
		{X: a.X + nx, Y: a.Y + ny},
		{X: b.X + nx, Y: b.Y + ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: a.X - nx, Y: a.Y - ny},
	}
	box := state.EmptyRect()
	for _, q := range quad {
		box = box.Union(state.Rect{MinX: q.X, MinY: q.Y, MaxX: q.X, MaxY: q.Y})
	}
	rect := image.Rect(
		int(math.Floor(box.MinX)), int(math.Floor(box.MinY)),
		int(math.Ceil(box.MaxX)), int(math.Ceil(box.MaxY)),
	).Intersect(r.buf.Rect)
	if rect.Empty() {
		return
	}

	fx, fy := float64(rect.Min.X), float64(rect.Min.Y)
	r.cov.Reset(rect.Dx(), rect.Dy())
	r.cov.DrawOp = draw.Over
	r.cov.MoveTo(float32(quad[0].X-fx), float32(quad[0].Y-fy))
	for _, q := range quad[1:] {
		r.cov.LineTo(float32(q.X-fx), float32(q.Y-fy))
	}
	r.cov.ClosePath()
	r.cov.Draw(r.buf, rect, r.paint, rect.Min)
}

// End finishes the stroke. It returns false when no stroke was begun.
// A stroke that never painted a pixel yields a 1×1 transparent object.
func (r *Rasterizer) End() (*state.Object, bool) {
	if !r.active {
		return nil, false
	}
	defer r.reset()

	var (
		img *image.RGBA
		at  Point
	)
	if r.buf != nil {
		var off image.Point
		img, off = Trim(r.buf)
		at = Point{X: float64(r.origin.X + off.X), Y: float64(r.origin.Y + off.Y)}
	} else {
		img = image.NewRGBA(image.Rect(0, 0, 1, 1))
		at = r.points[0]
	}

	o := state.NewRaster(img)
	o.Left, o.Top = at.X, at.Y
	if r.params.Animated {
		o.Animated = true
		o.Settings = r.params.Animation
		o.Time = r.rand() * 100
		o.BaseScaleX, o.BaseScaleY, o.HasBaseScale = 1, 1, true
		o.OriginalLeft, o.OriginalTop, o.HasOrigin = at.X, at.Y, true
	}
	o.UpdateCoords()
	state.Logger().Debug("[BRUSH] end", "points", len(r.points), "w", img.Rect.Dx(), "h", img.Rect.Dy())
	return o, true
}

// Cancel drops the stroke in progress without emitting anything.
func (r *Rasterizer) Cancel() {
	if r.active {
		r.reset()
	}
}

func (r *Rasterizer) reset() {
	r.active = false
	r.points = r.points[:0]
	r.buf = nil
	r.paint = nil
	if r.overlay != nil {
		r.overlay.Clear()
	}
}

// Trim crops img to its non-transparent pixels and returns the crop with
// its offset inside img. A fully transparent image yields a 1×1 empty image
// at offset zero.
func Trim(img *image.RGBA) (*image.RGBA, image.Point) {
	b := img.Bounds()
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			if row[x*4+3] == 0 {
				continue
			}
			minX, maxX = min(minX, b.Min.X+x), max(maxX, b.Min.X+x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}
	if minX > maxX {
		return image.NewRGBA(image.Rect(0, 0, 1, 1)), image.Point{}
	}
	crop := image.Rect(minX, minY, maxX+1, maxY+1)
	out := transform.Crop(img, crop)
	if out.Rect.Min != (image.Point{}) {
		rebased := image.NewRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
		draw.Draw(rebased, rebased.Rect, out, out.Rect.Min, draw.Src)
		out = rebased
	}
	return out, crop.Min.Sub(b.Min)
}

func finite(p Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
