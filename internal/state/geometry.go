package state

import (
	"math"

	"golang.org/x/image/math/f64"
)

// Point is a position in canvas logical coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis aligned box. An empty Rect has Min > Max.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// EmptyRect returns a Rect that any Union replaces.
func EmptyRect() Rect {
	return Rect{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
}

func (r Rect) Empty() bool { return r.MinX > r.MaxX || r.MinY > r.MaxY }

func (r Rect) Width() float64  { return math.Max(r.MaxX-r.MinX, 0) }
func (r Rect) Height() float64 { return math.Max(r.MaxY-r.MinY, 0) }

func (r Rect) Contains(p Point) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

func (r Rect) Union(o Rect) Rect {
	if o.Empty() {
		return r
	}
	if r.Empty() {
		return o
	}
	return Rect{
		MinX: math.Min(r.MinX, o.MinX),
		MinY: math.Min(r.MinY, o.MinY),
		MaxX: math.Max(r.MaxX, o.MaxX),
		MaxY: math.Max(r.MaxY, o.MaxY),
	}
}

// Identity returns the identity affine matrix.
func Identity() f64.Aff3 { return f64.Aff3{1, 0, 0, 0, 1, 0} }

func Translate(x, y float64) f64.Aff3 { return f64.Aff3{1, 0, x, 0, 1, y} }

func Scale(sx, sy float64) f64.Aff3 { return f64.Aff3{sx, 0, 0, 0, sy, 0} }

// Rotate rotates clockwise on screen by deg degrees.
func Rotate(deg float64) f64.Aff3 {
	s, c := math.Sincos(deg * math.Pi / 180)
	return f64.Aff3{c, -s, 0, s, c, 0}
}

// Skew applies skewX then skewY, both in degrees.
func Skew(xDeg, yDeg float64) f64.Aff3 {
	kx := f64.Aff3{1, math.Tan(xDeg * math.Pi / 180), 0, 0, 1, 0}
	ky := f64.Aff3{1, 0, 0, math.Tan(yDeg * math.Pi / 180), 1, 0}
	return Mul(kx, ky)
}

// Mul returns a·b, so b applies first.
func Mul(a, b f64.Aff3) f64.Aff3 {
	return f64.Aff3{
		a[0]*b[0] + a[1]*b[3],
		a[0]*b[1] + a[1]*b[4],
		a[0]*b[2] + a[1]*b[5] + a[2],
		a[3]*b[0] + a[4]*b[3],
		a[3]*b[1] + a[4]*b[4],
		a[3]*b[2] + a[4]*b[5] + a[5],
	}
}

// Apply maps p through m.
func Apply(m f64.Aff3, p Point) Point {
	return Point{
		X: m[0]*p.X + m[1]*p.Y + m[2],
		Y: m[3]*p.X + m[4]*p.Y + m[5],
	}
}

// Invert returns the inverse of m, or identity when m is singular.
func Invert(m f64.Aff3) f64.Aff3 {
	det := m[0]*m[4] - m[1]*m[3]
	if det == 0 {
		return Identity()
	}
	inv := 1 / det
	return f64.Aff3{
		m[4] * inv,
		-m[1] * inv,
		(m[1]*m[5] - m[2]*m[4]) * inv,
		-m[3] * inv,
		m[0] * inv,
		(m[2]*m[3] - m[0]*m[5]) * inv,
	}
}

// TransformRect returns the bounds of the w×h box mapped through m.
func TransformRect(m f64.Aff3, w, h float64) Rect {
	r := EmptyRect()
	for _, p := range [4]Point{{0, 0}, {w, 0}, {w, h}, {0, h}} {
		q := Apply(m, p)
		r = r.Union(Rect{MinX: q.X, MinY: q.Y, MaxX: q.X, MaxY: q.Y})
	}
	return r
}
