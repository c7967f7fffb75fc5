package state

import (
	"image"
	"math"

	"github.com/google/uuid"
	"golang.org/x/image/math/f64"
)

// Kind tags what an Object draws.
type Kind string

const (
	KindRaster Kind = "raster" // a crayon stroke
	KindImage  Kind = "image"
	KindText   Kind = "text"
	KindGroup  Kind = "group"
)

func (k Kind) valid() bool {
	switch k {
	case KindRaster, KindImage, KindText, KindGroup:
		return true
	}
	return false
}

// Text objects are laid out on a fixed cell grid.
const (
	TextCellWidth  = 7
	TextCellHeight = 13
)

// AnimationSettings drives the oscillation of one object.
type AnimationSettings struct {
	PulseScale    float64 `json:"pulseScale" toml:"pulse_scale"`
	RotationSpeed float64 `json:"rotationSpeed" toml:"rotation_speed"`
	OpacityRange  float64 `json:"opacityRange" toml:"opacity_range"`
	MoveAmplitude float64 `json:"moveAmplitude" toml:"move_amplitude"`
	SkewAmount    float64 `json:"skewAmount" toml:"skew_amount"`
}

var (
	// RichAnimation is applied when an object is animated without settings of its own.
	RichAnimation = AnimationSettings{
		PulseScale:    0.15,
		RotationSpeed: 0.3,
		OpacityRange:  0.4,
		MoveAmplitude: 0.8,
		SkewAmount:    5,
	}

	// SubtleAnimation is the brush default for freshly drawn strokes.
	SubtleAnimation = AnimationSettings{
		MoveAmplitude: 0.2,
		SkewAmount:    2,
	}
)

// Sanitize maps negative or non-finite fields to zero.
func (s AnimationSettings) Sanitize() AnimationSettings {
	fix := func(v float64) float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return 0
		}
		return v
	}
	return AnimationSettings{
		PulseScale:    fix(s.PulseScale),
		RotationSpeed: fix(s.RotationSpeed),
		OpacityRange:  fix(s.OpacityRange),
		MoveAmplitude: fix(s.MoveAmplitude),
		SkewAmount:    fix(s.SkewAmount),
	}
}

// IsZero reports whether no oscillation is configured.
func (s AnimationSettings) IsZero() bool {
	return s == AnimationSettings{}
}

// Transform is the placement of an object relative to its parent.
// Angle and skews are in degrees.
type Transform struct {
	Left    float64
	Top     float64
	ScaleX  float64
	ScaleY  float64
	Angle   float64
	SkewX   float64
	SkewY   float64
	Opacity float64
	FlipX   bool
	FlipY   bool
}

// IdentityTransform places an object at the origin at full size and opacity.
func IdentityTransform() Transform {
	return Transform{ScaleX: 1, ScaleY: 1, Opacity: 1}
}

// Animatable is the animation state carried by every object kind.
//
// The anchors (BaseScaleX/Y, OriginalLeft/Top) are the resting values the
// oscillation is computed around. They are captured once per animation
// session and only moved by ResyncAnchors.
type Animatable struct {
	Animated     bool
	Time         float64
	Settings     AnimationSettings
	BaseScaleX   float64
	BaseScaleY   float64
	HasBaseScale bool
	OriginalLeft float64
	OriginalTop  float64
	HasOrigin    bool
}

// Object is a node of the scene: a stroke, an image, a text or a group.
// Children of a group are positioned relative to the group origin.
type Object struct {
	ID   string
	Name string
	Kind Kind
	Transform
	Animatable

	Visible bool
	Locked  bool

	Src      *image.RGBA
	Text     string
	Fill     string
	Children []*Object

	bounds Rect
	srcZ   []byte
}

func newObject(kind Kind) *Object {
	return &Object{
		ID:        uuid.NewString(),
		Kind:      kind,
		Transform: IdentityTransform(),
		Visible:   true,
	}
}

// NewRaster wraps a stroke buffer. The buffer must not be mutated afterwards.
func NewRaster(src *image.RGBA) *Object {
	o := newObject(KindRaster)
	o.Src = src
	o.UpdateCoords()
	return o
}

// NewImage wraps an imported picture.
func NewImage(src *image.RGBA) *Object {
	o := newObject(KindImage)
	o.Src = src
	o.UpdateCoords()
	return o
}

// NewText creates a text object.
func NewText(text, fill string) *Object {
	o := newObject(KindText)
	o.Text = text
	o.Fill = fill
	o.UpdateCoords()
	return o
}

// NewGroup creates a group owning children positioned relative to it.
func NewGroup(children ...*Object) *Object {
	o := newObject(KindGroup)
	o.Children = children
	o.UpdateCoords()
	return o
}

// Size returns the untransformed extent of the object.
func (o *Object) Size() (w, h float64) {
	switch o.Kind {
	case KindRaster, KindImage:
		if o.Src == nil {
			return 0, 0
		}
		b := o.Src.Bounds()
		return float64(b.Dx()), float64(b.Dy())
	case KindText:
		return float64(TextCellWidth * len([]rune(o.Text))), TextCellHeight
	case KindGroup:
		r := o.childExtent()
		return math.Max(r.MaxX, 0), math.Max(r.MaxY, 0)
	}
	return 0, 0
}

func (o *Object) childExtent() Rect {
	r := EmptyRect()
	for _, c := range o.Children {
		w, h := c.Size()
		r = r.Union(TransformRect(c.Matrix(), w, h))
	}
	return r
}

// Matrix maps object-local coordinates into the parent space.
func (o *Object) Matrix() f64.Aff3 {
	sx, sy := o.ScaleX, o.ScaleY
	if o.FlipX {
		sx = -sx
	}
	if o.FlipY {
		sy = -sy
	}
	m := Translate(o.Left, o.Top)
	m = Mul(m, Rotate(o.Angle))
	m = Mul(m, Scale(sx, sy))
	m = Mul(m, Skew(o.SkewX, o.SkewY))
	return m
}

// Bounds is the axis aligned box last computed by UpdateCoords.
func (o *Object) Bounds() Rect { return o.bounds }

// UpdateCoords recomputes cached bounds for a top level object.
func (o *Object) UpdateCoords() { o.UpdateCoordsIn(Identity()) }

// UpdateCoordsIn recomputes cached bounds given the parent-to-canvas matrix.
func (o *Object) UpdateCoordsIn(parent f64.Aff3) {
	m := Mul(parent, o.Matrix())
	for _, c := range o.Children {
		c.UpdateCoordsIn(m)
	}
	w, h := o.Size()
	o.bounds = TransformRect(m, w, h)
}

// Contains reports whether the canvas point hits the object's bounds.
func (o *Object) Contains(p Point) bool {
	return o.Visible && o.bounds.Contains(p)
}

// Walk visits o and every descendant depth first.
func (o *Object) Walk(fn func(*Object)) {
	fn(o)
	for _, c := range o.Children {
		c.Walk(fn)
	}
}
