package brush

import (
	"image"
	"image/color"
	"math/rand/v2"
	"testing"

	"CrayonBoard/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded() func() float64 {
	return rand.New(rand.NewPCG(1, 2)).Float64
}

type recordingOverlay struct {
	shown   int
	cleared int
	origin  Point
	size    image.Point
}

func (o *recordingOverlay) Show(buf *image.RGBA, origin Point) {
	o.shown++
	o.origin = origin
	o.size = buf.Rect.Size()
}

func (o *recordingOverlay) Clear() { o.cleared++ }

func TestGeneratorAlphaStaysInBand(t *testing.T) {
	p := DefaultParams()
	p.Color = "#ff0000"
	p.TextureScale = 1
	tile := NewGenerator(seeded()).Regenerate(p)
	require.NotNil(t, tile)
	assert.Equal(t, image.Rect(0, 0, 50, 50), tile.Rect)

	// alpha is rand*0.7 + 0.1, so 0.1 to 0.8 of full
	lo, hi := uint8(24), uint8(206)
	for y := 0; y < 50; y++ {
		for x := 0; x < 50; x++ {
			c := tile.NRGBAAt(x, y)
			require.Equal(t, uint8(0xff), c.R)
			require.Zero(t, c.G)
			require.GreaterOrEqual(t, c.A, lo)
			require.LessOrEqual(t, c.A, hi)
		}
	}
}

func TestGeneratorOversizedCellDrawsOneCell(t *testing.T) {
	p := DefaultParams()
	p.TextureScale = 1
	p.GrainSize = 500
	tile := NewGenerator(seeded()).Regenerate(p)
	require.NotNil(t, tile)

	first := tile.NRGBAAt(0, 0)
	assert.NotZero(t, first.A)
	assert.Equal(t, first, tile.NRGBAAt(49, 49))
}

func TestGeneratorEmptySide(t *testing.T) {
	p := DefaultParams()
	p.TextureScale = 0
	assert.Nil(t, NewGenerator(seeded()).Regenerate(p))
}

func TestGeneratorReusesBuffer(t *testing.T) {
	g := NewGenerator(seeded())
	p := DefaultParams()
	a := g.Regenerate(p)
	b := g.Regenerate(p)
	assert.Same(t, a, b)
	assert.Equal(t, 100, b.Rect.Dx())
}

func TestStraightStrokeBounds(t *testing.T) {
	p := DefaultParams()
	p.Width = 10
	p.TextureScale = 1
	p.StrokeCount = 1
	p.StrokeVariation = 0
	p.PressureVariation = 0
	p.Animated = false

	r := NewRasterizer(nil, WithRand(seeded()))
	r.Begin(Point{X: 10, Y: 100}, p)
	for x := 20.0; x <= 90; x += 10 {
		r.Extend(Point{X: x, Y: 100})
	}
	o, ok := r.End()
	require.True(t, ok)
	require.Equal(t, state.KindRaster, o.Kind)

	w, h := o.Size()
	assert.InDelta(t, 80, w, 1)
	assert.InDelta(t, 10, h, 1)
	assert.InDelta(t, 10, o.Left, 1)
	assert.InDelta(t, 95, o.Top, 1)
	assert.False(t, o.Animated)
	assert.Zero(t, o.Time)
	assert.Equal(t, 1.0, o.ScaleX)
	assert.Equal(t, 1.0, o.Opacity)
}

func TestSinglePointStrokeIsDegenerate(t *testing.T) {
	r := NewRasterizer(nil, WithRand(seeded()))
	r.Begin(Point{X: 5, Y: 5}, DefaultParams())
	o, ok := r.End()
	require.True(t, ok)
	w, h := o.Size()
	assert.Equal(t, 1.0, w)
	assert.Equal(t, 1.0, h)

	r.Begin(Point{X: 5, Y: 5}, DefaultParams())
	r.Extend(Point{X: 5, Y: 5})
	o, ok = r.End()
	require.True(t, ok)
	w, h = o.Size()
	assert.Equal(t, 1.0, w)
	assert.Equal(t, 1.0, h)
}

func TestEndWithoutBegin(t *testing.T) {
	r := NewRasterizer(nil)
	o, ok := r.End()
	assert.False(t, ok)
	assert.Nil(t, o)

	r.Extend(Point{X: 1, Y: 1})
	assert.False(t, r.Active())
}

func TestAnimatedStrokeCopiesSettings(t *testing.T) {
	p := DefaultParams()
	p.Animation = state.AnimationSettings{MoveAmplitude: 3}
	r := NewRasterizer(nil, WithRand(func() float64 { return 0.5 }))
	r.Begin(Point{X: 0, Y: 0}, p)
	r.Extend(Point{X: 30, Y: 0})
	o, ok := r.End()
	require.True(t, ok)

	assert.True(t, o.Animated)
	assert.Equal(t, 50.0, o.Time)
	assert.Equal(t, 3.0, o.Settings.MoveAmplitude)
	assert.Equal(t, o.Left, o.OriginalLeft)
	assert.Equal(t, o.Top, o.OriginalTop)
	assert.True(t, o.HasBaseScale)
	assert.Equal(t, 1.0, o.BaseScaleX)

	p.Animation.MoveAmplitude = 9
	assert.Equal(t, 3.0, o.Settings.MoveAmplitude)
}

func TestOverlayFollowsStroke(t *testing.T) {
	ov := &recordingOverlay{}
	r := NewRasterizer(ov, WithRand(seeded()))
	r.Begin(Point{X: 50, Y: 50}, DefaultParams())
	r.Extend(Point{X: 60, Y: 55})
	r.Extend(Point{X: 70, Y: 52})
	assert.Equal(t, 2, ov.shown)
	assert.Positive(t, ov.size.X)

	// margin is width*textureScale*(1+strokeVariation) = 30
	assert.Equal(t, Point{X: 20, Y: 20}, ov.origin)

	_, ok := r.End()
	require.True(t, ok)
	assert.Equal(t, 1, ov.cleared)
	assert.Empty(t, r.Points())
}

func TestStrokePaintsInBrushColour(t *testing.T) {
	p := DefaultParams()
	p.Color = "#0000ff"
	r := NewRasterizer(nil, WithRand(seeded()))
	r.Begin(Point{X: 0, Y: 0}, p)
	r.Extend(Point{X: 40, Y: 40})
	o, _ := r.End()

	var painted int
	for i := 0; i < len(o.Src.Pix); i += 4 {
		if o.Src.Pix[i+3] == 0 {
			continue
		}
		painted++
		require.Zero(t, o.Src.Pix[i])
		require.Positive(t, o.Src.Pix[i+2])
	}
	assert.Positive(t, painted)
}

func TestTrim(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	img.SetRGBA(3, 4, color.RGBA{A: 1})
	img.SetRGBA(7, 6, color.RGBA{R: 9, A: 9})

	out, off := Trim(img)
	assert.Equal(t, image.Pt(3, 4), off)
	assert.Equal(t, image.Rect(0, 0, 5, 3), out.Rect)
	assert.Equal(t, color.RGBA{R: 9, A: 9}, out.RGBAAt(4, 2))

	empty, off := Trim(image.NewRGBA(image.Rect(0, 0, 4, 4)))
	assert.Equal(t, image.Point{}, off)
	assert.Equal(t, image.Rect(0, 0, 1, 1), empty.Rect)
}

func TestNormalize(t *testing.T) {
	p := Params{Width: -1, Opacity: 3, TextureScale: 0.2, Graininess: -2, StrokeCount: 0, GrainSize: -4}.Normalize()
	assert.Equal(t, 1.0, p.Width)
	assert.Equal(t, 1.0, p.Opacity)
	assert.Equal(t, 1.0, p.TextureScale)
	assert.Zero(t, p.Graininess)
	assert.Equal(t, 1, p.StrokeCount)
	assert.Equal(t, 1, p.GrainSize)
}

func TestBadColourFallsBackToBlack(t *testing.T) {
	assert.Equal(t, color.NRGBA{A: 0xff}, Params{Color: "crimson-ish"}.NRGBA())
	assert.Equal(t, color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 0xff}, Params{Color: "#112233"}.NRGBA())
}
