package state

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raster(w, h int, left, top float64) *Object {
	o := NewRaster(image.NewRGBA(image.Rect(0, 0, w, h)))
	o.Left, o.Top = left, top
	o.UpdateCoords()
	return o
}

func sinPhase(t, freq float64) float64 { return math.Sin(t * freq) }

func TestSceneAddNamesAndNotifies(t *testing.T) {
	s := NewScene()
	var changes []Change
	s.Subscribe(func(c Change) { changes = append(changes, c) })

	a, b := raster(4, 4, 0, 0), raster(4, 4, 10, 10)
	s.Add(a)
	s.Add(b)

	assert.Equal(t, "Raster 1", a.Name)
	assert.Equal(t, "Raster 2", b.Name)
	require.Len(t, changes, 2)
	assert.Equal(t, ChangeAdded, changes[0].Kind)
	assert.Less(t, changes[0].Revision, changes[1].Revision)
	assert.Equal(t, uint64(2), s.Revision())
}

func TestSceneRemoveUnknownIsSilent(t *testing.T) {
	s := NewScene()
	calls := 0
	s.Subscribe(func(Change) { calls++ })
	s.Remove(raster(1, 1, 0, 0))
	assert.Zero(t, calls)
}

func TestSceneSelectSkipsLockedAndHidden(t *testing.T) {
	s := NewScene()
	a, b, c := raster(4, 4, 0, 0), raster(4, 4, 0, 0), raster(4, 4, 0, 0)
	b.Locked = true
	c.Visible = false
	s.Add(a, b, c)

	s.Select(a, b, c, a)
	assert.Equal(t, []*Object{a}, s.Selection())

	s.ToggleSelected(a)
	assert.Empty(t, s.Selection())
}

func TestSceneObjectAtReturnsTopmost(t *testing.T) {
	s := NewScene()
	bottom, top := raster(10, 10, 0, 0), raster(10, 10, 5, 5)
	s.Add(bottom, top)

	assert.Same(t, top, s.ObjectAt(Point{X: 7, Y: 7}))
	assert.Same(t, bottom, s.ObjectAt(Point{X: 2, Y: 2}))
	assert.Nil(t, s.ObjectAt(Point{X: 50, Y: 50}))
}

func TestClearSelectionResetsSkewAndResyncs(t *testing.T) {
	s := NewScene()
	o := raster(4, 4, 3, 4)
	o.EnableAnimation(AnimationSettings{SkewAmount: 5})
	o.SkewX, o.SkewY = 2, -1
	s.Add(o)
	s.Select(o)

	s.ClearSelection()
	assert.Empty(t, s.Selection())
	assert.Zero(t, o.SkewX)
	assert.Zero(t, o.SkewY)
	assert.InDelta(t, 3, o.OriginalLeft, 1e-9)
	assert.InDelta(t, 4, o.OriginalTop, 1e-9)
}

func TestModifiedResyncsAnchorsWithPhase(t *testing.T) {
	s := NewScene()
	o := raster(4, 4, 0, 0)
	o.EnableAnimation(AnimationSettings{MoveAmplitude: 2, PulseScale: 0.5})
	o.Time = 1
	s.Add(o)

	s.Translate([]*Object{o}, 10, 0)
	s.Modified(o)

	f := 1 + 0.5*sinPhase(1, PulseFrequency)
	assert.InDelta(t, 10-sinPhase(1, MoveFrequencyX)*2, o.OriginalLeft, 1e-9)
	assert.InDelta(t, 1/f, o.BaseScaleX, 1e-9)
}

func TestGroupAndUngroupRoundTrip(t *testing.T) {
	s := NewScene()
	a, b, c := raster(10, 10, 5, 5), raster(10, 10, 20, 30), raster(2, 2, 0, 0)
	s.Add(a, c, b)

	g, err := s.Group(a, b)
	require.NoError(t, err)
	assert.Equal(t, []*Object{c, g}, s.Objects())
	assert.Equal(t, []*Object{g}, s.Selection())
	assert.Equal(t, 5.0, g.Left)
	assert.Equal(t, 5.0, g.Top)
	assert.Equal(t, 15.0, b.Left)
	assert.Equal(t, 25.0, b.Top)

	w, h := g.Size()
	assert.Equal(t, 25.0, w)
	assert.Equal(t, 35.0, h)

	children, err := s.Ungroup(g)
	require.NoError(t, err)
	assert.Equal(t, []*Object{a, b}, children)
	assert.Equal(t, []*Object{c, a, b}, s.Objects())
	assert.InDelta(t, 20, b.Left, 1e-9)
	assert.InDelta(t, 30, b.Top, 1e-9)
}

func TestGroupErrors(t *testing.T) {
	s := NewScene()
	a := raster(1, 1, 0, 0)
	s.Add(a)

	_, err := s.Group(a)
	assert.ErrorIs(t, err, ErrNeedObjects)
	_, err = s.Group(a, raster(1, 1, 0, 0))
	assert.ErrorIs(t, err, ErrNotInScene)
	_, err = s.Ungroup(a)
	assert.ErrorIs(t, err, ErrNotGroup)
}

func TestUngroupMapsAnchorsThroughGroup(t *testing.T) {
	s := NewScene()
	a, b := raster(4, 4, 0, 0), raster(4, 4, 10, 0)
	a.EnableAnimation(SubtleAnimation)
	s.Add(a, b)
	g, err := s.Group(a, b)
	require.NoError(t, err)

	g.Left, g.Top = 100, 50
	_, err = s.Ungroup(g)
	require.NoError(t, err)
	assert.InDelta(t, 100, a.OriginalLeft, 1e-9)
	assert.InDelta(t, 50, a.OriginalTop, 1e-9)
}

func TestUngroupKeepsFlippedPlacement(t *testing.T) {
	for name, flip := range map[string][2]bool{"x": {true, false}, "y": {false, true}, "both": {true, true}} {
		t.Run(name, func(t *testing.T) {
			s := NewScene()
			a, b := raster(6, 4, 0, 0), raster(4, 4, 12, 3)
			a.Angle = 30
			s.Add(a, b)
			g, err := s.Group(a, b)
			require.NoError(t, err)
			g.FlipX, g.FlipY, g.Angle = flip[0], flip[1], 15

			want := Mul(g.Matrix(), a.Matrix())
			_, err = s.Ungroup(g)
			require.NoError(t, err)
			got := a.Matrix()
			for i := range want {
				assert.InDelta(t, want[i], got[i], 1e-9, "matrix[%d]", i)
			}
		})
	}
}

func TestDuplicateDeepCopies(t *testing.T) {
	s := NewScene(WithRand(func() float64 { return 0.25 }))
	o := raster(3, 3, 1, 2)
	o.Src.Pix[0] = 0xff
	o.EnableAnimation(RichAnimation)
	s.Add(o)

	copies, err := s.Duplicate(o)
	require.NoError(t, err)
	require.Len(t, copies, 1)
	c := copies[0]

	assert.NotEqual(t, o.ID, c.ID)
	assert.Equal(t, o.Name+" Copy", c.Name)
	assert.Equal(t, 11.0, c.Left)
	assert.Equal(t, 12.0, c.Top)
	assert.Equal(t, 11.0, c.OriginalLeft)
	assert.Equal(t, 12.0, c.OriginalTop)
	assert.Equal(t, 25.0, c.Time)
	assert.Equal(t, RichAnimation, c.Settings)
	assert.Equal(t, []*Object{c}, s.Selection())

	c.Src.Pix[0] = 0
	c.Settings.PulseScale = 9
	assert.Equal(t, uint8(0xff), o.Src.Pix[0])
	assert.Equal(t, RichAnimation.PulseScale, o.Settings.PulseScale)
}

func TestReorder(t *testing.T) {
	s := NewScene()
	a, b, c := raster(1, 1, 0, 0), raster(1, 1, 0, 0), raster(1, 1, 0, 0)
	s.Add(a, b, c)

	require.NoError(t, s.BringForward(a))
	assert.Equal(t, []*Object{b, a, c}, s.Objects())
	require.NoError(t, s.SendBackward(c))
	assert.Equal(t, []*Object{b, c, a}, s.Objects())
	require.NoError(t, s.MoveTo(a, -3))
	assert.Equal(t, []*Object{a, b, c}, s.Objects())
	assert.ErrorIs(t, s.MoveTo(raster(1, 1, 0, 0), 0), ErrNotInScene)
}

func TestLayerToggles(t *testing.T) {
	s := NewScene()
	o := raster(4, 4, 0, 0)
	s.Add(o)
	s.Select(o)

	require.NoError(t, s.SetLocked(o, true))
	assert.Empty(t, s.Selection())
	require.NoError(t, s.SetLocked(o, false))

	s.Select(o)
	require.NoError(t, s.SetVisible(o, false))
	assert.Empty(t, s.Selection())
	assert.False(t, o.Contains(Point{X: 1, Y: 1}))

	require.NoError(t, s.Rename(o, "sky"))
	assert.Equal(t, "sky", o.Name)
	require.NoError(t, s.FlipHorizontal(o))
	assert.True(t, o.FlipX)
}

func TestSetAnimationToggle(t *testing.T) {
	s := NewScene()
	o := raster(4, 4, 7, 8)
	s.Add(o)

	require.NoError(t, s.SetAnimation(o, true, RichAnimation))
	assert.True(t, o.Animated)
	assert.Equal(t, 7.0, o.OriginalLeft)

	o.Left, o.SkewX, o.Opacity = 9, 3, 0.5
	require.NoError(t, s.SetAnimation(o, false, AnimationSettings{}))
	assert.False(t, o.Animated)
	assert.Equal(t, 7.0, o.Left)
	assert.Zero(t, o.SkewX)
	assert.Equal(t, 1.0, o.Opacity)
	assert.False(t, o.HasOrigin)
}
