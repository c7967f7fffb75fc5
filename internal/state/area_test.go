package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAreaPresets(t *testing.T) {
	names := make([]string, 0, len(AreaPresets))
	for _, p := range AreaPresets {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"1:1", "3:4", "5:3", "9:16"}, names)

	p, ok := PresetByName("3:4")
	require.True(t, ok)
	assert.Equal(t, RenderArea{X: 350, Y: 100, Width: 300, Height: 400}, p.Centered(1000, 600))
	assert.Equal(t, RenderArea{Width: 300, Height: 400}, p.Centered(100, 100))

	_, ok = PresetByName("4:5")
	assert.False(t, ok)
}

func TestViewportRoundTrip(t *testing.T) {
	v := DefaultViewport().ZoomAt(2, Point{X: 100, Y: 50}).Pan(10, -5)
	p := Point{X: 33, Y: 21}
	back := v.ToCanvas(v.ToScreen(p))
	assert.InDelta(t, p.X, back.X, 1e-9)
	assert.InDelta(t, p.Y, back.Y, 1e-9)

	assert.Equal(t, MaxZoom, DefaultViewport().ZoomAt(100, Point{}).Zoom)
	assert.Equal(t, MinZoom, DefaultViewport().ZoomAt(0.01, Point{}).Zoom)
}
