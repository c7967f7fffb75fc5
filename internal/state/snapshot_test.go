package state

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	s := NewScene()
	px := image.NewRGBA(image.Rect(0, 0, 3, 2))
	px.SetRGBA(1, 1, color.RGBA{R: 10, G: 20, B: 30, A: 40})
	stroke := NewRaster(px)
	stroke.Left, stroke.Top, stroke.Angle = 12, 7, 30
	stroke.EnableAnimation(SubtleAnimation)
	stroke.Time = 41

	child := NewText("hi", "#ff0000")
	child.Left = 4
	g := NewGroup(child)
	g.Left, g.Top, g.FlipX = 50, 60, true
	s.Add(stroke, g)

	snap, err := s.Snapshot()
	require.NoError(t, err)

	other := NewScene()
	require.NoError(t, other.Restore(snap))
	objs := other.Objects()
	require.Len(t, objs, 2)

	r := objs[0]
	assert.Equal(t, stroke.ID, r.ID)
	assert.Equal(t, KindRaster, r.Kind)
	assert.Equal(t, stroke.Transform, r.Transform)
	assert.Equal(t, stroke.Animatable, r.Animatable)
	assert.Equal(t, px.Pix, r.Src.Pix)

	rg := objs[1]
	assert.Equal(t, KindGroup, rg.Kind)
	assert.True(t, rg.FlipX)
	require.Len(t, rg.Children, 1)
	assert.Equal(t, 4.0, rg.Children[0].Left)
	assert.Equal(t, "hi", rg.Children[0].Text)
	assert.Equal(t, g.Bounds(), rg.Bounds())
	assert.Equal(t, s.Revision(), other.Revision())
}

func TestRestoreDefaultsMissingAnimationFields(t *testing.T) {
	doc := `{"version":1,"objects":[{"id":"a","type":"text","text":"x","left":3,"top":9,"scaleX":1,"scaleY":1,"opacity":1,"visible":true,"animated":true}]}`
	s := NewScene()
	require.NoError(t, s.Restore(Snapshot(doc)))
	o := s.Objects()[0]
	assert.Equal(t, RichAnimation, o.Settings)
	assert.True(t, o.HasOrigin)
	assert.Equal(t, 3.0, o.OriginalLeft)
	assert.Equal(t, 9.0, o.OriginalTop)
	assert.False(t, o.HasBaseScale)
}

func TestRestoreRejectsCorruptInput(t *testing.T) {
	s := NewScene()
	keep := NewText("keep", "")
	s.Add(keep)
	s.Select(keep)

	for name, doc := range map[string]string{
		"empty":     ``,
		"not json":  `{`,
		"version":   `{"version":7,"objects":[]}`,
		"kind":      `{"version":1,"objects":[{"type":"blob"}]}`,
		"no pixels": `{"version":1,"objects":[{"type":"raster"}]}`,
		"truncated": `{"version":1,"objects":[{"type":"image","src":{"width":4,"height":4,"data":""}}]}`,
		"huge":      `{"version":1,"objects":[{"type":"raster","src":{"width":2147483647,"height":2147483647,"data":"eJwDAAAAAAE="}}]}`,
		"negative":  `{"version":1,"objects":[{"type":"raster","src":{"width":-4,"height":4,"data":"eJwDAAAAAAE="}}]}`,
		"too wide":  `{"version":1,"objects":[{"type":"raster","src":{"width":20000,"height":1,"data":"eJwDAAAAAAE="}}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			err := s.Restore(Snapshot(doc))
			assert.ErrorIs(t, err, ErrCorruptSnapshot)
			assert.Equal(t, []*Object{keep}, s.Objects())
			assert.Equal(t, []*Object{keep}, s.Selection())
		})
	}
}

func TestSnapshotOmitsUnsetAnchors(t *testing.T) {
	s := NewScene()
	s.Add(NewText("still", ""))
	snap, err := s.Snapshot()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(snap, &doc))
	obj := doc["objects"].([]any)[0].(map[string]any)
	assert.NotContains(t, obj, "originalLeft")
	assert.NotContains(t, obj, "baseScaleX")
	assert.Contains(t, obj, "animationSettings")
}

func TestSnapshotWriteAndRead(t *testing.T) {
	s := NewScene()
	s.Add(NewText("file", ""))
	snap, err := s.Snapshot()
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = snap.WriteTo(&buf)
	require.NoError(t, err)
	read, err := ReadSnapshot(&buf)
	require.NoError(t, err)
	assert.Equal(t, snap, read)

	rev, err := read.Revision()
	require.NoError(t, err)
	assert.Equal(t, s.Revision(), rev)

	_, err = ReadSnapshot(bytes.NewReader([]byte("nope")))
	assert.ErrorIs(t, err, ErrCorruptSnapshot)
}
