package state

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
)

// ErrCorruptSnapshot is returned when a snapshot cannot be restored.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

const snapshotVersion = 1

// Snapshot is a full serialized copy of the scene, including every
// animation field. It is opaque to callers.
type Snapshot []byte

type sceneDoc struct {
	Version  int         `json:"version"`
	Revision uint64      `json:"revision"`
	Objects  []objectDoc `json:"objects"`
}

type pixelsDoc struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   []byte `json:"data"` // zlib compressed premultiplied RGBA
}

type objectDoc struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Type    Kind        `json:"type"`
	Left    float64     `json:"left"`
	Top     float64     `json:"top"`
	ScaleX  float64     `json:"scaleX"`
	ScaleY  float64     `json:"scaleY"`
	Angle   float64     `json:"angle"`
	SkewX   float64     `json:"skewX"`
	SkewY   float64     `json:"skewY"`
	Opacity float64     `json:"opacity"`
	FlipX   bool        `json:"flipX,omitempty"`
	FlipY   bool        `json:"flipY,omitempty"`
	Visible bool        `json:"visible"`
	Locked  bool        `json:"locked,omitempty"`
	Src     *pixelsDoc  `json:"src,omitempty"`
	Text    string      `json:"text,omitempty"`
	Fill    string      `json:"fill,omitempty"`
	Objects []objectDoc `json:"objects,omitempty"`

	Animated          bool               `json:"animated"`
	AnimationTime     float64            `json:"animationTime"`
	AnimationSettings *AnimationSettings `json:"animationSettings,omitempty"`
	BaseScaleX        *float64           `json:"baseScaleX,omitempty"`
	BaseScaleY        *float64           `json:"baseScaleY,omitempty"`
	OriginalLeft      *float64           `json:"originalLeft,omitempty"`
	OriginalTop       *float64           `json:"originalTop,omitempty"`
}

// Snapshot serializes the whole scene.
func (s *Scene) Snapshot() (Snapshot, error) {
	snap, _, err := s.snapshotUnless(nil)
	return snap, err
}

// snapshotUnless serializes the scene unless skip, checked under the scene
// lock, reports true.
func (s *Scene) snapshotUnless(skip func() bool) (Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if skip != nil && skip() {
		return nil, true, nil
	}
	doc := sceneDoc{
		Version:  snapshotVersion,
		Revision: s.clock.Now(),
		Objects:  make([]objectDoc, 0, len(s.objects)),
	}
	for _, o := range s.objects {
		d, err := encodeObject(o)
		if err != nil {
			return nil, false, err
		}
		doc.Objects = append(doc.Objects, d)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, false, fmt.Errorf("snapshot: %w", err)
	}
	return data, false, nil
}

// Restore replaces the scene content with a snapshot. The snapshot is fully
// decoded before anything is touched, so a failed restore leaves the scene
// as it was. Restore clears the selection and does not notify subscribers.
func (s *Scene) Restore(snap Snapshot) error {
	objects, rev, err := decodeSnapshot(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.objects = objects
	s.selection = nil
	s.mu.Unlock()
	s.clock.Update(rev)
	return nil
}

func encodeObject(o *Object) (objectDoc, error) {
	d := objectDoc{
		ID:            o.ID,
		Name:          o.Name,
		Type:          o.Kind,
		Left:          o.Left,
		Top:           o.Top,
		ScaleX:        o.ScaleX,
		ScaleY:        o.ScaleY,
		Angle:         o.Angle,
		SkewX:         o.SkewX,
		SkewY:         o.SkewY,
		Opacity:       o.Opacity,
		FlipX:         o.FlipX,
		FlipY:         o.FlipY,
		Visible:       o.Visible,
		Locked:        o.Locked,
		Text:          o.Text,
		Fill:          o.Fill,
		Animated:      o.Animated,
		AnimationTime: o.Time,
	}
	settings := o.Settings
	d.AnimationSettings = &settings
	if o.HasBaseScale {
		bx, by := o.BaseScaleX, o.BaseScaleY
		d.BaseScaleX, d.BaseScaleY = &bx, &by
	}
	if o.HasOrigin {
		ol, ot := o.OriginalLeft, o.OriginalTop
		d.OriginalLeft, d.OriginalTop = &ol, &ot
	}
	if o.Src != nil {
		px, err := encodePixels(o)
		if err != nil {
			return d, err
		}
		d.Src = px
	}
	for _, c := range o.Children {
		cd, err := encodeObject(c)
		if err != nil {
			return d, err
		}
		d.Objects = append(d.Objects, cd)
	}
	return d, nil
}

// encodePixels compresses the object's pixels once; stroke and image
// buffers are immutable after creation so the result is cached.
func encodePixels(o *Object) (*pixelsDoc, error) {
	b := o.Src.Bounds()
	if o.srcZ == nil {
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			i := o.Src.PixOffset(b.Min.X, y)
			if _, err := zw.Write(o.Src.Pix[i : i+4*b.Dx()]); err != nil {
				return nil, fmt.Errorf("snapshot pixels of %s: %w", o.ID, err)
			}
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("snapshot pixels of %s: %w", o.ID, err)
		}
		o.srcZ = buf.Bytes()
	}
	return &pixelsDoc{Width: b.Dx(), Height: b.Dy(), Data: o.srcZ}, nil
}

func decodeSnapshot(snap Snapshot) ([]*Object, uint64, error) {
	if len(snap) == 0 {
		return nil, 0, fmt.Errorf("%w: empty", ErrCorruptSnapshot)
	}
	var doc sceneDoc
	if err := json.Unmarshal(snap, &doc); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if doc.Version != snapshotVersion {
		return nil, 0, fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, doc.Version)
	}
	objects := make([]*Object, 0, len(doc.Objects))
	for i, d := range doc.Objects {
		o, err := decodeObject(d)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: object %d: %v", ErrCorruptSnapshot, i, err)
		}
		o.UpdateCoords()
		objects = append(objects, o)
	}
	return objects, doc.Revision, nil
}

func decodeObject(d objectDoc) (*Object, error) {
	if !d.Type.valid() {
		return nil, fmt.Errorf("unknown type %q", d.Type)
	}
	for _, v := range []float64{d.Left, d.Top, d.ScaleX, d.ScaleY, d.Angle, d.SkewX, d.SkewY, d.Opacity} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New("non-finite transform")
		}
	}
	o := &Object{
		ID:   d.ID,
		Name: d.Name,
		Kind: d.Type,
		Transform: Transform{
			Left:    d.Left,
			Top:     d.Top,
			ScaleX:  d.ScaleX,
			ScaleY:  d.ScaleY,
			Angle:   d.Angle,
			SkewX:   d.SkewX,
			SkewY:   d.SkewY,
			Opacity: d.Opacity,
			FlipX:   d.FlipX,
			FlipY:   d.FlipY,
		},
		Visible: d.Visible,
		Locked:  d.Locked,
		Text:    d.Text,
		Fill:    d.Fill,
	}

	// Animation fields are reconciled the same way for every object:
	// animated objects always end up with settings and an origin anchor.
	o.Animated = d.Animated
	o.Time = d.AnimationTime
	if d.AnimationSettings != nil {
		o.Settings = *d.AnimationSettings
	} else if d.Animated {
		o.Settings = RichAnimation
	}
	if d.BaseScaleX != nil && d.BaseScaleY != nil {
		o.BaseScaleX, o.BaseScaleY, o.HasBaseScale = *d.BaseScaleX, *d.BaseScaleY, true
	}
	if d.OriginalLeft != nil && d.OriginalTop != nil {
		o.OriginalLeft, o.OriginalTop, o.HasOrigin = *d.OriginalLeft, *d.OriginalTop, true
	} else if d.Animated {
		o.OriginalLeft, o.OriginalTop, o.HasOrigin = o.Left, o.Top, true
	}

	switch d.Type {
	case KindRaster, KindImage:
		if d.Src == nil {
			return nil, fmt.Errorf("%s %s has no pixels", d.Type, d.ID)
		}
		src, err := decodePixels(d.Src)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", d.Type, d.ID, err)
		}
		o.Src = src
		o.srcZ = d.Src.Data
	case KindGroup:
		for _, cd := range d.Objects {
			c, err := decodeObject(cd)
			if err != nil {
				return nil, err
			}
			o.Children = append(o.Children, c)
		}
	}
	return o, nil
}

// maxPixelSide bounds each side of a decoded raster.
const maxPixelSide = 1 << 14

func decodePixels(p *pixelsDoc) (*image.RGBA, error) {
	if p.Width <= 0 || p.Height <= 0 || p.Width > maxPixelSide || p.Height > maxPixelSide {
		return nil, fmt.Errorf("bad pixel size %dx%d", p.Width, p.Height)
	}
	zr, err := zlib.NewReader(bytes.NewReader(p.Data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	img := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	if _, err := io.ReadFull(zr, img.Pix); err != nil {
		return nil, fmt.Errorf("pixels truncated: %w", err)
	}
	return img, nil
}

// WriteTo writes the snapshot to w.
func (s Snapshot) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(s)
	return int64(n), err
}

// ReadSnapshot reads a snapshot written by WriteTo and validates it.
func ReadSnapshot(r io.Reader) (Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if _, _, err := decodeSnapshot(data); err != nil {
		return nil, err
	}
	return data, nil
}

// Revision returns the scene revision the snapshot was taken at without
// decoding its objects.
func (s Snapshot) Revision() (uint64, error) {
	var head struct {
		Version  int    `json:"version"`
		Revision uint64 `json:"revision"`
	}
	if err := json.Unmarshal(s, &head); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if head.Version != snapshotVersion {
		return 0, fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, head.Version)
	}
	return head.Revision, nil
}
