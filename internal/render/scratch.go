package render

import (
	"image"
	"sync"

	"CrayonBoard/internal/brush"
	"CrayonBoard/internal/state"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

var _ brush.Overlay = (*Scratch)(nil)

// Scratch is the live layer showing the stroke being drawn. It sits on top
// of the scene and follows the viewport.
type Scratch struct {
	mu     sync.Mutex
	buf    *image.RGBA
	origin state.Point

	// OnChange is called after every Show and Clear.
	OnChange func()
}

// Show replaces the preview with a copy of buf placed at origin on the canvas.
func (s *Scratch) Show(buf *image.RGBA, origin state.Point) {
	s.mu.Lock()
	if s.buf == nil || s.buf.Rect != buf.Rect {
		s.buf = image.NewRGBA(buf.Rect)
	}
	copy(s.buf.Pix, buf.Pix)
	s.origin = origin
	s.mu.Unlock()
	s.changed()
}

// Clear removes the preview.
func (s *Scratch) Clear() {
	s.mu.Lock()
	s.buf = nil
	s.mu.Unlock()
	s.changed()
}

// Empty reports whether nothing is being previewed.
func (s *Scratch) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf == nil
}

// Draw composites the preview into dst through view.
func (s *Scratch) Draw(dst *image.RGBA, view f64.Aff3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf == nil {
		return
	}
	m := state.Mul(view, state.Translate(s.origin.X, s.origin.Y))
	draw.ApproxBiLinear.Transform(dst, m, s.buf, s.buf.Bounds(), draw.Over, nil)
}

func (s *Scratch) changed() {
	if s.OnChange != nil {
		s.OnChange()
	}
}
