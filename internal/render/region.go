package render

import (
	"errors"
	"image"

	"CrayonBoard/internal/state"

	"github.com/anthonynsimon/bild/transform"
)

// ErrEmptyArea is returned for a capture area without pixels.
var ErrEmptyArea = errors.New("capture area is empty")

// Region describes one capture of the board.
type Region struct {
	// Area is in canvas element coordinates, the space the viewport maps to.
	Area state.RenderArea
	View state.Viewport
	// Width and Height scale the capture when both are positive.
	Width  int
	Height int
}

// Capture renders the region of objects into a new image.
func (r *Renderer) Capture(objects []*state.Object, reg Region) (*image.RGBA, error) {
	if !reg.Area.Valid() {
		return nil, ErrEmptyArea
	}
	rect := reg.Area.Rect()
	if rect.Empty() {
		return nil, ErrEmptyArea
	}
	img := r.Frame(objects, reg.View, rect)
	if reg.Width > 0 && reg.Height > 0 && (reg.Width != rect.Dx() || reg.Height != rect.Dy()) {
		img = transform.Resize(img, reg.Width, reg.Height, transform.Linear)
	}
	return img, nil
}
