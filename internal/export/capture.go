package export

import (
	"context"
	"fmt"
	"image"

	"CrayonBoard/internal/anim"
	"CrayonBoard/internal/render"
	"CrayonBoard/internal/state"
)

// Progress receives completion in percent. Capturing covers 0 to 50,
// encoding 50 to 100.
type Progress func(percent float64)

// CaptureOptions describes one capture run.
type CaptureOptions struct {
	Region   render.Region
	Frames   int
	Renderer *render.Renderer
	Progress Progress
}

// saved is the state of one object that a capture run may disturb.
type saved struct {
	o *state.Object
	t state.Transform
	a state.Animatable
}

func snapshotTree(objects []*state.Object) []saved {
	var out []saved
	for _, top := range objects {
		top.Walk(func(o *state.Object) {
			out = append(out, saved{o: o, t: o.Transform, a: o.Animatable})
		})
	}
	return out
}

func restoreTree(objects []*state.Object, s []saved) {
	for _, v := range s {
		v.o.Transform = v.t
		v.o.Animatable = v.a
	}
	for _, top := range objects {
		top.UpdateCoords()
	}
}

// Capture steps the animation once per frame and renders the region after
// each step, holding the scene for the whole run. History recording is
// suppressed while it runs and every transform and animation phase is put
// back before Capture returns, whether it succeeds or not. Selected
// objects animate too.
func Capture(ctx context.Context, scene *state.Scene, history *state.History, engine *anim.Engine, opt CaptureOptions) ([]*image.RGBA, error) {
	if opt.Frames <= 0 {
		opt.Frames = 1
	}
	if opt.Renderer == nil {
		opt.Renderer = &render.Renderer{}
	}
	var frames []*image.RGBA
	err := scene.Exclusive(func(objects []*state.Object) error {
		// Released before the scene unlocks, so edits queued behind the
		// capture are recorded.
		if history != nil {
			release := history.Suppress()
			defer release()
		}
		before := snapshotTree(objects)
		defer restoreTree(objects, before)

		frames = make([]*image.RGBA, 0, opt.Frames)
		for i := 0; i < opt.Frames; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if engine != nil && opt.Frames > 1 {
				engine.Step(objects, nil)
			}
			img, err := opt.Renderer.Capture(objects, opt.Region)
			if err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			frames = append(frames, img)
			if opt.Progress != nil {
				opt.Progress(float64(i+1) / float64(opt.Frames) * 50)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	state.Logger().Info("[EXPORT] captured", "frames", len(frames))
	return frames, nil
}
