// Package anim drives the continuous per-object oscillation of the scene.
package anim

import (
	"math"

	"CrayonBoard/internal/state"
)

// DefaultDelta is the phase advance per frame. It is not scaled by wall
// time, so animation runs faster on displays with a higher refresh rate.
const DefaultDelta = 0.5

// Engine advances animated objects one frame at a time.
type Engine struct {
	Delta float64
}

// NewEngine returns an engine stepping by DefaultDelta.
func NewEngine() *Engine {
	return &Engine{Delta: DefaultDelta}
}

// Step advances every animated object in objects that is not in excluded,
// recursing into groups. Excluding a group excludes everything inside it.
// It reports whether anything moved.
func (e *Engine) Step(objects []*state.Object, excluded state.Set) bool {
	moved := false
	for _, o := range objects {
		if e.step(o, excluded) {
			o.UpdateCoords()
			moved = true
		}
	}
	return moved
}

// StepScene runs one Step on the scene with the selection excluded.
func (e *Engine) StepScene(s *state.Scene) bool {
	var moved bool
	s.Animate(func(objects []*state.Object, excluded state.Set) {
		moved = e.Step(objects, excluded)
	})
	return moved
}

func (e *Engine) step(o *state.Object, excluded state.Set) bool {
	if excluded.Has(o) {
		return false
	}
	moved := false
	for _, c := range o.Children {
		if e.step(c, excluded) {
			moved = true
		}
	}
	if !o.Animated {
		return moved
	}
	e.advance(o)
	return true
}

func (e *Engine) advance(o *state.Object) {
	s := o.Settings.Sanitize()
	delta := e.Delta
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		delta = DefaultDelta
	}
	o.Time += delta
	t := o.Time

	if !o.HasBaseScale {
		o.BaseScaleX, o.BaseScaleY, o.HasBaseScale = o.ScaleX, o.ScaleY, true
	}
	if s.PulseScale > 0 {
		f := 1 + math.Sin(t*state.PulseFrequency)*s.PulseScale
		o.ScaleX = o.BaseScaleX * f
		o.ScaleY = o.BaseScaleY * f
	}
	if s.RotationSpeed > 0 {
		o.Angle += math.Sin(t*s.RotationSpeed) * state.RotationGain
	}
	if s.OpacityRange > 0 {
		o.Opacity = math.Max(state.MinAnimOpacity, 1+math.Sin(t*state.OpacityFrequency)*s.OpacityRange)
	} else {
		o.Opacity = 1
	}
	if s.MoveAmplitude > 0 {
		if !o.HasOrigin {
			o.OriginalLeft, o.OriginalTop, o.HasOrigin = o.Left, o.Top, true
		}
		o.Left = o.OriginalLeft + math.Sin(t*state.MoveFrequencyX)*s.MoveAmplitude
		o.Top = o.OriginalTop + math.Cos(t*state.MoveFrequencyY)*s.MoveAmplitude
	}
	// Skew always follows the amount, so zero flattens it.
	o.SkewX, o.SkewY = 0, 0
	if s.SkewAmount > 0 {
		o.SkewX = math.Sin(t*state.SkewFrequency) * s.SkewAmount
		o.SkewY = math.Cos(t*state.SkewFrequency) * s.SkewAmount
	}
}
