package state

import "math"

// Phase frequencies shared by the animation engine and anchor resync.
const (
	PulseFrequency   = 0.8
	OpacityFrequency = 0.4
	MoveFrequencyX   = 0.3
	MoveFrequencyY   = 0.2
	SkewFrequency    = 0.25
	RotationGain     = 2.0
	MinAnimOpacity   = 0.1
)

// CaptureAnchors seeds any anchor that is not set yet from the current
// transform. Anchors already captured are left alone.
func (o *Object) CaptureAnchors() {
	if !o.HasBaseScale {
		o.BaseScaleX, o.BaseScaleY = o.ScaleX, o.ScaleY
		o.HasBaseScale = true
	}
	if !o.HasOrigin {
		o.OriginalLeft, o.OriginalTop = o.Left, o.Top
		o.HasOrigin = true
	}
}

// ResyncAnchors moves the anchors to the object's current resting state.
//
// The current oscillation offset is taken out so the next step continues
// from where the object is now instead of snapping back to a stale anchor.
func (o *Object) ResyncAnchors() {
	s := o.Settings.Sanitize()

	o.BaseScaleX, o.BaseScaleY = o.ScaleX, o.ScaleY
	if s.PulseScale > 0 {
		f := 1 + math.Sin(o.Time*PulseFrequency)*s.PulseScale
		if math.Abs(f) > 1e-9 {
			o.BaseScaleX, o.BaseScaleY = o.ScaleX/f, o.ScaleY/f
		}
	}
	o.HasBaseScale = true

	o.OriginalLeft, o.OriginalTop = o.Left, o.Top
	if s.MoveAmplitude > 0 {
		o.OriginalLeft -= math.Sin(o.Time*MoveFrequencyX) * s.MoveAmplitude
		o.OriginalTop -= math.Cos(o.Time*MoveFrequencyY) * s.MoveAmplitude
	}
	o.HasOrigin = true
}

// EnableAnimation starts an animation session with a copy of settings.
func (o *Object) EnableAnimation(settings AnimationSettings) {
	o.Settings = settings
	if o.Animated {
		return
	}
	o.Animated = true
	o.Time = 0
	o.CaptureAnchors()
}

// DisableAnimation ends the session: the object returns to its anchors
// with no skew and full opacity, and the anchors are forgotten.
func (o *Object) DisableAnimation() {
	if !o.Animated {
		return
	}
	o.Animated = false
	if o.HasBaseScale {
		o.ScaleX, o.ScaleY = o.BaseScaleX, o.BaseScaleY
	}
	if o.HasOrigin {
		o.Left, o.Top = o.OriginalLeft, o.OriginalTop
	}
	o.SkewX, o.SkewY = 0, 0
	o.Opacity = 1
	o.HasBaseScale, o.HasOrigin = false, false
}

// shiftAnchors moves the origin anchor along with a translation.
func (o *Object) shiftAnchors(dx, dy float64) {
	if o.HasOrigin {
		o.OriginalLeft += dx
		o.OriginalTop += dy
	}
}
