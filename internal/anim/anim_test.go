package anim

import (
	"context"
	"image"
	"math"
	"testing"
	"time"

	"CrayonBoard/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func animated(settings state.AnimationSettings) *state.Object {
	o := state.NewRaster(image.NewRGBA(image.Rect(0, 0, 8, 8)))
	o.EnableAnimation(settings)
	return o
}

func TestZeroSettingsOnlyAdvanceTime(t *testing.T) {
	o := animated(state.AnimationSettings{})
	o.Left, o.Top, o.Angle = 3, 4, 12
	before := o.Transform

	e := NewEngine()
	for i := 0; i < 5; i++ {
		e.Step([]*state.Object{o}, nil)
	}
	assert.Equal(t, before, o.Transform)
	assert.Equal(t, 2.5, o.Time)
}

func TestZeroedSettingsReleaseOpacityAndSkew(t *testing.T) {
	o := animated(state.RichAnimation)
	e := NewEngine()
	for i := 0; i < 7; i++ {
		e.Step([]*state.Object{o}, nil)
	}
	require.NotEqual(t, 1.0, o.Opacity)
	require.NotZero(t, o.SkewX)

	o.Settings = state.AnimationSettings{MoveAmplitude: 1}
	e.Step([]*state.Object{o}, nil)
	assert.Equal(t, 1.0, o.Opacity)
	assert.Zero(t, o.SkewX)
	assert.Zero(t, o.SkewY)
}

func TestPulseFollowsBaseScale(t *testing.T) {
	o := animated(state.AnimationSettings{PulseScale: 0.25})
	o.ScaleX, o.ScaleY = 2, 3
	o.BaseScaleX, o.BaseScaleY = 2, 3

	NewEngine().Step([]*state.Object{o}, nil)
	f := 1 + math.Sin(DefaultDelta*0.8)*0.25
	assert.InDelta(t, 2*f, o.ScaleX, 1e-12)
	assert.InDelta(t, 3*f, o.ScaleY, 1e-12)
}

func TestExcludedObjectIsUntouched(t *testing.T) {
	o := animated(state.RichAnimation)
	o.Left = 9
	before := *o

	moved := NewEngine().Step([]*state.Object{o}, state.NewSet(o))
	assert.False(t, moved)
	assert.Equal(t, before, *o)
}

func TestMoveAmplitudeScenario(t *testing.T) {
	o := animated(state.AnimationSettings{MoveAmplitude: 5})
	require.Equal(t, 0.0, o.OriginalLeft)

	e := NewEngine()
	for i := 0; i < 4; i++ {
		e.Step([]*state.Object{o}, nil)
	}
	assert.Equal(t, 2.0, o.Time)
	assert.Equal(t, 0+math.Sin(2.0*0.3)*5, o.Left)
	assert.Equal(t, 0+math.Cos(2.0*0.2)*5, o.Top)
}

func TestOpacityFloorAndRotationDrift(t *testing.T) {
	o := animated(state.AnimationSettings{OpacityRange: 5, RotationSpeed: 1})
	o.Time = 3*math.Pi/0.4/2 - DefaultDelta // sin(t*0.4) == -1 after the step

	NewEngine().Step([]*state.Object{o}, nil)
	assert.Equal(t, state.MinAnimOpacity, o.Opacity)
	assert.InDelta(t, math.Sin(o.Time)*2, o.Angle, 1e-12)
}

func TestSkewOscillates(t *testing.T) {
	o := animated(state.AnimationSettings{SkewAmount: 4})
	NewEngine().Step([]*state.Object{o}, nil)
	assert.InDelta(t, math.Sin(0.5*0.25)*4, o.SkewX, 1e-12)
	assert.InDelta(t, math.Cos(0.5*0.25)*4, o.SkewY, 1e-12)
}

func TestNegativeSettingsAreTolerated(t *testing.T) {
	bad := animated(state.AnimationSettings{PulseScale: -3, MoveAmplitude: math.NaN()})
	good := animated(state.AnimationSettings{MoveAmplitude: 1})
	before := bad.Transform

	NewEngine().Step([]*state.Object{bad, good}, nil)
	assert.Equal(t, before, bad.Transform)
	assert.NotZero(t, good.Left)
}

func TestGroupsRecurse(t *testing.T) {
	child := animated(state.AnimationSettings{MoveAmplitude: 1})
	still := animated(state.AnimationSettings{MoveAmplitude: 1})
	g := state.NewGroup(child, still)

	e := NewEngine()
	assert.True(t, e.Step([]*state.Object{g}, state.NewSet(still)))
	assert.Equal(t, 0.5, child.Time)
	assert.Zero(t, still.Time)
	assert.False(t, g.Animated)

	e.Step([]*state.Object{g}, state.NewSet(g))
	assert.Equal(t, 0.5, child.Time)
}

func TestSelectStepDeselectResumesSmoothly(t *testing.T) {
	s := state.NewScene()
	o := animated(state.AnimationSettings{MoveAmplitude: 5, SkewAmount: 3})
	s.Add(o)
	e := NewEngine()
	for i := 0; i < 3; i++ {
		e.StepScene(s)
	}

	s.Select(o)
	left, top, tm := o.Left, o.Top, o.Time
	for i := 0; i < 10; i++ {
		e.StepScene(s)
	}
	assert.Equal(t, left, o.Left)
	assert.Equal(t, top, o.Top)
	assert.Equal(t, tm, o.Time)

	s.ClearSelection()
	assert.Equal(t, left, o.Left)
	assert.Zero(t, o.SkewX)

	e.StepScene(s)
	want := left + (math.Sin((tm+0.5)*0.3)-math.Sin(tm*0.3))*5
	assert.InDelta(t, want, o.Left, 1e-9)
	assert.Less(t, math.Abs(o.Left-left), 5*0.5*0.3+1e-9)
}

func TestSchedulerStepsPerFrameAndStops(t *testing.T) {
	s := state.NewScene()
	o := animated(state.AnimationSettings{MoveAmplitude: 1})
	s.Add(o)

	clock := NewManualClock()
	sched := NewScheduler(s, NewEngine(), clock)
	var redraws int
	sched.OnFrame = func(moved bool) {
		if moved {
			redraws++
		}
	}
	require.NoError(t, sched.Start(context.Background()))
	assert.ErrorIs(t, sched.Start(context.Background()), ErrRunning)

	for i := 0; i < 6; i++ {
		require.True(t, clock.Tick())
	}
	sched.Stop()
	sched.Stop()

	assert.False(t, sched.Running())
	assert.Equal(t, uint64(6), sched.Frames())
	assert.Equal(t, 6, redraws)
	assert.Equal(t, 3.0, o.Time)
	assert.False(t, clock.Tick())
	assert.ErrorIs(t, sched.Start(context.Background()), ErrStopped)
}

func TestSchedulerStopsWithContext(t *testing.T) {
	sched := NewScheduler(state.NewScene(), NewEngine(), NewManualClock())
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, sched.Start(ctx))
	cancel()
	assert.Eventually(t, func() bool { return !sched.Running() }, time.Second, time.Millisecond)
	sched.Stop()
}

func TestStopBeforeStart(t *testing.T) {
	sched := NewScheduler(state.NewScene(), NewEngine(), NewTickerClock(30))
	sched.Stop()
	assert.False(t, sched.Running())
}
