package anim

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"CrayonBoard/internal/state"
)

var (
	ErrRunning = errors.New("scheduler already running")
	ErrStopped = errors.New("scheduler stopped")
)

// Scheduler steps the engine on the scene once per frame of its clock until
// stopped. It owns the clock and stops it on teardown.
type Scheduler struct {
	scene  *state.Scene
	engine *Engine
	clock  FrameClock

	// OnFrame is called after every step from the scheduler goroutine.
	OnFrame func(moved bool)

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}

	frames atomic.Uint64
}

func NewScheduler(scene *state.Scene, engine *Engine, clock FrameClock) *Scheduler {
	return &Scheduler{scene: scene, engine: engine, clock: clock}
}

// Start runs the frame loop until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return ErrRunning
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx)
	state.Logger().Info("[ANIM] scheduler started")
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)
	frames := s.clock.Frames()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-frames:
			if !ok {
				return
			}
			moved := s.engine.StepScene(s.scene)
			s.frames.Add(1)
			if s.OnFrame != nil {
				s.OnFrame(moved)
			}
		}
	}
}

// Stop cancels the loop, stops the clock and waits for the current frame to
// finish. Calling it again, or before Start, is a no-op beyond marking the
// scheduler stopped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	s.clock.Stop()
	if cancel != nil {
		cancel()
		<-done
		state.Logger().Info("[ANIM] scheduler stopped", "frames", s.frames.Load())
	}
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.stopped {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Frames returns how many frames have been stepped.
func (s *Scheduler) Frames() uint64 { return s.frames.Load() }
