package anim

import (
	"sync"
	"time"
)

// FrameClock delivers display frames. Stop must be idempotent and must
// leave Frames either closed or silent.
type FrameClock interface {
	Frames() <-chan time.Time
	Stop()
}

// TickerClock emits frames at a fixed rate.
type TickerClock struct {
	ticker *time.Ticker
	once   sync.Once
}

// NewTickerClock starts a clock at fps frames per second. Rates of zero or
// less use 60.
func NewTickerClock(fps int) *TickerClock {
	if fps <= 0 {
		fps = 60
	}
	return &TickerClock{ticker: time.NewTicker(time.Second / time.Duration(fps))}
}

func (c *TickerClock) Frames() <-chan time.Time { return c.ticker.C }

func (c *TickerClock) Stop() { c.once.Do(c.ticker.Stop) }

// ManualClock emits a frame each time Tick is called. Tick blocks until the
// frame is taken, so frames are never dropped.
type ManualClock struct {
	c    chan time.Time
	now  time.Time
	once sync.Once
	done chan struct{}
}

func NewManualClock() *ManualClock {
	return &ManualClock{
		c:    make(chan time.Time),
		now:  time.Unix(0, 0),
		done: make(chan struct{}),
	}
}

func (c *ManualClock) Frames() <-chan time.Time { return c.c }

// Tick delivers one frame 1/60s after the previous one. It reports false
// when the clock was stopped before the frame was taken.
func (c *ManualClock) Tick() bool {
	c.now = c.now.Add(time.Second / 60)
	select {
	case c.c <- c.now:
		return true
	case <-c.done:
		return false
	}
}

func (c *ManualClock) Stop() { c.once.Do(func() { close(c.done) }) }
