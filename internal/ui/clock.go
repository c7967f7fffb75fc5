package ui

import (
	"sync"
	"time"

	"CrayonBoard/internal/anim"

	"fyne.io/fyne/v2"
)

var _ anim.FrameClock = (*FyneClock)(nil)

// FyneClock ticks once per frame the fyne driver draws. Frames the
// scheduler has not taken yet are dropped.
type FyneClock struct {
	a    *fyne.Animation
	c    chan time.Time
	once sync.Once
}

// NewFyneClock starts ticking at once; it needs a running fyne app.
func NewFyneClock() *FyneClock {
	c := &FyneClock{c: make(chan time.Time, 1)}
	c.a = fyne.NewAnimation(time.Second, func(float32) {
		select {
		case c.c <- time.Now():
		default:
		}
	})
	c.a.RepeatCount = fyne.AnimationRepeatForever
	c.a.Curve = fyne.AnimationLinear
	c.a.Start()
	return c
}

func (c *FyneClock) Frames() <-chan time.Time { return c.c }

func (c *FyneClock) Stop() { c.once.Do(c.a.Stop) }
