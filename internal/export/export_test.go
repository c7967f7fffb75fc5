package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"testing"
	"time"

	"CrayonBoard/internal/anim"
	"CrayonBoard/internal/render"
	"CrayonBoard/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/draw"
)

var errDisk = errors.New("disk full")

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errDisk }

func board(t *testing.T) (*state.Scene, *state.History, *state.Object) {
	t.Helper()
	s := state.NewScene()
	img := image.NewRGBA(image.Rect(0, 0, 6, 6))
	draw.Draw(img, img.Rect, image.NewUniform(color.RGBA{B: 0xff, A: 0xff}), image.Point{}, draw.Src)
	o := state.NewRaster(img)
	o.Left, o.Top = 10, 10
	o.EnableAnimation(state.AnimationSettings{MoveAmplitude: 5, PulseScale: 0.2, RotationSpeed: 0.5})
	s.Add(o)
	h, err := state.NewHistory(s)
	require.NoError(t, err)
	return s, h, o
}

var area = state.RenderArea{X: 0, Y: 0, Width: 32, Height: 24}

func TestSettingsTiming(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, 33*time.Millisecond, s.Delay())
	assert.Equal(t, 60, s.FrameCount())
	s.FrameRate = 24
	assert.Equal(t, 42*time.Millisecond, s.Delay())

	n, d := s.For(APNG)
	assert.Equal(t, APNGFrames, n)
	assert.Equal(t, APNGDelay, d)
	n, _ = s.For(PNG)
	assert.Equal(t, 1, n)

	s.FrameRate = 0
	assert.ErrorIs(t, s.Validate(), ErrInvalid)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"out.GIF": GIF, "apng": APNG, "a/b/c.pdf": PDF, "still.png": PNG} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("movie.mp4")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestCaptureRestoresScene(t *testing.T) {
	s, h, o := board(t)
	beforeT, beforeA := o.Transform, o.Animatable
	undo, _ := h.Len()
	var changes int
	s.Subscribe(func(state.Change) { changes++ })

	var last float64
	frames, err := Capture(context.Background(), s, h, anim.NewEngine(), CaptureOptions{
		Region:   render.Region{Area: area},
		Frames:   10,
		Progress: func(p float64) { last = p },
	})
	require.NoError(t, err)
	assert.Len(t, frames, 10)
	assert.Equal(t, 50.0, last)
	assert.NotEqual(t, frames[0].Pix, frames[9].Pix)

	assert.Equal(t, beforeT, o.Transform)
	assert.Equal(t, beforeA, o.Animatable)
	after, _ := h.Len()
	assert.Equal(t, undo, after)
	assert.Zero(t, changes)
	assert.False(t, h.Suppressed())
}

func TestEditBlockedByCaptureIsRecorded(t *testing.T) {
	s, h, _ := board(t)
	undo, _ := h.Len()
	added := make(chan struct{})
	var once bool
	_, err := Capture(context.Background(), s, h, anim.NewEngine(), CaptureOptions{
		Region: render.Region{Area: area},
		Frames: 3,
		Progress: func(float64) {
			if once {
				return
			}
			once = true
			go func() {
				s.Add(state.NewText("late", ""))
				close(added)
			}()
			// Give the edit time to queue on the scene lock.
			time.Sleep(20 * time.Millisecond)
		},
	})
	require.NoError(t, err)
	<-added
	after, _ := h.Len()
	assert.Equal(t, undo+1, after)
	assert.False(t, h.Suppressed())
}

func TestCaptureAnimatesSelection(t *testing.T) {
	s, h, o := board(t)
	s.Select(o)
	frames, err := Capture(context.Background(), s, h, anim.NewEngine(), CaptureOptions{
		Region: render.Region{Area: area},
		Frames: 4,
	})
	require.NoError(t, err)
	assert.NotEqual(t, frames[0].Pix, frames[3].Pix)
}

func TestCaptureRestoresOnFailure(t *testing.T) {
	s, h, o := board(t)
	before := o.Transform

	ctx, cancel := context.WithCancel(context.Background())
	n := 0
	_, err := Capture(ctx, s, h, anim.NewEngine(), CaptureOptions{
		Region: render.Region{Area: area},
		Frames: 10,
		Progress: func(float64) {
			if n++; n == 3 {
				cancel()
			}
		},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, before, o.Transform)
	assert.False(t, h.Suppressed())

	_, err = Capture(context.Background(), s, h, anim.NewEngine(), CaptureOptions{Frames: 3})
	assert.ErrorIs(t, err, render.ErrEmptyArea)
	assert.Equal(t, before, o.Transform)
}

func TestJobRestoresWhenEncoderFails(t *testing.T) {
	s, h, o := board(t)
	before, phase := o.Transform, o.Time

	job := Job{Format: GIF, Settings: DefaultSettings(), Area: area}
	job.Settings.Duration = 0.2
	err := job.Run(context.Background(), failingWriter{}, s, h, anim.NewEngine())
	assert.ErrorIs(t, err, errDisk)
	assert.Equal(t, before, o.Transform)
	assert.Equal(t, phase, o.Time)
}

func TestGIFRoundTrip(t *testing.T) {
	s, h, _ := board(t)
	var progress []float64
	job := Job{
		Format:   GIF,
		Settings: Settings{Width: 16, Height: 12, FrameRate: 30, Duration: 0.2, Background: "#ffffff"},
		Area:     area,
		Progress: func(p float64) { progress = append(progress, p) },
	}
	var buf bytes.Buffer
	require.NoError(t, job.Run(context.Background(), &buf, s, h, anim.NewEngine()))

	g, err := gif.DecodeAll(&buf)
	require.NoError(t, err)
	assert.Len(t, g.Image, 6)
	assert.Equal(t, 3, g.Delay[0])
	assert.Equal(t, 0, g.LoopCount)
	assert.Equal(t, image.Rect(0, 0, 16, 12), g.Image[0].Bounds())

	require.NotEmpty(t, progress)
	assert.IsNonDecreasing(t, progress)
	assert.Equal(t, 100.0, progress[len(progress)-1])
}

func TestAPNGAndStillPNG(t *testing.T) {
	s, h, _ := board(t)
	for _, f := range []Format{APNG, PNG} {
		var buf bytes.Buffer
		job := Job{Format: f, Settings: Settings{FrameRate: 30, Duration: 1}, Area: area}
		require.NoError(t, job.Run(context.Background(), &buf, s, h, anim.NewEngine()), f)
		img, err := png.Decode(&buf)
		require.NoError(t, err, f)
		assert.Equal(t, image.Rect(0, 0, 32, 24), img.Bounds())
	}
}

func TestPDFPages(t *testing.T) {
	frames := []*image.RGBA{image.NewRGBA(image.Rect(0, 0, 40, 30)), image.NewRGBA(image.Rect(0, 0, 40, 30))}
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, PDF, frames, DefaultSettings(), nil))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
	assert.True(t, bytes.Contains(buf.Bytes(), []byte("/Count 2")))
}

func TestEncodeErrors(t *testing.T) {
	assert.ErrorIs(t, Encode(&bytes.Buffer{}, GIF, nil, DefaultSettings(), nil), ErrNoFrames)
	assert.ErrorIs(t, Encode(&bytes.Buffer{}, Format("bmp"), []*image.RGBA{image.NewRGBA(image.Rect(0, 0, 1, 1))}, DefaultSettings(), nil), ErrUnknownFormat)
}
