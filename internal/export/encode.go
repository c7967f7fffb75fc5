package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/png"
	"io"
	"math"
	"time"

	"CrayonBoard/internal/anim"
	"CrayonBoard/internal/render"
	"CrayonBoard/internal/state"

	"github.com/kettek/apng"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
)

// ErrNoFrames is returned when there is nothing to encode.
var ErrNoFrames = errors.New("no frames to encode")

// encoder writes frames spaced delay apart.
type encoder func(w io.Writer, frames []*image.RGBA, delay time.Duration, s Settings, progress Progress) error

var encoders = map[Format]encoder{
	PNG:  encodePNG,
	GIF:  encodeGIF,
	APNG: encodeAPNG,
	PDF:  encodePDF,
}

// Encode writes frames in format f.
func Encode(w io.Writer, f Format, frames []*image.RGBA, s Settings, progress Progress) error {
	enc, ok := encoders[f]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if len(frames) == 0 {
		return ErrNoFrames
	}
	_, delay := s.For(f)
	if err := enc(w, frames, delay, s, progress); err != nil {
		return fmt.Errorf("encode %s: %w", f, err)
	}
	if progress != nil {
		progress(100)
	}
	return nil
}

// Job is a full export: capture then encode.
type Job struct {
	Format   Format
	Settings Settings
	Area     state.RenderArea
	View     state.Viewport
	Progress Progress
}

// Run captures the job's frames from scene and writes them to w. Encoding
// starts only after the scene is fully restored.
func (j Job) Run(ctx context.Context, w io.Writer, scene *state.Scene, history *state.History, engine *anim.Engine) error {
	if j.Format.Animated() {
		if err := j.Settings.Validate(); err != nil {
			return err
		}
	}
	n, _ := j.Settings.For(j.Format)
	frames, err := Capture(ctx, scene, history, engine, CaptureOptions{
		Region: render.Region{
			Area:   j.Area,
			View:   j.View,
			Width:  j.Settings.Width,
			Height: j.Settings.Height,
		},
		Frames:   n,
		Renderer: &render.Renderer{Transformer: draw.BiLinear},
		Progress: j.Progress,
	})
	if err != nil {
		return err
	}
	return Encode(w, j.Format, frames, j.Settings, j.Progress)
}

func encodePNG(w io.Writer, frames []*image.RGBA, _ time.Duration, s Settings, _ Progress) error {
	return png.Encode(w, flatten(frames[0], s))
}

func encodeGIF(w io.Writer, frames []*image.RGBA, delay time.Duration, s Settings, progress Progress) error {
	pal := color.Palette(palette.Plan9)
	if s.Transparent {
		pal = append(color.Palette{color.Transparent}, palette.WebSafe...)
	}
	var drawer draw.Drawer = draw.Src
	if s.Dither {
		drawer = draw.FloydSteinberg
	}

	out := &gif.GIF{LoopCount: s.Repeat}
	cs := int(math.Round(float64(delay) / float64(10*time.Millisecond)))
	for i, f := range frames {
		src := image.Image(f)
		if !s.Transparent {
			src = flatten(f, s)
		}
		p := image.NewPaletted(f.Bounds(), pal)
		drawer.Draw(p, p.Rect, src, f.Bounds().Min)
		out.Image = append(out.Image, p)
		out.Delay = append(out.Delay, cs)
		if s.Transparent {
			out.Disposal = append(out.Disposal, gif.DisposalBackground)
		}
		if progress != nil {
			progress(50 + float64(i+1)/float64(len(frames))*45)
		}
	}
	return gif.EncodeAll(w, out)
}

func encodeAPNG(w io.Writer, frames []*image.RGBA, delay time.Duration, s Settings, _ Progress) error {
	a := apng.APNG{Frames: make([]apng.Frame, 0, len(frames))}
	ms := uint16(delay / time.Millisecond)
	for _, f := range frames {
		var img image.Image = f
		if !s.Transparent {
			img = flatten(f, s)
		}
		a.Frames = append(a.Frames, apng.Frame{
			Image:            img,
			DelayNumerator:   ms,
			DelayDenominator: 1000,
		})
	}
	return apng.Encode(w, a)
}

// flatten composites f over the background colour. Without a background
// the frame is returned as is.
func flatten(f *image.RGBA, s Settings) image.Image {
	if s.Background == "" {
		return f
	}
	bg, err := colorful.Hex(s.Background)
	if err != nil {
		state.Logger().Warn("[EXPORT] bad background colour", "background", s.Background, "err", err)
		return f
	}
	out := image.NewRGBA(f.Bounds())
	draw.Draw(out, out.Rect, image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(out, out.Rect, f, f.Rect.Min, draw.Over)
	return out
}
