// Package export captures animated frames of the board and encodes them.
package export

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrInvalid       = errors.New("invalid export settings")
	ErrUnknownFormat = errors.New("unknown export format")
)

// Format names an output encoding.
type Format string

const (
	PNG  Format = "png"
	GIF  Format = "gif"
	APNG Format = "apng"
	PDF  Format = "pdf"
)

// ParseFormat accepts a format name or a file name with a known extension.
// ".png" means a still PNG; use ".apng" for the animated variant.
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(s)
	if ext := filepath.Ext(name); ext != "" {
		name = ext[1:]
	}
	switch f := Format(name); f {
	case PNG, GIF, APNG, PDF:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Animated reports whether the format holds more than one frame.
func (f Format) Animated() bool { return f == GIF || f == APNG || f == PDF }

// APNG defaults: a fixed two second loop.
const (
	APNGFrames = 60
	APNGDelay  = 33 * time.Millisecond
)

// Settings controls frame count, timing and output size.
type Settings struct {
	// Width and Height scale the output; zero keeps the capture size.
	Width     int     `json:"width" toml:"width"`
	Height    int     `json:"height" toml:"height"`
	FrameRate int     `json:"frameRate" toml:"frame_rate"`
	Duration  float64 `json:"duration" toml:"duration"`
	// Repeat is the GIF loop count: 0 loops forever, -1 plays once.
	Repeat      int    `json:"repeat" toml:"repeat"`
	Background  string `json:"background" toml:"background"`
	Transparent bool   `json:"transparent" toml:"transparent"`
	Dither      bool   `json:"dither" toml:"dither"`
}

// DefaultSettings returns the GIF export defaults.
func DefaultSettings() Settings {
	return Settings{
		Width:      400,
		Height:     300,
		FrameRate:  30,
		Duration:   2,
		Background: "#ffffff",
	}
}

// Validate rejects settings that cannot produce an animation.
func (s Settings) Validate() error {
	switch {
	case s.FrameRate <= 0:
		return fmt.Errorf("%w: frame rate %d", ErrInvalid, s.FrameRate)
	case !(s.Duration > 0) || math.IsInf(s.Duration, 0):
		return fmt.Errorf("%w: duration %v", ErrInvalid, s.Duration)
	case s.Width < 0 || s.Height < 0:
		return fmt.Errorf("%w: size %dx%d", ErrInvalid, s.Width, s.Height)
	case s.Repeat < -1:
		return fmt.Errorf("%w: repeat %d", ErrInvalid, s.Repeat)
	}
	return nil
}

// Delay is the time between frames, round(1000/fps) milliseconds.
func (s Settings) Delay() time.Duration {
	if s.FrameRate <= 0 {
		return APNGDelay
	}
	return time.Duration(math.Round(1000/float64(s.FrameRate))) * time.Millisecond
}

// FrameCount is round(fps*duration), at least one.
func (s Settings) FrameCount() int {
	return max(int(math.Round(float64(s.FrameRate)*s.Duration)), 1)
}

// For returns the frame count and delay used for format f.
func (s Settings) For(f Format) (frames int, delay time.Duration) {
	switch f {
	case PNG:
		return 1, 0
	case APNG:
		return APNGFrames, APNGDelay
	}
	return s.FrameCount(), s.Delay()
}
