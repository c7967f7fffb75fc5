// Package config loads and watches the board's TOML settings file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"CrayonBoard/internal/anim"
	"CrayonBoard/internal/brush"
	"CrayonBoard/internal/export"
	"CrayonBoard/internal/net"

	"github.com/pelletier/go-toml/v2"
)

var ErrInvalid = errors.New("invalid config")

// Animation controls the frame loop.
type Animation struct {
	FPS   int     `toml:"fps"`
	Delta float64 `toml:"delta"`
	// BroadcastEvery mirrors every Nth animation frame to viewers; zero
	// only mirrors recorded edits.
	BroadcastEvery int `toml:"broadcast_every"`
}

// Share controls the LAN mirror.
type Share struct {
	Port      int    `toml:"port"`
	Name      string `toml:"name"`
	Advertise bool   `toml:"advertise"`
}

// Canvas is the drawing surface.
type Canvas struct {
	Width        int    `toml:"width"`
	Height       int    `toml:"height"`
	Background   string `toml:"background"`
	HistoryLimit int    `toml:"history_limit"`
}

// Config is the whole settings file.
type Config struct {
	Brush     brush.Params    `toml:"brush"`
	Animation Animation       `toml:"animation"`
	Export    export.Settings `toml:"export"`
	Share     Share           `toml:"share"`
	Canvas    Canvas          `toml:"canvas"`
}

// Default returns the built in settings.
func Default() Config {
	return Config{
		Brush:     brush.DefaultParams(),
		Animation: Animation{FPS: 60, Delta: anim.DefaultDelta},
		Export:    export.DefaultSettings(),
		Share:     Share{Port: net.DefaultPort, Advertise: true},
		Canvas:    Canvas{Width: 1200, Height: 800, Background: "#ffffff", HistoryLimit: 200},
	}
}

// Validate rejects settings the board cannot run with. Brush fields are
// clamped on use and are not checked here.
func (c Config) Validate() error {
	switch {
	case c.Animation.FPS <= 0 || c.Animation.FPS > 240:
		return fmt.Errorf("%w: animation.fps %d", ErrInvalid, c.Animation.FPS)
	case !(c.Animation.Delta > 0):
		return fmt.Errorf("%w: animation.delta %v", ErrInvalid, c.Animation.Delta)
	case c.Animation.BroadcastEvery < 0:
		return fmt.Errorf("%w: animation.broadcast_every %d", ErrInvalid, c.Animation.BroadcastEvery)
	case c.Share.Port <= 0 || c.Share.Port > 65535:
		return fmt.Errorf("%w: share.port %d", ErrInvalid, c.Share.Port)
	case c.Canvas.Width <= 0 || c.Canvas.Height <= 0:
		return fmt.Errorf("%w: canvas size %dx%d", ErrInvalid, c.Canvas.Width, c.Canvas.Height)
	case c.Canvas.HistoryLimit < 0:
		return fmt.Errorf("%w: canvas.history_limit %d", ErrInvalid, c.Canvas.HistoryLimit)
	}
	if err := c.Export.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Load reads path over the defaults, so a file only needs the keys it
// changes. A missing file yields the defaults.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, err
	}
	return Parse(data)
}

// Parse decodes a TOML document over the defaults and validates it.
// Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	c := Default()
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Default(), fmt.Errorf("%w: %s", ErrInvalid, strict.String())
		}
		return Default(), fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.Validate(); err != nil {
		return Default(), err
	}
	return c, nil
}

// Save writes c to path, creating the directory if needed.
func (c Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// DefaultPath is the settings file under the user config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "crayonboard.toml"
	}
	return filepath.Join(dir, "crayonboard", "config.toml")
}
