package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"CrayonBoard/internal/anim"
	"CrayonBoard/internal/config"
	"CrayonBoard/internal/export"
	share "CrayonBoard/internal/net"
	"CrayonBoard/internal/render"
	"CrayonBoard/internal/state"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// startMirror serves the board to viewers until ctx ends. Every recorded
// history entry is broadcast. It returns the share link.
func startMirror(ctx context.Context, g *errgroup.Group, cfg config.Config, scene *state.Scene, history *state.History) (string, error) {
	hub := share.NewHub()
	history.OnSnapshot = func(snap state.Snapshot) { broadcast(hub, snap) }
	snap, err := scene.Snapshot()
	if err != nil {
		return "", err
	}
	broadcast(hub, snap)

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Share.Port))
	if err != nil {
		return "", fmt.Errorf("mirror: %w", err)
	}
	srv := &http.Server{Handler: hub.Handler(), ReadHeaderTimeout: 5 * time.Second}
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		hub.Close()
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if cfg.Share.Advertise {
		adv, err := share.Advertise(cfg.Share.Name, cfg.Share.Port)
		if err != nil {
			// Viewers can still use the link.
			state.Logger().Warn("[NET] mDNS unavailable", "err", err)
		} else {
			g.Go(func() error {
				<-ctx.Done()
				return adv.Shutdown()
			})
		}
	}

	link := share.ShareLink(share.OutgoingIP(), cfg.Share.Port)
	state.Logger().Info("[NET] sharing", "link", link)
	return link, nil
}

func broadcast(hub *share.Hub, snap state.Snapshot) {
	if err := hub.Broadcast(snap); err != nil && !errors.Is(err, share.ErrHubClosed) {
		state.Logger().Warn("[NET] broadcast failed", "err", err)
	}
}

func newServeCmd(opt *options) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve <scene.json>",
		Short: "Animate a saved board headless and mirror it to viewers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opt.cfg
			if port > 0 {
				cfg.Share.Port = port
			}
			scene, history, err := openBoard(args[0], cfg)
			if err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			link, err := startMirror(ctx, g, cfg, scene, history)
			if err != nil {
				return err
			}
			cmd.Println(link)

			// Recorded edits never happen headless, so animation frames are
			// mirrored instead.
			every := uint64(cfg.Animation.BroadcastEvery)
			if every == 0 {
				every = uint64(cfg.Animation.FPS)
			}
			sched := anim.NewScheduler(scene, newEngine(cfg), anim.NewTickerClock(cfg.Animation.FPS))
			sched.OnFrame = func(bool) {
				if sched.Frames()%every != 0 {
					return
				}
				if snap, err := scene.Snapshot(); err == nil {
					history.OnSnapshot(snap)
				}
			}
			if err := sched.Start(ctx); err != nil {
				return err
			}
			g.Go(func() error {
				<-ctx.Done()
				sched.Stop()
				return nil
			})
			return g.Wait()
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from settings)")
	return cmd
}

type renderFlags struct {
	out         string
	format      string
	area        string
	fps         int
	duration    float64
	width       int
	height      int
	transparent bool
}

func newRenderCmd(opt *options) *cobra.Command {
	var f renderFlags
	cmd := &cobra.Command{
		Use:   "render <scene.json>",
		Short: "Export a saved board to png, gif, apng or pdf",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scene, history, err := openBoard(args[0], opt.cfg)
			if err != nil {
				return err
			}
			name := f.format
			if name == "" {
				name = f.out
			}
			format, err := export.ParseFormat(name)
			if err != nil {
				return err
			}

			s := opt.cfg.Export
			setIf(cmd, "fps", &s.FrameRate, f.fps)
			setIf(cmd, "duration", &s.Duration, f.duration)
			setIf(cmd, "width", &s.Width, f.width)
			setIf(cmd, "height", &s.Height, f.height)
			setIf(cmd, "transparent", &s.Transparent, f.transparent)

			area, err := parseArea(f.area, scene)
			if err != nil {
				return err
			}
			out, err := os.Create(f.out)
			if err != nil {
				return err
			}
			job := export.Job{
				Format:   format,
				Settings: s,
				Area:     area,
				View:     state.DefaultViewport(),
				Progress: func(p float64) { state.Logger().Debug("[EXPORT] progress", "percent", p) },
			}
			err = job.Run(cmd.Context(), out, scene, history, newEngine(opt.cfg))
			if cerr := out.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				os.Remove(f.out)
				return err
			}
			cmd.Println("wrote", f.out)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.out, "out", "o", "", "output file")
	fl.StringVar(&f.format, "format", "", "png, gif, apng or pdf (default from --out)")
	fl.StringVar(&f.area, "area", "", "capture area x,y,w,h (default: everything)")
	fl.IntVar(&f.fps, "fps", 0, "frame rate")
	fl.Float64Var(&f.duration, "duration", 0, "seconds of animation")
	fl.IntVar(&f.width, "width", 0, "output width")
	fl.IntVar(&f.height, "height", 0, "output height")
	fl.BoolVar(&f.transparent, "transparent", false, "keep the background transparent")
	cmd.MarkFlagRequired("out")
	return cmd
}

// setIf overrides a setting only when its flag was given.
func setIf[T any](cmd *cobra.Command, flag string, dst *T, v T) {
	if cmd.Flags().Changed(flag) {
		*dst = v
	}
}

// parseArea reads x,y,w,h, or frames every object when s is empty.
func parseArea(s string, scene *state.Scene) (state.RenderArea, error) {
	if s == "" {
		r := state.EmptyRect()
		for _, o := range scene.Objects() {
			r = r.Union(o.Bounds())
		}
		if r.Empty() {
			return state.RenderArea{}, render.ErrEmptyArea
		}
		return state.RenderArea{X: r.MinX, Y: r.MinY, Width: r.Width(), Height: r.Height()}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return state.RenderArea{}, fmt.Errorf("area %q: want x,y,w,h", s)
	}
	var v [4]float64
	for i, p := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return state.RenderArea{}, fmt.Errorf("area %q: %w", s, err)
		}
		v[i] = n
	}
	a := state.RenderArea{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	if !a.Valid() {
		return a, render.ErrEmptyArea
	}
	return a, nil
}
