package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"CrayonBoard/internal/anim"
	"CrayonBoard/internal/config"
	share "CrayonBoard/internal/net"
	"CrayonBoard/internal/state"
	"CrayonBoard/internal/ui"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type options struct {
	configPath string
	verbose    bool
	cfg        config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A share link as the only argument opens the board as a viewer.
	args := os.Args[1:]
	if len(args) == 1 && strings.HasPrefix(args[0], share.Scheme) {
		args = []string{"view", args[0]}
	}
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opt := &options{}
	root := &cobra.Command{
		Use:           "crayonboard [scene.json]",
		Short:         "An animated crayon whiteboard",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelInfo
			if opt.verbose {
				level = slog.LevelDebug
			}
			state.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			cfg, err := config.Load(opt.configPath)
			if err != nil {
				return fmt.Errorf("config %s: %w", opt.configPath, err)
			}
			opt.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opt.configPath, "config", config.DefaultPath(), "settings file")
	root.PersistentFlags().BoolVarP(&opt.verbose, "verbose", "v", false, "debug logging")

	draw := newDrawCmd(opt)
	root.RunE = draw.RunE
	root.Flags().AddFlagSet(draw.Flags())
	root.AddCommand(draw, newViewCmd(opt), newRenderCmd(opt), newServeCmd(opt), newInitCmd(opt), newBoardsCmd())
	return root
}

// openBoard builds the scene, optionally loading path, and its history.
func openBoard(path string, cfg config.Config) (*state.Scene, *state.History, error) {
	scene := state.NewScene()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		snap, err := state.ReadSnapshot(f)
		f.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		if err := scene.Restore(snap); err != nil {
			return nil, nil, err
		}
		state.Logger().Info("[SCENE] loaded", "path", path, "objects", scene.Len())
	}
	history, err := state.NewHistory(scene, state.WithLimit(cfg.Canvas.HistoryLimit))
	if err != nil {
		return nil, nil, err
	}
	return scene, history, nil
}

func newEngine(cfg config.Config) *anim.Engine {
	e := anim.NewEngine()
	e.Delta = cfg.Animation.Delta
	return e
}

func newDrawCmd(opt *options) *cobra.Command {
	var shared bool
	cmd := &cobra.Command{
		Use:   "draw [scene.json]",
		Short: "Open the board window",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			scene, history, err := openBoard(path, opt.cfg)
			if err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			ctx, cancel := context.WithCancel(ctx)
			var link string
			if shared {
				if link, err = startMirror(ctx, g, opt.cfg, scene, history); err != nil {
					cancel()
					return err
				}
			}
			err = ui.RunApp(ctx, ui.Options{
				Config:     opt.cfg,
				ConfigPath: opt.configPath,
				Scene:      scene,
				History:    history,
				Engine:     newEngine(opt.cfg),
				ShareLink:  link,
			})
			cancel()
			return errors.Join(err, g.Wait())
		},
	}
	cmd.Flags().BoolVar(&shared, "share", false, "mirror the board to viewers on the local network")
	return cmd
}

func newViewCmd(opt *options) *cobra.Command {
	return &cobra.Command{
		Use:   "view <crayonboard://host:port>",
		Short: "Follow a shared board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := share.ParseShareLink(args[0])
			if err != nil {
				return err
			}
			scene, history, err := openBoard("", opt.cfg)
			if err != nil {
				return err
			}
			return ui.RunApp(cmd.Context(), ui.Options{
				Config:    opt.cfg,
				Scene:     scene,
				History:   history,
				Engine:    newEngine(opt.cfg),
				ShareLink: args[0],
				Mirror: func(ctx context.Context, updated func()) error {
					return share.Follow(ctx, share.SocketURL(addr), scene, func(uint64) { updated() })
				},
			})
		},
	}
}

func newInitCmd(opt *options) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default settings file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(opt.configPath); err == nil {
				return fmt.Errorf("%s already exists", opt.configPath)
			}
			if err := config.Default().Save(opt.configPath); err != nil {
				return err
			}
			cmd.Println("wrote", opt.configPath)
			return nil
		},
	}
}

func newBoardsCmd() *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "boards",
		Short: "List boards shared on the local network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var n int
			err := share.Browse(cmd.Context(), wait, func(b share.Board) {
				n++
				cmd.Printf("%s\t%s\n", b.Name, b.Link())
			})
			if err != nil {
				return err
			}
			if n == 0 {
				cmd.Println("no boards found")
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 2*time.Second, "how long to listen for answers")
	return cmd
}
