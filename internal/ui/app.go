// Package ui is the fyne desktop front end of the board.
package ui

import (
	"context"
	"image/color"

	"CrayonBoard/internal/anim"
	"CrayonBoard/internal/brush"
	"CrayonBoard/internal/config"
	"CrayonBoard/internal/state"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"github.com/lucasb-eyer/go-colorful"
)

// Options wires the window to an existing board.
type Options struct {
	Config config.Config
	// ConfigPath is watched for brush changes when set.
	ConfigPath string
	Scene      *state.Scene
	History    *state.History
	Engine     *anim.Engine
	// ShareLink is shown in the status bar when the board is mirrored.
	ShareLink string
	// Mirror runs for the life of the window when set, calling updated
	// every time it replaces the scene.
	Mirror func(ctx context.Context, updated func()) error
}

// RunApp opens the board window and blocks until it is closed or ctx ends.
func RunApp(parent context.Context, opt Options) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	a := app.NewWithID("io.crayonboard")
	win := a.NewWindow("CrayonBoard")
	win.Resize(fyne.NewSize(float32(opt.Config.Canvas.Width), float32(opt.Config.Canvas.Height)))

	var bg color.Color = color.White
	if c, err := colorful.Hex(opt.Config.Canvas.Background); err == nil {
		bg = c
	}
	board := NewBoardWidget(opt.Scene, opt.History, opt.Config.Brush, bg)

	status := widget.NewLabel("Ready")
	if opt.ShareLink != "" {
		status.SetText("Sharing at " + opt.ShareLink)
	}
	board.OnStatus = func(s string) { fyne.Do(func() { status.SetText(s) }) }

	layers := NewLayers(board, opt.Scene)
	brushes := NewBrushPanel(board)
	board.OnSelection = func(sel []*state.Object) {
		layers.Reload()
		brushes.PickUp(sel)
	}
	board.OnPlaceText = func(at state.Point) { showTextPrompt(win, board, at) }
	opt.Scene.Subscribe(func(state.Change) {
		layers.Reload()
		fyne.Do(board.Refresh)
	})

	toolbar := NewToolbar(board, Actions{
		Export: func() { showExport(win, board, opt.Engine, opt.Config.Export) },
		Save:   func() { showSave(win, board) },
		Load:   func() { showLoad(win, board) },
		Image:  func() { showImport(win, board) },
	})
	side := container.NewAppTabs(
		container.NewTabItem("Layers", layers.View(win)),
		container.NewTabItem("Brush", brushes.View()),
	)
	split := container.NewHSplit(board, side)
	split.SetOffset(0.75)
	win.SetContent(container.NewBorder(toolbar, status, nil, nil, split))
	bindKeys(win, board)

	sched := anim.NewScheduler(opt.Scene, opt.Engine, NewFyneClock())
	sched.OnFrame = func(moved bool) {
		if moved {
			fyne.Do(board.Refresh)
		}
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	if opt.ConfigPath != "" {
		go func() {
			err := config.Watch(ctx, opt.ConfigPath, func(c config.Config) {
				fyne.Do(func() {
					board.UpdateParams(func(p *brush.Params) { *p = c.Brush })
					brushes.Sync()
					status.SetText("Brush settings reloaded")
				})
			})
			if err != nil {
				state.Logger().Warn("[UI] config watch stopped", "err", err)
			}
		}()
	}

	if opt.Mirror != nil {
		go func() {
			err := opt.Mirror(ctx, func() {
				layers.Reload()
				fyne.Do(board.Refresh)
			})
			if err != nil {
				board.fail("Mirror", err)
			}
		}()
	}

	// Quit when the caller gives up; a closed window ends ctx too.
	go func() {
		<-ctx.Done()
		if parent.Err() != nil {
			fyne.Do(a.Quit)
		}
	}()

	win.ShowAndRun()
	return nil
}

func bindKeys(win fyne.Window, board *BoardWidget) {
	c := win.Canvas()
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault},
		func(fyne.Shortcut) { board.Undo() })
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault | fyne.KeyModifierShift},
		func(fyne.Shortcut) { board.Redo() })
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyD, Modifier: fyne.KeyModifierShortcutDefault},
		func(fyne.Shortcut) { board.DuplicateSelection() })
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyG, Modifier: fyne.KeyModifierShortcutDefault},
		func(fyne.Shortcut) { board.GroupSelection() })
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyG, Modifier: fyne.KeyModifierShortcutDefault | fyne.KeyModifierShift},
		func(fyne.Shortcut) { board.UngroupSelection() })
	c.SetOnTypedKey(func(e *fyne.KeyEvent) {
		switch e.Name {
		case fyne.KeyDelete, fyne.KeyBackspace:
			board.DeleteSelection()
		case fyne.KeyEscape:
			board.scene.ClearSelection()
			board.ClearExportArea()
			board.selectionChanged()
		}
	})
}
