package ui

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"CrayonBoard/internal/anim"
	"CrayonBoard/internal/export"
	"CrayonBoard/internal/state"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// areaCurrent keeps the dragged area, or the whole board.
const areaCurrent = "Current"

// showExport asks for export settings, then a file, then runs the job with
// a progress dialog.
func showExport(win fyne.Window, board *BoardWidget, engine *anim.Engine, defaults export.Settings) {
	format := widget.NewSelect([]string{string(export.GIF), string(export.APNG), string(export.PNG), string(export.PDF)}, nil)
	format.SetSelected(string(export.GIF))
	fps := widget.NewEntry()
	fps.SetText(strconv.Itoa(defaults.FrameRate))
	duration := widget.NewEntry()
	duration.SetText(strconv.FormatFloat(defaults.Duration, 'f', -1, 64))
	width := widget.NewEntry()
	width.SetText(strconv.Itoa(defaults.Width))
	height := widget.NewEntry()
	height.SetText(strconv.Itoa(defaults.Height))
	transparent := widget.NewCheck("", nil)
	transparent.SetChecked(defaults.Transparent)
	areas := []string{areaCurrent}
	for _, p := range state.AreaPresets {
		areas = append(areas, p.Name)
	}
	area := widget.NewSelect(areas, nil)
	area.SetSelected(areaCurrent)

	items := []*widget.FormItem{
		widget.NewFormItem("Format", format),
		widget.NewFormItem("Frame rate", fps),
		widget.NewFormItem("Duration (s)", duration),
		widget.NewFormItem("Width", width),
		widget.NewFormItem("Height", height),
		widget.NewFormItem("Transparent", transparent),
		widget.NewFormItem("Area", area),
	}
	dialog.ShowForm("Export", "Choose file", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		s := defaults
		var err error
		if s.FrameRate, err = strconv.Atoi(fps.Text); err != nil {
			dialog.ShowError(fmt.Errorf("frame rate: %w", err), win)
			return
		}
		if s.Duration, err = strconv.ParseFloat(duration.Text, 64); err != nil {
			dialog.ShowError(fmt.Errorf("duration: %w", err), win)
			return
		}
		if s.Width, err = strconv.Atoi(width.Text); err != nil {
			dialog.ShowError(fmt.Errorf("width: %w", err), win)
			return
		}
		if s.Height, err = strconv.Atoi(height.Text); err != nil {
			dialog.ShowError(fmt.Errorf("height: %w", err), win)
			return
		}
		s.Transparent = transparent.Checked
		f := export.Format(format.Selected)
		if f.Animated() {
			if err := s.Validate(); err != nil {
				dialog.ShowError(err, win)
				return
			}
		}
		if p, ok := state.PresetByName(area.Selected); ok {
			board.SetAreaPreset(p)
		}
		job := export.Job{Format: f, Settings: s, Area: board.ExportArea(), View: board.View()}

		save := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
			if err != nil {
				dialog.ShowError(err, win)
				return
			}
			if w == nil {
				return
			}
			runExport(win, board, engine, job, w)
		}, win)
		save.SetFileName("board." + string(f))
		save.Show()
	}, win)
}

func runExport(win fyne.Window, board *BoardWidget, engine *anim.Engine, job export.Job, w fyne.URIWriteCloser) {
	bar := widget.NewProgressBar()
	ctx, cancel := context.WithCancel(context.Background())
	progress := dialog.NewCustom("Exporting", "Cancel", container.NewVBox(widget.NewLabel(w.URI().Name()), bar), win)
	progress.SetOnClosed(cancel)
	progress.Show()

	job.Progress = func(p float64) { fyne.Do(func() { bar.SetValue(p / 100) }) }
	go func() {
		err := job.Run(ctx, w, board.scene, board.history, engine)
		if cerr := w.Close(); err == nil {
			err = cerr
		}
		fyne.Do(func() {
			progress.Hide()
			if err != nil {
				board.fail("Export", err)
				dialog.ShowError(err, win)
				return
			}
			board.SetStatus("Exported " + w.URI().Name())
		})
	}()
}

func showSave(win fyne.Window, board *BoardWidget) {
	save := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, win)
			return
		}
		if w == nil {
			return
		}
		defer w.Close()
		snap, err := board.scene.Snapshot()
		if err == nil {
			_, err = snap.WriteTo(w)
		}
		if err != nil {
			board.fail("Save", err)
			dialog.ShowError(err, win)
			return
		}
		board.SetStatus(fmt.Sprintf("Saved %d objects", board.scene.Len()))
	}, win)
	save.SetFileName("board.json")
	save.Show()
}

func showLoad(win fyne.Window, board *BoardWidget) {
	dialog.ShowFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, win)
			return
		}
		if r == nil {
			return
		}
		defer r.Close()
		if err := loadScene(board.scene, board.history, r); err != nil {
			board.fail("Load", err)
			dialog.ShowError(err, win)
			return
		}
		board.SetStatus(fmt.Sprintf("Loaded %d objects", board.scene.Len()))
		board.selectionChanged()
	}, win)
}

// loadScene replaces the scene with a saved one and records it, so the
// load itself can be undone.
func loadScene(scene *state.Scene, history *state.History, r io.Reader) error {
	snap, err := state.ReadSnapshot(r)
	if err != nil {
		return err
	}
	if err := scene.Restore(snap); err != nil {
		return err
	}
	return history.Record()
}
