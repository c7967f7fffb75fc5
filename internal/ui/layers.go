package ui

import (
	"slices"
	"sync"

	"CrayonBoard/internal/state"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// Layers lists the top level objects, topmost first.
type Layers struct {
	board *BoardWidget
	scene *state.Scene
	list  *widget.List

	mu    sync.Mutex
	items []*state.Object
	// current is the object last picked in the list.
	current *state.Object
}

func NewLayers(board *BoardWidget, scene *state.Scene) *Layers {
	l := &Layers{board: board, scene: scene}
	l.list = widget.NewList(l.length, l.create, l.update)
	l.list.OnSelected = func(id widget.ListItemID) {
		if o := l.at(id); o != nil {
			l.mu.Lock()
			l.current = o
			l.mu.Unlock()
			scene.Select(o)
			board.selectionChanged()
		}
	}
	l.reload()
	return l
}

// Reload is called on scene changes from any goroutine.
func (l *Layers) Reload() { fyne.Do(l.reload) }

func (l *Layers) reload() {
	objs := l.scene.Objects()
	slices.Reverse(objs)
	l.mu.Lock()
	l.items = objs
	if !slices.Contains(objs, l.current) {
		l.current = nil
	}
	l.mu.Unlock()
	l.list.Refresh()
}

func (l *Layers) at(id widget.ListItemID) *state.Object {
	l.mu.Lock()
	defer l.mu.Unlock()
	if id < 0 || id >= len(l.items) {
		return nil
	}
	return l.items[id]
}

func (l *Layers) length() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

func (l *Layers) create() fyne.CanvasObject {
	return container.NewHBox(widget.NewCheck("", nil), widget.NewCheck("", nil), widget.NewLabel(""))
}

func (l *Layers) update(id widget.ListItemID, item fyne.CanvasObject) {
	o := l.at(id)
	if o == nil {
		return
	}
	row := item.(*fyne.Container)
	visible, locked, name := row.Objects[0].(*widget.Check), row.Objects[1].(*widget.Check), row.Objects[2].(*widget.Label)

	visible.OnChanged = nil
	visible.SetChecked(o.Visible)
	visible.OnChanged = func(on bool) { l.apply(l.scene.SetVisible(o, on)) }

	locked.OnChanged = nil
	locked.SetChecked(o.Locked)
	locked.OnChanged = func(on bool) { l.apply(l.scene.SetLocked(o, on)) }

	label := o.Name
	if o.Animated {
		label += " ~"
	}
	name.SetText(label)
}

func (l *Layers) apply(err error) {
	if err != nil {
		l.board.fail("Layer", err)
	}
	l.board.Refresh()
}

func (l *Layers) selected() *state.Object {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// View is the list plus its reorder and rename controls.
func (l *Layers) View(win fyne.Window) fyne.CanvasObject {
	up := widget.NewButtonWithIcon("", theme.MoveUpIcon(), func() {
		if o := l.selected(); o != nil {
			l.apply(l.scene.BringForward(o))
		}
	})
	down := widget.NewButtonWithIcon("", theme.MoveDownIcon(), func() {
		if o := l.selected(); o != nil {
			l.apply(l.scene.SendBackward(o))
		}
	})
	rename := widget.NewButtonWithIcon("", theme.DocumentCreateIcon(), func() {
		o := l.selected()
		if o == nil {
			return
		}
		entry := widget.NewEntry()
		entry.SetText(o.Name)
		dialog.ShowForm("Rename layer", "Rename", "Cancel",
			[]*widget.FormItem{widget.NewFormItem("Name", entry)},
			func(ok bool) {
				if ok {
					l.apply(l.scene.Rename(o, entry.Text))
				}
			}, win)
	})
	header := widget.NewLabel("Layers (visible, locked)")
	return container.NewBorder(header, container.NewHBox(up, down, rename), nil, nil, l.list)
}
