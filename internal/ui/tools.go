package ui

import (
	"image/color"

	"CrayonBoard/internal/brush"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/lucasb-eyer/go-colorful"
)

// palette is the crayon box.
var palette = []string{"#000000", "#e53935", "#43a047", "#1e88e5", "#fdd835", "#8e24aa", "#fb8c00", "#ffffff"}

type colorSwatch struct {
	widget.BaseWidget
	Hex      string
	OnTapped func(hex string)
}

func newColorSwatch(hex string, tapped func(string)) *colorSwatch {
	s := &colorSwatch{Hex: hex, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	var fill color.Color = color.Black
	if c, err := colorful.Hex(s.Hex); err == nil {
		fill = c
	}
	rect := canvas.NewRectangle(fill)
	rect.SetMinSize(fyne.NewSize(28, 28))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.Hex)
	}
}

// Actions are the toolbar commands that need the window.
type Actions struct {
	Export func()
	Save   func()
	Load   func()
	Image  func()
}

func NewToolbar(board *BoardWidget, act Actions) fyne.CanvasObject {
	tb := widget.NewToolbar(
		widget.NewToolbarAction(theme.DocumentCreateIcon(), func() { board.SetTool(ToolCrayon) }),
		widget.NewToolbarAction(theme.ViewFullScreenIcon(), func() { board.SetTool(ToolSelect) }),
		widget.NewToolbarAction(theme.MoveDownIcon(), func() { board.SetTool(ToolPan) }),
		widget.NewToolbarAction(theme.ZoomFitIcon(), func() { board.SetTool(ToolArea) }),
		widget.NewToolbarAction(theme.FileTextIcon(), func() { board.SetTool(ToolText) }),
		widget.NewToolbarAction(theme.FileImageIcon(), act.Image),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentUndoIcon(), board.Undo),
		widget.NewToolbarAction(theme.ContentRedoIcon(), board.Redo),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentCopyIcon(), board.DuplicateSelection),
		widget.NewToolbarAction(theme.DeleteIcon(), board.DeleteSelection),
		widget.NewToolbarAction(theme.ContentAddIcon(), board.GroupSelection),
		widget.NewToolbarAction(theme.ContentRemoveIcon(), board.UngroupSelection),
		widget.NewToolbarAction(theme.ViewRefreshIcon(), board.FlipSelection),
		widget.NewToolbarAction(theme.MediaPlayIcon(), board.ToggleAnimation),
		widget.NewToolbarAction(theme.ContentClearIcon(), board.ClearBoard),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ZoomInIcon(), board.ResetView),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), act.Save),
		widget.NewToolbarAction(theme.FolderOpenIcon(), act.Load),
		widget.NewToolbarAction(theme.MailSendIcon(), act.Export),
	)

	swatches := make([]fyne.CanvasObject, 0, len(palette))
	for _, hex := range palette {
		swatches = append(swatches, newColorSwatch(hex, func(h string) {
			board.SetColor(h)
			board.SetTool(ToolCrayon)
		}))
	}

	p := board.Params()
	animated := widget.NewCheck("Animate", func(on bool) {
		board.UpdateParams(func(p *brush.Params) { p.Animated = on })
	})
	animated.SetChecked(p.Animated)

	return container.NewHBox(
		tb,
		widget.NewSeparator(),
		container.NewHBox(swatches...),
		widget.NewSeparator(),
		animated,
		layout.NewSpacer(),
	)
}
