package ui

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"CrayonBoard/internal/state"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// importScale is applied to pictures as they come in.
const importScale = 0.5

// AddImage decodes a picture, centres it in the view at half size and
// selects it.
func (b *BoardWidget) AddImage(r io.Reader) (*state.Object, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	bounds := src.Bounds()
	px := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(px, px.Rect, src, bounds.Min, draw.Src)

	o := state.NewImage(px)
	o.ScaleX, o.ScaleY = importScale, importScale
	size := b.Size()
	c := b.View().ToCanvas(state.Point{X: float64(size.Width) / 2, Y: float64(size.Height) / 2})
	o.Left = c.X - float64(bounds.Dx())*importScale/2
	o.Top = c.Y - float64(bounds.Dy())*importScale/2

	b.scene.Add(o)
	b.scene.Select(o)
	state.Logger().Info("[UI] image imported", "format", format, "width", bounds.Dx(), "height", bounds.Dy())
	b.SetStatus(fmt.Sprintf("Added %s", o.Name))
	b.selectionChanged()
	return o, nil
}

func showImport(win fyne.Window, board *BoardWidget) {
	open := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, win)
			return
		}
		if r == nil {
			return
		}
		defer r.Close()
		if _, err := board.AddImage(r); err != nil {
			board.fail("Import", err)
			dialog.ShowError(err, win)
		}
	}, win)
	open.SetFilter(storage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"}))
	open.Show()
}

// showTextPrompt asks for the text of a new object placed at.
func showTextPrompt(win fyne.Window, board *BoardWidget, at state.Point) {
	entry := widget.NewEntry()
	entry.SetText(defaultText)
	dialog.ShowForm("Add text", "Add", "Cancel", []*widget.FormItem{widget.NewFormItem("Text", entry)}, func(ok bool) {
		if ok {
			board.AddText(at, entry.Text)
		}
	}, win)
}
