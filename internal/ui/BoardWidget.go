package ui

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
	"sync"

	"CrayonBoard/internal/brush"
	"CrayonBoard/internal/render"
	"CrayonBoard/internal/state"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Tool is what the primary button does on the board.
type Tool int

const (
	ToolCrayon Tool = iota
	ToolSelect
	ToolPan
	ToolArea
	ToolText
)

// defaultText is placed when no text prompt is wired.
const defaultText = "Text"

var (
	selectionColor = color.NRGBA{R: 0x1e, G: 0x88, B: 0xe5, A: 0xff}
	areaColor      = color.NRGBA{R: 0xe5, G: 0x39, B: 0x35, A: 0xff}
)

// BoardWidget shows the scene and turns pointer input into strokes and
// direct manipulation.
type BoardWidget struct {
	widget.BaseWidget

	scene    *state.Scene
	history  *state.History
	raster   *brush.Rasterizer
	scratch  *render.Scratch
	renderer *render.Renderer

	mu     sync.Mutex
	view   state.Viewport
	params brush.Params
	tool   Tool
	area   state.RenderArea

	// gesture state, touched only from the UI goroutine
	moving    bool
	moved     bool
	areaStart fyne.Position

	OnStatus    func(string)
	OnSelection func([]*state.Object)
	// OnPlaceText asks for the text of a new text object at a canvas point.
	OnPlaceText func(at state.Point)
}

var _ fyne.Widget = (*BoardWidget)(nil)
var _ fyne.Draggable = (*BoardWidget)(nil)
var _ fyne.Scrollable = (*BoardWidget)(nil)
var _ desktop.Mouseable = (*BoardWidget)(nil)

func NewBoardWidget(scene *state.Scene, history *state.History, params brush.Params, background color.Color) *BoardWidget {
	b := &BoardWidget{
		scene:    scene,
		history:  history,
		scratch:  &render.Scratch{},
		renderer: &render.Renderer{Background: background},
		view:     state.DefaultViewport(),
		params:   params,
	}
	b.raster = brush.NewRasterizer(b.scratch)
	b.scratch.OnChange = func() { fyne.Do(b.Refresh) }
	b.ExtendBaseWidget(b)
	return b
}

func (b *BoardWidget) SetStatus(text string) {
	state.Logger().Debug("[UI] status", "text", text)
	if b.OnStatus != nil {
		b.OnStatus(text)
	}
}

func (b *BoardWidget) fail(what string, err error) {
	state.Logger().Warn("[UI] "+what+" failed", "err", err)
	b.SetStatus(fmt.Sprintf("%s: %v", what, err))
}

func (b *BoardWidget) SetTool(t Tool) {
	b.mu.Lock()
	b.tool = t
	b.mu.Unlock()
}

func (b *BoardWidget) Tool() Tool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tool
}

// Params returns the brush used for the next stroke.
func (b *BoardWidget) Params() brush.Params {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.params
}

// UpdateParams edits the brush; a stroke in progress keeps its own copy.
func (b *BoardWidget) UpdateParams(fn func(*brush.Params)) {
	b.mu.Lock()
	fn(&b.params)
	b.mu.Unlock()
}

func (b *BoardWidget) SetColor(hex string) { b.UpdateParams(func(p *brush.Params) { p.Color = hex }) }

// View returns the current viewport.
func (b *BoardWidget) View() state.Viewport {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view
}

func (b *BoardWidget) ResetView() {
	b.mu.Lock()
	b.view = state.DefaultViewport()
	b.mu.Unlock()
	b.Refresh()
}

// ExportArea is the chosen capture rectangle, or the whole board when
// none is chosen.
func (b *BoardWidget) ExportArea() state.RenderArea {
	b.mu.Lock()
	a := b.area
	b.mu.Unlock()
	if a.Valid() {
		return a
	}
	size := b.Size()
	return state.RenderArea{Width: float64(size.Width), Height: float64(size.Height)}
}

// SetAreaPreset centres a preset sized area on the board.
func (b *BoardWidget) SetAreaPreset(p state.AreaPreset) {
	size := b.Size()
	b.mu.Lock()
	b.area = p.Centered(float64(size.Width), float64(size.Height))
	b.mu.Unlock()
	b.Refresh()
}

func (b *BoardWidget) ClearExportArea() {
	b.mu.Lock()
	b.area = state.RenderArea{}
	b.mu.Unlock()
	b.Refresh()
}

func toPoint(p fyne.Position) state.Point {
	return state.Point{X: float64(p.X), Y: float64(p.Y)}
}

func (b *BoardWidget) toCanvas(p fyne.Position) state.Point {
	return b.View().ToCanvas(toPoint(p))
}

func (b *BoardWidget) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	pt := b.toCanvas(e.Position)
	switch b.Tool() {
	case ToolCrayon:
		b.raster.Begin(pt, b.Params())
	case ToolSelect:
		b.pick(pt, e.Modifier&fyne.KeyModifierShift != 0)
	case ToolArea:
		b.areaStart = e.Position
	case ToolText:
		if b.OnPlaceText != nil {
			b.OnPlaceText(pt)
			return
		}
		b.AddText(pt, defaultText)
	}
}

// AddText places a text object in the brush colour and selects it.
func (b *BoardWidget) AddText(at state.Point, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	o := state.NewText(text, b.Params().Color)
	o.Left, o.Top = at.X, at.Y
	b.scene.Add(o)
	b.scene.Select(o)
	b.SetStatus(fmt.Sprintf("Added %s", o.Name))
	b.selectionChanged()
}

func (b *BoardWidget) pick(pt state.Point, toggle bool) {
	o := b.scene.ObjectAt(pt)
	switch {
	case o == nil:
		b.scene.ClearSelection()
	case toggle:
		b.scene.ToggleSelected(o)
	case !b.scene.IsSelected(o):
		b.scene.Select(o)
	}
	b.moving = o != nil && b.scene.IsSelected(o)
	b.selectionChanged()
}

func (b *BoardWidget) selectionChanged() {
	if b.OnSelection != nil {
		b.OnSelection(b.scene.Selection())
	}
	b.Refresh()
}

func (b *BoardWidget) Dragged(e *fyne.DragEvent) {
	switch {
	case b.raster.Active():
		b.raster.Extend(b.toCanvas(e.Position))
	case b.moving:
		z := b.View().Zoom
		if z <= 0 {
			z = 1
		}
		b.scene.Translate(b.scene.Selection(), float64(e.Dragged.DX)/z, float64(e.Dragged.DY)/z)
		b.moved = true
		b.Refresh()
	case b.Tool() == ToolPan:
		b.mu.Lock()
		b.view = b.view.Pan(float64(e.Dragged.DX), float64(e.Dragged.DY))
		b.mu.Unlock()
		b.Refresh()
	case b.Tool() == ToolArea:
		x0, y0 := math.Min(float64(b.areaStart.X), float64(e.Position.X)), math.Min(float64(b.areaStart.Y), float64(e.Position.Y))
		b.mu.Lock()
		b.area = state.RenderArea{
			X:      x0,
			Y:      y0,
			Width:  math.Abs(float64(e.Position.X - b.areaStart.X)),
			Height: math.Abs(float64(e.Position.Y - b.areaStart.Y)),
		}
		b.mu.Unlock()
		b.Refresh()
	}
}

// endGesture is reached from both MouseUp and DragEnd.
func (b *BoardWidget) endGesture() {
	// A click without movement draws nothing worth a layer.
	drawn := len(b.raster.Points()) > 1
	if o, ok := b.raster.End(); ok && drawn {
		b.scene.Add(o)
		b.SetStatus(fmt.Sprintf("Added %s", o.Name))
	}
	if b.moving {
		b.moving = false
		if b.moved {
			b.moved = false
			b.scene.Modified(b.scene.Selection()...)
		}
	}
	b.Refresh()
}

func (b *BoardWidget) MouseUp(*desktop.MouseEvent) { b.endGesture() }
func (b *BoardWidget) DragEnd()                    { b.endGesture() }

func (b *BoardWidget) Scrolled(e *fyne.ScrollEvent) {
	factor := 1.1
	if e.Scrolled.DY < 0 {
		factor = 1 / factor
	}
	b.mu.Lock()
	b.view = b.view.ZoomAt(factor, toPoint(e.Position))
	b.mu.Unlock()
	b.Refresh()
}

func (b *BoardWidget) Undo() {
	ok, err := b.history.Undo()
	switch {
	case err != nil:
		b.fail("Undo", err)
	case !ok:
		b.SetStatus("Nothing to undo")
	}
	b.selectionChanged()
}

func (b *BoardWidget) Redo() {
	ok, err := b.history.Redo()
	switch {
	case err != nil:
		b.fail("Redo", err)
	case !ok:
		b.SetStatus("Nothing to redo")
	}
	b.selectionChanged()
}

func (b *BoardWidget) DuplicateSelection() {
	if _, err := b.scene.Duplicate(b.scene.Selection()...); err != nil {
		b.fail("Duplicate", err)
		return
	}
	b.selectionChanged()
}

func (b *BoardWidget) DeleteSelection() {
	b.scene.DeleteSelection()
	b.selectionChanged()
}

func (b *BoardWidget) GroupSelection() {
	if _, err := b.scene.Group(b.scene.Selection()...); err != nil {
		b.fail("Group", err)
		return
	}
	b.selectionChanged()
}

func (b *BoardWidget) UngroupSelection() {
	var freed []*state.Object
	for _, o := range b.scene.Selection() {
		children, err := b.scene.Ungroup(o)
		if errors.Is(err, state.ErrNotGroup) {
			continue
		}
		if err != nil {
			b.fail("Ungroup", err)
			return
		}
		freed = append(freed, children...)
	}
	b.scene.Select(freed...)
	b.selectionChanged()
}

func (b *BoardWidget) FlipSelection() {
	for _, o := range b.scene.Selection() {
		if err := b.scene.FlipHorizontal(o); err != nil {
			b.fail("Flip", err)
			return
		}
	}
	b.Refresh()
}

// ToggleAnimation switches animation on the selection, using the brush
// animation for objects that get it enabled.
func (b *BoardWidget) ToggleAnimation() {
	settings := b.Params().Animation
	for _, o := range b.scene.Selection() {
		if err := b.scene.SetAnimation(o, !o.Animated, settings); err != nil {
			b.fail("Animation", err)
			return
		}
	}
	b.Refresh()
}

// ApplyAnimationSettings gives every animated object in the selection
// settings.
func (b *BoardWidget) ApplyAnimationSettings(settings state.AnimationSettings) {
	for _, o := range b.scene.Selection() {
		if !o.Animated {
			continue
		}
		if err := b.scene.SetAnimationSettings(o, settings); err != nil {
			b.fail("Animation", err)
			return
		}
	}
}

func (b *BoardWidget) ClearBoard() {
	b.scene.Clear()
	b.selectionChanged()
}

func (b *BoardWidget) CreateRenderer() fyne.WidgetRenderer {
	r := &boardWidgetRenderer{board: b}
	r.raster = canvas.NewRaster(b.draw)
	return r
}

// draw renders the board at the raster's pixel size.
func (b *BoardWidget) draw(w, h int) image.Image {
	scale := 1.0
	if size := b.Size(); size.Width > 0 {
		scale = float64(w) / float64(size.Width)
	}
	b.mu.Lock()
	v, area := b.view, b.area
	b.mu.Unlock()
	if v.Zoom <= 0 {
		v.Zoom = 1
	}
	px := state.Viewport{Zoom: v.Zoom * scale, PanX: v.PanX * scale, PanY: v.PanY * scale}
	m := px.Matrix()

	selected := state.NewSet(b.scene.Selection()...)
	var img *image.RGBA
	b.scene.View(func(objects []*state.Object) {
		img = b.renderer.Frame(objects, px, image.Rect(0, 0, w, h))
		for _, o := range objects {
			if selected.Has(o) {
				outline(img, o.Bounds(), m, selectionColor)
			}
		}
	})
	b.scratch.Draw(img, m)
	if area.Valid() {
		r := state.Rect{MinX: area.X, MinY: area.Y, MaxX: area.X + area.Width, MaxY: area.Y + area.Height}
		outline(img, r, state.Scale(scale, scale), areaColor)
	}
	return img
}

// outline draws a one pixel frame around r mapped through m.
func outline(dst *image.RGBA, r state.Rect, m f64.Aff3, c color.Color) {
	if r.Empty() {
		return
	}
	a := state.Apply(m, state.Point{X: r.MinX, Y: r.MinY})
	z := state.Apply(m, state.Point{X: r.MaxX, Y: r.MaxY})
	rect := image.Rect(int(a.X), int(a.Y), int(z.X), int(z.Y))
	src := image.NewUniform(c)
	for _, edge := range []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+1),
		image.Rect(rect.Min.X, rect.Max.Y-1, rect.Max.X, rect.Max.Y),
		image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+1, rect.Max.Y),
		image.Rect(rect.Max.X-1, rect.Min.Y, rect.Max.X, rect.Max.Y),
	} {
		draw.Draw(dst, edge.Intersect(dst.Rect), src, image.Point{}, draw.Over)
	}
}

type boardWidgetRenderer struct {
	board  *BoardWidget
	raster *canvas.Raster
}

func (r *boardWidgetRenderer) Objects() []fyne.CanvasObject { return []fyne.CanvasObject{r.raster} }
func (r *boardWidgetRenderer) Refresh()                     { r.raster.Refresh() }
func (r *boardWidgetRenderer) Layout(size fyne.Size)        { r.raster.Resize(size) }
func (r *boardWidgetRenderer) MinSize() fyne.Size           { return fyne.NewSize(300, 300) }
func (r *boardWidgetRenderer) Destroy()                     {}

func (b *BoardWidget) MouseIn(*desktop.MouseEvent)    {}
func (b *BoardWidget) MouseOut()                      {}
func (b *BoardWidget) MouseMoved(*desktop.MouseEvent) {}
