package ui

import (
	"strconv"

	"CrayonBoard/internal/brush"
	"CrayonBoard/internal/state"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

type sliderSpec struct {
	label          string
	min, max, step float64
	get            func(brush.Params) float64
	set            func(*brush.Params, float64)
}

var brushSliders = []sliderSpec{
	{"Size", 1, 100, 1, func(p brush.Params) float64 { return p.Width }, func(p *brush.Params, v float64) { p.Width = v }},
	{"Opacity", 0.1, 1, 0.1, func(p brush.Params) float64 { return p.Opacity }, func(p *brush.Params, v float64) { p.Opacity = v }},
	{"Variation", 0, 1, 0.1, func(p brush.Params) float64 { return p.StrokeVariation }, func(p *brush.Params, v float64) { p.StrokeVariation = v }},
	{"Pressure", 0, 1, 0.1, func(p brush.Params) float64 { return p.PressureVariation }, func(p *brush.Params, v float64) { p.PressureVariation = v }},
	{"Count", 1, 10, 1, func(p brush.Params) float64 { return float64(p.StrokeCount) }, func(p *brush.Params, v float64) { p.StrokeCount = int(v) }},
	{"Texture", 1, 5, 0.1, func(p brush.Params) float64 { return p.TextureScale }, func(p *brush.Params, v float64) { p.TextureScale = v }},
	{"Graininess", 0, 1, 0.1, func(p brush.Params) float64 { return p.Graininess }, func(p *brush.Params, v float64) { p.Graininess = v }},
	{"Grain", 1, 10, 1, func(p brush.Params) float64 { return float64(p.GrainSize) }, func(p *brush.Params, v float64) { p.GrainSize = int(v) }},
}

var animationSliders = []sliderSpec{
	{"Pulse", 0, 1, 0.01, func(p brush.Params) float64 { return p.Animation.PulseScale }, func(p *brush.Params, v float64) { p.Animation.PulseScale = v }},
	{"Rotation", 0, 1, 0.01, func(p brush.Params) float64 { return p.Animation.RotationSpeed }, func(p *brush.Params, v float64) { p.Animation.RotationSpeed = v }},
	{"Fade", 0, 1, 0.01, func(p brush.Params) float64 { return p.Animation.OpacityRange }, func(p *brush.Params, v float64) { p.Animation.OpacityRange = v }},
	{"Move", 0, 2, 0.01, func(p brush.Params) float64 { return p.Animation.MoveAmplitude }, func(p *brush.Params, v float64) { p.Animation.MoveAmplitude = v }},
	{"Skew", 0, 10, 0.1, func(p brush.Params) float64 { return p.Animation.SkewAmount }, func(p *brush.Params, v float64) { p.Animation.SkewAmount = v }},
}

// BrushPanel edits the brush. Animation sliders also retune the animated
// objects in the selection once a drag ends.
type BrushPanel struct {
	board   *BoardWidget
	sliders []*widget.Slider
	specs   []sliderSpec
	// syncing is set while sliders follow the brush, so nothing is applied.
	syncing bool
}

func NewBrushPanel(board *BoardWidget) *BrushPanel {
	return &BrushPanel{board: board}
}

func (bp *BrushPanel) slider(s sliderSpec, ended func()) fyne.CanvasObject {
	value := widget.NewLabel("")
	show := func(v float64) { value.SetText(strconv.FormatFloat(v, 'f', -1, 64)) }

	sl := widget.NewSlider(s.min, s.max)
	sl.Step = s.step
	sl.SetValue(s.get(bp.board.Params()))
	show(sl.Value)
	sl.OnChanged = func(v float64) {
		bp.board.UpdateParams(func(p *brush.Params) { s.set(p, v) })
		show(v)
	}
	if ended != nil {
		sl.OnChangeEnded = func(float64) {
			if !bp.syncing {
				ended()
			}
		}
	}
	bp.sliders = append(bp.sliders, sl)
	bp.specs = append(bp.specs, s)
	return container.NewBorder(nil, nil, widget.NewLabel(s.label), value, sl)
}

// Sync moves every slider to the current brush.
func (bp *BrushPanel) Sync() {
	p := bp.board.Params()
	bp.syncing = true
	defer func() { bp.syncing = false }()
	for i, sl := range bp.sliders {
		sl.SetValue(bp.specs[i].get(p))
	}
}

// applyToSelection pushes the brush animation to the selection.
func (bp *BrushPanel) applyToSelection() {
	bp.board.ApplyAnimationSettings(bp.board.Params().Animation)
}

// PickUp copies the animation of an animated object into the brush so the
// sliders show it.
func (bp *BrushPanel) PickUp(sel []*state.Object) {
	if len(sel) != 1 || !sel[0].Animated {
		return
	}
	settings := sel[0].Settings
	bp.board.UpdateParams(func(p *brush.Params) { p.Animation = settings })
	bp.Sync()
}

func (bp *BrushPanel) View() fyne.CanvasObject {
	crayon := container.NewVBox()
	for _, s := range brushSliders {
		crayon.Add(bp.slider(s, nil))
	}
	motion := container.NewVBox()
	for _, s := range animationSliders {
		motion.Add(bp.slider(s, bp.applyToSelection))
	}
	motion.Add(widget.NewButton("Apply to selection", bp.applyToSelection))
	return container.NewVScroll(widget.NewAccordion(
		widget.NewAccordionItem("Crayon", crayon),
		widget.NewAccordionItem("Animation", motion),
	))
}
