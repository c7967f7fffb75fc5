package state

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

// DuplicateOffset is how far a copy is placed from its source.
const DuplicateOffset = 10

// defaultName numbers objects per kind. Caller holds mu.
func (s *Scene) defaultName(kind Kind) string {
	n := 1
	for _, o := range s.objects {
		if o.Kind == kind {
			n++
		}
	}
	k := string(kind)
	return fmt.Sprintf("%s %d", strings.ToUpper(k[:1])+k[1:], n)
}

// Group replaces top level objects with a group holding them. The group is
// placed where the topmost member was and becomes the selection.
func (s *Scene) Group(objs ...*Object) (*Object, error) {
	if len(objs) < 2 {
		return nil, fmt.Errorf("group: %w: need at least 2, got %d", ErrNeedObjects, len(objs))
	}
	s.mu.Lock()
	members := NewSet(objs...)
	var ordered []*Object
	top := -1
	for i, o := range s.objects {
		if members.Has(o) {
			ordered = append(ordered, o)
			top = i
		}
	}
	if len(ordered) != len(members) {
		s.mu.Unlock()
		return nil, fmt.Errorf("group: %w", ErrNotInScene)
	}

	r := EmptyRect()
	for _, o := range ordered {
		o.UpdateCoords()
		r = r.Union(o.Bounds())
	}
	g := newObject(KindGroup)
	g.Left, g.Top = r.MinX, r.MinY
	g.Name = s.defaultName(KindGroup)
	for _, o := range ordered {
		o.Left -= g.Left
		o.Top -= g.Top
		o.shiftAnchors(-g.Left, -g.Top)
	}
	g.Children = ordered
	g.UpdateCoords()

	next := make([]*Object, 0, len(s.objects)-len(ordered)+1)
	for i, o := range s.objects {
		if i == top {
			next = append(next, g)
		}
		if !members.Has(o) {
			next = append(next, o)
		}
	}
	s.objects = next
	s.selection = []*Object{g}
	s.mu.Unlock()

	Logger().Debug("[SCENE] grouped", "group", g.ID, "children", len(ordered))
	s.emit(ChangeGrouped, g)
	return g, nil
}

// Ungroup dissolves a top level group, moving its children back into
// canvas coordinates at the group's z position. Animation state and
// anchors follow each child.
func (s *Scene) Ungroup(g *Object) ([]*Object, error) {
	if g == nil || g.Kind != KindGroup {
		return nil, fmt.Errorf("ungroup: %w", ErrNotGroup)
	}
	s.mu.Lock()
	idx := slices.Index(s.objects, g)
	if idx < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("ungroup: %w", ErrNotInScene)
	}
	gm := g.Matrix()
	children := g.Children
	for _, c := range children {
		p := Apply(gm, Point{X: c.Left, Y: c.Top})
		c.Left, c.Top = p.X, p.Y
		c.ScaleX *= g.ScaleX
		c.ScaleY *= g.ScaleY
		// A single mirror reverses the child's rotation; two make a half turn.
		switch {
		case g.FlipX && g.FlipY:
			c.Angle = g.Angle + 180 + c.Angle
		case g.FlipX:
			c.Angle = g.Angle - c.Angle
			c.FlipX = !c.FlipX
		case g.FlipY:
			c.Angle = g.Angle - c.Angle
			c.FlipY = !c.FlipY
		default:
			c.Angle += g.Angle
		}
		c.Opacity *= g.Opacity
		if c.HasOrigin {
			o := Apply(gm, Point{X: c.OriginalLeft, Y: c.OriginalTop})
			c.OriginalLeft, c.OriginalTop = o.X, o.Y
		}
		if c.HasBaseScale {
			c.BaseScaleX *= g.ScaleX
			c.BaseScaleY *= g.ScaleY
		}
		c.UpdateCoords()
	}
	s.objects = slices.Replace(s.objects, idx, idx+1, children...)
	for _, c := range children {
		if c.Name == "" {
			c.Name = s.defaultName(c.Kind)
		}
	}
	s.selection = slices.Clone(children)
	g.Children = nil
	s.mu.Unlock()

	s.emit(ChangeUngrouped, children...)
	return children, nil
}

// Duplicate deep copies objects, offsets the copies and selects them.
// Copies never share settings or pixels with their source, and animated
// copies get a fresh phase so they do not move in lockstep.
func (s *Scene) Duplicate(objs ...*Object) ([]*Object, error) {
	if len(objs) == 0 {
		return nil, fmt.Errorf("duplicate: %w", ErrNeedObjects)
	}
	s.mu.Lock()
	copies := make([]*Object, 0, len(objs))
	for _, o := range objs {
		if !slices.Contains(s.objects, o) {
			s.mu.Unlock()
			return nil, fmt.Errorf("duplicate: %w", ErrNotInScene)
		}
		c := new(Object)
		if err := copier.CopyWithOption(c, o, copier.Option{DeepCopy: true}); err != nil {
			s.mu.Unlock()
			return nil, fmt.Errorf("duplicate %s: %w", o.ID, err)
		}
		c.Walk(func(x *Object) {
			x.ID = uuid.NewString()
			x.srcZ = nil
			if x.Animated {
				x.Time = s.rand() * 100
			}
		})
		c.Name = o.Name + " Copy"
		c.Left += DuplicateOffset
		c.Top += DuplicateOffset
		c.shiftAnchors(DuplicateOffset, DuplicateOffset)
		c.UpdateCoords()
		copies = append(copies, c)
	}
	s.objects = append(s.objects, copies...)
	s.selection = slices.Clone(copies)
	s.mu.Unlock()

	s.emit(ChangeAdded, copies...)
	return copies, nil
}

// DeleteSelection removes every selected object.
func (s *Scene) DeleteSelection() {
	s.Remove(s.Selection()...)
}

// BringForward moves a top level object one step up the z-order.
func (s *Scene) BringForward(o *Object) error {
	return s.reorder(o, func(i, n int) int { return min(i+1, n-1) })
}

// SendBackward moves a top level object one step down the z-order.
func (s *Scene) SendBackward(o *Object) error {
	return s.reorder(o, func(i, _ int) int { return max(i-1, 0) })
}

// MoveTo places a top level object at z index idx, clamped to the scene.
func (s *Scene) MoveTo(o *Object, idx int) error {
	return s.reorder(o, func(_, n int) int { return min(max(idx, 0), n-1) })
}

func (s *Scene) reorder(o *Object, target func(i, n int) int) error {
	s.mu.Lock()
	i := slices.Index(s.objects, o)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("reorder: %w", ErrNotInScene)
	}
	j := target(i, len(s.objects))
	if i == j {
		s.mu.Unlock()
		return nil
	}
	s.objects = slices.Delete(s.objects, i, i+1)
	s.objects = slices.Insert(s.objects, j, o)
	s.mu.Unlock()
	s.emit(ChangeReordered, o)
	return nil
}

// update applies fn to an object anywhere in the tree and notifies.
func (s *Scene) update(o *Object, fn func(*Object)) error {
	s.mu.Lock()
	if !s.contains(o) {
		s.mu.Unlock()
		return ErrNotInScene
	}
	fn(o)
	for _, top := range s.objects {
		top.UpdateCoords()
	}
	s.mu.Unlock()
	s.emit(ChangeModified, o)
	return nil
}

// Rename sets the layer name of o.
func (s *Scene) Rename(o *Object, name string) error {
	return s.update(o, func(o *Object) { o.Name = name })
}

// SetVisible shows or hides o. Hidden objects leave the selection.
func (s *Scene) SetVisible(o *Object, visible bool) error {
	return s.update(o, func(o *Object) {
		o.Visible = visible
		if !visible {
			s.selection = slices.DeleteFunc(s.selection, func(x *Object) bool { return x == o })
		}
	})
}

// SetLocked locks or unlocks o. Locked objects cannot be selected.
func (s *Scene) SetLocked(o *Object, locked bool) error {
	return s.update(o, func(o *Object) {
		o.Locked = locked
		if locked {
			s.selection = slices.DeleteFunc(s.selection, func(x *Object) bool { return x == o })
		}
	})
}

// FlipHorizontal mirrors o around its vertical axis.
func (s *Scene) FlipHorizontal(o *Object) error {
	return s.update(o, func(o *Object) { o.FlipX = !o.FlipX })
}

// SetAnimation turns the animation of o on with settings, or off.
func (s *Scene) SetAnimation(o *Object, enabled bool, settings AnimationSettings) error {
	return s.update(o, func(o *Object) {
		if enabled {
			o.EnableAnimation(settings)
			return
		}
		o.DisableAnimation()
	})
}

// SetAnimationSettings replaces the settings of an animated object.
func (s *Scene) SetAnimationSettings(o *Object, settings AnimationSettings) error {
	return s.update(o, func(o *Object) { o.Settings = settings })
}
