package state

import (
	"errors"
	"math/rand/v2"
	"slices"
	"sync"
)

var (
	ErrNotInScene  = errors.New("object is not part of the scene")
	ErrNotGroup    = errors.New("object is not a group")
	ErrNeedObjects = errors.New("not enough objects")
)

// ChangeKind names a structural mutation of the scene.
type ChangeKind string

const (
	ChangeAdded     ChangeKind = "added"
	ChangeRemoved   ChangeKind = "removed"
	ChangeModified  ChangeKind = "modified"
	ChangeCleared   ChangeKind = "cleared"
	ChangeGrouped   ChangeKind = "grouped"
	ChangeUngrouped ChangeKind = "ungrouped"
	ChangeReordered ChangeKind = "reordered"
)

// Change is delivered to subscribers after a structural mutation.
type Change struct {
	Kind     ChangeKind
	Objects  []*Object
	Revision uint64
}

// Set is a membership set of objects.
type Set map[*Object]struct{}

// NewSet builds a Set from objs.
func NewSet(objs ...*Object) Set {
	s := make(Set, len(objs))
	for _, o := range objs {
		s[o] = struct{}{}
	}
	return s
}

// Has reports membership; a nil Set contains nothing.
func (s Set) Has(o *Object) bool {
	_, ok := s[o]
	return ok
}

// Scene owns the z-ordered top level objects and the active selection.
//
// Structural mutations notify subscribers synchronously after the lock is
// released. Animation steps and captures go through Animate and Exclusive
// and never notify.
type Scene struct {
	mu        sync.RWMutex
	objects   []*Object
	selection []*Object
	clock     Clock
	rand      func() float64

	listenersMu sync.RWMutex
	listeners   []func(Change)
}

// Option configures a Scene.
type Option func(*Scene)

// WithRand sets the source used to desynchronize duplicated objects.
func WithRand(fn func() float64) Option {
	return func(s *Scene) { s.rand = fn }
}

// NewScene creates an empty scene.
func NewScene(opts ...Option) *Scene {
	s := &Scene{rand: rand.Float64}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn for every structural change.
func (s *Scene) Subscribe(fn func(Change)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Scene) emit(kind ChangeKind, objs ...*Object) {
	c := Change{Kind: kind, Objects: objs, Revision: s.clock.Tick()}
	s.listenersMu.RLock()
	listeners := slices.Clone(s.listeners)
	s.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(c)
	}
}

// Revision returns the revision of the last structural change.
func (s *Scene) Revision() uint64 { return s.clock.Now() }

// Add appends objects on top of the z-order.
func (s *Scene) Add(objs ...*Object) {
	if len(objs) == 0 {
		return
	}
	s.mu.Lock()
	for _, o := range objs {
		if o.Name == "" {
			o.Name = s.defaultName(o.Kind)
		}
		o.UpdateCoords()
		s.objects = append(s.objects, o)
	}
	s.mu.Unlock()
	Logger().Debug("[SCENE] added", "count", len(objs))
	s.emit(ChangeAdded, objs...)
}

// Remove deletes top level objects; unknown objects are ignored.
func (s *Scene) Remove(objs ...*Object) {
	set := NewSet(objs...)
	s.mu.Lock()
	before := len(s.objects)
	s.objects = slices.DeleteFunc(s.objects, set.Has)
	s.selection = slices.DeleteFunc(s.selection, set.Has)
	removed := before - len(s.objects)
	s.mu.Unlock()
	if removed == 0 {
		return
	}
	Logger().Debug("[SCENE] removed", "count", removed)
	s.emit(ChangeRemoved, objs...)
}

// Clear removes every object.
func (s *Scene) Clear() {
	s.mu.Lock()
	s.objects = nil
	s.selection = nil
	s.mu.Unlock()
	s.emit(ChangeCleared)
}

// Objects returns a copy of the top level z-order, bottom first.
func (s *Scene) Objects() []*Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.objects)
}

// Len returns the number of top level objects.
func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// View runs fn with read access to the objects.
func (s *Scene) View(fn func(objects []*Object)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.objects)
}

// Animate runs one animation step under the write lock. The excluded set
// holds every currently selected object.
func (s *Scene) Animate(fn func(objects []*Object, excluded Set)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.objects, NewSet(s.selection...))
}

// Exclusive runs fn with the write lock held for its whole duration and
// without notifying subscribers.
func (s *Scene) Exclusive(fn func(objects []*Object) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.objects)
}

// Translate moves objects during a direct drag. Call Modified when the
// gesture ends.
func (s *Scene) Translate(objs []*Object, dx, dy float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range objs {
		o.Left += dx
		o.Top += dy
		o.UpdateCoords()
	}
}

// Modified finishes a direct manipulation: anchors of animated objects are
// moved to the new resting state and subscribers are notified.
func (s *Scene) Modified(objs ...*Object) {
	if len(objs) == 0 {
		return
	}
	s.mu.Lock()
	for _, o := range objs {
		if o.Animated {
			o.ResyncAnchors()
		}
		o.UpdateCoords()
	}
	s.mu.Unlock()
	s.emit(ChangeModified, objs...)
}

// Select replaces the selection. Locked, hidden and foreign objects are skipped.
func (s *Scene) Select(objs ...*Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = s.selection[:0]
	for _, o := range objs {
		if o == nil || o.Locked || !o.Visible || !slices.Contains(s.objects, o) {
			continue
		}
		if !slices.Contains(s.selection, o) {
			s.selection = append(s.selection, o)
		}
	}
}

// ToggleSelected adds o to the selection or removes it.
func (s *Scene) ToggleSelected(o *Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.Index(s.selection, o); i >= 0 {
		s.selection = slices.Delete(s.selection, i, i+1)
		return
	}
	if o.Locked || !o.Visible || !slices.Contains(s.objects, o) {
		return
	}
	s.selection = append(s.selection, o)
}

// Selection returns the selected objects in selection order.
func (s *Scene) Selection() []*Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.selection)
}

// IsSelected reports whether o is selected.
func (s *Scene) IsSelected(o *Object) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.selection, o)
}

// ClearSelection drops the selection. Every animated object gets its skew
// reset and its anchors resynchronized from the current state.
func (s *Scene) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = nil
	for _, top := range s.objects {
		top.Walk(func(o *Object) {
			if !o.Animated {
				return
			}
			o.SkewX, o.SkewY = 0, 0
			o.ResyncAnchors()
		})
		top.UpdateCoords()
	}
}

// ObjectAt returns the topmost visible, unlocked object under p.
func (s *Scene) ObjectAt(p Point) *Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.objects) - 1; i >= 0; i-- {
		o := s.objects[i]
		if !o.Locked && o.Contains(p) {
			return o
		}
	}
	return nil
}

// Find returns the object with the given ID anywhere in the tree.
func (s *Scene) Find(id string) *Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *Object
	for _, top := range s.objects {
		top.Walk(func(o *Object) {
			if found == nil && o.ID == id {
				found = o
			}
		})
	}
	return found
}

// contains reports whether o is anywhere in the tree. Caller holds mu.
func (s *Scene) contains(o *Object) bool {
	found := false
	for _, top := range s.objects {
		top.Walk(func(x *Object) {
			if x == o {
				found = true
			}
		})
	}
	return found
}
