package state

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// History is a snapshot based undo/redo stack bound to one scene.
//
// The undo stack always holds at least the base entry taken when the
// history was created; its top mirrors the current scene. Every structural
// change of the scene is recorded synchronously unless recording is
// suppressed, which Undo and Redo do for their whole duration.
type History struct {
	scene *Scene
	limit int

	mu   sync.Mutex
	undo []Snapshot
	redo []Snapshot

	suppressed atomic.Int32

	// OnSnapshot is called with the scene state after every record, undo and redo.
	OnSnapshot func(Snapshot)
}

// HistoryOption configures a History.
type HistoryOption func(*History)

// WithLimit caps the undo stack. Zero means unbounded.
func WithLimit(n int) HistoryOption {
	return func(h *History) {
		if n > 0 {
			h.limit = n
		}
	}
}

// NewHistory records the current scene as the base entry and subscribes to
// its changes.
func NewHistory(scene *Scene, opts ...HistoryOption) (*History, error) {
	h := &History{scene: scene}
	for _, opt := range opts {
		opt(h)
	}
	base, err := scene.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("history base: %w", err)
	}
	h.undo = []Snapshot{base}
	scene.Subscribe(func(Change) {
		if err := h.Record(); err != nil {
			Logger().Warn("[HISTORY] record failed", "err", err)
		}
	})
	return h, nil
}

// Suppress stops recording until the returned release func is called.
// Calls nest; release is safe to call more than once.
func (h *History) Suppress() (release func()) {
	h.suppressed.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { h.suppressed.Add(-1) })
	}
}

// Suppressed reports whether recording is currently off.
func (h *History) Suppressed() bool { return h.suppressed.Load() > 0 }

// Record pushes the current scene onto the undo stack and clears redo.
// It does nothing while suppressed. Suppression is read under the scene
// lock.
func (h *History) Record() error {
	snap, skipped, err := h.scene.snapshotUnless(h.Suppressed)
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}
	if skipped {
		return nil
	}
	h.mu.Lock()
	h.undo = append(h.undo, snap)
	if h.limit > 0 && len(h.undo) > h.limit {
		h.undo = h.undo[len(h.undo)-h.limit:]
	}
	h.redo = nil
	depth := len(h.undo)
	h.mu.Unlock()

	Logger().Debug("[HISTORY] recorded", "depth", depth, "bytes", len(snap))
	h.notify(snap)
	return nil
}

// Undo restores the entry below the top of the undo stack. It reports
// false when only the base entry is left. On a failed restore both stacks
// and the scene are left unchanged.
func (h *History) Undo() (bool, error) {
	release := h.Suppress()
	defer release()

	h.mu.Lock()
	if len(h.undo) <= 1 {
		h.mu.Unlock()
		return false, nil
	}
	target := h.undo[len(h.undo)-2]
	live, err := h.scene.Snapshot()
	if err != nil {
		h.mu.Unlock()
		return false, fmt.Errorf("undo: %w", err)
	}
	if err := h.scene.Restore(target); err != nil {
		h.mu.Unlock()
		return false, fmt.Errorf("undo: %w", err)
	}
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, live)
	depth := len(h.undo)
	h.mu.Unlock()

	Logger().Info("[HISTORY] undo", "depth", depth)
	h.notify(target)
	return true, nil
}

// Redo restores the most recently undone entry. It reports false when the
// redo stack is empty.
func (h *History) Redo() (bool, error) {
	release := h.Suppress()
	defer release()

	h.mu.Lock()
	if len(h.redo) == 0 {
		h.mu.Unlock()
		return false, nil
	}
	entry := h.redo[len(h.redo)-1]
	if err := h.scene.Restore(entry); err != nil {
		h.mu.Unlock()
		return false, fmt.Errorf("redo: %w", err)
	}
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, entry)
	depth := len(h.undo)
	h.mu.Unlock()

	Logger().Info("[HISTORY] redo", "depth", depth)
	h.notify(entry)
	return true, nil
}

// CanUndo reports whether Undo would restore anything.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo) > 1
}

// CanRedo reports whether Redo would restore anything.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo) > 0
}

// Len returns the sizes of the undo and redo stacks.
func (h *History) Len() (undo, redo int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo), len(h.redo)
}

func (h *History) notify(snap Snapshot) {
	if h.OnSnapshot != nil {
		h.OnSnapshot(snap)
	}
}
