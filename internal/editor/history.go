package editor

// ─────────────────────────────────────────────────────────────
// History — linear undo/redo over an arbitrary present value
// ─────────────────────────────────────────────────────────────

// maxHistorySize caps the undo stack. Pushing past the cap evicts the
// oldest entry silently (sliding window).
const maxHistorySize = 50

// History is a linear undo container: a stack of past values, the
// current present, and a stack of undone values awaiting redo.
// All transitions are synchronous and total. History is not safe for
// concurrent use; the Editor serializes access.
type History[T any] struct {
	past    []T
	present T
	future  []T
}

// NewHistory creates a History with the given initial present and
// empty past/future.
func NewHistory[T any](initial T) *History[T] {
	return &History[T]{present: initial}
}

// Set replaces the present value. With overwrite the past and future
// are untouched (used for non-undoable refreshes such as the initial
// load). Otherwise the old present is pushed onto the past (trimmed to
// the most recent maxHistorySize entries) and the future is cleared —
// a forward edit invalidates redo. Identical values are not suppressed;
// setting the same value still creates an undo step.
func (h *History[T]) Set(newPresent T, overwrite bool) {
	if overwrite {
		h.present = newPresent
		return
	}
	h.past = append(h.past, h.present)
	if len(h.past) > maxHistorySize {
		h.past = h.past[len(h.past)-maxHistorySize:]
	}
	h.present = newPresent
	h.future = nil
}

// Undo moves one step back. Reports whether anything changed.
func (h *History[T]) Undo() bool {
	if len(h.past) == 0 {
		return false
	}
	prev := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append([]T{h.present}, h.future...)
	h.present = prev
	return true
}

// Redo moves one step forward. Reports whether anything changed.
func (h *History[T]) Redo() bool {
	if len(h.future) == 0 {
		return false
	}
	next := h.future[0]
	h.future = h.future[1:]
	h.past = append(h.past, h.present)
	h.present = next
	return true
}

// Clear drops past and future, keeping the present.
func (h *History[T]) Clear() {
	h.past = nil
	h.future = nil
}

// Present returns the current value.
func (h *History[T]) Present() T { return h.present }

// CanUndo reports whether the past is non-empty.
func (h *History[T]) CanUndo() bool { return len(h.past) > 0 }

// CanRedo reports whether the future is non-empty.
func (h *History[T]) CanRedo() bool { return len(h.future) > 0 }

// Depth returns the number of undoable steps.
func (h *History[T]) Depth() int { return len(h.past) }
