package editor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"blockpad/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Editor — orchestrates history, debounced persistence, and the
// block store for a single open document
// ─────────────────────────────────────────────────────────────

// Default content for freshly added blocks.
const (
	defaultTextContent = "New text block"
	defaultImageURL    = "https://picsum.photos/400/300"
	defaultImageWidth  = 400
	defaultImageHeight = 300
)

// persistCallTimeout bounds a single store write issued by the
// persistence pipeline.
const persistCallTimeout = 10 * time.Second

// Editor owns the block list of one document. User actions become
// history transitions; every new present flows into the debounce
// pipeline, except reorders, which also write through immediately.
// Local state is the source of truth for the session: store failures
// are logged, not rolled back, with one exception — a failed reorder
// triggers a reconciling reload from the store.
type Editor struct {
	mu    sync.Mutex
	store domain.BlockStore
	hist  *History[[]domain.Block]
	sched *Scheduler[[]domain.Block]

	// lastSaved is the snapshot the persist callback diffs against.
	// Guarded by saveMu, not mu: persists run off the editor's lock.
	saveMu    sync.Mutex
	lastSaved []domain.Block
}

// New creates an Editor over the given store. delay <= 0 uses
// DefaultDebounceDelay.
func New(store domain.BlockStore, delay time.Duration) *Editor {
	e := &Editor{
		store: store,
		hist:  NewHistory([]domain.Block(nil)),
	}
	e.sched = NewScheduler(delay, e.persistSettled)
	return e
}

// Load fetches the document from the store and installs it as the
// present value without creating an undo step. The loaded value is the
// persistence baseline and is never written back.
func (e *Editor) Load(ctx context.Context) error {
	blocks, err := e.store.ListBlocks(ctx)
	if err != nil {
		return fmt.Errorf("load blocks: %w", err)
	}

	e.mu.Lock()
	e.hist.Set(blocks, true)
	e.mu.Unlock()

	e.saveMu.Lock()
	e.lastSaved = blocks
	e.saveMu.Unlock()

	e.sched.Observe(blocks)
	return nil
}

// Add creates a default-content block of the given type through the
// store (the id must come from the store, so there is no optimistic
// insert) and appends it to the present via an undoable set. On store
// failure the local list is left unchanged.
func (e *Editor) Add(ctx context.Context, blockType domain.BlockType) (*domain.Block, error) {
	var in domain.CreateBlockInput
	switch blockType {
	case domain.BlockTypeText:
		in = domain.CreateBlockInput{
			Type:    domain.BlockTypeText,
			Content: defaultTextContent,
			Style:   domain.StyleParagraph,
		}
	case domain.BlockTypeImage:
		w, h := defaultImageWidth, defaultImageHeight
		in = domain.CreateBlockInput{
			Type:    domain.BlockTypeImage,
			Content: defaultImageURL,
			Width:   &w,
			Height:  &h,
		}
	default:
		return nil, fmt.Errorf("add block: unknown type %q: %w", blockType, domain.ErrInvalidInput)
	}

	created, err := e.store.CreateBlock(ctx, in)
	if err != nil {
		log.Printf("editor: add block failed: %v", err)
		return nil, fmt.Errorf("add block: %w", err)
	}

	e.mu.Lock()
	next := append(cloneBlocks(e.hist.Present()), *created)
	e.applyLocked(next)
	e.mu.Unlock()

	return created, nil
}

// Edit applies a partial update to the block with the given id via an
// undoable set. The write reaches the store through the debounce
// pipeline; rapid successive edits collapse into a single write.
func (e *Editor) Edit(id string, patch domain.BlockPatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.hist.Present()
	idx := indexOf(cur, id)
	if idx < 0 {
		return fmt.Errorf("edit block %s: %w", id, domain.ErrNotFound)
	}

	next := cloneBlocks(cur)
	if !applyPatch(&next[idx], patch) {
		return fmt.Errorf("edit block %s: no applicable field: %w", id, domain.ErrInvalidInput)
	}

	e.applyLocked(next)
	return nil
}

// Delete removes the block locally via an undoable set. The store
// catches up through the debounce pipeline: a structural diff persists
// as a whole-document replace, so an undo can resurrect the block
// under its original id.
func (e *Editor) Delete(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.hist.Present()
	idx := indexOf(cur, id)
	if idx < 0 {
		return fmt.Errorf("delete block %s: %w", id, domain.ErrNotFound)
	}

	next := make([]domain.Block, 0, len(cur)-1)
	next = append(next, cur[:idx]...)
	next = append(next, cur[idx+1:]...)
	next = cloneBlocks(next)
	renumber(next)

	e.applyLocked(next)
	return nil
}

// Reorder moves the block fromID to the position of toID (array move:
// remove at the source index, insert at the destination index). The
// new ordering is pushed as an undoable set and the reorder is written
// through immediately — ordering must not be lost to a later debounce
// collision. On store failure the editor reloads from the store,
// discarding local edits made since (last-writer-wins recovery).
func (e *Editor) Reorder(ctx context.Context, fromID, toID string) error {
	e.mu.Lock()
	cur := e.hist.Present()
	from := indexOf(cur, fromID)
	to := indexOf(cur, toID)
	if from < 0 || to < 0 {
		e.mu.Unlock()
		return fmt.Errorf("reorder %s -> %s: %w", fromID, toID, domain.ErrNotFound)
	}

	next := cloneBlocks(cur)
	moved := next[from]
	next = append(next[:from], next[from+1:]...)
	next = append(next[:to], append([]domain.Block{moved}, next[to:]...)...)
	renumber(next)

	e.applyLocked(next)

	ids := make([]string, len(next))
	for i, b := range next {
		ids[i] = b.ID
	}
	e.mu.Unlock()

	if err := e.store.ReorderBlocks(ctx, ids); err != nil {
		log.Printf("editor: reorder failed, reloading: %v", err)
		if rerr := e.reconcile(ctx); rerr != nil {
			log.Printf("editor: reconcile after failed reorder: %v", rerr)
		}
		return fmt.Errorf("reorder blocks: %w", err)
	}

	// The reorder is already durable; adopt it as the baseline so the
	// trailing debounce settles without issuing a redundant write.
	e.saveMu.Lock()
	e.lastSaved = next
	e.saveMu.Unlock()

	return nil
}

// Undo steps the history back one edit. The restored present enters
// the persistence pipeline like any forward edit — the store only ever
// sees "current state".
func (e *Editor) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hist.Undo() {
		return false
	}
	e.sched.Observe(e.hist.Present())
	return true
}

// Redo steps the history forward one undone edit.
func (e *Editor) Redo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hist.Redo() {
		return false
	}
	e.sched.Observe(e.hist.Present())
	return true
}

// CanUndo reports whether an undo step is available.
func (e *Editor) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hist.CanUndo()
}

// CanRedo reports whether a redo step is available.
func (e *Editor) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hist.CanRedo()
}

// Blocks returns a copy of the present block list.
func (e *Editor) Blocks() []domain.Block {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneBlocks(e.hist.Present())
}

// Flush cancels the pending debounce and persists the current value
// now if it differs from the last persisted one. Used for
// save-before-exit flows.
func (e *Editor) Flush() error {
	return e.sched.Flush()
}

// Close cancels the pending debounce timer. It does not flush.
func (e *Editor) Close() {
	e.sched.Stop()
}

// applyLocked pushes an undoable present and feeds the scheduler.
// Caller holds e.mu.
func (e *Editor) applyLocked(next []domain.Block) {
	e.hist.Set(next, false)
	e.sched.Observe(next)
}

// reconcile discards local state and replaces it with the store's,
// resetting the persistence baseline so nothing stale is written back.
func (e *Editor) reconcile(ctx context.Context) error {
	blocks, err := e.store.ListBlocks(ctx)
	if err != nil {
		return fmt.Errorf("list blocks: %w", err)
	}

	e.mu.Lock()
	e.hist.Set(blocks, true)
	e.mu.Unlock()

	e.saveMu.Lock()
	e.lastSaved = blocks
	e.saveMu.Unlock()

	e.sched.Reset(blocks)
	return nil
}

// persistSettled is the scheduler's persist callback. It diffs the
// settled list against the last persisted snapshot: unchanged → no
// store call; field-only changes → one UpdateBlock per changed block;
// structural changes (ids added, removed, or moved) → one atomic
// whole-document replace. The snapshot advances regardless of store
// errors: a settled value is attempted at most once.
func (e *Editor) persistSettled(blocks []domain.Block) error {
	e.saveMu.Lock()
	prev := e.lastSaved
	e.lastSaved = blocks
	e.saveMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistCallTimeout)
	defer cancel()

	if structuralChange(prev, blocks) {
		if err := e.store.ReplaceBlocks(ctx, blocks); err != nil {
			return fmt.Errorf("replace blocks: %w", err)
		}
		return nil
	}

	byID := make(map[string]domain.Block, len(prev))
	for _, b := range prev {
		byID[b.ID] = b
	}
	for _, b := range blocks {
		old := byID[b.ID]
		patch, changed := diffPatch(old, b)
		if !changed {
			continue
		}
		if _, err := e.store.UpdateBlock(ctx, b.ID, patch); err != nil {
			return fmt.Errorf("update block %s: %w", b.ID, err)
		}
	}
	return nil
}

// ── helpers ────────────────────────────────────────────────

func cloneBlocks(blocks []domain.Block) []domain.Block {
	out := make([]domain.Block, len(blocks))
	copy(out, blocks)
	return out
}

func indexOf(blocks []domain.Block, id string) int {
	for i, b := range blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// renumber restores the order invariant: exactly one block per order
// value in [0, N).
func renumber(blocks []domain.Block) {
	for i := range blocks {
		blocks[i].Order = i
	}
}

// applyPatch mutates b with the patch fields that apply to its type.
// Reports whether any field applied.
func applyPatch(b *domain.Block, patch domain.BlockPatch) bool {
	applied := false
	if patch.Content != nil {
		b.Content = *patch.Content
		applied = true
	}
	switch b.Type {
	case domain.BlockTypeText:
		if patch.Style != nil {
			b.Style = *patch.Style
			applied = true
		}
	case domain.BlockTypeImage:
		if patch.Width != nil {
			w := *patch.Width
			b.Width = &w
			applied = true
		}
		if patch.Height != nil {
			h := *patch.Height
			b.Height = &h
			applied = true
		}
	}
	return applied
}

// structuralChange reports whether the id sequence differs — blocks
// were added, removed, or moved.
func structuralChange(prev, next []domain.Block) bool {
	if len(prev) != len(next) {
		return true
	}
	for i := range prev {
		if prev[i].ID != next[i].ID {
			return true
		}
	}
	return false
}

// diffPatch builds the patch that turns old into new.
func diffPatch(old, b domain.Block) (domain.BlockPatch, bool) {
	var patch domain.BlockPatch
	changed := false
	if b.Content != old.Content {
		c := b.Content
		patch.Content = &c
		changed = true
	}
	if b.Style != old.Style {
		s := b.Style
		patch.Style = &s
		changed = true
	}
	if !intPtrEqual(b.Width, old.Width) {
		patch.Width = b.Width
		changed = true
	}
	if !intPtrEqual(b.Height, old.Height) {
		patch.Height = b.Height
		changed = true
	}
	return patch, changed
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
