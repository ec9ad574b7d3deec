package storage_test

import (
	"context"
	"errors"
	"testing"

	"blockpad/internal/domain"
	"blockpad/internal/storage"
)

func newTestStore(t *testing.T) *storage.SQLStore {
	t.Helper()
	db, err := storage.OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return storage.NewSQLStore(db)
}

func mustCreate(t *testing.T, s *storage.SQLStore, in domain.CreateBlockInput) *domain.Block {
	t.Helper()
	b, err := s.CreateBlock(context.Background(), in)
	if err != nil {
		t.Fatalf("create %+v: %v", in, err)
	}
	return b
}

func textInput(content string) domain.CreateBlockInput {
	return domain.CreateBlockInput{Type: domain.BlockTypeText, Content: content}
}

// ─────────────────────────────────────────────────────────────
// CreateBlock
// ─────────────────────────────────────────────────────────────

func TestCreateBlock_TextDefaultsToParagraph(t *testing.T) {
	s := newTestStore(t)

	b := mustCreate(t, s, textInput("hello"))
	if b.ID == "" {
		t.Fatal("expected a generated id")
	}
	if b.Style != domain.StyleParagraph {
		t.Fatalf("style = %q, want paragraph default", b.Style)
	}
	if b.Order != 0 {
		t.Fatalf("order = %d, want 0 in an empty document", b.Order)
	}
	if b.Width != nil || b.Height != nil {
		t.Fatal("text block must not carry image dimensions")
	}
}

func TestCreateBlock_OrderIsMaxPlusOne(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := mustCreate(t, s, textInput("a"))
	second := mustCreate(t, s, textInput("b"))
	if first.Order != 0 || second.Order != 1 {
		t.Fatalf("orders = %d, %d, want 0, 1", first.Order, second.Order)
	}

	// After deleting the first block, max is still 1 — the next block
	// lands at 2, not in the gap.
	if err := s.DeleteBlock(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	third := mustCreate(t, s, textInput("c"))
	if third.Order != 2 {
		t.Fatalf("order = %d, want 2 (max+1, gaps not reused)", third.Order)
	}
}

func TestCreateBlock_ImageKeepsDimensions(t *testing.T) {
	s := newTestStore(t)

	w, h := 400, 300
	b := mustCreate(t, s, domain.CreateBlockInput{
		Type:    domain.BlockTypeImage,
		Content: "https://picsum.photos/400/300",
		Width:   &w,
		Height:  &h,
	})
	if b.Style != "" {
		t.Fatalf("style = %q, want empty for an image block", b.Style)
	}

	got, err := s.ListBlocks(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("list returned %d blocks", len(got))
	}
	if got[0].Width == nil || *got[0].Width != 400 || got[0].Height == nil || *got[0].Height != 300 {
		t.Fatalf("dimensions = %v x %v, want 400 x 300", got[0].Width, got[0].Height)
	}
}

func TestCreateBlock_DropsFieldsForOtherType(t *testing.T) {
	s := newTestStore(t)

	w := 100
	in := textInput("hello")
	in.Width = &w
	b := mustCreate(t, s, in)
	if b.Width != nil {
		t.Fatal("width must be dropped on a text block")
	}

	img := mustCreate(t, s, domain.CreateBlockInput{
		Type:    domain.BlockTypeImage,
		Content: "https://example.com/x.png",
		Style:   domain.StyleH1,
	})
	if img.Style != "" {
		t.Fatal("style must be dropped on an image block")
	}
}

func TestCreateBlock_Validation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   domain.CreateBlockInput
	}{
		{"unknown type", domain.CreateBlockInput{Type: "video", Content: "x"}},
		{"empty content", domain.CreateBlockInput{Type: domain.BlockTypeText}},
		{"bad style", domain.CreateBlockInput{Type: domain.BlockTypeText, Content: "x", Style: "h9"}},
	}
	for _, tc := range cases {
		if _, err := s.CreateBlock(ctx, tc.in); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("%s: err = %v, want ErrInvalidInput", tc.name, err)
		}
	}
}

// ─────────────────────────────────────────────────────────────
// UpdateBlock
// ─────────────────────────────────────────────────────────────

func TestUpdateBlock_ContentAndStyle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	b := mustCreate(t, s, textInput("hello"))

	content := "updated"
	h1 := domain.StyleH1
	got, err := s.UpdateBlock(ctx, b.ID, domain.BlockPatch{Content: &content, Style: &h1})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Content != "updated" || got.Style != domain.StyleH1 {
		t.Fatalf("updated = %+v", got)
	}

	// The write is durable, not just echoed back.
	listed, err := s.ListBlocks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if listed[0].Content != "updated" || listed[0].Style != domain.StyleH1 {
		t.Fatalf("listed = %+v", listed[0])
	}
}

func TestUpdateBlock_ImageDimensions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	b := mustCreate(t, s, domain.CreateBlockInput{
		Type: domain.BlockTypeImage, Content: "https://example.com/x.png",
	})

	w, h := 640, 480
	got, err := s.UpdateBlock(ctx, b.ID, domain.BlockPatch{Width: &w, Height: &h})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Width == nil || *got.Width != 640 || got.Height == nil || *got.Height != 480 {
		t.Fatalf("dimensions = %v x %v", got.Width, got.Height)
	}
}

func TestUpdateBlock_NoApplicableField(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	text := mustCreate(t, s, textInput("hello"))
	w := 640
	if _, err := s.UpdateBlock(ctx, text.ID, domain.BlockPatch{Width: &w}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("width on text: err = %v, want ErrInvalidInput", err)
	}

	img := mustCreate(t, s, domain.CreateBlockInput{
		Type: domain.BlockTypeImage, Content: "https://example.com/x.png",
	})
	h1 := domain.StyleH1
	if _, err := s.UpdateBlock(ctx, img.ID, domain.BlockPatch{Style: &h1}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("style on image: err = %v, want ErrInvalidInput", err)
	}

	if _, err := s.UpdateBlock(ctx, text.ID, domain.BlockPatch{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("empty patch: err = %v, want ErrInvalidInput", err)
	}
}

func TestUpdateBlock_BadStyleRejected(t *testing.T) {
	s := newTestStore(t)
	b := mustCreate(t, s, textInput("hello"))

	bad := domain.TextStyle("huge")
	if _, err := s.UpdateBlock(context.Background(), b.ID, domain.BlockPatch{Style: &bad}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestUpdateBlock_UnknownID(t *testing.T) {
	s := newTestStore(t)
	content := "x"
	if _, err := s.UpdateBlock(context.Background(), "ghost", domain.BlockPatch{Content: &content}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

// ─────────────────────────────────────────────────────────────
// DeleteBlock
// ─────────────────────────────────────────────────────────────

func TestDeleteBlock(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	b := mustCreate(t, s, textInput("hello"))

	if err := s.DeleteBlock(ctx, b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := s.ListBlocks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("list = %+v, want empty", got)
	}

	if err := s.DeleteBlock(ctx, b.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete: err = %v, want ErrNotFound", err)
	}
}

// ─────────────────────────────────────────────────────────────
// ReorderBlocks / ReplaceBlocks / ListBlocks
// ─────────────────────────────────────────────────────────────

func TestReorderBlocks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, textInput("a"))
	b := mustCreate(t, s, textInput("b"))
	c := mustCreate(t, s, textInput("c"))

	if err := s.ReorderBlocks(ctx, []string{b.ID, c.ID, a.ID}); err != nil {
		t.Fatalf("reorder: %v", err)
	}

	got, err := s.ListBlocks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	wantIDs := []string{b.ID, c.ID, a.ID}
	for i, blk := range got {
		if blk.ID != wantIDs[i] {
			t.Fatalf("list[%d].ID = %s, want %s", i, blk.ID, wantIDs[i])
		}
		if blk.Order != i {
			t.Fatalf("list[%d].Order = %d, want %d", i, blk.Order, i)
		}
	}
}

func TestReorderBlocks_UnknownIDsSkipped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, textInput("a"))
	b := mustCreate(t, s, textInput("b"))

	if err := s.ReorderBlocks(ctx, []string{b.ID, "ghost", a.ID}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	got, err := s.ListBlocks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got[0].ID != b.ID || got[1].ID != a.ID {
		t.Fatalf("order after reorder = [%s %s], want [b a]", got[0].ID, got[1].ID)
	}
}

func TestReplaceBlocks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, textInput("a"))
	mustCreate(t, s, textInput("b"))

	// Replace with a snapshot keeping only a, renumbered, plus a block
	// carrying an id the store never assigned (an undo resurrection).
	w, h := 400, 300
	snapshot := []domain.Block{
		{ID: a.ID, Type: domain.BlockTypeText, Order: 0, Content: "a2", Style: domain.StyleH2},
		{ID: "resurrected", Type: domain.BlockTypeImage, Order: 1, Content: "https://example.com/x.png", Width: &w, Height: &h},
	}
	if err := s.ReplaceBlocks(ctx, snapshot); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := s.ListBlocks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("list returned %d blocks, want 2", len(got))
	}
	if got[0].ID != a.ID || got[0].Content != "a2" || got[0].Style != domain.StyleH2 {
		t.Fatalf("list[0] = %+v", got[0])
	}
	if got[1].ID != "resurrected" || got[1].Width == nil || *got[1].Width != 400 {
		t.Fatalf("list[1] = %+v", got[1])
	}
}

func TestListBlocks_EmptyAndSorted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.ListBlocks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("empty document list = %+v", got)
	}

	// Insert out of order via ReplaceBlocks; List must sort by order.
	if err := s.ReplaceBlocks(ctx, []domain.Block{
		{ID: "b2", Type: domain.BlockTypeText, Order: 1, Content: "second", Style: domain.StyleParagraph},
		{ID: "b1", Type: domain.BlockTypeText, Order: 0, Content: "first", Style: domain.StyleParagraph},
	}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err = s.ListBlocks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got[0].ID != "b1" || got[1].ID != "b2" {
		t.Fatalf("list order = [%s %s], want [b1 b2]", got[0].ID, got[1].ID)
	}
}
