package httpstore_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"blockpad/internal/api"
	"blockpad/internal/domain"
	"blockpad/internal/httpstore"
	"blockpad/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newClient spins up the real API over an in-memory store and points a
// Client at it, so the round-trip through JSON and back is exercised.
func newClient(t *testing.T) *httpstore.Client {
	t.Helper()
	db, err := storage.OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ts := httptest.NewServer(api.NewServer(storage.NewSQLStore(db), nil).Routes())
	t.Cleanup(ts.Close)
	return httpstore.New(ts.URL)
}

func TestClient_CreateListRoundTrip(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	created, err := client.CreateBlock(ctx, domain.CreateBlockInput{
		Type: domain.BlockTypeText, Content: "hello",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.Style != domain.StyleParagraph {
		t.Fatalf("created = %+v", created)
	}

	blocks, err := client.ListBlocks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(blocks) != 1 || blocks[0].ID != created.ID {
		t.Fatalf("list = %+v", blocks)
	}
}

func TestClient_UpdateBlock(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	w, h := 400, 300
	img, err := client.CreateBlock(ctx, domain.CreateBlockInput{
		Type: domain.BlockTypeImage, Content: "https://example.com/x.png",
		Width: &w, Height: &h,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newW := 640
	updated, err := client.UpdateBlock(ctx, img.ID, domain.BlockPatch{Width: &newW})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Width == nil || *updated.Width != 640 {
		t.Fatalf("width = %v, want 640", updated.Width)
	}
	if updated.Height == nil || *updated.Height != 300 {
		t.Fatalf("height = %v, want 300 untouched", updated.Height)
	}
}

func TestClient_ErrorTaxonomyMapsBack(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	content := "x"
	if _, err := client.UpdateBlock(ctx, "ghost", domain.BlockPatch{Content: &content}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("update unknown: err = %v, want ErrNotFound", err)
	}
	if err := client.DeleteBlock(ctx, "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("delete unknown: err = %v, want ErrNotFound", err)
	}
	if _, err := client.CreateBlock(ctx, domain.CreateBlockInput{Type: "video", Content: "x"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("bad create: err = %v, want ErrInvalidInput", err)
	}
}

func TestClient_ReorderAndReplace(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	a, _ := client.CreateBlock(ctx, domain.CreateBlockInput{Type: domain.BlockTypeText, Content: "a"})
	b, _ := client.CreateBlock(ctx, domain.CreateBlockInput{Type: domain.BlockTypeText, Content: "b"})

	if err := client.ReorderBlocks(ctx, []string{b.ID, a.ID}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	blocks, err := client.ListBlocks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if blocks[0].ID != b.ID {
		t.Fatalf("list[0].ID = %s, want %s", blocks[0].ID, b.ID)
	}

	if err := client.ReplaceBlocks(ctx, []domain.Block{
		{ID: a.ID, Type: domain.BlockTypeText, Order: 0, Content: "only a", Style: domain.StyleParagraph},
	}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	blocks, err = client.ListBlocks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Content != "only a" {
		t.Fatalf("list after replace = %+v", blocks)
	}
}

func TestClient_UnreachableServerIsUnavailable(t *testing.T) {
	// Point at a server that is already gone.
	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()

	client := httpstore.New(url)
	if _, err := client.ListBlocks(context.Background()); !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}
