package domain

import "context"

type BlockType string

const (
	BlockTypeText  BlockType = "text"
	BlockTypeImage BlockType = "image"
)

// Valid reports whether t is a known block type.
func (t BlockType) Valid() bool {
	return t == BlockTypeText || t == BlockTypeImage
}

// TextStyle is the heading level of a text block.
type TextStyle string

const (
	StyleH1        TextStyle = "h1"
	StyleH2        TextStyle = "h2"
	StyleH3        TextStyle = "h3"
	StyleParagraph TextStyle = "paragraph"
)

func (s TextStyle) Valid() bool {
	switch s {
	case StyleH1, StyleH2, StyleH3, StyleParagraph:
		return true
	}
	return false
}

// Block is one unit of document content. Type discriminates the two
// variants: text blocks carry Style, image blocks carry Width/Height
// (Content is the image URL). Order is the display position, unique
// within the document. ID is assigned by the store and never changes.
type Block struct {
	ID      string    `json:"id"`
	Type    BlockType `json:"type"`
	Order   int       `json:"order"`
	Content string    `json:"content"`
	Style   TextStyle `json:"style,omitempty"`
	Width   *int      `json:"width,omitempty"`
	Height  *int      `json:"height,omitempty"`
}

// CreateBlockInput carries the caller-supplied fields for a new block.
// The store assigns ID and Order.
type CreateBlockInput struct {
	Type    BlockType `json:"type"`
	Content string    `json:"content"`
	Style   TextStyle `json:"style,omitempty"`
	Width   *int      `json:"width,omitempty"`
	Height  *int      `json:"height,omitempty"`
}

// BlockPatch is a partial update. Nil fields are left untouched.
// Which fields apply depends on the block's type: Content applies to
// both variants, Style to text blocks, Width/Height to image blocks.
type BlockPatch struct {
	Content *string    `json:"content,omitempty"`
	Style   *TextStyle `json:"style,omitempty"`
	Width   *int       `json:"width,omitempty"`
	Height  *int       `json:"height,omitempty"`
}

// BlockStore is the persistence contract the editor core depends on.
// Implementations: storage.SQLStore, storage.MongoStore, httpstore.Client.
type BlockStore interface {
	// ListBlocks returns all blocks sorted by Order ascending.
	ListBlocks(ctx context.Context) ([]Block, error)

	// CreateBlock validates the input, assigns a fresh ID and
	// Order = max(Order)+1 (0 for an empty document), and persists
	// the block. Text blocks default to StyleParagraph.
	CreateBlock(ctx context.Context, in CreateBlockInput) (*Block, error)

	// UpdateBlock applies the patch to the block with the given id and
	// returns the updated block. ErrNotFound if the id is unknown,
	// ErrInvalidInput if no field in the patch applies to the block's type.
	UpdateBlock(ctx context.Context, id string, patch BlockPatch) (*Block, error)

	// DeleteBlock removes a block. ErrNotFound if the id is unknown.
	DeleteBlock(ctx context.Context, id string) error

	// ReorderBlocks assigns Order = index for each id in the given
	// sequence, atomically. Unknown ids are silently skipped.
	ReorderBlocks(ctx context.Context, orderedIDs []string) error

	// ReplaceBlocks atomically replaces the whole document with the
	// given snapshot, preserving the blocks' existing IDs. Used by the
	// persistence pipeline when blocks were added or removed locally
	// (undo/redo must be able to resurrect a block under its old id).
	ReplaceBlocks(ctx context.Context, blocks []Block) error
}
