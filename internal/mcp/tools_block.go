package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"blockpad/internal/domain"
)

func (s *Server) registerBlockTools() {
	// ── list_blocks ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_blocks",
		mcp.WithDescription("List all blocks of the document in display order, plus undo/redo availability"),
	), s.handleListBlocks)

	// ── add_block ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_block",
		mcp.WithDescription("Append a new block to the document"),
		mcp.WithString("type",
			mcp.Description("Block type: text or image"),
			mcp.Required(),
		),
		mcp.WithString("content", mcp.Description("Initial content (text, or image URL); a default is used if omitted")),
		mcp.WithString("style", mcp.Description("Text style: h1, h2, h3, paragraph (text blocks only)")),
		mcp.WithNumber("width", mcp.Description("Image width in pixels (image blocks only)")),
		mcp.WithNumber("height", mcp.Description("Image height in pixels (image blocks only)")),
	), s.handleAddBlock)

	// ── edit_block ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("edit_block",
		mcp.WithDescription("Update fields of an existing block. Content applies to both types; style to text blocks; width/height to image blocks."),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("content", mcp.Description("New content")),
		mcp.WithString("style", mcp.Description("New text style")),
		mcp.WithNumber("width", mcp.Description("New width")),
		mcp.WithNumber("height", mcp.Description("New height")),
	), s.handleEditBlock)

	// ── delete_block (destructive) ─────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_block",
		mcp.WithDescription("Delete a block from the document (undo can bring it back during this session)"),
		mcp.WithString("blockId", mcp.Description("Block ID to delete"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteBlock)

	// ── move_block ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_block",
		mcp.WithDescription("Move a block to another block's position (the others shift by one)"),
		mcp.WithString("blockId", mcp.Description("Block to move"), mcp.Required()),
		mcp.WithString("toBlockId", mcp.Description("Block currently at the target position"), mcp.Required()),
	), s.handleMoveBlock)

	// ── undo / redo ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the most recent edit"),
	), s.handleUndo)
	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the most recently undone edit"),
	), s.handleRedo)

	// ── save_now ───────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("save_now",
		mcp.WithDescription("Flush pending changes to the store immediately instead of waiting for the debounce"),
	), s.handleSaveNow)
}

func (s *Server) handleListBlocks(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{
		"blocks":  s.ed.Blocks(),
		"canUndo": s.ed.CanUndo(),
		"canRedo": s.ed.CanRedo(),
	})
}

func (s *Server) handleAddBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	blockType, _ := args["type"].(string)
	if blockType == "" {
		return nil, fmt.Errorf("type is required")
	}

	block, err := s.ed.Add(ctx, domain.BlockType(blockType))
	if err != nil {
		return nil, fmt.Errorf("add block: %w", err)
	}

	// Apply caller-supplied fields on top of the defaults.
	if patch, ok := patchFromArgs(args); ok {
		if err := s.ed.Edit(block.ID, patch); err != nil {
			return nil, fmt.Errorf("set initial fields: %w", err)
		}
		for _, b := range s.ed.Blocks() {
			if b.ID == block.ID {
				*block = b
			}
		}
	}

	return jsonResult(block)
}

func (s *Server) handleEditBlock(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	blockID, _ := args["blockId"].(string)
	if blockID == "" {
		return nil, fmt.Errorf("blockId is required")
	}

	patch, ok := patchFromArgs(args)
	if !ok {
		return nil, fmt.Errorf("nothing to update: pass content, style, width, or height")
	}
	if err := s.ed.Edit(blockID, patch); err != nil {
		return nil, fmt.Errorf("edit block: %w", err)
	}
	return textResult("updated " + blockID), nil
}

func (s *Server) handleDeleteBlock(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blockID, _ := req.GetArguments()["blockId"].(string)
	if blockID == "" {
		return nil, fmt.Errorf("blockId is required")
	}
	if err := s.ed.Delete(blockID); err != nil {
		return nil, fmt.Errorf("delete block: %w", err)
	}
	return textResult("deleted " + blockID), nil
}

func (s *Server) handleMoveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	blockID, _ := args["blockId"].(string)
	toID, _ := args["toBlockId"].(string)
	if blockID == "" || toID == "" {
		return nil, fmt.Errorf("blockId and toBlockId are required")
	}
	if err := s.ed.Reorder(ctx, blockID, toID); err != nil {
		return nil, fmt.Errorf("move block: %w", err)
	}
	return jsonResult(s.ed.Blocks())
}

func (s *Server) handleUndo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.ed.Undo() {
		return textResult("nothing to undo"), nil
	}
	return jsonResult(s.ed.Blocks())
}

func (s *Server) handleRedo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.ed.Redo() {
		return textResult("nothing to redo"), nil
	}
	return jsonResult(s.ed.Blocks())
}

func (s *Server) handleSaveNow(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.ed.Flush(); err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}
	return textResult("saved"), nil
}

// patchFromArgs collects the optional field arguments into a patch.
func patchFromArgs(args map[string]any) (domain.BlockPatch, bool) {
	var patch domain.BlockPatch
	ok := false
	if content, found := args["content"].(string); found {
		patch.Content = &content
		ok = true
	}
	if style, found := args["style"].(string); found && style != "" {
		ts := domain.TextStyle(style)
		patch.Style = &ts
		ok = true
	}
	if w := optionalInt(args, "width"); w != nil {
		patch.Width = w
		ok = true
	}
	if h := optionalInt(args, "height"); h != nil {
		patch.Height = h
		ok = true
	}
	return patch, ok
}
