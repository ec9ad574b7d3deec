package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"blockpad/internal/domain"
)

// SQLStore implements domain.BlockStore on a single blocks table.
// One row per block: id, type, content, order, style (nullable),
// width (nullable), height (nullable). Fields irrelevant to the
// block's type are stored as NULL.
type SQLStore struct {
	db *DB
}

func NewSQLStore(db *DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) ListBlocks(ctx context.Context) ([]domain.Block, error) {
	q := fmt.Sprintf(
		`SELECT id, type, content, %s, style, width, height FROM blocks ORDER BY %s ASC`,
		s.db.orderCol(), s.db.orderCol(),
	)
	rows, err := s.db.Conn().QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	defer rows.Close()

	var blocks []domain.Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

func (s *SQLStore) CreateBlock(ctx context.Context, in domain.CreateBlockInput) (*domain.Block, error) {
	b, err := newBlockFromInput(in)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// order = current max + 1, 0 for an empty document
	var next int
	q := fmt.Sprintf(`SELECT COALESCE(MAX(%s), -1) + 1 FROM blocks`, s.db.orderCol())
	if err := tx.QueryRowContext(ctx, q).Scan(&next); err != nil {
		return nil, fmt.Errorf("next order: %w", err)
	}
	b.Order = next

	ins := s.db.rebind(fmt.Sprintf(
		`INSERT INTO blocks (id, type, content, %s, style, width, height) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.db.orderCol(),
	))
	if _, err := tx.ExecContext(ctx, ins,
		b.ID, b.Type, b.Content, b.Order, nullStyle(b), b.Width, b.Height,
	); err != nil {
		return nil, fmt.Errorf("insert block: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return b, nil
}

func (s *SQLStore) UpdateBlock(ctx context.Context, id string, patch domain.BlockPatch) (*domain.Block, error) {
	cur, err := s.getBlock(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, changed := patchedBlock(*cur, patch)
	if !changed {
		return nil, fmt.Errorf("update block %s: no applicable field: %w", id, domain.ErrInvalidInput)
	}
	if updated.Type == domain.BlockTypeText && !updated.Style.Valid() {
		return nil, fmt.Errorf("update block %s: bad style %q: %w", id, updated.Style, domain.ErrInvalidInput)
	}

	q := s.db.rebind(`UPDATE blocks SET content = ?, style = ?, width = ?, height = ? WHERE id = ?`)
	if _, err := s.db.Conn().ExecContext(ctx, q,
		updated.Content, nullStyle(&updated), updated.Width, updated.Height, id,
	); err != nil {
		return nil, fmt.Errorf("update block: %w", err)
	}
	return &updated, nil
}

func (s *SQLStore) DeleteBlock(ctx context.Context, id string) error {
	res, err := s.db.Conn().ExecContext(ctx, s.db.rebind(`DELETE FROM blocks WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete block %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ReorderBlocks assigns order = index for each id, all rows in one
// transaction. Unknown ids update zero rows and are not an error.
func (s *SQLStore) ReorderBlocks(ctx context.Context, orderedIDs []string) error {
	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := s.db.rebind(fmt.Sprintf(`UPDATE blocks SET %s = ? WHERE id = ?`, s.db.orderCol()))
	for i, id := range orderedIDs {
		if _, err := tx.ExecContext(ctx, q, i, id); err != nil {
			return fmt.Errorf("reorder block %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// ReplaceBlocks swaps the whole table for the snapshot, preserving
// the snapshot's ids and order values.
func (s *SQLStore) ReplaceBlocks(ctx context.Context, blocks []domain.Block) error {
	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM blocks`); err != nil {
		return fmt.Errorf("clear blocks: %w", err)
	}

	ins := s.db.rebind(fmt.Sprintf(
		`INSERT INTO blocks (id, type, content, %s, style, width, height) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.db.orderCol(),
	))
	for i := range blocks {
		b := &blocks[i]
		if _, err := tx.ExecContext(ctx, ins,
			b.ID, b.Type, b.Content, b.Order, nullStyle(b), b.Width, b.Height,
		); err != nil {
			return fmt.Errorf("insert block %s: %w", b.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) getBlock(ctx context.Context, id string) (*domain.Block, error) {
	q := s.db.rebind(fmt.Sprintf(
		`SELECT id, type, content, %s, style, width, height FROM blocks WHERE id = ?`,
		s.db.orderCol(),
	))
	row := s.db.Conn().QueryRowContext(ctx, q, id)
	b, err := scanBlock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get block %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get block: %w", err)
	}
	return &b, nil
}

// ── row mapping ────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlock(r rowScanner) (domain.Block, error) {
	var b domain.Block
	var style sql.NullString
	var width, height sql.NullInt64
	if err := r.Scan(&b.ID, &b.Type, &b.Content, &b.Order, &style, &width, &height); err != nil {
		return domain.Block{}, err
	}
	if style.Valid {
		b.Style = domain.TextStyle(style.String)
	}
	if width.Valid {
		w := int(width.Int64)
		b.Width = &w
	}
	if height.Valid {
		h := int(height.Int64)
		b.Height = &h
	}
	return b, nil
}

// nullStyle returns the style column value: NULL for image blocks.
func nullStyle(b *domain.Block) any {
	if b.Type != domain.BlockTypeText || b.Style == "" {
		return nil
	}
	return string(b.Style)
}

// newBlockFromInput validates a create request and builds the block,
// dropping fields irrelevant to the type. The caller assigns Order.
func newBlockFromInput(in domain.CreateBlockInput) (*domain.Block, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("bad type %q: %w", in.Type, domain.ErrInvalidInput)
	}
	if in.Content == "" {
		return nil, fmt.Errorf("content required: %w", domain.ErrInvalidInput)
	}

	b := &domain.Block{
		ID:      uuid.New().String(),
		Type:    in.Type,
		Content: in.Content,
	}
	switch in.Type {
	case domain.BlockTypeText:
		b.Style = in.Style
		if b.Style == "" {
			b.Style = domain.StyleParagraph
		}
		if !b.Style.Valid() {
			return nil, fmt.Errorf("bad style %q: %w", in.Style, domain.ErrInvalidInput)
		}
	case domain.BlockTypeImage:
		b.Width = in.Width
		b.Height = in.Height
	}
	return b, nil
}

// patchedBlock applies the patch fields that fit the block's type.
func patchedBlock(b domain.Block, patch domain.BlockPatch) (domain.Block, bool) {
	changed := false
	if patch.Content != nil {
		b.Content = *patch.Content
		changed = true
	}
	switch b.Type {
	case domain.BlockTypeText:
		if patch.Style != nil {
			b.Style = *patch.Style
			changed = true
		}
	case domain.BlockTypeImage:
		if patch.Width != nil {
			w := *patch.Width
			b.Width = &w
			changed = true
		}
		if patch.Height != nil {
			h := *patch.Height
			b.Height = &h
			changed = true
		}
	}
	return b, changed
}
