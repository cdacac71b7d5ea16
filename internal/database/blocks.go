package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewClientID returns a fresh block identity.
func NewClientID() string {
	return uuid.NewString()
}

const blockColumns = "client_id, COALESCE(parent_id, ''), name, position, attributes, original_content, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBlock(row rowScanner) (Block, error) {
	var (
		b                Block
		attrs            string
		created, updated int64
	)
	if err := row.Scan(&b.ClientID, &b.ParentID, &b.Name, &b.Position, &attrs, &b.OriginalContent, &created, &updated); err != nil {
		return Block{}, err
	}
	b.Attributes = Attributes{}
	if attrs != "" {
		if err := json.Unmarshal([]byte(attrs), &b.Attributes); err != nil {
			return Block{}, fmt.Errorf("decode attributes of %s: %w", b.ClientID, err)
		}
	}
	b.CreatedAt = time.Unix(created, 0)
	b.UpdatedAt = time.Unix(updated, 0)
	return b, nil
}

func encodeAttributes(a Attributes) (string, error) {
	if a == nil {
		return "{}", nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("encode attributes: %w", err)
	}
	return string(data), nil
}

// CreateBlock stores a top-level block. An empty ClientID is assigned one.
func (d *Database) CreateBlock(ctx context.Context, b Block) (Block, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_block", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if b.ClientID == "" {
		b.ClientID = NewClientID()
	}
	attrs, err := encodeAttributes(b.Attributes)
	if err != nil {
		return Block{}, err
	}

	now := time.Now().Unix()
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO blocks (client_id, parent_id, name, position, attributes, original_content, created_at, updated_at)
		VALUES (?, NULL, ?, 0, ?, ?, ?, ?)
	`, b.ClientID, b.Name, attrs, b.OriginalContent, now, now)
	if err != nil {
		return Block{}, fmt.Errorf("failed to create block: %w", err)
	}

	b.ParentID = ""
	b.CreatedAt = time.Unix(now, 0)
	b.UpdatedAt = b.CreatedAt
	if b.Attributes == nil {
		b.Attributes = Attributes{}
	}
	b.InnerBlocks = nil
	return b, nil
}

// GetBlock returns a block with its inner blocks in position order.
func (d *Database) GetBlock(ctx context.Context, clientID string) (*Block, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_block", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var b Block
	b, err = scanBlock(d.db.QueryRowContext(ctx, "SELECT "+blockColumns+" FROM blocks WHERE client_id = ?", clientID))
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, clientID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get block: %w", err)
	}

	b.InnerBlocks, err = d.innerBlocks(ctx, b.ClientID)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (d *Database) innerBlocks(ctx context.Context, parentID string) ([]Block, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT "+blockColumns+" FROM blocks WHERE parent_id = ? ORDER BY position", parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inner blocks: %w", err)
	}
	defer rows.Close()

	var out []Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListBlocks returns top-level blocks, filtered by name when name is not
// empty. Inner blocks are included.
func (d *Database) ListBlocks(ctx context.Context, name string) ([]Block, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_blocks", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := "SELECT " + blockColumns + " FROM blocks WHERE parent_id IS NULL"
	var args []interface{}
	if name != "" {
		query += " AND name = ?"
		args = append(args, name)
	}
	query += " ORDER BY created_at, client_id"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocks: %w", err)
	}

	var blocks []Block
	for rows.Next() {
		var b Block
		b, err = scanBlock(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		blocks = append(blocks, b)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range blocks {
		blocks[i].InnerBlocks, err = d.innerBlocks(ctx, blocks[i].ClientID)
		if err != nil {
			return nil, err
		}
	}
	return blocks, nil
}

// ReplaceInnerBlocks replaces the children of parentID with blocks, in
// order, as one transaction. Children whose ClientID is already stored keep
// their creation time and original content unless the new block carries
// content of its own.
func (d *Database) ReplaceInnerBlocks(ctx context.Context, parentID string, blocks []Block) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("replace_inner_blocks", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists bool
	err = tx.QueryRowContext(ctx, "SELECT COUNT(*) > 0 FROM blocks WHERE client_id = ?", parentID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check parent: %w", err)
	}
	if !exists {
		err = fmt.Errorf("%w: %s", ErrBlockNotFound, parentID)
		return err
	}

	existing := make(map[string]struct {
		created int64
		content string
	})
	rows, err := tx.QueryContext(ctx, "SELECT client_id, created_at, original_content FROM blocks WHERE parent_id = ?", parentID)
	if err != nil {
		return fmt.Errorf("failed to read children: %w", err)
	}
	for rows.Next() {
		var id, content string
		var created int64
		if err = rows.Scan(&id, &created, &content); err != nil {
			rows.Close()
			return err
		}
		existing[id] = struct {
			created int64
			content string
		}{created, content}
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	if _, err = tx.ExecContext(ctx, "DELETE FROM blocks WHERE parent_id = ?", parentID); err != nil {
		return fmt.Errorf("failed to clear children: %w", err)
	}

	now := time.Now().Unix()
	for i, b := range blocks {
		if b.ClientID == "" {
			b.ClientID = NewClientID()
		}
		var attrs string
		attrs, err = encodeAttributes(b.Attributes)
		if err != nil {
			return err
		}
		created := now
		content := b.OriginalContent
		if prev, ok := existing[b.ClientID]; ok {
			created = prev.created
			if content == "" {
				content = prev.content
			}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO blocks (client_id, parent_id, name, position, attributes, original_content, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, b.ClientID, parentID, b.Name, i, attrs, content, created, now)
		if err != nil {
			return fmt.Errorf("failed to insert child %s: %w", b.ClientID, err)
		}
	}

	if _, err = tx.ExecContext(ctx, "UPDATE blocks SET updated_at = ? WHERE client_id = ?", now, parentID); err != nil {
		return fmt.Errorf("failed to touch parent: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateBlockAttributes merges attrs into the stored attributes of a block.
// A nil value removes the key.
func (d *Database) UpdateBlockAttributes(ctx context.Context, clientID string, attrs Attributes) (*Block, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("update_block_attributes", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var b Block
	b, err = scanBlock(d.db.QueryRowContext(ctx, "SELECT "+blockColumns+" FROM blocks WHERE client_id = ?", clientID))
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, clientID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get block: %w", err)
	}

	for k, v := range attrs {
		if v == nil {
			delete(b.Attributes, k)
			continue
		}
		b.Attributes[k] = v
	}

	var encoded string
	encoded, err = encodeAttributes(b.Attributes)
	if err != nil {
		return nil, err
	}
	now := time.Now().Unix()
	if _, err = d.db.ExecContext(ctx, "UPDATE blocks SET attributes = ?, updated_at = ? WHERE client_id = ?", encoded, now, clientID); err != nil {
		return nil, fmt.Errorf("failed to update attributes: %w", err)
	}
	b.UpdatedAt = time.Unix(now, 0)
	return &b, nil
}

// SetOriginalContent stores the saved markup of a block.
func (d *Database) SetOriginalContent(ctx context.Context, clientID, content string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_original_content", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var res sql.Result
	res, err = d.db.ExecContext(ctx, "UPDATE blocks SET original_content = ?, updated_at = ? WHERE client_id = ?", content, time.Now().Unix(), clientID)
	if err != nil {
		return fmt.Errorf("failed to set original content: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, clientID)
	}
	return nil
}

// DeleteBlock removes a block and its children.
func (d *Database) DeleteBlock(ctx context.Context, clientID string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_block", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM blocks WHERE parent_id = ?", clientID); err != nil {
		return fmt.Errorf("failed to delete children: %w", err)
	}
	var res sql.Result
	res, err = tx.ExecContext(ctx, "DELETE FROM blocks WHERE client_id = ?", clientID)
	if err != nil {
		return fmt.Errorf("failed to delete block: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = fmt.Errorf("%w: %s", ErrBlockNotFound, clientID)
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
