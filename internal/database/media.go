package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

const mediaColumns = "id, name, path, url, mime_type, size, created_at"

func scanMedia(row rowScanner) (Media, error) {
	var m Media
	var created int64
	if err := row.Scan(&m.ID, &m.Name, &m.Path, &m.URL, &m.MimeType, &m.Size, &created); err != nil {
		return Media{}, err
	}
	m.CreatedAt = time.Unix(created, 0)
	return m, nil
}

// IDString returns the library identity as used in playlist entries.
func (m Media) IDString() string {
	return strconv.FormatInt(m.ID, 10)
}

// AddMedia registers a file in the library. Adding a path that is already
// registered updates its name, URL, type and size.
func (d *Database) AddMedia(ctx context.Context, m Media) (Media, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("add_media", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().Unix()
	m, err = scanMedia(d.db.QueryRowContext(ctx, `
		INSERT INTO media (name, path, url, mime_type, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name = excluded.name,
			url = excluded.url,
			mime_type = excluded.mime_type,
			size = excluded.size
		RETURNING `+mediaColumns,
		m.Name, m.Path, m.URL, m.MimeType, m.Size, now))
	if err != nil {
		return Media{}, fmt.Errorf("failed to add media: %w", err)
	}
	return m, nil
}

// GetMedia returns a library item by id.
func (d *Database) GetMedia(ctx context.Context, id int64) (*Media, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_media", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var m Media
	m, err = scanMedia(d.db.QueryRowContext(ctx, "SELECT "+mediaColumns+" FROM media WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, fmt.Errorf("%w: %d", ErrMediaNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media: %w", err)
	}
	return &m, nil
}

// ListMedia returns the library, newest first.
func (d *Database) ListMedia(ctx context.Context) ([]Media, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_media", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, "SELECT "+mediaColumns+" FROM media ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}
	defer rows.Close()

	items := []Media{}
	for rows.Next() {
		var m Media
		m, err = scanMedia(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	err = rows.Err()
	return items, err
}

// FindMediaByName returns the most recent library item with the given file
// name, compared case-insensitively.
func (d *Database) FindMediaByName(ctx context.Context, name string) (*Media, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("find_media", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var m Media
	m, err = scanMedia(d.db.QueryRowContext(ctx,
		"SELECT "+mediaColumns+" FROM media WHERE name = ? COLLATE NOCASE ORDER BY id DESC LIMIT 1", name))
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, fmt.Errorf("%w: %s", ErrMediaNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find media: %w", err)
	}
	return &m, nil
}

// DeleteMedia removes a library item. Playlists that reference it keep
// their stored URL.
func (d *Database) DeleteMedia(ctx context.Context, id int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_media", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var res sql.Result
	res, err = d.db.ExecContext(ctx, "DELETE FROM media WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete media: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = fmt.Errorf("%w: %d", ErrMediaNotFound, id)
		return err
	}
	return nil
}
