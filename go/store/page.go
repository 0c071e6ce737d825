package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// MaxLimit is the hard cap on page sizes. Requests asking for more are
// clipped, and the clipped value is echoed in the response.
const MaxLimit = 100

// Page is a stable pagination snapshot. For a fixed PaginationID the filtered
// set {m : m.id <= PaginationID} never changes, so Total and row contents are
// immune to inserts that happen between requests.
type Page struct {
	PaginationID int64             `json:"paginationId"`
	Offset       int               `json:"offset"`
	Limit        int               `json:"limit"`
	Total        int               `json:"total"`
	Messages     []json.RawMessage `json:"messages"`
}

// ClipLimit applies the MaxLimit cap.
func ClipLimit(limit int) int {
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Page reads a snapshot of stored messages, newest to oldest. A nil
// |paginationID| pins the snapshot to the current newest row. The whole read
// runs in one read-only transaction: commit on success, rollback on failure.
func (s *Store) Page(ctx context.Context, offset, limit int, paginationID *int64) (_ *Page, err error) {
	limit = ClipLimit(limit)

	txn, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("beginning read transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = txn.Rollback()
		}
	}()

	var count int
	if err = txn.QueryRowContext(ctx,
		`SELECT count(*) FROM message`).Scan(&count); err != nil {
		return nil, fmt.Errorf("counting messages: %w", err)
	}
	if count == 0 {
		if err = txn.Commit(); err != nil {
			return nil, err
		}
		return &Page{Offset: offset, Limit: limit, Messages: []json.RawMessage{}}, nil
	}

	var pin int64
	if paginationID != nil {
		pin = *paginationID
	} else if err = txn.QueryRowContext(ctx,
		`SELECT id FROM message ORDER BY id DESC LIMIT 1`).Scan(&pin); err != nil {
		return nil, fmt.Errorf("pinning pagination id: %w", err)
	}

	var total int
	if err = txn.QueryRowContext(ctx,
		`SELECT count(*) FROM message WHERE id <= $1`, pin).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting snapshot: %w", err)
	}

	rows, err := txn.QueryContext(ctx, `
		SELECT message FROM message
		WHERE id <= $1
		ORDER BY id DESC
		OFFSET $2 LIMIT $3`, pin, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("querying snapshot rows: %w", err)
	}
	defer rows.Close()

	var messages = []json.RawMessage{}
	for rows.Next() {
		var payload []byte
		if err = rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		messages = append(messages, json.RawMessage(payload))
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	if err = txn.Commit(); err != nil {
		return nil, err
	}

	return &Page{
		PaginationID: pin,
		Offset:       offset,
		Limit:        limit,
		Total:        total,
		Messages:     messages,
	}, nil
}
