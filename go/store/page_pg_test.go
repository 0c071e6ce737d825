//go:build pgtest
// +build pgtest

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fpesa/fpesa/go/config"
)

// These tests require a reachable Postgres matching the bundled defaults
// (or an fpesa.cfg overlay) and truncate the message table.

func newTestStore(t *testing.T) *Store {
	cfg, err := config.Load()
	require.NoError(t, err)

	s, err := Open(cfg.Postgres)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	var ctx = context.Background()
	require.NoError(t, s.CreateTables(ctx))
	_, err = s.db.ExecContext(ctx, `DELETE FROM message`)
	require.NoError(t, err)
	return s
}

func insertSequence(t *testing.T, s *Store, start, n int) {
	for i := start; i != start+n; i++ {
		require.NoError(t, s.Insert(context.Background(),
			json.RawMessage(fmt.Sprintf(`{"n":%d}`, i))))
	}
}

func TestPageEmptyStore(t *testing.T) {
	var s = newTestStore(t)

	page, err := s.Page(context.Background(), 3, 10, nil)
	require.NoError(t, err)
	require.Equal(t, int64(0), page.PaginationID)
	require.Equal(t, 3, page.Offset)
	require.Equal(t, 10, page.Limit)
	require.Equal(t, 0, page.Total)
	require.Equal(t, []json.RawMessage{}, page.Messages)
}

func TestPageNewestFirstWithOffset(t *testing.T) {
	var s = newTestStore(t)
	insertSequence(t, s, 0, 5)

	page, err := s.Page(context.Background(), 1, 2, nil)
	require.NoError(t, err)
	require.Equal(t, 5, page.Total)
	require.Len(t, page.Messages, 2)
	// Newest to oldest, with the newest row skipped by the offset.
	require.JSONEq(t, `{"n":3}`, string(page.Messages[0]))
	require.JSONEq(t, `{"n":2}`, string(page.Messages[1]))
}

func TestPageSnapshotIsStable(t *testing.T) {
	var s = newTestStore(t)
	insertSequence(t, s, 0, 3)

	first, err := s.Page(context.Background(), 0, 10, nil)
	require.NoError(t, err)
	require.Equal(t, 3, first.Total)
	require.Len(t, first.Messages, 3)

	// Rows inserted after the pin stay invisible to the pinned snapshot.
	insertSequence(t, s, 3, 2)

	second, err := s.Page(context.Background(), 0, 10, &first.PaginationID)
	require.NoError(t, err)
	require.Equal(t, first.PaginationID, second.PaginationID)
	require.Equal(t, 3, second.Total)
	require.Equal(t, first.Messages, second.Messages)

	// An unpinned read sees everything under a fresh pin.
	fresh, err := s.Page(context.Background(), 0, 10, nil)
	require.NoError(t, err)
	require.Equal(t, 5, fresh.Total)
	require.Greater(t, fresh.PaginationID, first.PaginationID)
	require.JSONEq(t, `{"n":4}`, string(fresh.Messages[0]))
}

func TestPageLimitClippedOnRead(t *testing.T) {
	var s = newTestStore(t)
	insertSequence(t, s, 0, 1)

	page, err := s.Page(context.Background(), 0, 200, nil)
	require.NoError(t, err)
	require.Equal(t, 100, page.Limit)
	require.Len(t, page.Messages, 1)
}
