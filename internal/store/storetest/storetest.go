// Package storetest is a conformance suite that every store.Store backend
// runs from its own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/tasklist/internal/apperr"
	"github.com/starford/tasklist/internal/models"
	"github.com/starford/tasklist/internal/store"
)

// Factory returns an empty store. It must register its own cleanup.
type Factory func(t *testing.T) store.Store

// MalformedID is rejected by every backend.
const MalformedID = "not a valid id!"

// Run executes the suite, giving each case a fresh store.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	cases := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"CreateDefaults", testCreateDefaults},
		{"CreateAssignsDistinctIDs", testDistinctIDs},
		{"ListNewestFirst", testListNewestFirst},
		{"ListEmpty", testListEmpty},
		{"GetRoundTrip", testGetRoundTrip},
		{"UpdateDoneOnly", testUpdateDoneOnly},
		{"UpdateTitle", testUpdateTitle},
		{"UpdateEmptyPatch", testUpdateEmptyPatch},
		{"UpdateImmediatelyAdvances", testUpdateImmediatelyAdvances},
		{"UpdateMissing", testUpdateMissing},
		{"DeleteThenMissing", testDeleteThenMissing},
		{"MalformedID", testMalformedID},
		{"Ping", testPing},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStore(t))
		})
	}
}

func mustCreate(t *testing.T, s store.Store, title string) *models.Item {
	t.Helper()
	it, err := s.Create(context.Background(), title)
	require.NoError(t, err)
	require.NotNil(t, it)
	return it
}

// goneID returns a well-formed id that no longer exists.
func goneID(t *testing.T, s store.Store) string {
	t.Helper()
	it := mustCreate(t, s, "ephemeral")
	require.NoError(t, s.Delete(context.Background(), it.ID))
	return it.ID
}

// tick makes sure the next write lands on a later millisecond.
func tick() {
	time.Sleep(5 * time.Millisecond)
}

func testCreateDefaults(t *testing.T, s store.Store) {
	it := mustCreate(t, s, "buy milk")
	assert.NotEmpty(t, it.ID)
	assert.Equal(t, "buy milk", it.Title)
	assert.False(t, it.Done)
	assert.False(t, it.CreatedAt.IsZero())
	assert.True(t, it.UpdatedAt.Equal(it.CreatedAt), "updatedAt = %v, createdAt = %v", it.UpdatedAt, it.CreatedAt)
}

func testDistinctIDs(t *testing.T, s store.Store) {
	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		it := mustCreate(t, s, "same title")
		assert.False(t, seen[it.ID], "duplicate id %s", it.ID)
		seen[it.ID] = true
	}
}

func testListNewestFirst(t *testing.T, s store.Store) {
	for _, title := range []string{"A", "B", "C"} {
		mustCreate(t, s, title)
		tick()
	}
	items, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"C", "B", "A"}, titles(items))
}

func testListEmpty(t *testing.T, s store.Store) {
	items, err := s.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func testGetRoundTrip(t *testing.T, s store.Store) {
	const title = "Buy  MILK, then café ☕"
	created := mustCreate(t, s, title)
	got, err := s.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, title, got.Title)
	assert.Equal(t, created.Done, got.Done)
	assert.True(t, got.CreatedAt.Equal(created.CreatedAt))
}

func testUpdateDoneOnly(t *testing.T, s store.Store) {
	created := mustCreate(t, s, "walk dog")
	tick()
	done := true
	updated, err := s.Update(context.Background(), created.ID, models.ItemPatch{Done: &done})
	require.NoError(t, err)
	assert.True(t, updated.Done)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.Title, updated.Title)
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt), "updatedAt did not advance")

	got, err := s.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, got.Done)
}

func testUpdateTitle(t *testing.T, s store.Store) {
	created := mustCreate(t, s, "old")
	title := "new"
	updated, err := s.Update(context.Background(), created.ID, models.ItemPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Title)
	assert.False(t, updated.Done)
}

func testUpdateEmptyPatch(t *testing.T, s store.Store) {
	created := mustCreate(t, s, "unchanged")
	updated, err := s.Update(context.Background(), created.ID, models.ItemPatch{})
	require.NoError(t, err)
	assert.Equal(t, created.Title, updated.Title)
	assert.Equal(t, created.Done, updated.Done)
}

func testUpdateImmediatelyAdvances(t *testing.T, s store.Store) {
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		created := mustCreate(t, s, "rapid")
		done := true
		first, err := s.Update(ctx, created.ID, models.ItemPatch{Done: &done})
		require.NoError(t, err)
		assert.True(t, first.UpdatedAt.After(created.UpdatedAt),
			"round %d: updatedAt %v did not advance past %v", i, first.UpdatedAt, created.UpdatedAt)

		second, err := s.Update(ctx, created.ID, models.ItemPatch{})
		require.NoError(t, err)
		assert.True(t, second.UpdatedAt.After(first.UpdatedAt),
			"round %d: updatedAt %v did not advance past %v", i, second.UpdatedAt, first.UpdatedAt)
	}
}

func testUpdateMissing(t *testing.T, s store.Store) {
	keep := mustCreate(t, s, "keep")
	id := goneID(t, s)
	done := true
	_, err := s.Update(context.Background(), id, models.ItemPatch{Done: &done})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	items, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, keep.ID, items[0].ID)
	assert.False(t, items[0].Done)
}

func testDeleteThenMissing(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := mustCreate(t, s, "a")
	b := mustCreate(t, s, "b")
	require.NoError(t, s.Delete(ctx, a.ID))

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ID)

	assert.ErrorIs(t, s.Delete(ctx, a.ID), apperr.ErrNotFound)
	_, err = s.Get(ctx, a.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func testMalformedID(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, err := s.Get(ctx, MalformedID)
	assert.ErrorIs(t, err, apperr.ErrInvalidID)
	done := true
	_, err = s.Update(ctx, MalformedID, models.ItemPatch{Done: &done})
	assert.ErrorIs(t, err, apperr.ErrInvalidID)
	assert.ErrorIs(t, s.Delete(ctx, MalformedID), apperr.ErrInvalidID)
}

func testPing(t *testing.T, s store.Store) {
	assert.NoError(t, s.Ping(context.Background()))
}

func titles(items []models.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}
