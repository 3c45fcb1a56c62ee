package processing

import (
	"context"
	"testing"

	"adspower_sync/internal/sheets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cleanupStore() *fakeStore {
	store := newFakeStore()
	store.props["Output"] = sheets.Properties{SheetID: 100, Title: "Output", RowCount: 1000}
	store.props["Archive"] = sheets.Properties{SheetID: 200, Title: "Archive", RowCount: 1000}
	store.ranges["Output!A2:A"] = column("p1", "p2", "p1", "gone", "")
	store.ranges["Archive!A2:A"] = column("p1", "p2")
	return store
}

func validSet(ids ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func TestCleanerDeletesDuplicatesAndOrphansInOneBatch(t *testing.T) {
	store := cleanupStore()

	res := NewCleaner(store, testSettings()).Run(context.Background(), validSet("p1", "p2"))
	assert.Equal(t, CleanupResult{Deleted: 3}, res)
	require.Len(t, store.deletes, 1)
	assert.Equal(t, deletion{SheetID: 100, Rows: []int{6, 5, 4}}, store.deletes[0])
}

func TestCleanerEmptyValidSetDeletesNothing(t *testing.T) {
	store := cleanupStore()

	res := NewCleaner(store, testSettings()).Run(context.Background(), nil)
	assert.True(t, res.Skipped)
	assert.Empty(t, store.deletes)
}

func TestCleanerContinuesPastBrokenSheet(t *testing.T) {
	store := cleanupStore()
	delete(store.props, "Output")
	store.ranges["Archive!A2:A"] = column("p1", "stale")

	res := NewCleaner(store, testSettings()).Run(context.Background(), validSet("p1"))
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Deleted)
	assert.Equal(t, []deletion{{SheetID: 200, Rows: []int{3}}}, store.deletes)
}

func TestCleanerIsIdempotent(t *testing.T) {
	store := cleanupStore()
	store.ranges["Output!A2:A"] = column("p1", "p2")

	res := NewCleaner(store, testSettings()).Run(context.Background(), validSet("p1", "p2"))
	assert.Zero(t, res.Deleted)
	assert.Empty(t, store.deletes)
}
