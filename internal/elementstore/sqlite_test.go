package elementstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtallon/capindex-mcp/pkg/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "elements.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestUpsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := types.ElementRecord{
		ID:             "docker-debug",
		ElementType:    types.ElementSkill,
		Name:           "Docker Debugging",
		Description:    "Diagnose container failures",
		Keywords:       []string{"container", "docker"},
		Tags:           []string{"ops"},
		ActionTriggers: []string{"debug", "troubleshoot"},
		RawText:        "docker debugging container failures",
	}
	require.NoError(t, store.UpsertElement(ctx, &record))

	got, err := store.GetElement(ctx, "docker-debug")
	require.NoError(t, err)
	assert.Equal(t, record, *got)
}

func TestUpsertReplacesExisting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := types.ElementRecord{
		ID:          "git-helper",
		ElementType: types.ElementSkill,
		Name:        "Git Helper",
		Keywords:    []string{"git"},
		RawText:     "git helper",
	}
	require.NoError(t, store.UpsertElement(ctx, &record))

	record.Name = "Git Helper v2"
	record.Keywords = []string{"git", "rebase"}
	require.NoError(t, store.UpsertElement(ctx, &record))

	got, err := store.GetElement(ctx, "git-helper")
	require.NoError(t, err)
	assert.Equal(t, "Git Helper v2", got.Name)
	assert.Equal(t, []string{"git", "rebase"}, got.Keywords)

	count, err := store.CountElements(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpsertRejectsInvalidRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.UpsertElement(ctx, &types.ElementRecord{ElementType: types.ElementSkill})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrMissingElementID))

	err = store.UpsertElement(ctx, &types.ElementRecord{ID: "x", ElementType: "gadget"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrUnknownElementType))
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetElement(context.Background(), "absent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestDeleteElement(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertElement(ctx, &types.ElementRecord{
		ID:          "temp",
		ElementType: types.ElementMemory,
		RawText:     "temp",
	}))

	require.NoError(t, store.DeleteElement(ctx, "temp"))

	_, err := store.GetElement(ctx, "temp")
	assert.True(t, errors.Is(err, types.ErrNotFound))

	err = store.DeleteElement(ctx, "temp")
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestListElementsOrderedByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, store.UpsertElement(ctx, &types.ElementRecord{
			ID:          id,
			ElementType: types.ElementPersona,
			RawText:     id,
		}))
	}

	records, err := store.ListElements(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "alpha", records[0].ID)
	assert.Equal(t, "mid", records[1].ID)
	assert.Equal(t, "zeta", records[2].ID)
}

func TestEmptySetsRoundTripAsNil(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertElement(ctx, &types.ElementRecord{
		ID:          "bare",
		ElementType: types.ElementTemplate,
		RawText:     "bare",
	}))

	got, err := store.GetElement(ctx, "bare")
	require.NoError(t, err)
	assert.Nil(t, got.Keywords)
	assert.Nil(t, got.Tags)
	assert.Nil(t, got.ActionTriggers)
}

func TestListEmptyStore(t *testing.T) {
	store := newTestStore(t)

	records, err := store.ListElements(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)

	count, err := store.CountElements(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}
