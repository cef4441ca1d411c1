package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syncer/internal/catalog"
	"syncer/internal/catalogstore/sqlite"
)

func openTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreTableLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	created, err := store.CreateTable(ctx, &catalog.Table{DBID: 1, Name: "widgets"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.True(t, created.Active)

	active, err := store.ActiveTables(ctx, 1)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "widgets", active[0].Name)

	desc := "a table of widgets"
	require.NoError(t, store.UpdateTable(ctx, created.ID, catalog.TablePatch{Description: &desc}))

	found, err := store.FindTable(ctx, 1, "widgets", nil)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, desc, found.Description)

	require.NoError(t, store.DeactivateTables(ctx, []int64{created.ID}))
	active, err = store.ActiveTables(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestStoreFieldLifecycleAndForeignKeys(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	table, err := store.CreateTable(ctx, &catalog.Table{DBID: 1, Name: "orders"})
	require.NoError(t, err)

	field, err := store.CreateField(ctx, &catalog.Field{TableID: table.ID, Name: "customer_id", BaseType: catalog.IntegerField, PreviewDisplay: true})
	require.NoError(t, err)
	assert.NotZero(t, field.ID)

	fk := catalog.SpecialFK
	require.NoError(t, store.UpdateField(ctx, field.ID, catalog.FieldPatch{SpecialType: &fk}))

	found, err := store.FindField(ctx, table.ID, nil, "customer_id")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.NotNil(t, found.SpecialType)
	assert.Equal(t, catalog.SpecialFK, *found.SpecialType)

	require.NoError(t, store.CreateForeignKey(ctx, &catalog.ForeignKey{
		OriginFieldID: field.ID, DestinationFieldID: field.ID, Relationship: catalog.ManyToOne,
	}))

	require.NoError(t, store.DeactivateFields(ctx, []int64{field.ID}))
	remaining, err := store.ActiveFields(ctx, table.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestStoreNameToHumanReadable(t *testing.T) {
	store := openTestStore(t)
	assert.Equal(t, "User Id", store.NameToHumanReadable("user_id"))
}
