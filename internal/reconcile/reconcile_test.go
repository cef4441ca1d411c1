package reconcile_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syncer/internal/catalog"
	"syncer/internal/catalogstore"
	"syncer/internal/driver"
	"syncer/internal/reconcile"
	"syncer/internal/synclog"
)

func deps(store *catalogstore.Memory) reconcile.Dependencies {
	return reconcile.Dependencies{Store: store, Log: synclog.Nop()}
}

func TestTablesCreatesAndDeactivates(t *testing.T) {
	ctx := context.Background()
	store := catalogstore.New()
	db := &catalog.Database{ID: 1, Name: "shop"}

	stale, err := store.CreateTable(ctx, &catalog.Table{DBID: 1, Name: "ghost"})
	require.NoError(t, err)

	err = reconcile.Tables(ctx, deps(store), db, driver.DescribeDatabaseResult{
		Tables: []driver.TableRef{{Name: "orders"}, {Name: "customers"}},
	})
	require.NoError(t, err)

	active, err := store.ActiveTables(ctx, 1)
	require.NoError(t, err)
	names := map[string]bool{}
	for _, t := range active {
		names[t.Name] = true
	}
	assert.True(t, names["orders"])
	assert.True(t, names["customers"])
	assert.False(t, names["ghost"])
	_ = stale
}

func TestTablesFiltersMetadataTable(t *testing.T) {
	ctx := context.Background()
	store := catalogstore.New()
	db := &catalog.Database{ID: 1, Name: "shop"}

	err := reconcile.Tables(ctx, deps(store), db, driver.DescribeDatabaseResult{
		Tables: []driver.TableRef{{Name: "orders"}, {Name: "_metabase_metadata"}},
	})
	require.NoError(t, err)

	active, err := store.ActiveTables(ctx, 1)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "orders", active[0].Name)
}

func TestTablesRejectsEmptyName(t *testing.T) {
	ctx := context.Background()
	store := catalogstore.New()
	db := &catalog.Database{ID: 1}
	err := reconcile.Tables(ctx, deps(store), db, driver.DescribeDatabaseResult{Tables: []driver.TableRef{{Name: ""}}})
	require.Error(t, err)
	var violation *reconcile.ContractViolation
	assert.ErrorAs(t, err, &violation)
}

func TestFieldsInsertsUpdatesAndDeactivates(t *testing.T) {
	ctx := context.Background()
	store := catalogstore.New()
	table, err := store.CreateTable(ctx, &catalog.Table{DBID: 1, Name: "orders"})
	require.NoError(t, err)

	stale, err := store.CreateField(ctx, &catalog.Field{TableID: table.ID, Name: "legacy_col", BaseType: catalog.CharField, PreviewDisplay: true})
	require.NoError(t, err)

	reconciledTable, fields, err := reconcile.Fields(ctx, deps(store), table, []driver.DescribedField{
		{Name: "id", BaseType: catalog.IntegerField, PrimaryKey: true},
		{Name: "status", BaseType: catalog.CharField},
	})
	require.NoError(t, err)
	require.NotNil(t, reconciledTable.DisplayName)
	assert.Equal(t, "Orders", *reconciledTable.DisplayName)
	require.Len(t, fields, 2)

	var idField *catalog.Field
	for _, f := range fields {
		if f.Name == "id" {
			idField = f
		}
	}
	require.NotNil(t, idField)
	require.NotNil(t, idField.SpecialType)
	assert.Equal(t, catalog.SpecialID, *idField.SpecialType)

	active, err := store.ActiveFields(ctx, table.ID, nil)
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range active {
		names[f.Name] = true
	}
	assert.False(t, names["legacy_col"])
	_ = stale
}

func TestFieldsPriorSpecialTypeSurvives(t *testing.T) {
	ctx := context.Background()
	store := catalogstore.New()
	table, err := store.CreateTable(ctx, &catalog.Table{DBID: 1, Name: "orders"})
	require.NoError(t, err)

	category := catalog.SpecialCategory
	_, err = store.CreateField(ctx, &catalog.Field{TableID: table.ID, Name: "status", BaseType: catalog.CharField, SpecialType: &category, PreviewDisplay: true})
	require.NoError(t, err)

	_, fields, err := reconcile.Fields(ctx, deps(store), table, []driver.DescribedField{
		{Name: "status", BaseType: catalog.CharField},
	})
	require.NoError(t, err)
	require.Len(t, fields, 1)
	require.NotNil(t, fields[0].SpecialType)
	assert.Equal(t, catalog.SpecialCategory, *fields[0].SpecialType)
}

func TestFieldsRejectsUnknownBaseType(t *testing.T) {
	ctx := context.Background()
	store := catalogstore.New()
	table, err := store.CreateTable(ctx, &catalog.Table{DBID: 1, Name: "orders"})
	require.NoError(t, err)

	_, _, err = reconcile.Fields(ctx, deps(store), table, []driver.DescribedField{
		{Name: "weird", BaseType: catalog.BaseType("NotARealType")},
	})
	require.Error(t, err)
	var violation *reconcile.ContractViolation
	assert.ErrorAs(t, err, &violation)
}

func TestForeignKeysResolvesAndMarksFK(t *testing.T) {
	ctx := context.Background()
	store := catalogstore.New()
	db := &catalog.Database{ID: 1}

	orders, err := store.CreateTable(ctx, &catalog.Table{DBID: 1, Name: "orders"})
	require.NoError(t, err)
	customers, err := store.CreateTable(ctx, &catalog.Table{DBID: 1, Name: "customers"})
	require.NoError(t, err)

	originField, err := store.CreateField(ctx, &catalog.Field{TableID: orders.ID, Name: "customer_id", BaseType: catalog.IntegerField})
	require.NoError(t, err)
	destField, err := store.CreateField(ctx, &catalog.Field{TableID: customers.ID, Name: "id", BaseType: catalog.IntegerField})
	require.NoError(t, err)

	err = reconcile.ForeignKeys(ctx, deps(store), db, orders, []driver.ForeignKeyDescriptor{
		{FKColumnName: "customer_id", DestTable: driver.TableRef{Name: "customers"}, DestColumnName: "id"},
	})
	require.NoError(t, err)

	fks := store.ForeignKeys()
	require.Len(t, fks, 1)
	assert.Equal(t, originField.ID, fks[0].OriginFieldID)
	assert.Equal(t, destField.ID, fks[0].DestinationFieldID)
	assert.Equal(t, catalog.ManyToOne, fks[0].Relationship)

	updatedOrigin, err := store.FindField(ctx, orders.ID, nil, "customer_id")
	require.NoError(t, err)
	require.NotNil(t, updatedOrigin.SpecialType)
	assert.Equal(t, catalog.SpecialFK, *updatedOrigin.SpecialType)
}

func TestForeignKeysSkipsUnresolvable(t *testing.T) {
	ctx := context.Background()
	store := catalogstore.New()
	db := &catalog.Database{ID: 1}
	orders, err := store.CreateTable(ctx, &catalog.Table{DBID: 1, Name: "orders"})
	require.NoError(t, err)

	err = reconcile.ForeignKeys(ctx, deps(store), db, orders, []driver.ForeignKeyDescriptor{
		{FKColumnName: "missing_col", DestTable: driver.TableRef{Name: "nope"}, DestColumnName: "id"},
	})
	require.NoError(t, err)
	assert.Empty(t, store.ForeignKeys())
}

type fakeMetadataReader struct {
	driver.Driver
	rows []driver.MetadataRow
}

func (f *fakeMetadataReader) TableRowsSeq(_ context.Context, _ *catalog.Database, _ string) ([]driver.MetadataRow, error) {
	return f.rows, nil
}

func TestMetadataTableUpdatesTableAndField(t *testing.T) {
	ctx := context.Background()
	store := catalogstore.New()
	db := &catalog.Database{ID: 1}
	table, err := store.CreateTable(ctx, &catalog.Table{DBID: 1, Name: "orders"})
	require.NoError(t, err)
	field, err := store.CreateField(ctx, &catalog.Field{TableID: table.ID, Name: "status", BaseType: catalog.CharField})
	require.NoError(t, err)

	reader := &fakeMetadataReader{rows: []driver.MetadataRow{
		{KeyPath: "orders.description", Value: "all customer orders"},
		{KeyPath: "orders.status.special_type", Value: "category"},
		{KeyPath: "orders.bogus_property", Value: "x"},
	}}

	err = reconcile.MetadataTable(ctx, deps(store), db, reader, true)
	require.NoError(t, err)

	updatedTable, err := store.FindTable(ctx, 1, "orders", nil)
	require.NoError(t, err)
	assert.Equal(t, "all customer orders", updatedTable.Description)

	updatedField, err := store.FindField(ctx, table.ID, nil, "status")
	require.NoError(t, err)
	require.NotNil(t, updatedField.SpecialType)
	assert.Equal(t, catalog.SpecialCategory, *updatedField.SpecialType)
	_ = field
}

func TestMetadataTableSkippedWhenAbsent(t *testing.T) {
	ctx := context.Background()
	store := catalogstore.New()
	db := &catalog.Database{ID: 1}
	reader := &fakeMetadataReader{rows: []driver.MetadataRow{{KeyPath: "orders.description", Value: "x"}}}

	err := reconcile.MetadataTable(ctx, deps(store), db, reader, false)
	require.NoError(t, err)
}
