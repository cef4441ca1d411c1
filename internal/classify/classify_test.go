package classify_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syncer/internal/catalog"
	"syncer/internal/catalogstore"
	"syncer/internal/classify"
	"syncer/internal/driver/fakedriver"
)

func strp(s string) *string { return &s }

func newFixture(t *testing.T) (*fakedriver.Driver, *catalogstore.Memory, *catalog.Table) {
	t.Helper()
	fd := fakedriver.New()
	store := catalogstore.New()
	table, err := store.CreateTable(context.Background(), &catalog.Table{DBID: 1, Name: "widgets"})
	require.NoError(t, err)
	return fd, store, table
}

func TestFieldURLMarkerBelowThreshold(t *testing.T) {
	fd, store, table := newFixture(t)
	field, err := store.CreateField(context.Background(), &catalog.Field{
		TableID: table.ID, Name: "homepage", BaseType: catalog.TextField, PreviewDisplay: true,
	})
	require.NoError(t, err)

	fd.AddTable(table.Name, &fakedriver.Table{Values: map[string][]*string{
		"homepage": {strp("https://a.example"), strp("https://b.example"), strp("not a url")},
	}})

	got, err := classify.Field(context.Background(), classify.Dependencies{Driver: fd, Store: store}, table, field, true)
	require.NoError(t, err)
	// 2/3 = 0.667, below 0.95, so no mark.
	assert.Nil(t, got.SpecialType)
}

func TestFieldURLMarkerAboveThreshold(t *testing.T) {
	fd, store, table := newFixture(t)
	field, err := store.CreateField(context.Background(), &catalog.Field{
		TableID: table.ID, Name: "homepage", BaseType: catalog.TextField, PreviewDisplay: true,
	})
	require.NoError(t, err)

	fd.AddTable(table.Name, &fakedriver.Table{Values: map[string][]*string{
		"homepage": {strp("https://a.example"), strp("https://b.example"), strp("https://c.example")},
	}})

	got, err := classify.Field(context.Background(), classify.Dependencies{Driver: fd, Store: store}, table, field, true)
	require.NoError(t, err)
	require.NotNil(t, got.SpecialType)
	assert.Equal(t, catalog.SpecialURL, *got.SpecialType)
}

func TestFieldNoPreviewMarker(t *testing.T) {
	fd, store, table := newFixture(t)
	field, err := store.CreateField(context.Background(), &catalog.Field{
		TableID: table.ID, Name: "bio", BaseType: catalog.TextField, PreviewDisplay: true,
	})
	require.NoError(t, err)

	longValue := ""
	for i := 0; i < 80; i++ {
		longValue += "x"
	}
	fd.AddTable(table.Name, &fakedriver.Table{Values: map[string][]*string{"bio": {&longValue}}})

	got, err := classify.Field(context.Background(), classify.Dependencies{Driver: fd, Store: store}, table, field, true)
	require.NoError(t, err)
	assert.False(t, got.PreviewDisplay)
}

func TestFieldCategoryMarker(t *testing.T) {
	fd, store, table := newFixture(t)
	field, err := store.CreateField(context.Background(), &catalog.Field{
		TableID: table.ID, Name: "status", BaseType: catalog.CharField, PreviewDisplay: true,
	})
	require.NoError(t, err)
	store.SetDistinctCount(field.ID, 3)
	fd.AddTable(table.Name, &fakedriver.Table{})

	got, err := classify.Field(context.Background(), classify.Dependencies{Driver: fd, Store: store}, table, field, true)
	require.NoError(t, err)
	require.NotNil(t, got.SpecialType)
	assert.Equal(t, catalog.SpecialCategory, *got.SpecialType)
}

func TestFieldCategoryThresholdBoundary(t *testing.T) {
	fd, store, table := newFixture(t)
	field, err := store.CreateField(context.Background(), &catalog.Field{
		TableID: table.ID, Name: "status", BaseType: catalog.CharField, PreviewDisplay: true,
	})
	require.NoError(t, err)
	store.SetDistinctCount(field.ID, 40)
	fd.AddTable(table.Name, &fakedriver.Table{})

	got, err := classify.Field(context.Background(), classify.Dependencies{Driver: fd, Store: store}, table, field, true)
	require.NoError(t, err)
	assert.Nil(t, got.SpecialType)
}

func TestFieldRefreshFieldValuesWhenSpecialTypeAlreadySet(t *testing.T) {
	fd, store, table := newFixture(t)
	category := catalog.SpecialCategory
	field, err := store.CreateField(context.Background(), &catalog.Field{
		TableID: table.ID, Name: "status", BaseType: catalog.CharField, PreviewDisplay: true, SpecialType: &category,
	})
	require.NoError(t, err)
	store.SetShouldHaveFieldValues(field.ID, true)
	fd.AddTable(table.Name, &fakedriver.Table{})

	_, err = classify.Field(context.Background(), classify.Dependencies{Driver: fd, Store: store}, table, field, true)
	require.NoError(t, err)
	assert.Equal(t, 1, store.RefreshCount(field.ID))
}

func TestFieldJSONMarker(t *testing.T) {
	fd, store, table := newFixture(t)
	field, err := store.CreateField(context.Background(), &catalog.Field{
		TableID: table.ID, Name: "payload", BaseType: catalog.TextField, PreviewDisplay: true,
	})
	require.NoError(t, err)
	fd.AddTable(table.Name, &fakedriver.Table{Values: map[string][]*string{
		"payload": {strp(`{"k":1}`), strp(`[1,2]`), strp("")},
	}})

	got, err := classify.Field(context.Background(), classify.Dependencies{Driver: fd, Store: store}, table, field, true)
	require.NoError(t, err)
	require.NotNil(t, got.SpecialType)
	assert.Equal(t, catalog.SpecialJSON, *got.SpecialType)
	assert.False(t, got.PreviewDisplay)
}

func TestFieldJSONMarkerScalarDisqualifies(t *testing.T) {
	fd, store, table := newFixture(t)
	field, err := store.CreateField(context.Background(), &catalog.Field{
		TableID: table.ID, Name: "payload", BaseType: catalog.TextField, PreviewDisplay: true,
	})
	require.NoError(t, err)
	fd.AddTable(table.Name, &fakedriver.Table{Values: map[string][]*string{
		"payload": {strp(`42`)},
	}})

	got, err := classify.Field(context.Background(), classify.Dependencies{Driver: fd, Store: store}, table, field, true)
	require.NoError(t, err)
	assert.Nil(t, got.SpecialType)
}

func TestFieldJSONMarkerAllBlankDisqualifies(t *testing.T) {
	fd, store, table := newFixture(t)
	field, err := store.CreateField(context.Background(), &catalog.Field{
		TableID: table.ID, Name: "payload", BaseType: catalog.TextField, PreviewDisplay: true,
	})
	require.NoError(t, err)
	fd.AddTable(table.Name, &fakedriver.Table{Values: map[string][]*string{
		"payload": {strp(""), nil},
	}})

	got, err := classify.Field(context.Background(), classify.Dependencies{Driver: fd, Store: store}, table, field, true)
	require.NoError(t, err)
	assert.Nil(t, got.SpecialType)
}

func TestFieldNestedFieldsInsertsAndDeactivates(t *testing.T) {
	fd, store, table := newFixture(t)
	field, err := store.CreateField(context.Background(), &catalog.Field{
		TableID: table.ID, Name: "doc", BaseType: catalog.DictionaryField, PreviewDisplay: true,
	})
	require.NoError(t, err)

	stale, err := store.CreateField(context.Background(), &catalog.Field{
		TableID: table.ID, ParentID: &field.ID, Name: "old", BaseType: catalog.IntegerField,
	})
	require.NoError(t, err)

	fd.AddTable(table.Name, &fakedriver.Table{
		NestedFields: map[string]map[string]catalog.BaseType{
			"doc": {"a": catalog.IntegerField, "b": catalog.CharField},
		},
	})

	_, err = classify.Field(context.Background(), classify.Dependencies{Driver: fd, Store: store}, table, field, true)
	require.NoError(t, err)

	children, err := store.ActiveFields(context.Background(), table.ID, &field.ID)
	require.NoError(t, err)
	names := map[string]bool{}
	for _, c := range children {
		names[c.Name] = true
	}
	assert.True(t, names["a"])
	assert.True(t, names["b"])
	assert.False(t, names["old"])

	staleAfter, err := store.ActiveFields(context.Background(), table.ID, &field.ID)
	require.NoError(t, err)
	for _, c := range staleAfter {
		assert.NotEqual(t, stale.ID, c.ID)
	}
}

func TestFieldSkipsAnalysisStagesWhenNotFullSync(t *testing.T) {
	fd, store, table := newFixture(t)
	field, err := store.CreateField(context.Background(), &catalog.Field{
		TableID: table.ID, Name: "status", BaseType: catalog.CharField, PreviewDisplay: true,
	})
	require.NoError(t, err)
	store.SetDistinctCount(field.ID, 3)
	fd.AddTable(table.Name, &fakedriver.Table{})

	got, err := classify.Field(context.Background(), classify.Dependencies{Driver: fd, Store: store}, table, field, false)
	require.NoError(t, err)
	assert.Nil(t, got.SpecialType)
}
