// Package catalogstore provides reference implementations of
// catalog.Store (spec.md §6's Catalog Store collaborator): an in-memory
// store for tests and the §8 scenarios, and (in catalogstore/sqlite) a
// persistent store over github.com/ncruces/go-sqlite3.
package catalogstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"syncer/internal/catalog"
)

// Memory is an in-memory catalog.Store. Safe for concurrent use; tests
// construct it with New and inspect its state directly (it is a reference
// implementation, not a black box).
type Memory struct {
	mu sync.Mutex

	nextTableID int64
	nextFieldID int64

	tables map[int64]*catalog.Table
	fields map[int64]*catalog.Field
	fks    []*catalog.ForeignKey

	// fieldValues is the FieldValues cache the external collaborator would
	// own; Memory tracks just enough to answer ShouldHaveFieldValues and
	// record that a refresh happened.
	fieldValues     map[int64][]string
	refreshCount    map[int64]int
	distinctCounts  map[int64]int
	rowCounts       map[int64]int64
	shouldHaveRules map[int64]bool
}

// New returns an empty Memory store.
func New() *Memory {
	return &Memory{
		tables:          map[int64]*catalog.Table{},
		fields:          map[int64]*catalog.Field{},
		fieldValues:     map[int64][]string{},
		refreshCount:    map[int64]int{},
		distinctCounts:  map[int64]int{},
		rowCounts:       map[int64]int64{},
		shouldHaveRules: map[int64]bool{},
	}
}

var _ catalog.Store = (*Memory)(nil)

// SetDistinctCount seeds the value FieldDistinctCount reports for field.
func (m *Memory) SetDistinctCount(fieldID int64, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.distinctCounts[fieldID] = n
}

// SetRowCount seeds the value TableRowCount reports for table.
func (m *Memory) SetRowCount(tableID int64, n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rowCounts[tableID] = n
}

// SetShouldHaveFieldValues seeds the value ShouldHaveFieldValues reports.
func (m *Memory) SetShouldHaveFieldValues(fieldID int64, v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldHaveRules[fieldID] = v
}

// RefreshCount reports how many times RefreshFieldValues ran for fieldID.
func (m *Memory) RefreshCount(fieldID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshCount[fieldID]
}

func (m *Memory) ActiveTables(_ context.Context, dbID int64) ([]*catalog.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*catalog.Table
	for _, t := range m.tables {
		if t.DBID == dbID && t.Active {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) CreateTable(_ context.Context, t *catalog.Table) (*catalog.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTableID++
	cp := *t
	cp.ID = m.nextTableID
	cp.Active = true
	m.tables[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *Memory) UpdateTable(_ context.Context, id int64, patch catalog.TablePatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[id]
	if !ok {
		return fmt.Errorf("catalogstore: no table %d", id)
	}
	if patch.DisplayName != nil {
		t.DisplayName = patch.DisplayName
	}
	if patch.Rows != nil {
		t.Rows = patch.Rows
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Caveats != nil {
		t.Caveats = *patch.Caveats
	}
	if patch.PointsOfInterest != nil {
		t.PointsOfInterest = *patch.PointsOfInterest
	}
	if patch.EntityType != nil {
		t.EntityType = *patch.EntityType
	}
	if patch.ShowInGettingStarted != nil {
		t.ShowInGettingStarted = *patch.ShowInGettingStarted
	}
	return nil
}

func (m *Memory) DeactivateTables(_ context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
		if t, ok := m.tables[id]; ok {
			t.Active = false
		}
	}
	for _, f := range m.fields {
		if set[f.TableID] {
			f.Active = false
		}
	}
	return nil
}

func (m *Memory) FindTable(_ context.Context, dbID int64, name string, schema *string) (*catalog.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := catalog.SchemaKey(schema, strings.ToLower(name))
	for _, t := range m.tables {
		if t.DBID == dbID && catalog.SchemaKey(t.Schema, strings.ToLower(t.Name)) == key {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) ActiveFields(_ context.Context, tableID int64, parentID *int64) ([]*catalog.Field, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*catalog.Field
	for _, f := range m.fields {
		if f.TableID != tableID || !f.Active {
			continue
		}
		if !sameParent(f.ParentID, parentID) {
			continue
		}
		cp := *f
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (m *Memory) CreateField(_ context.Context, f *catalog.Field) (*catalog.Field, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextFieldID++
	cp := *f
	cp.ID = m.nextFieldID
	cp.Active = true
	m.fields[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *Memory) UpdateField(_ context.Context, id int64, patch catalog.FieldPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.fields[id]
	if !ok {
		return fmt.Errorf("catalogstore: no field %d", id)
	}
	if patch.BaseType != nil {
		f.BaseType = *patch.BaseType
	}
	if patch.SpecialType != nil {
		f.SpecialType = patch.SpecialType
	}
	if patch.DisplayName != nil {
		f.DisplayName = patch.DisplayName
	}
	if patch.PreviewDisplay != nil {
		f.PreviewDisplay = *patch.PreviewDisplay
	}
	if patch.Description != nil {
		f.Description = *patch.Description
	}
	return nil
}

func (m *Memory) DeactivateFields(_ context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if f, ok := m.fields[id]; ok {
			f.Active = false
		}
	}
	return nil
}

func (m *Memory) FindField(_ context.Context, tableID int64, parentID *int64, name string) (*catalog.Field, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lower := strings.ToLower(name)
	for _, f := range m.fields {
		if f.TableID == tableID && sameParent(f.ParentID, parentID) && strings.ToLower(f.Name) == lower {
			cp := *f
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) FindFieldByTableName(_ context.Context, dbID int64, tableName, fieldName string) (*catalog.Field, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lowerTable, lowerField := strings.ToLower(tableName), strings.ToLower(fieldName)
	for _, t := range m.tables {
		if t.DBID != dbID || strings.ToLower(t.Name) != lowerTable {
			continue
		}
		for _, f := range m.fields {
			if f.TableID == t.ID && f.ParentID == nil && strings.ToLower(f.Name) == lowerField {
				cp := *f
				return &cp, nil
			}
		}
	}
	return nil, nil
}

func (m *Memory) CreateForeignKey(_ context.Context, fk *catalog.ForeignKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *fk
	m.fks = append(m.fks, &cp)
	return nil
}

// ForeignKeys returns a snapshot of every created ForeignKey, for test
// assertions.
func (m *Memory) ForeignKeys() []*catalog.ForeignKey {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*catalog.ForeignKey, len(m.fks))
	copy(out, m.fks)
	return out
}

func (m *Memory) FieldDistinctCount(_ context.Context, field *catalog.Field, cap int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.distinctCounts[field.ID]
	if cap > 0 && n > cap {
		return cap, nil
	}
	return n, nil
}

func (m *Memory) TableRowCount(_ context.Context, table *catalog.Table) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rowCounts[table.ID], nil
}

func (m *Memory) ShouldHaveFieldValues(_ context.Context, field *catalog.Field) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shouldHaveRules[field.ID], nil
}

func (m *Memory) RefreshFieldValues(_ context.Context, field *catalog.Field) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshCount[field.ID]++
	return nil
}

func (m *Memory) NameToHumanReadable(name string) string {
	return catalog.Humanize(name)
}
