// Package fakedriver is an in-memory driver.Driver test double. It exists
// because no real dialect in this codebase models nested document fields,
// and the rest of the pipeline (classify, reconcile, syncengine) needs a
// Driver that can, the way smf's own dialect tests use a scripted dialect
// rather than a live connection.
package fakedriver

import (
	"context"
	"sort"
	"strings"

	"syncer/internal/catalog"
	"syncer/internal/driver"
)

// Column describes one field fakedriver.Driver reports for a table.
type Column struct {
	Name       string
	BaseType   catalog.BaseType
	PrimaryKey bool
}

// ForeignKey describes one outgoing reference fakedriver.Driver reports.
type ForeignKey struct {
	Column     string
	DestTable  string
	DestColumn string
}

// Table is one scripted table: its columns, its foreign keys, and the
// sampled values fakedriver.Driver hands back for content classification.
type Table struct {
	Schema      *string
	Columns     []Column
	ForeignKeys []ForeignKey
	// Values maps column name to the sampled values driver methods return.
	// A nil entry in the slice represents SQL NULL.
	Values map[string][]*string
	// NestedFields maps a column name to the nested shape
	// ActiveNestedFieldNameToType reports for it, for driver.NestedFieldDescriber.
	NestedFields map[string]map[string]catalog.BaseType
	// MetadataRows, non-nil only on the table named by MetadataTableName,
	// is what TableRowsSeq returns.
	MetadataRows []driver.MetadataRow
}

// Driver is a scripted, in-memory driver.Driver. Construct it with New (the
// zero value has nil maps, so AddTable and SetCapability panic on it); add
// tables with AddTable before use. Not safe for concurrent mutation.
type Driver struct {
	tables       map[string]*Table
	capabilities map[driver.Capability]bool
	// annotate, if set, is invoked by DriverSpecificSyncField.
	annotate func(ctx context.Context, field *catalog.Field) (*catalog.Field, error)
}

// New returns a Driver advertising CapabilityForeignKeys and
// CapabilityNestedFields; tests that want a narrower driver can turn one off
// with SetCapability.
func New() *Driver {
	return &Driver{
		tables: map[string]*Table{},
		capabilities: map[driver.Capability]bool{
			driver.CapabilityForeignKeys:  true,
			driver.CapabilityNestedFields: true,
		},
	}
}

var (
	_ driver.Driver              = (*Driver)(nil)
	_ driver.ForeignKeyDescriber = (*Driver)(nil)
	_ driver.NestedFieldDescriber = (*Driver)(nil)
	_ driver.TableAnalyzer       = (*Driver)(nil)
	_ driver.MetadataTableReader = (*Driver)(nil)
	_ driver.FieldAnnotator      = (*Driver)(nil)
)

// AddTable registers or replaces a scripted table.
func (d *Driver) AddTable(name string, t *Table) {
	if t.Values == nil {
		t.Values = map[string][]*string{}
	}
	d.tables[name] = t
}

// SetCapability toggles an advertised capability.
func (d *Driver) SetCapability(c driver.Capability, on bool) {
	d.capabilities[c] = on
}

// SetAnnotator installs the hook DriverSpecificSyncField delegates to.
func (d *Driver) SetAnnotator(fn func(ctx context.Context, field *catalog.Field) (*catalog.Field, error)) {
	d.annotate = fn
}

// DropTable removes a table, simulating it disappearing between syncs.
func (d *Driver) DropTable(name string) {
	delete(d.tables, name)
}

func (d *Driver) SyncInContext(ctx context.Context, _ *catalog.Database, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (d *Driver) Features() map[driver.Capability]bool {
	out := make(map[driver.Capability]bool, len(d.capabilities))
	for k, v := range d.capabilities {
		out[k] = v
	}
	return out
}

func (d *Driver) DescribeDatabase(_ context.Context, _ *catalog.Database) (driver.DescribeDatabaseResult, error) {
	names := make([]string, 0, len(d.tables))
	for name := range d.tables {
		names = append(names, name)
	}
	sort.Strings(names)

	var result driver.DescribeDatabaseResult
	for _, name := range names {
		result.Tables = append(result.Tables, driver.TableRef{Name: name, Schema: d.tables[name].Schema})
	}
	return result, nil
}

func (d *Driver) DescribeTable(_ context.Context, table *catalog.Table) (driver.DescribeTableResult, error) {
	t, ok := d.tables[table.Name]
	if !ok {
		return driver.DescribeTableResult{}, nil
	}
	var result driver.DescribeTableResult
	for _, c := range t.Columns {
		result.Fields = append(result.Fields, driver.DescribedField{
			Name:       c.Name,
			BaseType:   c.BaseType,
			PrimaryKey: c.PrimaryKey,
		})
	}
	return result, nil
}

func (d *Driver) DescribeTableForeignKeys(_ context.Context, table *catalog.Table) ([]driver.ForeignKeyDescriptor, error) {
	t, ok := d.tables[table.Name]
	if !ok {
		return nil, nil
	}
	var fks []driver.ForeignKeyDescriptor
	for _, fk := range t.ForeignKeys {
		fks = append(fks, driver.ForeignKeyDescriptor{
			FKColumnName:   fk.Column,
			DestTable:      driver.TableRef{Name: fk.DestTable},
			DestColumnName: fk.DestColumn,
		})
	}
	return fks, nil
}

func (d *Driver) ActiveNestedFieldNameToType(_ context.Context, field *catalog.Field) (map[string]catalog.BaseType, error) {
	for _, t := range d.tables {
		if shape, ok := t.NestedFields[field.Name]; ok {
			return shape, nil
		}
	}
	return nil, nil
}

func (d *Driver) AnalyzeTable(_ context.Context, _ *catalog.Table) (bool, error) {
	return true, nil
}

func (d *Driver) DriverSpecificSyncField(ctx context.Context, field *catalog.Field) (*catalog.Field, error) {
	if d.annotate == nil {
		return field, nil
	}
	return d.annotate(ctx, field)
}

func (d *Driver) FieldPercentURLs(_ context.Context, table *catalog.Table, field *catalog.Field) (float64, error) {
	values := d.valuesFor(table, field)
	total, urls := 0, 0
	for _, v := range values {
		if v == nil || strings.TrimSpace(*v) == "" {
			continue
		}
		total++
		if looksLikeURL(*v) {
			urls++
		}
	}
	if total == 0 {
		return 0, nil
	}
	return float64(urls) / float64(total), nil
}

func (d *Driver) FieldAvgLength(_ context.Context, table *catalog.Table, field *catalog.Field) (int, error) {
	values := d.valuesFor(table, field)
	total, sum := 0, 0
	for _, v := range values {
		if v == nil {
			continue
		}
		total++
		sum += len([]rune(*v))
	}
	if total == 0 {
		return 0, nil
	}
	return sum / total, nil
}

func (d *Driver) FieldValuesSample(_ context.Context, table *catalog.Table, field *catalog.Field, limit int) ([]*string, error) {
	values := d.valuesFor(table, field)
	if limit >= 0 && len(values) > limit {
		values = values[:limit]
	}
	return values, nil
}

func (d *Driver) valuesFor(table *catalog.Table, field *catalog.Field) []*string {
	t, ok := d.tables[table.Name]
	if !ok {
		return nil
	}
	return t.Values[field.Name]
}

func (d *Driver) TableRowsSeq(_ context.Context, _ *catalog.Database, tableName string) ([]driver.MetadataRow, error) {
	t, ok := d.tables[tableName]
	if !ok {
		return nil, nil
	}
	return t.MetadataRows, nil
}

func looksLikeURL(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "ftp://")
}
