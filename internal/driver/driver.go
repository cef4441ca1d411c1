// Package driver declares the capability surface a Driver must present to
// the Syncer (spec.md §6). A Driver adapts the Syncer to one external data
// source; this package only describes the contract, the same way
// smf's internal/introspect package declares an Introspecter contract that
// concrete dialects implement.
package driver

import (
	"context"

	"syncer/internal/catalog"
)

// Capability names an optional Driver feature. Presence in Features()
// promises the corresponding optional interface below is also implemented.
type Capability string

const (
	// CapabilityForeignKeys promises DescribeTableForeignKeys.
	CapabilityForeignKeys Capability = "foreign-keys"
	// CapabilityNestedFields promises ActiveNestedFieldNameToType.
	CapabilityNestedFields Capability = "nested-fields"
)

// TableRef identifies a table by name and optional schema, exactly as
// reported by describeDatabase / describeTableFks.
type TableRef struct {
	Name   string
	Schema *string
}

// DescribedField is one field reported by DescribeTable.
type DescribedField struct {
	Name       string
	BaseType   catalog.BaseType
	PrimaryKey bool
}

// DescribeTableResult is the shape DescribeTable must return (spec.md §6).
type DescribeTableResult struct {
	Fields []DescribedField
}

// DescribeDatabaseResult is the shape DescribeDatabase must return. Tables
// must be a true set: the Table Reconciler (C3) rejects duplicate
// (name, schema) pairs as a DriverContractViolation.
type DescribeDatabaseResult struct {
	Tables []TableRef
}

// ForeignKeyDescriptor is one entry of DescribeTableForeignKeys's result set.
type ForeignKeyDescriptor struct {
	FKColumnName   string
	DestTable      TableRef
	DestColumnName string
}

// MetadataRow is one row of the _metabase_metadata side table, as returned
// by TableRowsSeq.
type MetadataRow struct {
	KeyPath string
	Value   string
}

// Driver is the required capability surface every adapter must implement.
type Driver interface {
	// SyncInContext scopes acquisition of driver resources (connections,
	// transactions) around fn, releasing them on every exit path including a
	// panic or error return from fn.
	SyncInContext(ctx context.Context, db *catalog.Database, fn func(ctx context.Context) error) error

	// DescribeDatabase lists the tables db currently exposes.
	DescribeDatabase(ctx context.Context, db *catalog.Database) (DescribeDatabaseResult, error)

	// DescribeTable lists the fields table currently exposes.
	DescribeTable(ctx context.Context, table *catalog.Table) (DescribeTableResult, error)

	// FieldPercentURLs samples field (within table) and returns the
	// fraction, in [0,1], of non-blank values that look like a URL. table is
	// passed explicitly rather than dereferenced from field, per spec.md
	// §9's redesign of lazy back-references.
	FieldPercentURLs(ctx context.Context, table *catalog.Table, field *catalog.Field) (float64, error)

	// FieldAvgLength samples field and returns the average value length.
	FieldAvgLength(ctx context.Context, table *catalog.Table, field *catalog.Field) (int, error)

	// FieldValuesSample returns up to limit sampled values for field. A nil
	// slice element represents a SQL NULL.
	FieldValuesSample(ctx context.Context, table *catalog.Table, field *catalog.Field, limit int) ([]*string, error)

	// Features reports which optional capabilities this Driver presents.
	Features() map[Capability]bool
}

// ForeignKeyDescriber is the optional interface implemented by drivers that
// advertise CapabilityForeignKeys.
type ForeignKeyDescriber interface {
	DescribeTableForeignKeys(ctx context.Context, table *catalog.Table) ([]ForeignKeyDescriptor, error)
}

// NestedFieldDescriber is the optional interface implemented by drivers that
// advertise CapabilityNestedFields.
type NestedFieldDescriber interface {
	ActiveNestedFieldNameToType(ctx context.Context, field *catalog.Field) (map[string]catalog.BaseType, error)
}

// TableAnalyzer is the optional interface whose mere presence signals that
// analyze-only passes (row counts, content classification) may run.
type TableAnalyzer interface {
	AnalyzeTable(ctx context.Context, table *catalog.Table) (bool, error)
}

// MetadataTableReader is the optional interface used to read the
// _metabase_metadata side table (C6).
type MetadataTableReader interface {
	TableRowsSeq(ctx context.Context, db *catalog.Database, tableName string) ([]MetadataRow, error)
}

// FieldAnnotator is the optional per-field annotation hook run first in the
// C2 classifier pipeline. It returns the field unchanged (or a modified
// copy) and never special_type/preview_display — those are set only by the
// classifiers that follow it.
type FieldAnnotator interface {
	DriverSpecificSyncField(ctx context.Context, field *catalog.Field) (*catalog.Field, error)
}

// HasCapability reports whether d advertises capability c.
func HasCapability(d Driver, c Capability) bool {
	return d.Features()[c]
}
