package catalog

import "context"

// TableMetadataKeys is the closed allow-list of Table properties the
// _metabase_metadata interpreter (C6) may patch. Unknown keys are rejected
// rather than applied, per spec.md §9's redesign of "dynamic catalog updates
// by column name".
var TableMetadataKeys = map[string]bool{
	"description":             true,
	"caveats":                 true,
	"points_of_interest":      true,
	"entity_type":             true,
	"show_in_getting_started": true,
}

// FieldMetadataKeys is the closed allow-list of Field properties the
// _metabase_metadata interpreter (C6) may patch.
var FieldMetadataKeys = map[string]bool{
	"description":  true,
	"special_type": true,
}

// TablePatch carries only the Table columns that changed; nil fields are
// left untouched by Store.UpdateTable.
type TablePatch struct {
	DisplayName          *string
	Rows                 *int64
	Description          *string
	Caveats              *string
	PointsOfInterest     *string
	EntityType           *string
	ShowInGettingStarted *bool
}

// FieldPatch carries only the Field columns that changed; nil fields are
// left untouched by Store.UpdateField.
type FieldPatch struct {
	BaseType       *BaseType
	SpecialType    *SpecialType
	DisplayName    *string
	PreviewDisplay *bool
	Description    *string
}

// Store is the Catalog Store collaborator (spec.md §6): CRUD over Table,
// Field, and ForeignKey records, plus the small set of derived reads
// (distinct counts, row counts, FieldValues eligibility) the Syncer needs to
// make reconciliation decisions. It is implemented elsewhere — the
// application's ORM / persistence layer — and is out of scope here.
type Store interface {
	// ActiveTables returns every active Table row for database dbID.
	ActiveTables(ctx context.Context, dbID int64) ([]*Table, error)
	// CreateTable inserts a new, active Table row and returns it with its ID set.
	CreateTable(ctx context.Context, t *Table) (*Table, error)
	// UpdateTable applies a non-nil-field patch to the Table identified by id.
	UpdateTable(ctx context.Context, id int64, patch TablePatch) error
	// DeactivateTables marks the given Table rows (and, per spec.md §3's
	// lifecycle invariant, all of their Fields) inactive in one batch.
	DeactivateTables(ctx context.Context, ids []int64) error
	// FindTable resolves a Table by database, name, and schema (nil schema is
	// a distinct key from any present schema, per SchemaKey).
	FindTable(ctx context.Context, dbID int64, name string, schema *string) (*Table, error)

	// ActiveFields returns every active Field row directly under parentID
	// (nil parentID selects top-level fields) within tableID.
	ActiveFields(ctx context.Context, tableID int64, parentID *int64) ([]*Field, error)
	// CreateField inserts a new, active Field row and returns it with its ID set.
	CreateField(ctx context.Context, f *Field) (*Field, error)
	// UpdateField applies a non-nil-field patch to the Field identified by id.
	UpdateField(ctx context.Context, id int64, patch FieldPatch) error
	// DeactivateFields marks the given Field rows inactive in one batch.
	DeactivateFields(ctx context.Context, ids []int64) error
	// FindField resolves a Field by table, parent (nil for top-level), and name.
	FindField(ctx context.Context, tableID int64, parentID *int64, name string) (*Field, error)
	// FindFieldByTableName resolves a top-level Field by the human table and
	// field name within a database; used by the metadata-table interpreter (C6).
	FindFieldByTableName(ctx context.Context, dbID int64, tableName, fieldName string) (*Field, error)

	// CreateForeignKey inserts a ForeignKey row.
	CreateForeignKey(ctx context.Context, fk *ForeignKey) error

	// FieldDistinctCount returns the number of distinct values in field's
	// column, capped at cap (a cap of 0 means uncapped).
	FieldDistinctCount(ctx context.Context, field *Field, cap int) (int, error)
	// TableRowCount returns the driver-reported row count for a table.
	TableRowCount(ctx context.Context, table *Table) (int64, error)
	// ShouldHaveFieldValues reports whether field already qualifies for a
	// FieldValues cache independent of the cardinality check in C2 step 4.
	ShouldHaveFieldValues(ctx context.Context, field *Field) (bool, error)
	// RefreshFieldValues recomputes (or creates) the FieldValues cache for field.
	RefreshFieldValues(ctx context.Context, field *Field) error

	// NameToHumanReadable converts a raw identifier into a display name,
	// e.g. "user_id" -> "User Id".
	NameToHumanReadable(name string) string
}
