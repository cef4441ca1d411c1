// Package catalog contains the single source of truth for the application's
// internal view of a synced database: tables, fields, foreign keys, and the
// semantic annotations the Syncer infers about them.
package catalog

import "fmt"

// BaseType is the physical column type reported by a Driver.
type BaseType string

const (
	BooleanField    BaseType = "BooleanField"
	BigIntegerField BaseType = "BigIntegerField"
	IntegerField    BaseType = "IntegerField"
	DecimalField    BaseType = "DecimalField"
	FloatField      BaseType = "FloatField"
	CharField       BaseType = "CharField"
	TextField       BaseType = "TextField"
	DateField       BaseType = "DateField"
	DateTimeField   BaseType = "DateTimeField"
	TimeField       BaseType = "TimeField"
	DictionaryField BaseType = "DictionaryField"
	UnknownField    BaseType = "UnknownField"
)

// KnownBaseTypes returns every base_type the catalog understands.
func KnownBaseTypes() []BaseType {
	return []BaseType{
		BooleanField, BigIntegerField, IntegerField, DecimalField, FloatField,
		CharField, TextField, DateField, DateTimeField, TimeField,
		DictionaryField, UnknownField,
	}
}

// IsKnownBaseType reports whether bt is one of KnownBaseTypes.
func IsKnownBaseType(bt BaseType) bool {
	for _, known := range KnownBaseTypes() {
		if bt == known {
			return true
		}
	}
	return false
}

// IsTextual reports whether bt is a textual type content classifiers may sample.
func (bt BaseType) IsTextual() bool {
	return bt == CharField || bt == TextField
}

// SpecialType is the inferred semantic role of a column, independent of its
// storage type.
type SpecialType string

const (
	SpecialID        SpecialType = "id"
	SpecialFK        SpecialType = "fk"
	SpecialCategory  SpecialType = "category"
	SpecialURL       SpecialType = "url"
	SpecialJSON      SpecialType = "json"
	SpecialName      SpecialType = "name"
	SpecialLatitude  SpecialType = "latitude"
	SpecialLongitude SpecialType = "longitude"
	SpecialCity      SpecialType = "city"
	SpecialState     SpecialType = "state"
	SpecialCountry   SpecialType = "country"
	SpecialZipCode   SpecialType = "zip_code"
)

// KnownSpecialTypes returns every special_type the catalog understands.
func KnownSpecialTypes() []SpecialType {
	return []SpecialType{
		SpecialID, SpecialFK, SpecialCategory, SpecialURL, SpecialJSON,
		SpecialName, SpecialLatitude, SpecialLongitude, SpecialCity,
		SpecialState, SpecialCountry, SpecialZipCode,
	}
}

// IsKnownSpecialType reports whether st is one of KnownSpecialTypes.
func IsKnownSpecialType(st SpecialType) bool {
	for _, known := range KnownSpecialTypes() {
		if st == known {
			return true
		}
	}
	return false
}

// Relationship is the kind of link a ForeignKey describes.
type Relationship string

const (
	ManyToOne Relationship = "ManyToOne"
	OneToOne  Relationship = "OneToOne"
)

// Database identifies an external data source. Read-only to the Syncer.
type Database struct {
	ID   int64
	Name string
}

// Table mirrors one table (or view) of a Database inside the catalog.
type Table struct {
	ID          int64
	DBID        int64
	Schema      *string
	Name        string
	DisplayName *string
	Active      bool
	Rows        *int64

	// Description, Caveats, PointsOfInterest, EntityType and
	// ShowInGettingStarted are the Table-entity properties the
	// _metabase_metadata interpreter (C6) is allowed to patch; see
	// TableMetadataKeys.
	Description          string
	Caveats              string
	PointsOfInterest     string
	EntityType           string
	ShowInGettingStarted bool
}

// SchemaKey normalizes the (schema, name) identity pair used to key tables
// within a database. Absent schema is folded to a single canonical key so it
// never collides with a present, empty-string schema.
func SchemaKey(schema *string, name string) string {
	if schema == nil {
		return "\x00no-schema\x00/" + name
	}
	return *schema + "/" + name
}

// Field mirrors one column (or nested document key) of a Table inside the
// catalog. ParentID is non-nil for a field nested under a DictionaryField.
type Field struct {
	ID             int64
	TableID        int64
	ParentID       *int64
	Name           string
	BaseType       BaseType
	SpecialType    *SpecialType
	DisplayName    *string
	PreviewDisplay bool
	Active         bool

	// Description is the Field-entity property the _metabase_metadata
	// interpreter (C6) is allowed to patch; see FieldMetadataKeys.
	Description string
}

// IsTopLevel reports whether the field has no parent (i.e. is not nested
// under a DictionaryField).
func (f *Field) IsTopLevel() bool {
	return f.ParentID == nil
}

// ForeignKey links one origin Field to the destination Field it references.
type ForeignKey struct {
	OriginFieldID      int64
	DestinationFieldID int64
	Relationship       Relationship
}

// String renders a Table for logs and error messages.
func (t *Table) String() string {
	schema := "-"
	if t.Schema != nil {
		schema = *t.Schema
	}
	return fmt.Sprintf("%s.%s", schema, t.Name)
}

// String renders a Field for logs and error messages.
func (f *Field) String() string {
	return fmt.Sprintf("field#%d %q", f.ID, f.Name)
}
