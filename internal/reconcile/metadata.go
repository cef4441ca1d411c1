package reconcile

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"syncer/internal/catalog"
	"syncer/internal/driver"
)

// keypathPattern parses a _metabase_metadata row's keypath into
// (table_name, field_name?, property_key), per spec.md §4.6.
var keypathPattern = regexp.MustCompile(`^([^.]+)\.(?:([^.]+)\.)?([^.]+)$`)

// MetadataTable is the Metadata-Table Interpreter (C6). It runs only when
// present reports that the raw describeDatabase result named
// _metabase_metadata (C3 already filtered that table out of ordinary
// creation) and the Driver advertises MetadataTableReader. Each row is
// applied under its own recovered failure: one malformed or unresolvable
// row is logged and skipped, never aborting the rest.
func MetadataTable(ctx context.Context, deps Dependencies, db *catalog.Database, drv driver.Driver, present bool) error {
	if !present {
		return nil
	}
	reader, ok := drv.(driver.MetadataTableReader)
	if !ok {
		return nil
	}

	rows, err := reader.TableRowsSeq(ctx, db, MetadataTableName)
	if err != nil {
		return fmt.Errorf("reconcile: read %s: %w", MetadataTableName, err)
	}

	for _, row := range rows {
		if err := applyMetadataRow(ctx, deps, db, row); err != nil {
			deps.Log.Error("metadata row failed", zap.String("keypath", row.KeyPath), zap.Error(err))
		}
	}
	return nil
}

func applyMetadataRow(ctx context.Context, deps Dependencies, db *catalog.Database, row driver.MetadataRow) error {
	m := keypathPattern.FindStringSubmatch(row.KeyPath)
	if m == nil {
		return fmt.Errorf("malformed keypath %q", row.KeyPath)
	}
	tableName, fieldName, propertyKey := m[1], m[2], m[3]

	if fieldName != "" {
		field, err := deps.Store.FindFieldByTableName(ctx, db.ID, tableName, fieldName)
		if err != nil {
			return err
		}
		if field == nil {
			return fmt.Errorf("no field %s.%s", tableName, fieldName)
		}
		if !catalog.FieldMetadataKeys[propertyKey] {
			return fmt.Errorf("field property %q is not in the allow-list", propertyKey)
		}
		patch, err := fieldPatchFor(propertyKey, row.Value)
		if err != nil {
			return err
		}
		return deps.Store.UpdateField(ctx, field.ID, patch)
	}

	table, err := deps.Store.FindTable(ctx, db.ID, tableName, nil)
	if err != nil {
		return err
	}
	if table == nil {
		return fmt.Errorf("no table %s", tableName)
	}
	if !catalog.TableMetadataKeys[propertyKey] {
		return fmt.Errorf("table property %q is not in the allow-list", propertyKey)
	}
	patch, err := tablePatchFor(propertyKey, row.Value)
	if err != nil {
		return err
	}
	return deps.Store.UpdateTable(ctx, table.ID, patch)
}

// tablePatchFor and fieldPatchFor resolve spec.md §9's open coercion
// question: every _metabase_metadata value arrives as a string; this
// decides how each allow-listed property parses it. Booleans accept the
// usual textual forms; special_type is validated against the closed
// enumeration; everything else is stored as the literal string.
func tablePatchFor(key, value string) (catalog.TablePatch, error) {
	switch key {
	case "description":
		return catalog.TablePatch{Description: &value}, nil
	case "caveats":
		return catalog.TablePatch{Caveats: &value}, nil
	case "points_of_interest":
		return catalog.TablePatch{PointsOfInterest: &value}, nil
	case "entity_type":
		return catalog.TablePatch{EntityType: &value}, nil
	case "show_in_getting_started":
		b, err := parseBool(value)
		if err != nil {
			return catalog.TablePatch{}, err
		}
		return catalog.TablePatch{ShowInGettingStarted: &b}, nil
	}
	return catalog.TablePatch{}, fmt.Errorf("unhandled table property %q", key)
}

func fieldPatchFor(key, value string) (catalog.FieldPatch, error) {
	switch key {
	case "description":
		return catalog.FieldPatch{Description: &value}, nil
	case "special_type":
		st := catalog.SpecialType(value)
		if !catalog.IsKnownSpecialType(st) {
			return catalog.FieldPatch{}, fmt.Errorf("unknown special_type %q", value)
		}
		return catalog.FieldPatch{SpecialType: &st}, nil
	}
	return catalog.FieldPatch{}, fmt.Errorf("unhandled field property %q", key)
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no", "":
		return false, nil
	}
	return false, fmt.Errorf("cannot parse %q as bool", s)
}
