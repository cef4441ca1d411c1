package reconcile

import (
	"context"
	"fmt"

	"syncer/internal/catalog"
	"syncer/internal/driver"
)

// ForeignKeys is the Foreign-Key Reconciler (C5). It must run only after
// C4 has completed for every table in the database, since a destination
// table may be one synced later in the same run. Any triple whose origin
// field, destination table, or destination field cannot be resolved is
// silently skipped, per spec.md §4.5.
func ForeignKeys(ctx context.Context, deps Dependencies, db *catalog.Database, table *catalog.Table, fks []driver.ForeignKeyDescriptor) error {
	for _, fk := range fks {
		origin, err := deps.Store.FindField(ctx, table.ID, nil, fk.FKColumnName)
		if err != nil {
			return fmt.Errorf("reconcile: resolve origin field %s.%s: %w", table.Name, fk.FKColumnName, err)
		}
		if origin == nil {
			continue
		}

		destTable, err := deps.Store.FindTable(ctx, db.ID, fk.DestTable.Name, fk.DestTable.Schema)
		if err != nil {
			return fmt.Errorf("reconcile: resolve destination table %s: %w", fk.DestTable.Name, err)
		}
		if destTable == nil {
			continue
		}

		destField, err := deps.Store.FindField(ctx, destTable.ID, nil, fk.DestColumnName)
		if err != nil {
			return fmt.Errorf("reconcile: resolve destination field %s.%s: %w", destTable.Name, fk.DestColumnName, err)
		}
		if destField == nil {
			continue
		}

		if err := deps.Store.CreateForeignKey(ctx, &catalog.ForeignKey{
			OriginFieldID:      origin.ID,
			DestinationFieldID: destField.ID,
			Relationship:       catalog.ManyToOne,
		}); err != nil {
			return fmt.Errorf("reconcile: create foreign key %s.%s -> %s.%s: %w", table.Name, fk.FKColumnName, destTable.Name, fk.DestColumnName, err)
		}

		fkType := catalog.SpecialFK
		if err := deps.Store.UpdateField(ctx, origin.ID, catalog.FieldPatch{SpecialType: &fkType}); err != nil {
			return fmt.Errorf("reconcile: mark %s.%s as fk: %w", table.Name, fk.FKColumnName, err)
		}
		deps.Log.Info(fmt.Sprintf("foreign key %s.%s -> %s.%s", table.Name, fk.FKColumnName, destTable.Name, fk.DestColumnName))
	}
	return nil
}
