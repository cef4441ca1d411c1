package reconcile

import (
	"context"
	"fmt"
	"strings"

	"syncer/internal/catalog"
	"syncer/internal/driver"
)

// Tables is the Table Reconciler (C3): it brings the catalog's active
// tables for db into agreement with result, deactivating tables that
// disappeared and creating tables that are new. The _metabase_metadata
// table, if present, is filtered out of creation entirely; C6 owns it.
func Tables(ctx context.Context, deps Dependencies, db *catalog.Database, result driver.DescribeDatabaseResult) error {
	seen := make(map[string]bool, len(result.Tables))
	incoming := make(map[string]driver.TableRef, len(result.Tables))
	for _, ref := range result.Tables {
		if strings.TrimSpace(ref.Name) == "" {
			return &ContractViolation{Operation: "describeDatabase", Reason: "table with empty name"}
		}
		key := catalog.SchemaKey(ref.Schema, strings.ToLower(ref.Name))
		if seen[key] {
			return &ContractViolation{Operation: "describeDatabase", Reason: fmt.Sprintf("duplicate table %q", ref.Name)}
		}
		seen[key] = true
		if strings.EqualFold(ref.Name, MetadataTableName) {
			continue
		}
		incoming[key] = ref
	}

	existing, err := deps.Store.ActiveTables(ctx, db.ID)
	if err != nil {
		return fmt.Errorf("reconcile: load active tables: %w", err)
	}
	existingByKey := make(map[string]*catalog.Table, len(existing))
	for _, t := range existing {
		existingByKey[catalog.SchemaKey(t.Schema, strings.ToLower(t.Name))] = t
	}

	var stale []int64
	for key, t := range existingByKey {
		if _, ok := incoming[key]; ok {
			continue
		}
		stale = append(stale, t.ID)
		deps.Log.Deactivated("table", t.String())
	}
	if len(stale) > 0 {
		if err := deps.Store.DeactivateTables(ctx, stale); err != nil {
			return fmt.Errorf("reconcile: deactivate tables: %w", err)
		}
	}

	for key, ref := range incoming {
		if _, ok := existingByKey[key]; ok {
			continue
		}
		created, err := deps.Store.CreateTable(ctx, &catalog.Table{DBID: db.ID, Name: ref.Name, Schema: ref.Schema})
		if err != nil {
			return fmt.Errorf("reconcile: create table %s: %w", ref.Name, err)
		}
		deps.Log.Created("table", created.String())
	}
	return nil
}

// MetadataTablePresent reports whether result's raw table set (before C3's
// filtering) names the _metabase_metadata table, the signal C6 uses to
// decide whether to run at all.
func MetadataTablePresent(result driver.DescribeDatabaseResult) bool {
	for _, ref := range result.Tables {
		if strings.EqualFold(ref.Name, MetadataTableName) {
			return true
		}
	}
	return false
}
