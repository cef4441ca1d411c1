// Package syncengine implements the Sync Orchestrator (C7): the two entry
// points, syncDatabase and syncTable, that drive the reconciliation
// pipeline in the strict phase order spec.md §5 requires, isolate
// per-unit failures from the rest of the run, and publish lifecycle events.
package syncengine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"syncer/internal/catalog"
	"syncer/internal/classify"
	"syncer/internal/driver"
	"syncer/internal/eventbus"
	"syncer/internal/reconcile"
	"syncer/internal/synclog"
)

// Dependencies bundles every external collaborator the orchestrator needs.
type Dependencies struct {
	Driver driver.Driver
	Store  catalog.Store
	Bus    eventbus.Bus
	Log    *synclog.Logger
}

func (d Dependencies) reconcileDeps(log *synclog.Logger) reconcile.Dependencies {
	return reconcile.Dependencies{Store: d.Store, Log: log}
}

// SyncDatabase brings db's catalog into agreement with what the Driver
// currently reports and enriches it with inferred types and content
// classification; when fullSync is false the row-count refresh and the
// sampling classifier stages (C2 steps 3-5) are skipped. A fatal error
// aborts the run before database-sync-end is published.
func SyncDatabase(ctx context.Context, deps Dependencies, db *catalog.Database, fullSync bool) error {
	customID := uuid.NewString()
	start := time.Now()
	deps.Bus.PublishDatabaseSyncBegin(eventbus.DatabaseSyncBegin{DatabaseID: db.ID, CustomID: customID})

	runErr := deps.Driver.SyncInContext(ctx, db, func(ctx context.Context) error {
		scopedLog, restore := deps.Log.Suppress()
		defer restore()
		rdeps := deps.reconcileDeps(scopedLog)

		describeResult, err := deps.Driver.DescribeDatabase(ctx, db)
		if err != nil {
			return fmt.Errorf("syncengine: describe database %d: %w", db.ID, err)
		}

		if err := reconcile.Tables(ctx, rdeps, db, describeResult); err != nil {
			return err
		}

		activeTables, err := deps.Store.ActiveTables(ctx, db.ID)
		if err != nil {
			return fmt.Errorf("syncengine: load active tables: %w", err)
		}
		sort.Slice(activeTables, func(i, j int) bool { return activeTables[i].Name < activeTables[j].Name })

		total := len(activeTables)
		for i, table := range activeTables {
			if err := tryApply(scopedLog, "field reconcile "+table.Name, func() error {
				return reconcileTableFields(ctx, deps, rdeps, table, fullSync)
			}); err != nil {
				return err
			}
			scopedLog.Info(Progress(i+1, total))
		}

		if driver.HasCapability(deps.Driver, driver.CapabilityForeignKeys) {
			if fkDescriber, ok := deps.Driver.(driver.ForeignKeyDescriber); ok {
				for _, table := range activeTables {
					_ = tryApply(scopedLog, "foreign keys "+table.Name, func() error {
						fks, err := fkDescriber.DescribeTableForeignKeys(ctx, table)
						if err != nil {
							return err
						}
						return reconcile.ForeignKeys(ctx, rdeps, db, table, fks)
					})
				}
			}
		}

		metadataPresent := reconcile.MetadataTablePresent(describeResult)
		_ = tryApply(scopedLog, "metadata table", func() error {
			return reconcile.MetadataTable(ctx, rdeps, db, deps.Driver, metadataPresent)
		})

		return nil
	})
	if runErr != nil {
		return runErr
	}

	deps.Bus.PublishDatabaseSyncEnd(eventbus.DatabaseSyncEnd{
		DatabaseID:    db.ID,
		CustomID:      customID,
		RunningTimeMS: time.Since(start).Milliseconds(),
	})
	return nil
}

// SyncTable runs only the Field Reconciler (and, if fullSync, its analyze
// phase) for one table, then publishes table-sync.
func SyncTable(ctx context.Context, deps Dependencies, table *catalog.Table, fullSync bool) error {
	rdeps := deps.reconcileDeps(deps.Log)
	if err := reconcileTableFields(ctx, deps, rdeps, table, fullSync); err != nil {
		return err
	}
	deps.Bus.PublishTableSync(eventbus.TableSync{TableID: table.ID})
	return nil
}

// reconcileTableFields runs C4 for table, then runs the C2 pipeline for
// every field; the row-count refresh only runs when analysis is enabled,
// and runAnalyze further gates C2 steps 3-5 inside classify.Field.
func reconcileTableFields(ctx context.Context, deps Dependencies, rdeps reconcile.Dependencies, table *catalog.Table, fullSync bool) error {
	described, err := deps.Driver.DescribeTable(ctx, table)
	if err != nil {
		return fmt.Errorf("syncengine: describe table %s: %w", table.Name, err)
	}

	reconciledTable, fields, err := reconcile.Fields(ctx, rdeps, table, described.Fields)
	if err != nil {
		return err
	}

	runAnalyze := fullSync
	if analyzer, ok := deps.Driver.(driver.TableAnalyzer); ok && runAnalyze {
		canAnalyze, err := analyzer.AnalyzeTable(ctx, reconciledTable)
		if err != nil {
			return fmt.Errorf("syncengine: analyze table %s: %w", table.Name, err)
		}
		runAnalyze = canAnalyze
	}

	if runAnalyze {
		if rowCount, err := rdeps.Store.TableRowCount(ctx, reconciledTable); err != nil {
			rdeps.Log.Error("table row count failed", zap.String("table", table.Name), zap.Error(err))
		} else if reconciledTable.Rows == nil || *reconciledTable.Rows != rowCount {
			if err := rdeps.Store.UpdateTable(ctx, reconciledTable.ID, catalog.TablePatch{Rows: &rowCount}); err != nil {
				rdeps.Log.Error("table row count update failed", zap.String("table", table.Name), zap.Error(err))
			}
		}
	}

	// classify.Field always runs: its own fullSync parameter skips only
	// steps 3-5 internally, while the driver hook, URL marker and nested-field
	// recursion run regardless (spec.md §4.2's analyze toggle).
	cdeps := classify.Dependencies{Driver: deps.Driver, Store: rdeps.Store, Log: rdeps.Log}
	for _, field := range fields {
		if _, err := classify.Field(ctx, cdeps, reconciledTable, field, runAnalyze); err != nil {
			rdeps.Log.Error("classify field failed", zap.String("field", field.String()), zap.Error(err))
		}
	}
	return nil
}

// tryApply invokes fn under the try-apply failure isolation spec.md §4.7
// requires: a recovered error or panic is logged at error severity and
// swallowed; a *reconcile.ContractViolation is a DriverContractViolation
// and propagates to abort the run.
func tryApply(log *synclog.Logger, unit string, fn func() error) (reterr error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("per-unit panic recovered", zap.String("unit", unit), zap.Any("panic", r))
			reterr = nil
		}
	}()

	err := fn()
	if err == nil {
		return nil
	}
	var violation *reconcile.ContractViolation
	if errors.As(err, &violation) {
		return err
	}
	log.Error("per-unit failure", zap.String("unit", unit), zap.Error(err))
	return nil
}
