// Package reconcile implements the four reconciliation passes the Sync
// Orchestrator (C7) drives in strict order: the Table Reconciler (C3), the
// Field Reconciler (C4), the Foreign-Key Reconciler (C5), and the
// Metadata-Table Interpreter (C6).
package reconcile

import (
	"syncer/internal/catalog"
	"syncer/internal/synclog"
)

// Dependencies bundles the external collaborators every pass in this
// package needs: the Catalog Store and the structured logger.
type Dependencies struct {
	Store catalog.Store
	Log   *synclog.Logger
}

// MetadataTableName is the magic side table C3 filters out of normal table
// creation and C6 interprets specially.
const MetadataTableName = "_metabase_metadata"
