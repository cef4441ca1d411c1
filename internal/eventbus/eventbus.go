// Package eventbus is the Event Bus collaborator (spec.md §6): fire-and-
// forget publish of the Syncer's three lifecycle events. The Syncer never
// reads its own events back; this package only needs to get them out.
package eventbus

import (
	"go.uber.org/zap"

	"syncer/internal/synclog"
)

// DatabaseSyncBegin is published once, at the start of syncDatabase.
type DatabaseSyncBegin struct {
	DatabaseID int64
	CustomID   string
}

// DatabaseSyncEnd is published once, after syncDatabase's final phase,
// even when some PerUnitFailures occurred along the way.
type DatabaseSyncEnd struct {
	DatabaseID    int64
	CustomID      string
	RunningTimeMS int64
}

// TableSync is published once per syncTable call.
type TableSync struct {
	TableID int64
}

// Bus is the publish surface. Implementations are fire-and-forget: a Bus
// must not block the sync on slow subscribers, and errors are its own
// concern, not the Syncer's.
type Bus interface {
	PublishDatabaseSyncBegin(DatabaseSyncBegin)
	PublishDatabaseSyncEnd(DatabaseSyncEnd)
	PublishTableSync(TableSync)
}

// LoggingBus is the in-process reference Bus: it logs each event through
// synclog and fans it out to any subscriber funcs registered with On*.
// Safe for the single-threaded-per-run model spec.md §5 describes; it adds
// no locking because one LoggingBus is never shared across concurrent
// database syncs.
type LoggingBus struct {
	log *synclog.Logger

	onBegin []func(DatabaseSyncBegin)
	onEnd   []func(DatabaseSyncEnd)
	onTable []func(TableSync)
}

// NewLoggingBus returns a Bus that logs every event via log.
func NewLoggingBus(log *synclog.Logger) *LoggingBus {
	return &LoggingBus{log: log}
}

// OnDatabaseSyncBegin registers an additional subscriber.
func (b *LoggingBus) OnDatabaseSyncBegin(fn func(DatabaseSyncBegin)) {
	b.onBegin = append(b.onBegin, fn)
}

// OnDatabaseSyncEnd registers an additional subscriber.
func (b *LoggingBus) OnDatabaseSyncEnd(fn func(DatabaseSyncEnd)) {
	b.onEnd = append(b.onEnd, fn)
}

// OnTableSync registers an additional subscriber.
func (b *LoggingBus) OnTableSync(fn func(TableSync)) {
	b.onTable = append(b.onTable, fn)
}

func (b *LoggingBus) PublishDatabaseSyncBegin(e DatabaseSyncBegin) {
	b.log.Info("database-sync-begin", zap.Int64("database_id", e.DatabaseID), zap.String("custom_id", e.CustomID))
	for _, fn := range b.onBegin {
		fn(e)
	}
}

func (b *LoggingBus) PublishDatabaseSyncEnd(e DatabaseSyncEnd) {
	b.log.Info("database-sync-end",
		zap.Int64("database_id", e.DatabaseID),
		zap.String("custom_id", e.CustomID),
		zap.Int64("running_time_ms", e.RunningTimeMS),
	)
	for _, fn := range b.onEnd {
		fn(e)
	}
}

func (b *LoggingBus) PublishTableSync(e TableSync) {
	b.log.Info("table-sync", zap.Int64("table_id", e.TableID))
	for _, fn := range b.onTable {
		fn(e)
	}
}

var _ Bus = (*LoggingBus)(nil)
