package synclog_test

import (
	"testing"

	"syncer/internal/synclog"
)

func TestNilLoggerDiscardsSafely(t *testing.T) {
	var l *synclog.Logger
	l.Info("ignored")
	l.Error("ignored")
	l.Created("table", "orders")
	l.Deactivated("table", "orders")
}

func TestSuppressSilencesLifecycleButNotError(t *testing.T) {
	l := synclog.Nop()
	suppressed, restore := l.Suppress()
	defer restore()

	// None of these should panic; suppression only changes what reaches the
	// underlying sink, which is already discarding everything in Nop().
	suppressed.Info("lifecycle event")
	suppressed.Created("table", "orders")
	suppressed.Deactivated("field", "status")
	suppressed.Error("still surfaces")
}

func TestSuppressDoesNotMutateOriginal(t *testing.T) {
	l := synclog.Nop()
	_, restore := l.Suppress()
	restore()

	// l itself must still log normally (i.e. not be left permanently
	// suppressed) since Suppress returns a copy, not a mutation.
	l.Info("still active")
}
