// Package synclog is the Syncer's structured logger: a thin wrapper around
// go.uber.org/zap that adds the color-tagged human messages spec.md §4.3
// calls for (created/deactivated tables and fields) via
// github.com/charmbracelet/lipgloss, the way
// steveyegge-beads/cmd/bd-examples styles its own CLI output with
// lipgloss.NewStyle() constants.
package synclog

import (
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

var (
	createdStyle     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"})
	deactivatedStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"})
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"})
)

// Logger wraps a *zap.Logger with the Syncer's conventions: Info for
// lifecycle events, Error for recovered PerUnitFailures (spec.md §7), and
// color-tagged Created/Deactivated helpers for C3/C4's reconciliation log
// lines. A nil *Logger is valid and discards everything, so components can
// be exercised without a logging dependency in unit tests.
type Logger struct {
	z *zap.Logger
	// suppressed implements spec.md §4.7's "logging suppression": while
	// true, Created/Deactivated/Info calls are dropped but Error calls
	// still surface, since silencing must never hide a recovered failure.
	suppressed bool
}

// New wraps an existing *zap.Logger.
func New(z *zap.Logger) *Logger {
	return &Logger{z: z}
}

// Nop returns a Logger that discards everything; safe for tests.
func Nop() *Logger {
	return &Logger{z: zap.NewNop()}
}

func (l *Logger) core() *zap.Logger {
	if l == nil || l.z == nil {
		return zap.NewNop()
	}
	return l.z
}

// Suppress returns a copy of l with lifecycle logging silenced. Because it
// is a copy rather than a mutation of l, suppression scopes cleanly across
// concurrent syncs of different databases (§5) with nothing to release: the
// caller's own *Logger is untouched once the suppressed copy goes out of
// scope. The returned no-op func preserves the defer-restore call shape
// spec.md §5 describes, should a future sink need explicit teardown.
func (l *Logger) Suppress() (*Logger, func()) {
	suppressed := &Logger{z: l.core(), suppressed: true}
	return suppressed, func() {}
}

// Info logs a lifecycle event; silenced while suppressed.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	if l != nil && l.suppressed {
		return
	}
	l.core().Info(msg, fields...)
}

// Error logs a recovered PerUnitFailure. Never silenced.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.core().Error(errorStyle.Render(msg), fields...)
}

// Created logs a color-tagged "created" message for C3/C4.
func (l *Logger) Created(entity, name string) {
	if l != nil && l.suppressed {
		return
	}
	l.core().Info(createdStyle.Render("created") + " " + entity + " " + name)
}

// Deactivated logs a color-tagged "deactivated" message for C3/C4.
func (l *Logger) Deactivated(entity, name string) {
	if l != nil && l.suppressed {
		return
	}
	l.core().Info(deactivatedStyle.Render("deactivated") + " " + entity + " " + name)
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.core().Sync()
}
