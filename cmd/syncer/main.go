// Package main contains the CLI implementation of the Syncer. It uses
// cobra, the same way cmd/smf/main.go drives smf's own subcommands.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"syncer/internal/catalog"
	"syncer/internal/catalogstore/sqlite"
	"syncer/internal/config"
	driverpkg "syncer/internal/driver/mysql"
	"syncer/internal/eventbus"
	"syncer/internal/synclog"
	"syncer/internal/syncengine"
)

type syncDatabaseFlags struct {
	configPath   string
	dsn          string
	catalogPath  string
	databaseID   int64
	databaseName string
	noFullSync   bool
	logLevel     string
}

type syncTableFlags struct {
	syncDatabaseFlags
	tableName string
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "syncer",
		Short: "Database introspection and metadata-inference engine",
	}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run the Sync Orchestrator",
	}
	syncCmd.AddCommand(syncDatabaseCmd())
	syncCmd.AddCommand(syncTableCmd())
	rootCmd.AddCommand(syncCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(cmd *cobra.Command, flags *syncDatabaseFlags) {
	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Path to a TOML config file")
	cmd.Flags().StringVar(&flags.dsn, "dsn", "", "database/sql DSN for the synced database (overrides config)")
	cmd.Flags().StringVar(&flags.catalogPath, "catalog", "syncer_catalog.db", "Path to the SQLite-backed catalog store")
	cmd.Flags().Int64Var(&flags.databaseID, "database-id", 1, "Catalog ID of the database being synced")
	cmd.Flags().StringVar(&flags.databaseName, "database-name", "", "Catalog name of the database being synced")
	cmd.Flags().BoolVar(&flags.noFullSync, "no-full-sync", false, "Skip the sampling classifiers (no-preview, category, JSON) and the row-count refresh")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
}

func syncDatabaseCmd() *cobra.Command {
	flags := &syncDatabaseFlags{}
	cmd := &cobra.Command{
		Use:   "database",
		Short: "Sync an entire database's catalog",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runSyncDatabase(flags)
		},
	}
	addCommonFlags(cmd, flags)
	return cmd
}

func syncTableCmd() *cobra.Command {
	flags := &syncTableFlags{}
	cmd := &cobra.Command{
		Use:   "table <name>",
		Short: "Sync a single table's catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			flags.tableName = args[0]
			return runSyncTable(flags)
		},
	}
	addCommonFlags(cmd, &flags.syncDatabaseFlags)
	return cmd
}

// runtime bundles what every run needs beyond syncengine.Dependencies: the
// catalog.Database identity flags point at, the concrete sqlite.Store (for
// lookups the Dependencies.Store interface doesn't expose), the resolved
// full-sync toggle, and a cleanup func releasing the DB pool, store, and
// logger on every exit path.
type runtime struct {
	deps     syncengine.Dependencies
	db       *catalog.Database
	store    *sqlite.Store
	fullSync bool
	cleanup  func()
}

func buildRuntime(flags *syncDatabaseFlags) (*runtime, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyFlagOverrides(flags.dsn, flags.noFullSync, false, flags.logLevel)

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store, err := sqlite.Open(flags.catalogPath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open catalog store: %w", err)
	}

	zapLevel, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zapLevel)
	zapLogger, err := zapCfg.Build()
	if err != nil {
		_ = store.Close()
		_ = db.Close()
		return nil, fmt.Errorf("build logger: %w", err)
	}
	log := synclog.New(zapLogger)

	return &runtime{
		deps: syncengine.Dependencies{
			Driver: driverpkg.New(db),
			Store:  store,
			Bus:    eventbus.NewLoggingBus(log),
			Log:    log,
		},
		db:       &catalog.Database{ID: flags.databaseID, Name: flags.databaseName},
		store:    store,
		fullSync: cfg.FullSync,
		cleanup: func() {
			_ = db.Close()
			_ = store.Close()
			_ = zapLogger.Sync()
		},
	}, nil
}

func runSyncDatabase(flags *syncDatabaseFlags) error {
	rt, err := buildRuntime(flags)
	if err != nil {
		return err
	}
	defer rt.cleanup()

	if err := syncengine.SyncDatabase(context.Background(), rt.deps, rt.db, rt.fullSync); err != nil {
		return fmt.Errorf("sync database: %w", err)
	}
	return nil
}

func runSyncTable(flags *syncTableFlags) error {
	rt, err := buildRuntime(&flags.syncDatabaseFlags)
	if err != nil {
		return err
	}
	defer rt.cleanup()

	table, err := rt.store.FindTable(context.Background(), rt.db.ID, flags.tableName, nil)
	if err != nil {
		return fmt.Errorf("find table %s: %w", flags.tableName, err)
	}
	if table == nil {
		return fmt.Errorf("no catalog entry for table %s in database %d; run sync database first", flags.tableName, rt.db.ID)
	}

	if err := syncengine.SyncTable(context.Background(), rt.deps, table, rt.fullSync); err != nil {
		return fmt.Errorf("sync table: %w", err)
	}
	return nil
}
