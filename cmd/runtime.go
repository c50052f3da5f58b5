package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/backup"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/config"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/dataaccess"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/display"
	appErrors "github.com/khanrajesh/JewelVaultMobile-sub002/internal/errors"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/logging"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/settings"
)

// openFacade connects the data access layer. Tests replace it with an
// in-memory store.
var openFacade = func(ctx context.Context, cfg *config.Config, logger *logging.Logger) (dataaccess.Facade, func() error, error) {
	if !cfg.Database.IsConfigured() {
		return nil, nil, appErrors.NewConfigurationError("database connection is not configured", nil).
			WithUserMessage("No database is configured. Set database.host and database.database in the config file or STORESYNC_DB_HOST and STORESYNC_DB_NAME.")
	}

	store, err := dataaccess.OpenMySQLStore(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, store.Close, nil
}

// environment is everything a command needs once the configuration is known
type environment struct {
	cfg     *config.Config
	display display.DisplayService
	logger  *logging.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	shutdown *appErrors.GracefulShutdownHandler
	closers  []func() error
}

func newEnvironment(cmd *cobra.Command, opts *rootOptions) (*environment, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}

	logConfig := cfg.LoggerConfig()
	logConfig.Output = cmd.ErrOrStderr()
	logger, err := logging.NewLogger(logConfig)
	if err != nil {
		return nil, appErrors.NewConfigurationError("failed to create logger", err)
	}

	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	var ctx context.Context
	var cancel context.CancelFunc
	if opts.timeout > 0 {
		ctx, cancel = context.WithTimeout(base, opts.timeout)
	} else {
		ctx, cancel = context.WithCancel(base)
	}

	// an interrupt cancels the running operation, which then cleans up its
	// temporary files and reports an interruption
	shutdown := appErrors.NewGracefulShutdownHandler()
	shutdown.RegisterShutdownFunc(func() error {
		logger.Warn("Interrupt received, cancelling operation")
		cancel()
		return nil
	})
	shutdown.Start()

	return &environment{
		cfg:      cfg,
		display:  display.NewDisplayService(&cfg.Display),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		shutdown: shutdown,
	}, nil
}

// Close releases every resource in reverse order of acquisition
func (e *environment) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.logger.Warnf("Cleanup failed: %v", err)
		}
	}
	e.shutdown.Stop()
	e.cancel()
}

func (e *environment) settings() (*settings.FileProvider, error) {
	provider, err := settings.NewFileProvider(e.cfg.Identity, e.cfg.Export.StateFile)
	if err != nil {
		return nil, appErrors.NewConfigurationError("failed to load sync state", err)
	}
	return provider, nil
}

// remoteStore opens the configured scope in remote storage. It returns nil
// when remote backups are disabled.
func (e *environment) remoteStore() (*backup.BackupStore, error) {
	remote := e.cfg.Remote
	if !remote.Enabled {
		return nil, nil
	}

	ctx := e.ctx
	if remote.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, remote.Timeout)
		defer cancel()
	}

	objects, err := backup.NewStorageFactory().CreateObjectStore(ctx, remote.Storage)
	if err != nil {
		return nil, err
	}

	encryption := remote.Encryption
	codec := backup.NewArtifactCodec(remote.Compression, &encryption)
	scope := backup.Scope{UserMobile: e.cfg.Identity.UserMobile, StoreID: e.cfg.Identity.StoreID}
	store, err := backup.NewBackupStore(objects, scope, codec, e.logger)
	if err != nil {
		return nil, err
	}
	store.SetKeepHistory(remote.Retention.KeepHistory)
	return store, nil
}

func (e *environment) syncLogger() (*backup.SyncLogger, error) {
	syncLogger, err := backup.NewSyncLogger(backup.SyncLoggerConfig{
		Logger:         e.logger,
		EnableAuditLog: e.cfg.Logging.AuditFile != "",
		AuditLogFile:   e.cfg.Logging.AuditFile,
	})
	if err != nil {
		return nil, appErrors.NewConfigurationError("failed to open audit log", err)
	}
	e.closers = append(e.closers, syncLogger.Close)
	return syncLogger, nil
}

// manager wires a SyncManager. withData is false for commands that only
// touch remote storage, so they work without a database.
func (e *environment) manager(withData bool) (*backup.SyncManager, error) {
	provider, err := e.settings()
	if err != nil {
		return nil, err
	}

	var facade dataaccess.Facade = dataaccess.NewMemoryStore()
	if withData {
		f, closeFn, err := openFacade(e.ctx, e.cfg, e.logger)
		if err != nil {
			return nil, err
		}
		facade = f
		if closeFn != nil {
			e.closers = append(e.closers, closeFn)
		}
	}

	store, err := e.remoteStore()
	if err != nil {
		return nil, err
	}
	syncLogger, err := e.syncLogger()
	if err != nil {
		return nil, err
	}

	deps := backup.SyncDependencies{
		Facade:     facade,
		Settings:   provider,
		Logger:     e.logger,
		SyncLogger: syncLogger,
		ExportDir:  e.cfg.Export.Dir,
		TempDir:    e.cfg.Export.TempDir,
		MaxBackups: e.cfg.Remote.Retention.MaxBackups,
	}
	// a typed nil *BackupStore must not reach the interface field
	if store != nil {
		deps.Store = store
	}
	return backup.NewSyncManager(deps)
}

// runWithProgress drives an operation with a progress bar and prints the
// result. A failed operation is returned as an error after its result has
// been shown.
func (e *environment) runWithProgress(title string, run func(progress func(string, int)) (*backup.OperationResult, error)) error {
	bar := e.display.NewSyncProgress(title)
	result, err := run(bar.Callback())
	if result == nil {
		bar.Abort("Not started")
		return err
	}

	if result.Succeeded() {
		bar.Finish("Done")
	} else {
		bar.Abort(string(result.State))
	}
	printResult(e.display, result)
	return err
}

func printResult(ds display.DisplayService, result *backup.OperationResult) {
	if ds.GetConfig().IsStructured() {
		ds.PrintValue("result", result)
		return
	}

	fields := map[string]string{
		"operation": string(result.Operation),
		"state":     string(result.State),
		"duration":  result.Duration().Round(time.Millisecond).String(),
	}
	if result.URL != "" {
		fields["url"] = result.URL
	}
	if result.ArtifactPath != "" {
		fields["file"] = result.ArtifactPath
	}
	if result.RetainedFile != "" {
		fields["retained_file"] = result.RetainedFile
	}
	if result.Pruned > 0 {
		fields["pruned"] = fmt.Sprintf("%d", result.Pruned)
	}
	ds.PrintValue("Result", fields)

	if result.Summary != nil {
		printSummary(ds, result)
	}
	if result.Succeeded() {
		ds.Success(fmt.Sprintf("%s completed", operationLabel(result.Operation)))
	} else if result.RetainedFile != "" {
		ds.Warning(fmt.Sprintf("The export was kept at %s", result.RetainedFile))
	}
}

func printSummary(ds display.DisplayService, result *backup.OperationResult) {
	summary := result.Summary
	ds.PrintHeader(fmt.Sprintf("Import summary (%s, schema v%d)", summary.Mode, summary.SchemaVersion))

	rows := make([][]string, 0, len(summary.Entities)+1)
	for _, c := range summary.Entities {
		rows = append(rows, []string{c.Sheet, fmt.Sprint(c.Added), fmt.Sprint(c.Skipped), fmt.Sprint(c.Failed)})
	}
	rows = append(rows, []string{"Total", fmt.Sprint(summary.TotalAdded()), fmt.Sprint(summary.TotalSkipped()), fmt.Sprint(summary.TotalFailed())})
	ds.PrintTable([]string{"Entity", "Added", "Skipped", "Failed"}, rows)

	for _, sheet := range summary.MissingSheets {
		ds.Warning(fmt.Sprintf("Sheet %s was not in the workbook", sheet))
	}
	for _, w := range summary.Warnings {
		ds.Warning(w)
	}
}

func operationLabel(op backup.OperationType) string {
	switch op {
	case backup.OperationBackup:
		return "Backup"
	case backup.OperationRestore:
		return "Restore"
	case backup.OperationExportLocal:
		return "Export"
	case backup.OperationImportLocal:
		return "Import"
	case backup.OperationPrune:
		return "Prune"
	default:
		return string(op)
	}
}

// formatBytes formats byte count as human readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
