package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/dataaccess"
	appErrors "github.com/khanrajesh/JewelVaultMobile-sub002/internal/errors"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/logging"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/schema"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/settings"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/transfer"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/workbook"
)

// OperationState is a step of a sync operation
type OperationState string

const (
	StateIdle        OperationState = "IDLE"
	StateStaging     OperationState = "STAGING"
	StateExporting   OperationState = "EXPORTING"
	StateUploading   OperationState = "UPLOADING"
	StateDownloading OperationState = "DOWNLOADING"
	StateValidating  OperationState = "VALIDATING"
	StateImporting   OperationState = "IMPORTING"
	StateCompleted   OperationState = "COMPLETED"
	StateFailed      OperationState = "FAILED"
)

var stateTransitions = map[OperationState][]OperationState{
	StateIdle:        {StateStaging, StateFailed},
	StateStaging:     {StateExporting, StateDownloading, StateValidating, StateCompleted, StateFailed},
	StateExporting:   {StateUploading, StateCompleted, StateFailed},
	StateUploading:   {StateCompleted, StateFailed},
	StateDownloading: {StateValidating, StateFailed},
	StateValidating:  {StateImporting, StateFailed},
	StateImporting:   {StateCompleted, StateFailed},
}

// CanTransition reports whether the state machine allows from -> to
func CanTransition(from, to OperationState) bool {
	for _, next := range stateTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s OperationState) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// OperationType names a sync operation
type OperationType string

const (
	OperationBackup      OperationType = "remote_backup"
	OperationRestore     OperationType = "remote_restore"
	OperationExportLocal OperationType = "local_export"
	OperationImportLocal OperationType = "local_import"
	OperationPrune       OperationType = "prune_backups"
)

// OperationResult describes one finished operation
type OperationResult struct {
	OperationID string           `json:"operation_id" yaml:"operation_id"`
	Operation   OperationType    `json:"operation" yaml:"operation"`
	States      []OperationState `json:"states" yaml:"states"`
	State       OperationState   `json:"state" yaml:"state"`
	Err         error            `json:"-" yaml:"-"`
	Error       string           `json:"error,omitempty" yaml:"error,omitempty"`

	Summary    *transfer.ImportSummary  `json:"summary,omitempty" yaml:"summary,omitempty"`
	Validation *schema.ValidationReport `json:"-" yaml:"-"`

	URL          string `json:"url,omitempty" yaml:"url,omitempty"`
	ArtifactPath string `json:"artifact_path,omitempty" yaml:"artifact_path,omitempty"`
	// RetainedFile is a staged export kept because its upload failed
	RetainedFile string `json:"retained_file,omitempty" yaml:"retained_file,omitempty"`
	Pruned       int    `json:"pruned,omitempty" yaml:"pruned,omitempty"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
}

// Succeeded reports whether the operation completed
func (r *OperationResult) Succeeded() bool {
	return r.State == StateCompleted
}

// Duration is the wall time of the operation
func (r *OperationResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// SyncDependencies are the collaborators of a SyncManager
type SyncDependencies struct {
	Facade   dataaccess.Facade
	Settings settings.Provider
	// Store is nil when no remote storage is configured
	Store      RemoteStore
	Registry   *schema.VersionedRegistry
	Logger     *logging.Logger
	SyncLogger *SyncLogger

	// ExportDir receives generated local exports
	ExportDir string
	// TempDir holds staged and downloaded workbooks, os.TempDir when empty
	TempDir string
	// MaxBackups prunes the scope after each upload when > 0
	MaxBackups int
	Now        func() time.Time
}

// SyncManager runs backups, restores, local exports and local imports. Only
// one operation runs at a time; a second request fails immediately with a
// concurrency error.
type SyncManager struct {
	settings   settings.Provider
	store      RemoteStore
	registry   *schema.VersionedRegistry
	exporter   *transfer.Exporter
	importer   *transfer.Importer
	logger     *logging.Logger
	syncLogger *SyncLogger

	exportDir  string
	tempDir    string
	maxBackups int
	now        func() time.Time

	running atomic.Bool
	mu      sync.Mutex
	current OperationType
}

// NewSyncManager wires a manager from its dependencies
func NewSyncManager(deps SyncDependencies) (*SyncManager, error) {
	if deps.Facade == nil {
		return nil, appErrors.NewConfigurationError("data access facade is required", nil)
	}
	if deps.Settings == nil {
		return nil, appErrors.NewConfigurationError("settings provider is required", nil)
	}
	if deps.MaxBackups < 0 {
		return nil, appErrors.NewConfigurationError(fmt.Sprintf("max backups must not be negative, got %d", deps.MaxBackups), nil)
	}

	logger := deps.Logger
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	syncLogger := deps.SyncLogger
	if syncLogger == nil {
		syncLogger, _ = NewSyncLogger(SyncLoggerConfig{Logger: logger})
	}
	registry := deps.Registry
	if registry == nil {
		registry = schema.Default()
	}
	tempDir := deps.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	exportDir := deps.ExportDir
	if exportDir == "" {
		exportDir = "."
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &SyncManager{
		settings:   deps.Settings,
		store:      deps.Store,
		registry:   registry,
		exporter:   transfer.NewExporter(deps.Facade, logger),
		importer:   transfer.NewImporter(deps.Facade, registry, logger),
		logger:     logger,
		syncLogger: syncLogger,
		exportDir:  exportDir,
		tempDir:    tempDir,
		maxBackups: deps.MaxBackups,
		now:        now,
	}, nil
}

// IsBusy reports whether an operation is in flight
func (m *SyncManager) IsBusy() bool {
	return m.running.Load()
}

// Backup exports the local database and uploads it as the scope's backup
func (m *SyncManager) Backup(ctx context.Context, progress transfer.ProgressFunc) (*OperationResult, error) {
	return m.runGuarded(ctx, OperationBackup, progress, m.backup)
}

// Restore downloads the scope's latest backup and imports it with mode
func (m *SyncManager) Restore(ctx context.Context, mode transfer.RestoreMode, progress transfer.ProgressFunc) (*OperationResult, error) {
	return m.runGuarded(ctx, OperationRestore, progress, func(ctx context.Context, run *operationRun) error {
		return m.restore(ctx, run, mode)
	})
}

// ExportLocal writes the local database to dest, or to a generated file in
// the export directory when dest is empty
func (m *SyncManager) ExportLocal(ctx context.Context, dest string, progress transfer.ProgressFunc) (*OperationResult, error) {
	return m.runGuarded(ctx, OperationExportLocal, progress, func(ctx context.Context, run *operationRun) error {
		return m.exportLocal(ctx, run, dest)
	})
}

// ImportLocal imports a user supplied workbook with mode
func (m *SyncManager) ImportLocal(ctx context.Context, file string, mode transfer.RestoreMode, progress transfer.ProgressFunc) (*OperationResult, error) {
	return m.runGuarded(ctx, OperationImportLocal, progress, func(ctx context.Context, run *operationRun) error {
		return m.importLocal(ctx, run, file, mode)
	})
}

// PruneBackups keeps the keep newest backups of the scope
func (m *SyncManager) PruneBackups(ctx context.Context, keep int) (*OperationResult, error) {
	return m.runGuarded(ctx, OperationPrune, nil, func(ctx context.Context, run *operationRun) error {
		return m.prune(ctx, run, keep)
	})
}

// ListBackups lists the scope's backups, newest first. It does not take the
// operation guard.
func (m *SyncManager) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	store, err := m.remote()
	if err != nil {
		return nil, err
	}
	infos, err := store.List(ctx)
	if err != nil {
		return nil, remoteError("failed to list backups", err)
	}
	return infos, nil
}

// StartBackup runs Backup in the background. The guard is taken before it
// returns, so a busy manager fails here and not on the channel.
func (m *SyncManager) StartBackup(ctx context.Context, progress transfer.ProgressFunc) (<-chan *OperationResult, error) {
	return m.start(ctx, OperationBackup, progress, m.backup)
}

// StartRestore runs Restore in the background
func (m *SyncManager) StartRestore(ctx context.Context, mode transfer.RestoreMode, progress transfer.ProgressFunc) (<-chan *OperationResult, error) {
	return m.start(ctx, OperationRestore, progress, func(ctx context.Context, run *operationRun) error {
		return m.restore(ctx, run, mode)
	})
}

// StartExportLocal runs ExportLocal in the background
func (m *SyncManager) StartExportLocal(ctx context.Context, dest string, progress transfer.ProgressFunc) (<-chan *OperationResult, error) {
	return m.start(ctx, OperationExportLocal, progress, func(ctx context.Context, run *operationRun) error {
		return m.exportLocal(ctx, run, dest)
	})
}

// StartImportLocal runs ImportLocal in the background
func (m *SyncManager) StartImportLocal(ctx context.Context, file string, mode transfer.RestoreMode, progress transfer.ProgressFunc) (<-chan *OperationResult, error) {
	return m.start(ctx, OperationImportLocal, progress, func(ctx context.Context, run *operationRun) error {
		return m.importLocal(ctx, run, file, mode)
	})
}

var _ Manager = (*SyncManager)(nil)

type pipeline func(ctx context.Context, run *operationRun) error

func (m *SyncManager) acquire(op OperationType) error {
	if !m.running.CompareAndSwap(false, true) {
		m.mu.Lock()
		running := m.current
		m.mu.Unlock()
		return appErrors.NewConcurrencyError(string(running))
	}
	m.mu.Lock()
	m.current = op
	m.mu.Unlock()
	return nil
}

func (m *SyncManager) release() {
	m.mu.Lock()
	m.current = ""
	m.mu.Unlock()
	m.running.Store(false)
}

func (m *SyncManager) runGuarded(ctx context.Context, op OperationType, progress transfer.ProgressFunc, fn pipeline) (*OperationResult, error) {
	if err := m.acquire(op); err != nil {
		return nil, err
	}
	defer m.release()
	return m.execute(ctx, op, progress, fn)
}

func (m *SyncManager) start(ctx context.Context, op OperationType, progress transfer.ProgressFunc, fn pipeline) (<-chan *OperationResult, error) {
	if err := m.acquire(op); err != nil {
		return nil, err
	}

	results := make(chan *OperationResult, 1)
	go func() {
		result, _ := m.execute(ctx, op, progress, fn)
		m.release()
		results <- result
		close(results)
	}()
	return results, nil
}

// execute drives one pipeline through the state machine. The result is
// always returned, with err set when the operation failed.
func (m *SyncManager) execute(ctx context.Context, op OperationType, progress transfer.ProgressFunc, fn pipeline) (result *OperationResult, err error) {
	run := m.newRun(op, progress)
	ctx = logging.CreateContextWithOperationID(ctx, run.result.OperationID)
	done := m.syncLogger.LogOperationStart(ctx, string(op), run.result.OperationID, map[string]interface{}{
		"user_mobile": m.settings.CurrentUserMobile(),
		"store_id":    m.settings.CurrentStoreID(),
	})

	defer func() {
		if p := recover(); p != nil {
			err = appErrors.NewAppError(appErrors.ErrorTypeUnknown, fmt.Sprintf("%s panicked: %v", op, p), nil)
		}
		run.finish(err)
		done(err, run.details())
		result = run.result
	}()

	if err = run.transition(StateStaging); err != nil {
		return run.result, err
	}
	if err = ctx.Err(); err != nil {
		return run.result, interrupted(err)
	}
	err = fn(ctx, run)
	return run.result, err
}

func (m *SyncManager) backup(ctx context.Context, run *operationRun) error {
	store, err := m.remote()
	if err != nil {
		return err
	}

	if err := run.transition(StateExporting); err != nil {
		return err
	}
	doc, err := m.exporter.Export(ctx, run.scaled(0, 70))
	if err != nil {
		return err
	}
	staged, err := m.stage(run, doc, "backup-*.xlsx")
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return interrupted(err)
	}

	if err := run.transition(StateUploading); err != nil {
		return err
	}
	run.report("Uploading backup", 75)
	url, err := store.Upload(ctx, staged)
	if err != nil {
		run.retain(staged)
		return remoteError("failed to upload backup", err)
	}
	run.result.URL = url

	if err := m.settings.RecordLastSync(settings.LastSync{
		Time:      m.now(),
		Operation: string(OperationBackup),
		Device:    m.settings.DeviceName(),
		URL:       url,
	}); err != nil {
		m.logger.WithField("error", err.Error()).Warn("Failed to record last sync")
	}

	if m.maxBackups > 0 {
		run.report("Applying retention", 95)
		pruned, err := store.PruneToRecent(ctx, m.maxBackups)
		if err != nil {
			m.logger.WithField("error", err.Error()).Warn("Retention after upload failed")
		}
		run.result.Pruned = pruned
	}

	run.report("Backup uploaded", 100)
	return nil
}

func (m *SyncManager) restore(ctx context.Context, run *operationRun, mode transfer.RestoreMode) error {
	store, err := m.remote()
	if err != nil {
		return err
	}
	if err := m.checkImportIdentity(); err != nil {
		return err
	}

	if err := run.transition(StateDownloading); err != nil {
		return err
	}
	run.report("Downloading latest backup", 5)
	downloaded, err := store.DownloadLatest(ctx, m.tempDir)
	if err != nil {
		return remoteError("failed to download backup", err)
	}
	run.track(downloaded)
	run.report("Backup downloaded", 20)

	return m.validateAndImport(ctx, run, downloaded, mode)
}

func (m *SyncManager) exportLocal(ctx context.Context, run *operationRun, dest string) error {
	if dest == "" {
		dest = filepath.Join(m.exportDir, fmt.Sprintf("jewelvault_export_%s.xlsx", m.now().Format("20060102_150405")))
	} else if !workbook.HasWorkbookExtension(dest) {
		return appErrors.NewValidationError(fmt.Sprintf("export file must have the .xlsx extension: %s", dest), nil).
			WithUserMessage("Choose a file name ending in .xlsx.")
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return appErrors.NewAppError(appErrors.ErrorTypePermission, "cannot create export directory", err).
			WithContext("dir", dir)
	}

	if err := run.transition(StateExporting); err != nil {
		return err
	}
	doc, err := m.exporter.Export(ctx, run.scaled(0, 90))
	if err != nil {
		return err
	}

	// write next to dest and rename, so a failed write never leaves a partial file
	staged, err := m.stageIn(run, dir, doc, ".export-*.xlsx")
	if err != nil {
		return err
	}
	if err := os.Rename(staged, dest); err != nil {
		return appErrors.NewAppError(appErrors.ErrorTypePermission, "cannot write export file", err).
			WithContext("path", dest)
	}
	run.untrack(staged)

	run.result.ArtifactPath = dest
	run.report("Export written", 100)
	return nil
}

func (m *SyncManager) importLocal(ctx context.Context, run *operationRun, file string, mode transfer.RestoreMode) error {
	if !workbook.HasWorkbookExtension(file) {
		return appErrors.NewValidationError(fmt.Sprintf("only .xlsx workbooks can be imported: %s", file), nil).
			WithUserMessage("Select an Excel (.xlsx) backup file.")
	}
	if err := m.checkImportIdentity(); err != nil {
		return err
	}

	copied, err := m.copyToTemp(run, file)
	if err != nil {
		return err
	}
	run.report("Workbook staged", 10)

	return m.validateAndImport(ctx, run, copied, mode)
}

func (m *SyncManager) prune(ctx context.Context, run *operationRun, keep int) error {
	store, err := m.remote()
	if err != nil {
		return err
	}
	if keep < 0 {
		return appErrors.NewValidationError(fmt.Sprintf("keep must not be negative, got %d", keep), nil)
	}
	pruned, err := store.PruneToRecent(ctx, keep)
	run.result.Pruned = pruned
	if err != nil {
		return remoteError("failed to prune backups", err)
	}
	return nil
}

func (m *SyncManager) validateAndImport(ctx context.Context, run *operationRun, path string, mode transfer.RestoreMode) error {
	if err := run.transition(StateValidating); err != nil {
		return err
	}
	doc, err := workbook.Open(path)
	if err != nil {
		return appErrors.NewStructuralError("cannot read workbook", err)
	}
	report, err := schema.ValidateStructure(doc, m.registry)
	run.result.Validation = report
	version := 0
	var warnings []string
	if report != nil {
		version = report.DetectedVersion
		warnings = report.Warnings()
	}
	m.logger.LogSchemaValidation(version, warnings, err)
	if err != nil {
		return err
	}
	run.report("Workbook validated", 30)
	if err := ctx.Err(); err != nil {
		return interrupted(err)
	}

	if err := run.transition(StateImporting); err != nil {
		return err
	}
	summary, err := m.importer.Import(ctx, doc, m.settings.CurrentUserID(), m.settings.CurrentStoreID(), mode, run.scaled(30, 100))
	run.result.Summary = summary
	return err
}

func (m *SyncManager) remote() (RemoteStore, error) {
	if m.store == nil {
		return nil, appErrors.NewConfigurationError("remote storage is not configured", nil).
			WithUserMessage("Remote backups are not configured. Set remote.storage in the configuration file.")
	}
	return m.store, nil
}

func (m *SyncManager) checkImportIdentity() error {
	if strings.TrimSpace(m.settings.CurrentUserID()) == "" || strings.TrimSpace(m.settings.CurrentStoreID()) == "" {
		return appErrors.NewConfigurationError("current user and store are required to import", nil).
			WithUserMessage("Set identity.user_id and identity.store_id before importing.")
	}
	return nil
}

func (m *SyncManager) stage(run *operationRun, doc *workbook.Document, pattern string) (string, error) {
	if err := os.MkdirAll(m.tempDir, 0755); err != nil {
		return "", appErrors.NewAppError(appErrors.ErrorTypePermission, "cannot create temp directory", err)
	}
	return m.stageIn(run, m.tempDir, doc, pattern)
}

func (m *SyncManager) stageIn(run *operationRun, dir string, doc *workbook.Document, pattern string) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", appErrors.NewAppError(appErrors.ErrorTypePermission, "cannot create staging file", err)
	}
	run.track(f.Name())

	if err := workbook.Write(doc, f); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", appErrors.NewAppError(appErrors.ErrorTypePermission, "cannot write staging file", err)
	}
	return f.Name(), nil
}

func (m *SyncManager) copyToTemp(run *operationRun, file string) (string, error) {
	src, err := os.Open(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", appErrors.NewValidationError(fmt.Sprintf("workbook not found: %s", file), err)
		}
		return "", appErrors.NewAppError(appErrors.ErrorTypePermission, "cannot open workbook", err)
	}
	defer src.Close()

	if err := os.MkdirAll(m.tempDir, 0755); err != nil {
		return "", appErrors.NewAppError(appErrors.ErrorTypePermission, "cannot create temp directory", err)
	}
	dst, err := os.CreateTemp(m.tempDir, "import-*.xlsx")
	if err != nil {
		return "", appErrors.NewAppError(appErrors.ErrorTypePermission, "cannot create validation copy", err)
	}
	run.track(dst.Name())

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", appErrors.NewAppError(appErrors.ErrorTypePermission, "cannot copy workbook", err)
	}
	if err := dst.Close(); err != nil {
		return "", appErrors.NewAppError(appErrors.ErrorTypePermission, "cannot copy workbook", err)
	}
	return dst.Name(), nil
}

// remoteError turns storage failures into remote_io application errors.
// Errors that already carry another type, like an interruption, pass through.
func remoteError(message string, err error) error {
	var appErr *appErrors.AppError
	if errors.As(err, &appErr) && appErr.Type != appErrors.ErrorTypeRemoteIO {
		return err
	}

	var wrapped *appErrors.AppError
	if IsRetryable(err) {
		wrapped = appErrors.NewRecoverableError(appErrors.ErrorTypeRemoteIO, message, err)
	} else {
		wrapped = appErrors.NewRemoteIOError(message, err)
	}
	if IsNotFound(err) {
		wrapped = wrapped.WithUserMessage("No backup was found for this store.")
	}
	return wrapped
}

func interrupted(err error) error {
	return appErrors.NewAppError(appErrors.ErrorTypeInterruption, "operation canceled", err)
}

// operationRun carries the state of one operation: its result, the progress
// sink and the temp files to remove when it ends
type operationRun struct {
	manager  *SyncManager
	result   *OperationResult
	progress transfer.ProgressFunc
	last     int
	temps    []string
}

func (m *SyncManager) newRun(op OperationType, progress transfer.ProgressFunc) *operationRun {
	return &operationRun{
		manager: m,
		result: &OperationResult{
			OperationID: NewCorrelationID(),
			Operation:   op,
			State:       StateIdle,
			States:      []OperationState{StateIdle},
			StartedAt:   m.now(),
		},
		progress: progress,
		last:     -1,
	}
}

func (r *operationRun) transition(to OperationState) error {
	from := r.result.State
	if !CanTransition(from, to) {
		return appErrors.NewAppError(appErrors.ErrorTypeUnknown,
			fmt.Sprintf("invalid state transition %s -> %s", from, to), nil)
	}
	r.result.State = to
	r.result.States = append(r.result.States, to)
	r.manager.syncLogger.LogStateTransition(r.result.OperationID, string(r.result.Operation), from, to)
	return nil
}

// report forwards progress, never letting the percentage go backwards
func (r *operationRun) report(message string, percent int) {
	if r.progress == nil {
		return
	}
	if percent > 100 {
		percent = 100
	}
	if percent < r.last {
		percent = r.last
	}
	r.last = percent
	r.progress(message, percent)
}

// scaled maps a 0..100 sub-step onto [from, to] of the operation
func (r *operationRun) scaled(from, to int) transfer.ProgressFunc {
	return func(message string, percent int) {
		r.report(message, from+(to-from)*percent/100)
	}
}

func (r *operationRun) track(path string) {
	r.temps = append(r.temps, path)
}

func (r *operationRun) untrack(path string) {
	for i, p := range r.temps {
		if p == path {
			r.temps = append(r.temps[:i], r.temps[i+1:]...)
			return
		}
	}
}

func (r *operationRun) retain(path string) {
	r.untrack(path)
	r.result.RetainedFile = path
}

func (r *operationRun) finish(err error) {
	for _, path := range r.temps {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			r.manager.logger.WithFields(map[string]interface{}{
				"path":  path,
				"error": rmErr.Error(),
			}).Warn("Failed to remove temp file")
		}
	}
	r.temps = nil

	target := StateCompleted
	if err != nil {
		target = StateFailed
		r.result.Err = err
		r.result.Error = err.Error()
	}
	if !r.result.State.IsTerminal() {
		if CanTransition(r.result.State, target) {
			_ = r.transition(target)
		} else {
			r.result.State = StateFailed
			r.result.States = append(r.result.States, StateFailed)
		}
	}
	r.result.FinishedAt = r.manager.now()
}

func (r *operationRun) details() map[string]interface{} {
	details := map[string]interface{}{"state": string(r.result.State)}
	if r.result.URL != "" {
		details["url"] = r.result.URL
	}
	if r.result.ArtifactPath != "" {
		details["artifact"] = r.result.ArtifactPath
	}
	if r.result.RetainedFile != "" {
		details["retained_file"] = r.result.RetainedFile
	}
	if r.result.Summary != nil {
		details["added"] = r.result.Summary.TotalAdded()
		details["skipped"] = r.result.Summary.TotalSkipped()
		details["failed"] = r.result.Summary.TotalFailed()
	}
	return details
}
