package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/backup"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/confirmation"
	appErrors "github.com/khanrajesh/JewelVaultMobile-sub002/internal/errors"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/transfer"
)

func newBackupCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Export the database and upload it to remote storage",
		Long: `Export every entity of the configured store into one workbook and upload
it to database_backups/<userMobile>/<storeId>/ in remote storage.

Unless remote.retention.keep_history is set, the previous backups of the
store are removed before the upload. When the upload fails the exported
workbook is kept on disk and its path is reported.

Examples:
  storesync backup
  storesync backup --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(cmd, opts)
			if err != nil {
				return err
			}
			defer env.Close()

			manager, err := env.manager(true)
			if err != nil {
				return err
			}
			return env.runWithProgress("Backing up", func(progress func(string, int)) (*backup.OperationResult, error) {
				return manager.Backup(env.ctx, progress)
			})
		},
	}
}

func newRestoreCommand(opts *rootOptions) *cobra.Command {
	var mode string
	var yes bool

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Download the newest backup and import it",
		Long: `Download the newest backup of the configured store, validate its
structure and import it into the database.

MERGE keeps existing rows and only adds missing ones. REPLACE overwrites rows
with the values from the backup.

Examples:
  storesync restore
  storesync restore --mode replace`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			restoreMode, err := parseMode(mode)
			if err != nil {
				return err
			}
			if err := confirmReplace(cmd, restoreMode, "the newest remote backup", yes); err != nil {
				return err
			}
			env, err := newEnvironment(cmd, opts)
			if err != nil {
				return err
			}
			defer env.Close()

			manager, err := env.manager(true)
			if err != nil {
				return err
			}
			return env.runWithProgress("Restoring", func(progress func(string, int)) (*backup.OperationResult, error) {
				return manager.Restore(env.ctx, restoreMode, progress)
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "merge", "conflict resolution (merge, replace)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask before replacing rows")
	return cmd
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file.xlsx]",
		Short: "Export the database to a local workbook",
		Long: `Export every entity into a workbook on disk. Without a file name the
workbook is written to the export directory as
jewelvault_export_<yyyyMMdd_HHmmss>.xlsx.

Examples:
  storesync export
  storesync export ./store.xlsx`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := ""
			if len(args) == 1 {
				dest = args[0]
			}
			env, err := newEnvironment(cmd, opts)
			if err != nil {
				return err
			}
			defer env.Close()

			manager, err := env.manager(true)
			if err != nil {
				return err
			}
			return env.runWithProgress("Exporting", func(progress func(string, int)) (*backup.OperationResult, error) {
				return manager.ExportLocal(env.ctx, dest, progress)
			})
		},
	}
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	var mode string
	var yes bool

	cmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Import a local workbook into the database",
		Long: `Validate a workbook produced by export or backup and import it into the
database. Rows are attributed to the configured user and store.

Examples:
  storesync import ./store.xlsx
  storesync import ./store.xlsx --mode replace`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			restoreMode, err := parseMode(mode)
			if err != nil {
				return err
			}
			if err := confirmReplace(cmd, restoreMode, args[0], yes); err != nil {
				return err
			}
			env, err := newEnvironment(cmd, opts)
			if err != nil {
				return err
			}
			defer env.Close()

			manager, err := env.manager(true)
			if err != nil {
				return err
			}
			return env.runWithProgress("Importing", func(progress func(string, int)) (*backup.OperationResult, error) {
				return manager.ImportLocal(env.ctx, args[0], restoreMode, progress)
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "merge", "conflict resolution (merge, replace)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask before replacing rows")
	return cmd
}

func newListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the backups of the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(cmd, opts)
			if err != nil {
				return err
			}
			defer env.Close()

			manager, err := env.manager(false)
			if err != nil {
				return err
			}
			backups, err := manager.ListBackups(env.ctx)
			if err != nil {
				return err
			}
			displayBackupList(env, backups)
			return nil
		},
	}
}

func displayBackupList(env *environment, backups []backup.BackupInfo) {
	ds := env.display
	if ds.GetConfig().IsStructured() {
		ds.PrintValue("backups", backups)
		return
	}
	if len(backups) == 0 {
		ds.Info("No backups found")
		return
	}

	headers := []string{"File", "Uploaded", "Size", "Compression", "Encrypted"}
	rows := make([][]string, len(backups))
	for i, b := range backups {
		encrypted := "no"
		if b.Encrypted {
			encrypted = "yes"
		}
		rows[i] = []string{
			b.FileName,
			b.UploadDate.Local().Format("2006-01-02 15:04:05"),
			formatBytes(b.SizeBytes),
			string(b.Compression),
			encrypted,
		}
	}
	ds.PrintTable(headers, rows)
	ds.Info(fmt.Sprintf("Total backups: %d", len(backups)))
}

func newPruneCommand(opts *rootOptions) *cobra.Command {
	var keep int
	var yes bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest backups of the configured store",
		Long: `Delete the older backups of the configured store so that only the --keep
newest remain.

Examples:
  storesync prune --keep 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 0 {
				return appErrors.NewValidationError(fmt.Sprintf("--keep must not be negative, got %d", keep), nil)
			}
			if err := confirm(cmd, confirmation.Request{
				Action:       "Prune remote backups",
				Consequences: []string{fmt.Sprintf("all but the %d newest backups of this store are deleted", keep)},
			}, yes); err != nil {
				return err
			}
			env, err := newEnvironment(cmd, opts)
			if err != nil {
				return err
			}
			defer env.Close()

			manager, err := env.manager(false)
			if err != nil {
				return err
			}
			result, err := manager.PruneBackups(env.ctx, keep)
			if result != nil {
				printResult(env.display, result)
			}
			return err
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 1, "number of backups to keep")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask before deleting backups")
	return cmd
}

// confirmReplace asks before a REPLACE import; MERGE never overwrites rows
func confirmReplace(cmd *cobra.Command, mode transfer.RestoreMode, source string, yes bool) error {
	if mode != transfer.ModeReplace {
		return nil
	}
	return confirm(cmd, confirmation.Request{
		Action:       fmt.Sprintf("Import %s in REPLACE mode", source),
		Consequences: []string{"rows with the same id are overwritten with the imported values"},
	}, yes)
}

func confirm(cmd *cobra.Command, req confirmation.Request, yes bool) error {
	ok, err := confirmation.NewConfirmationService(cmd.InOrStdin(), cmd.ErrOrStderr()).Confirm(req, yes)
	if err != nil {
		return err
	}
	if !ok {
		return appErrors.NewAppError(appErrors.ErrorTypeInterruption, "operation cancelled", nil).
			WithUserMessage("Cancelled, nothing was changed.")
	}
	return nil
}

func parseMode(s string) (transfer.RestoreMode, error) {
	mode, err := transfer.ParseRestoreMode(s)
	if err != nil {
		return "", appErrors.NewValidationError(err.Error(), err)
	}
	return mode, nil
}

func formatLastSync(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return fmt.Sprintf("%s (%s ago)", t.Local().Format("2006-01-02 15:04:05"), time.Since(t).Round(time.Second))
}
