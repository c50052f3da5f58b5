package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/config"
	appErrors "github.com/khanrajesh/JewelVaultMobile-sub002/internal/errors"
)

// rootOptions holds the persistent flags shared by every command
type rootOptions struct {
	configFile string
	verbose    bool
	quiet      bool
	format     string
	theme      string
	noColor    bool
	noProgress bool
	logFile    string
	timeout    time.Duration
}

// NewRootCommand builds the storesync command tree
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "storesync",
		Short: "Back up, restore, export and import jewelry store data",
		Long: `storesync moves the data of a jewelry store between its database and
spreadsheet workbooks.

A backup exports every entity into one .xlsx workbook and uploads it to the
store's folder in remote storage (database_backups/<userMobile>/<storeId>/).
A restore downloads the newest backup, validates it and imports it in MERGE
or REPLACE mode. Local export and import do the same with a file on disk.

Examples:
  # Upload a backup of the configured store
  storesync backup

  # Restore the newest backup, overwriting existing rows
  storesync restore --mode replace

  # Export to a file and import it on another machine
  storesync export ./store.xlsx
  storesync import ./store.xlsx --mode merge

  # List remote backups as JSON
  storesync list --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.verbose && opts.quiet {
				return appErrors.NewValidationError("--verbose and --quiet flags are mutually exclusive", nil)
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default is $HOME/.config/storesync/config.yaml)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress non-error output")
	flags.StringVar(&opts.format, "format", "table", "output format (table, json, yaml, compact)")
	flags.StringVar(&opts.theme, "theme", "auto", "color theme (dark, light, high-contrast, auto)")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable color output")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "disable progress output")
	flags.StringVar(&opts.logFile, "log-file", "", "also write logs to this file")
	flags.DurationVar(&opts.timeout, "timeout", 0, "abort the operation after this long (0 disables)")

	rootCmd.AddCommand(
		newBackupCommand(opts),
		newRestoreCommand(opts),
		newExportCommand(opts),
		newImportCommand(opts),
		newListCommand(opts),
		newPruneCommand(opts),
		newStatusCommand(opts),
		newSchemaCommand(opts),
		newCheckCommand(opts),
		newConfigCommand(opts),
		newVersionCommand(),
	)

	return rootCmd
}

// Execute runs the CLI and exits non-zero on failure. This is called by
// main.main().
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", appErrors.FormatUserError(err))
		os.Exit(exitCode(err))
	}
}

// exitCode maps error categories to process exit codes so scripts can tell
// a busy engine apart from a broken configuration
func exitCode(err error) int {
	switch appErrors.GetErrorType(err) {
	case appErrors.ErrorTypeConfiguration, appErrors.ErrorTypeValidation:
		return 2
	case appErrors.ErrorTypeConcurrency:
		return 3
	case appErrors.ErrorTypeInterruption:
		return 130
	default:
		return 1
	}
}

func defaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "storesync")
}

func defaultConfigFile() string {
	return filepath.Join(defaultConfigDir(), "config.yaml")
}

// loadConfig reads the config file, STORESYNC_* variables and the
// persistent flags into one configuration. A missing default config file is
// fine; an explicit --config that cannot be read is not.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	v := viper.New()
	if opts.configFile != "" {
		v.SetConfigFile(opts.configFile)
	} else {
		v.AddConfigPath(defaultConfigDir())
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.configFile != "" || !errors.As(err, &notFound) {
			return nil, appErrors.NewConfigurationError(fmt.Sprintf("failed to read config file: %v", err), err)
		}
	}

	bindFlag(v, cmd, "display.output_format", "format")
	bindFlag(v, cmd, "display.theme", "theme")
	bindFlag(v, cmd, "logging.file", "log-file")

	if opts.verbose {
		v.Set("logging.level", "verbose")
		v.Set("display.verbose", true)
	}
	if opts.quiet {
		v.Set("logging.level", "quiet")
		v.Set("display.quiet", true)
	}
	if opts.noColor {
		v.Set("display.color_enabled", false)
	}
	if opts.noProgress {
		v.Set("display.show_progress", false)
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, appErrors.NewConfigurationError(err.Error(), err)
	}
	cfg.Display.Writer = cmd.OutOrStdout()
	return cfg, nil
}

func bindFlag(v *viper.Viper, cmd *cobra.Command, key, name string) {
	if flag := cmd.Flags().Lookup(name); flag != nil {
		_ = v.BindPFlag(key, flag)
	}
}

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
	goVersion = "unknown"
)

// SetVersionInfo records build metadata for the version command
func SetVersionInfo(v, bt, gc, gv string) {
	version = v
	buildTime = bt
	gitCommit = gc
	goVersion = gv
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "storesync version %s\n", version)
	fmt.Fprintf(w, "Built: %s\n", buildTime)
	fmt.Fprintf(w, "Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Go version: %s\n", goVersion)
}
