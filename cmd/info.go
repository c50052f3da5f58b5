package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/config"
	appErrors "github.com/khanrajesh/JewelVaultMobile-sub002/internal/errors"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/schema"
)

func newStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the configured store and the last remote backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(cmd, opts)
			if err != nil {
				return err
			}
			defer env.Close()

			provider, err := env.settings()
			if err != nil {
				return err
			}

			status := map[string]string{
				"user_id":     env.cfg.Identity.UserID,
				"store_id":    env.cfg.Identity.StoreID,
				"user_mobile": env.cfg.Identity.UserMobile,
				"device":      provider.DeviceName(),
				"device_id":   provider.DeviceID(),
				"database":    "not configured",
				"remote":      "disabled",
				"last_sync":   "never",
			}
			if env.cfg.Database.IsConfigured() {
				status["database"] = fmt.Sprintf("%s:%d/%s", env.cfg.Database.Host, env.cfg.Database.Port, env.cfg.Database.Database)
			}
			if env.cfg.Remote.Enabled {
				status["remote"] = strings.ToLower(string(env.cfg.Remote.Storage.Provider))
			}
			if last, ok := provider.LastSync(); ok {
				status["last_sync"] = formatLastSync(last.Time)
				status["last_sync_device"] = last.Device
				if last.URL != "" {
					status["last_sync_url"] = last.URL
				}
			}

			env.display.PrintValue("Status", status)
			return nil
		},
	}
}

func newSchemaCommand(opts *rootOptions) *cobra.Command {
	var schemaVersion int
	var sheet string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Describe the workbook sheets and headers",
		Long: `List every sheet a workbook carries at a schema version with its required
and optional headers. Without --version the current version is shown.

Examples:
  storesync schema
  storesync schema --version 1
  storesync schema --sheet OrderEntity`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(cmd, opts)
			if err != nil {
				return err
			}
			defer env.Close()

			reg := schema.Default()
			if schemaVersion <= 0 {
				schemaVersion = reg.Current()
			}
			specs := reg.Describe(schemaVersion)

			if sheet != "" {
				for _, spec := range specs {
					if strings.EqualFold(spec.Sheet, sheet) {
						specs = []schema.SheetSpec{spec}
						break
					}
				}
				if len(specs) != 1 || !strings.EqualFold(specs[0].Sheet, sheet) {
					return appErrors.NewValidationError(fmt.Sprintf("unknown sheet %q at schema version %d", sheet, reg.ResolveVersion(schemaVersion)), nil)
				}
			}

			ds := env.display
			if ds.GetConfig().IsStructured() {
				ds.PrintValue("schema", specs)
				return nil
			}

			ds.PrintHeader(fmt.Sprintf("Workbook schema v%d", reg.ResolveVersion(schemaVersion)))
			if sheet != "" {
				spec := specs[0]
				rows := make([][]string, 0, len(spec.Required)+len(spec.Optional))
				for _, h := range spec.Required {
					rows = append(rows, []string{h, "required"})
				}
				for _, h := range spec.Optional {
					rows = append(rows, []string{h, "optional"})
				}
				ds.PrintTable([]string{"Header", "Kind"}, rows)
				return nil
			}

			rows := make([][]string, len(specs))
			for i, spec := range specs {
				rows[i] = []string{
					spec.Sheet,
					spec.Table,
					fmt.Sprintf("v%d", spec.Since),
					fmt.Sprint(len(spec.Required)),
					strings.Join(spec.Optional, ", "),
				}
			}
			ds.PrintTable([]string{"Sheet", "Table", "Since", "Required", "Optional"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVar(&schemaVersion, "version", 0, "schema version to describe")
	cmd.Flags().StringVar(&sheet, "sheet", "", "show the headers of one sheet")
	return cmd
}

func newCheckCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the configuration, directories and remote storage are usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(cmd, opts)
			if err != nil {
				return err
			}
			defer env.Close()

			result, err := config.NewInitializer(env.cfg, env.logger).Initialize(env.ctx)
			if err != nil {
				return err
			}

			ds := env.display
			if ds.GetConfig().IsStructured() {
				ds.PrintValue("check", result)
			} else {
				ds.PrintValue("Readiness", map[string]string{
					"configuration":  passFail(result.ConfigValid),
					"directories":    passFail(result.DirectoriesOK),
					"remote_storage": passFail(result.StorageReady),
				})
				for _, w := range result.Warnings {
					ds.Warning(w)
				}
				for _, e := range result.Errors {
					ds.Error(e)
				}
				for _, fix := range result.RecommendedFixes {
					ds.Info("Fix: " + fix)
				}
			}

			if !result.Success {
				return appErrors.NewConfigurationError("readiness check failed", nil).
					WithUserMessage(fmt.Sprintf("Readiness check failed with %d error(s)", len(result.Errors)))
			}
			ds.Success("Ready")
			return nil
		},
	}
}

func passFail(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}

func newConfigCommand(opts *rootOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect the configuration file",
	}

	var output string
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented starting configuration",
		Long: `Write a commented starting configuration. Use --output - to print it
instead of writing the default config file.

Examples:
  storesync config init
  storesync config init --output ./storesync.yaml
  storesync config init --output - > storesync.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			content := config.GenerateDefaultConfigYAML()
			if output == "-" {
				fmt.Fprint(cmd.OutOrStdout(), content)
				return nil
			}

			path := output
			if path == "" {
				path = defaultConfigFile()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return appErrors.NewValidationError(fmt.Sprintf("%s already exists", path), nil).
					WithUserMessage(fmt.Sprintf("%s already exists. Use --force to overwrite it.", path))
			}
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return appErrors.NewConfigurationError("failed to create configuration directory", err)
			}
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				return appErrors.NewConfigurationError("failed to write configuration file", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default is $HOME/.config/storesync/config.yaml)")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			masked := maskSecrets(*cfg)
			data, err := yaml.Marshal(&masked)
			if err != nil {
				return fmt.Errorf("failed to marshal configuration: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	configCmd.AddCommand(initCmd, showCmd)
	return configCmd
}

// maskSecrets copies cfg with passwords and keys replaced
func maskSecrets(cfg config.Config) config.Config {
	const mask = "***"
	if cfg.Database.Password != "" {
		cfg.Database.Password = mask
	}
	storage := &cfg.Remote.Storage
	if storage.S3 != nil {
		s3 := *storage.S3
		if s3.SecretKey != "" {
			s3.SecretKey = mask
		}
		storage.S3 = &s3
	}
	if storage.Azure != nil {
		azure := *storage.Azure
		if azure.AccountKey != "" {
			azure.AccountKey = mask
		}
		storage.Azure = &azure
	}
	if storage.MinIO != nil {
		minio := *storage.MinIO
		if minio.SecretKey != "" {
			minio.SecretKey = mask
		}
		storage.MinIO = &minio
	}
	return cfg
}
