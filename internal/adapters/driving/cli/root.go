// Package cli implements the ras command line.
//
// Commands resolve run settings from the TOML config store, apply flag
// overrides and build only the services they need.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/ras-cli/internal/adapters/driven/ai"
	"github.com/custodia-labs/ras-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driving"
	"github.com/custodia-labs/ras-cli/internal/core/services"
	"github.com/custodia-labs/ras-cli/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=v1.2.3".
var version = "dev"

var (
	configPath string
	envFile    string
	logFormat  string
	debugFlag  bool
)

// settingsService is resolved once per process. Tests replace it with
// one backed by an in-memory store.
var settingsService driving.SettingsService

var rootCmd = &cobra.Command{
	Use:   "ras",
	Short: "Multi-hop question answering over a knowledge source",
	Long: `ras answers questions by alternating retrieval, triple extraction and
answer generation under a planner that decides the next step.

Questions come from benchmark dataset files (ras run) or the command
line (ras ask). Passages are imported into a knowledge source with
ras index before any question is asked.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default $RAS_HOME/config.toml or ~/.ras/config.toml)")
	flags.StringVar(&envFile, "env-file", "", "dotenv file with API keys (default .env when present)")
	flags.StringVar(&logFormat, "log-format", string(logger.FormatText), "log format: text or json")
	flags.BoolVar(&debugFlag, "debug", false, "log every reasoning step")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func setup(cmd *cobra.Command, _ []string) error {
	if err := loadEnv(); err != nil {
		return err
	}
	if err := logger.Init(debugFlag, logger.Format(logFormat), cmd.ErrOrStderr()); err != nil {
		return err
	}
	if settingsService != nil {
		return nil
	}

	var (
		store *file.ConfigStore
		err   error
	)
	if configPath != "" {
		store, err = file.NewConfigStoreFile(configPath)
	} else {
		store, err = file.NewConfigStore("")
	}
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	settingsService = services.NewSettingsService(store, ai.NewConfigValidator())
	return nil
}

// loadEnv reads API keys from a dotenv file. A missing default .env is
// not an error; a missing --env-file is.
func loadEnv() error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}
