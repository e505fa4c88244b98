package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"housing/config"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
)

var rootCmd = &cobra.Command{
	Use:   "housing",
	Short: "Housing price model - train a regression model and serve predictions",
	Long: `housing trains a linear regression model on California housing data and
serves predictions over HTTP.

Example usage:
  housing train --synthetic      # Train on generated data
  housing serve --port 8000      # Serve the trained model
  housing runs --limit 5         # Show recent training runs`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./housing.yaml)")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "project root (default is current directory)")
}

// GetConfig returns the configuration loaded for the current command.
func GetConfig() *config.Config {
	return cfg
}

// GetRootDir returns the project root relative paths are resolved against.
func GetRootDir() string {
	return rootDir
}
