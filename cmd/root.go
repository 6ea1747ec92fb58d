package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/verityqa/verity/internal/config"
	"github.com/verityqa/verity/internal/observability"
)

var cfgFile string

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "verity",
	Short:   "Verity drives browser and API test suites with resilient interactions.",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initializeConfig(); err != nil {
			return err
		}

		var cfg config.Config
		if err := viper.Unmarshal(&cfg); err != nil {
			// Fall back to a plain console logger so the failure is visible.
			observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "verity"})
			return fmt.Errorf("failed to unmarshal config: %w", err)
		}

		observability.InitializeLogger(cfg.Logger)
		observability.GetLogger().Info("Starting Verity", zap.String("version", Version))
		return nil
	},
}

// Execute runs the root command. Command errors exit with code 2 so CI can
// tell harness misuse apart from test failures, which exit with code 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(2)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default searches ./config.{yaml,properties} and ~/.verity/)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// initializeConfig layers settings in ascending precedence: defaults, then
// the config file, then environment variables. BASE_URL in the environment
// beats base.url in the file.
func initializeConfig() error {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		if err := readConfigFile(cfgFile); err != nil {
			return err
		}
	} else if found := findConfigFile(); found != "" {
		if err := readConfigFile(found); err != nil {
			return err
		}
	}

	config.BindEnvironment(viper.GetViper())
	return nil
}

// readConfigFile dispatches on extension: properties files go through the
// hand parser, everything else through viper's codecs.
func readConfigFile(path string) error {
	if strings.HasSuffix(path, ".properties") {
		if err := config.MergePropertiesFile(viper.GetViper(), path); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
		return nil
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// findConfigFile searches the working directory, then ~/.verity/.
func findConfigFile() string {
	dirs := []string{"."}
	if home, err := homedir.Dir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".verity"))
	}
	for _, dir := range dirs {
		for _, name := range []string{"config.yaml", "config.yml", "config.properties"} {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}
	return ""
}
