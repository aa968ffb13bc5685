package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cwbudde/descent/internal/params"
)

var (
	logLevel   string
	configFile string
	dataDir    string
	logger     *slog.Logger

	// cfg holds parameter values from the config file and DESCENT_* variables.
	cfg = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "descent",
	Short: "Unconstrained minimization by iterative descent",
	Long: `Descent minimizes smooth functions with first-order (momentum, Adam),
second-order (Newton) and quasi-Newton (BFGS, DFP) methods, and keeps a record
of every run for later inspection or resumption.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var level slog.Level
		switch logLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		opts := &slog.HandlerOptions{Level: level}
		handler := slog.NewJSONHandler(os.Stdout, opts)
		logger = slog.New(handler)
		slog.SetDefault(logger)

		return loadConfig(cfg, configFile)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML file with optimizer parameters")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./data", "Base directory for run records and traces")
}

// loadConfig reads the optional config file into v and binds the DESCENT_*
// environment variables for every parameter key.
func loadConfig(v *viper.Viper, path string) error {
	v.SetEnvPrefix("DESCENT")
	for _, key := range params.Keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	slog.Debug("Using config file", "path", v.ConfigFileUsed())
	return nil
}
