// Package cmd implements the CLI commands for restockd.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/restockd/restockd/internal/config"
	"github.com/restockd/restockd/pkg/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "restockd",
	Short: "Watch retail stock and alert on restocks",
	Long: "A service that checks Croma, Flipkart and Amazon for product\n" +
		"availability at configured pincodes and sends the results to\n" +
		"Telegram subscribers. Checks run on an internal schedule or on\n" +
		"demand through a secret-gated HTTP trigger.",
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().
		String("log-level", "", "log level override (debug, info, warn, error)")

	cobra.CheckErr(viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level")))
}

func initConfig() {
	viper.SetEnvPrefix("RESTOCKD")
	viper.AutomaticEnv()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads the config file and applies flag and environment
// overrides on top of it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if lvl := viper.GetString("log_level"); lvl != "" {
		cfg.Logging.Level = lvl
	}

	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logger.New(cfg.Logging.Level, cfg.Logging.Format)
}
