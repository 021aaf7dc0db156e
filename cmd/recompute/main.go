// Package main provides the recompute command: regenerate a dataset and
// republish its canonical pointer once, on a schedule, or on demand.
package main

import (
	"log"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/clever-parlay/internal/config"
	"github.com/yourusername/clever-parlay/internal/logger"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	appLog     *logrus.Logger
	cfg        *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(latestCmd)
}

var rootCmd = &cobra.Command{
	Use:           "recompute",
	Short:         "Regenerate datasets and publish their canonical pointer",
	Long:          `Runs the generation step for a dataset, then points <dataset>_latest.<ext> at the newest artifact so readers always see a complete file.`,
	Version:       Version + " (" + GitCommit + ", " + BuildDate + ")",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := config.ValidateEnvironment(cfg); err != nil {
		return err
	}

	appLog = logger.NewLoggerForEnvironment(cfg.App.LogLevel, cfg.App.Environment)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"dataset":     cfg.Recompute.Dataset,
		"output_dir":  cfg.Artifacts.OutputDir,
	}).Debug("Configuration loaded")
	return nil
}
