package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/clever-parlay/internal/artifact"
	"github.com/yourusername/clever-parlay/internal/health"
	"github.com/yourusername/clever-parlay/internal/metrics"
	"github.com/yourusername/clever-parlay/internal/scheduler"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one recompute cycle and exit non-zero on failure",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		coordinator, err := newCoordinator(ctx)
		if err != nil {
			return err
		}

		report, runErr := coordinator.Run(ctx)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		return runErr
	},
}

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Print the newest artifact and the canonical pointer target",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := newStore()
		latest, err := store.LatestFor(cfg.Recompute.Dataset, cfg.Recompute.Extension)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if latest == nil {
			fmt.Fprintf(out, "newest:    (none)\n")
		} else {
			fmt.Fprintf(out, "newest:    %s\n", latest.Name)
		}

		name := artifact.CanonicalName(cfg.Recompute.Dataset, cfg.Recompute.Extension)
		canonical := filepath.Join(store.Dir(), name)
		target, err := os.Readlink(canonical)
		switch {
		case err == nil:
			fmt.Fprintf(out, "canonical: %s -> %s\n", name, target)
		case errors.Is(err, os.ErrNotExist):
			fmt.Fprintf(out, "canonical: %s (not published)\n", name)
		default:
			if _, statErr := os.Stat(canonical); statErr != nil {
				return statErr
			}
			fmt.Fprintf(out, "canonical: %s (copy)\n", name)
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Recompute on a schedule and serve health, metrics and on-demand triggers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := os.MkdirAll(cfg.Artifacts.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	coordinator, err := newCoordinator(ctx)
	if err != nil {
		return err
	}

	sched := scheduler.NewScheduler(appLog, scheduler.WithRunTimeout(cfg.RecomputeTimeout()))
	if err := sched.ScheduleRecompute(cfg.RecomputeSchedule(), coordinator); err != nil {
		return err
	}

	var server *health.Server
	if cfg.Health.Enabled {
		serverCfg := health.Config{
			ServiceName: cfg.App.Name,
			Version:     Version,
			Commit:      GitCommit,
			Port:        strconv.Itoa(cfg.Health.Port),
			Logger:      appLog,
			Checkers: []health.Checker{
				health.NewDirChecker("artifacts", cfg.Artifacts.OutputDir),
				health.NewCheckFunc("scheduler", func(context.Context) error {
					if !sched.IsRunning() {
						return errors.New("scheduler not running")
					}
					return nil
				}),
			},
			Trigger: sched,
		}
		if cfg.Metrics.Enabled {
			serverCfg.MetricsPath = cfg.MetricsPath()
			serverCfg.MetricsHandler = metrics.Handler()
		}
		server = health.NewServer(serverCfg)
		if err := server.Start(ctx); err != nil {
			return err
		}
	}

	if err := sched.Start(); err != nil {
		return err
	}
	if server != nil {
		server.SetReady(true)
	}

	appLog.WithFields(logrus.Fields{
		"dataset":  cfg.Recompute.Dataset,
		"schedule": cfg.RecomputeSchedule(),
		"next_run": sched.GetNextRun(),
	}).Info("Recompute service started")

	if cfg.Recompute.RunOnStart {
		if _, err := sched.TriggerNow(ctx, cfg.Recompute.Dataset); err != nil {
			appLog.WithError(err).Warn("Initial recompute not started")
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	appLog.WithField("signal", sig).Info("Shutdown signal received")

	if server != nil {
		server.SetReady(false)
	}
	if err := sched.Stop(); err != nil {
		appLog.WithError(err).Error("Scheduler did not stop cleanly")
	}
	cancel()
	if server != nil {
		if err := server.Shutdown(); err != nil {
			appLog.WithError(err).Error("Health server shutdown failed")
		}
	}

	appLog.Info("Recompute service stopped")
	return nil
}
