// Package publish regenerates datasets and republishes their canonical pointer.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"
)

// Generator produces zero or more new artifacts for a dataset.
// A nil error means new artifacts may exist; an error guarantees nothing.
type Generator interface {
	Generate(ctx context.Context) error
}

// GeneratorFunc adapts a function to the Generator interface
type GeneratorFunc func(ctx context.Context) error

// Generate calls f(ctx)
func (f GeneratorFunc) Generate(ctx context.Context) error {
	return f(ctx)
}

// CommandGenerator runs an external program that writes artifacts
type CommandGenerator struct {
	command []string
	dir     string
	env     []string
	timeout time.Duration
	logger  *logrus.Logger
}

// CommandConfig configures a CommandGenerator
type CommandConfig struct {
	Command []string
	Dir     string
	Env     []string
	Timeout time.Duration
}

// NewCommandGenerator creates a generator for an external command
func NewCommandGenerator(cfg CommandConfig, logger *logrus.Logger) (*CommandGenerator, error) {
	if len(cfg.Command) == 0 || cfg.Command[0] == "" {
		return nil, fmt.Errorf("generation command is required")
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &CommandGenerator{
		command: cfg.Command,
		dir:     cfg.Dir,
		env:     cfg.Env,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// Generate runs the command to completion. Output is forwarded to the logger.
func (g *CommandGenerator) Generate(ctx context.Context) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, g.command[0], g.command[1:]...)
	cmd.Dir = g.dir
	cmd.Env = append(os.Environ(), g.env...)

	entry := g.logger.WithFields(logrus.Fields{
		"component": "generator",
		"command":   g.command[0],
	})
	stdout := entry.WriterLevel(logrus.InfoLevel)
	stderr := entry.WriterLevel(logrus.WarnLevel)
	defer stdout.Close()
	defer stderr.Close()
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	started := time.Now()
	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("generation command %s aborted: %w", g.command[0], ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("generation command %s exited with code %d: %w", g.command[0], exitErr.ExitCode(), err)
		}
		return fmt.Errorf("failed to run generation command %s: %w", g.command[0], err)
	}

	entry.WithField("duration", time.Since(started).String()).Debug("Generation command finished")
	return nil
}
