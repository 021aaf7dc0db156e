package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// Checker is one named readiness check
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a function to the Checker interface
type CheckFunc struct {
	name string
	fn   func(ctx context.Context) error
}

// NewCheckFunc creates a named checker from fn
func NewCheckFunc(name string, fn func(ctx context.Context) error) CheckFunc {
	return CheckFunc{name: name, fn: fn}
}

// Name returns the check name
func (c CheckFunc) Name() string {
	return c.name
}

// Check runs the check
func (c CheckFunc) Check(ctx context.Context) error {
	return c.fn(ctx)
}

// DirChecker reports whether a directory exists and can be listed
type DirChecker struct {
	name string
	dir  string
}

// NewDirChecker creates a directory checker
func NewDirChecker(name, dir string) DirChecker {
	return DirChecker{name: name, dir: dir}
}

// Name returns the check name
func (c DirChecker) Name() string {
	return c.name
}

// Check opens and lists the directory
func (c DirChecker) Check(ctx context.Context) error {
	f, err := os.Open(c.dir)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", c.dir)
	}
	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
