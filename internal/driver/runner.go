// Package driver invokes the external workload generator binary and
// captures its output for verification.
package driver

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"chaoscert/internal/logging"
)

// Result carries the captured output of one driver invocation
type Result struct {
	Output string
}

// Runner executes the workload generator as a subprocess. Invocations block
// until the process exits; the driver's internal thread pool is opaque to
// the harness.
type Runner struct {
	binary string
	logger *logging.Logger
}

// NewRunner creates a runner for the given driver binary
func NewRunner(binary string, logger *logging.Logger) *Runner {
	return &Runner{
		binary: binary,
		logger: logger,
	}
}

// Run invokes the driver with the workload's argument set and captures its
// stdout. A non-zero exit status is fatal and carries the captured error
// stream.
func (r *Runner) Run(ctx context.Context, w Workload) (Result, error) {
	args := w.Args()
	r.logger.DriverRun(string(w.Behavior), args)

	cmd := exec.CommandContext(ctx, r.binary, args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{}, fmt.Errorf("driver exited with status %d: %s",
				exitErr.ExitCode(), string(exitErr.Stderr))
		}
		return Result{}, fmt.Errorf("failed to run driver %s: %w", r.binary, err)
	}

	output := string(out)
	r.logger.Debug("Driver output captured", "behavior", w.Behavior, "bytes", len(output))

	return Result{Output: output}, nil
}
