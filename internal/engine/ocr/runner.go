package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, logger *slog.Logger, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec. Failures come back as *ToolError.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, logger *slog.Logger, args ...string) ([]byte, []byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	var out, errb bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &errb

	if err := cmd.Run(); err != nil {
		te := newToolError(ctx, name, err, errb.Bytes())
		logger.Warn("ocr.tool.failed",
			"tool", te.Tool,
			"exit_code", te.ExitCode,
			"reason", te.Reason(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return out.Bytes(), errb.Bytes(), te
	}
	logger.Debug("ocr.tool.ok", "tool", name, "args", len(args), "elapsed_ms", time.Since(start).Milliseconds(), "stdout_bytes", out.Len())
	return out.Bytes(), errb.Bytes(), nil
}

// ToolError is a failed rasteriser run. ExitCode is -1 when the process
// never started or was killed.
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func newToolError(ctx context.Context, name string, err error, stderr []byte) *ToolError {
	te := &ToolError{Tool: name, ExitCode: -1, Stderr: firstLine(stderr, 512), Err: err}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		te.ExitCode = ee.ExitCode()
	}
	if ctx.Err() != nil {
		te.Err = ctx.Err()
		te.ExitCode = -1
	}
	return te
}

func (e *ToolError) Error() string {
	if e.Stderr == "" {
		return e.Reason()
	}
	return e.Reason() + ": " + e.Stderr
}

func (e *ToolError) Unwrap() error { return e.Err }

// Reason names the failure using poppler's exit codes.
func (e *ToolError) Reason() string {
	switch {
	case errors.Is(e.Err, context.DeadlineExceeded):
		return "timed out"
	case errors.Is(e.Err, context.Canceled):
		return "canceled"
	case errors.Is(e.Err, exec.ErrNotFound):
		return "binary not found"
	}
	switch e.ExitCode {
	case 1:
		return "input is not a readable PDF"
	case 2:
		return "cannot write page images"
	case 3:
		return "PDF is encrypted or copy protected"
	case -1:
		return e.Err.Error()
	default:
		return fmt.Sprintf("exit status %d", e.ExitCode)
	}
}

// InputRejected reports whether the document itself, not the host, caused the failure.
func (e *ToolError) InputRejected() bool {
	return e.ExitCode == 1 || e.ExitCode == 3
}

// firstLine keeps the first non-empty stderr line, capped at max bytes.
func firstLine(b []byte, max int) string {
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > max {
			return line[:max] + "...(truncated)"
		}
		return line
	}
	return ""
}
