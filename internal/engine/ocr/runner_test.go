package ocr

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner_ClassifiesExitCodes(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	tests := []struct {
		name     string
		script   string
		code     int
		reason   string
		rejected bool
	}{
		{"unreadable input", "echo 'Syntax Error: no trailer dictionary' >&2; exit 1", 1, "input is not a readable PDF", true},
		{"output dir", "exit 2", 2, "cannot write page images", false},
		{"encrypted", "echo 'Command Line Error: Incorrect password' >&2; exit 3", 3, "PDF is encrypted or copy protected", true},
		{"other", "exit 99", 99, "exit status 99", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ExecRunner{}.Run(context.Background(), "sh", nil, "-c", tt.script)
			var te *ToolError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, tt.code, te.ExitCode)
			assert.Equal(t, tt.reason, te.Reason())
			assert.Equal(t, tt.rejected, te.InputRejected())
		})
	}
}

func TestExecRunner_StderrFirstLine(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	_, _, err := ExecRunner{}.Run(context.Background(), "sh", nil, "-c", "printf '\\nfirst\\nsecond\\n' >&2; exit 1")
	require.Error(t, err)
	assert.Equal(t, "input is not a readable PDF: first", err.Error())
}

func TestExecRunner_MissingBinaryAndTimeout(t *testing.T) {
	_, _, err := ExecRunner{}.Run(context.Background(), "finextract-no-such-pdftoppm", nil)
	var te *ToolError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, -1, te.ExitCode)
	assert.Equal(t, "binary not found", te.Reason())

	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, _, err = ExecRunner{}.Run(ctx, "sleep", nil, "5")
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "timed out", te.Reason())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRasterFailure(t *testing.T) {
	plain := rasterFailure(errors.New("exit status 1"), []byte("\nI/O Error: bad\n"))
	assert.EqualError(t, plain, "pdftoppm: exit status 1: I/O Error: bad")

	classified := rasterFailure(&ToolError{Tool: "pdftoppm", ExitCode: 3, Stderr: "Incorrect password"}, []byte("ignored"))
	assert.EqualError(t, classified, "pdftoppm: PDF is encrypted or copy protected: Incorrect password")
}
