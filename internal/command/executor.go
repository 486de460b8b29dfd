package command

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// #region executor

// Executor runs one already-resolved command line.
type Executor interface {
	Run(ctx context.Context, command string) (output, errText string, success bool)
}

// ShellExecutor runs commands through the shell, matching how the
// command snippets in the store are written (flags, pipes, quoting).
type ShellExecutor struct{}

// Run executes the command and captures both streams.
func (ShellExecutor) Run(ctx context.Context, command string) (string, string, bool) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := strings.TrimSpace(stdout.String())
	errText := strings.TrimSpace(stderr.String())
	if err != nil {
		if errText == "" {
			errText = err.Error()
		}
		return out, errText, false
	}
	return out, errText, true
}

// Capture runs a tool snippet and returns its output, for prompt
// context collection.
func (e ShellExecutor) Capture(ctx context.Context, command string) (string, error) {
	out, errText, ok := e.Run(ctx, command)
	if !ok {
		return out, fmt.Errorf("tool command failed: %s", errText)
	}
	return out, nil
}

// #endregion executor
