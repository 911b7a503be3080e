package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/harunnryd/sabaki/internal/action"

	"github.com/google/shlex"
)

func init() {
	action.RegisterBuiltin("shell", func(options action.BuiltinOptions) (action.Runner, error) {
		return &ShellRunner{
			Workdir:        options.Workdir,
			Timeout:        options.ShellTimeout,
			MaxOutputBytes: options.MaxOutputBytes,
		}, nil
	})
}

type shellInput struct {
	Command string `json:"command"`
	Workdir string `json:"workdir"`
}

// ShellRunner runs a single command line without a shell interpreter.
// Pipes, redirects and globbing are therefore not available.
type ShellRunner struct {
	Workdir        string
	Timeout        time.Duration
	MaxOutputBytes int
}

func (r *ShellRunner) Kind() string { return "shell" }

func (r *ShellRunner) Description() string {
	return `Run a command in the workspace. args: {"command": "go test ./...", "workdir": "optional/relative/dir"}`
}

func (r *ShellRunner) Run(ctx context.Context, args json.RawMessage) (string, error) {
	var in shellInput
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}

	argv, err := shlex.Split(strings.TrimSpace(in.Command))
	if err != nil {
		return "", fmt.Errorf("parse command: %w", err)
	}
	if len(argv) == 0 {
		return "", fmt.Errorf("command is required")
	}

	dir := r.Workdir
	if strings.TrimSpace(in.Workdir) != "" {
		dir, err = resolveInside(r.Workdir, in.Workdir)
		if err != nil {
			return "", err
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	runErr := cmd.Run()
	output := truncate(out.String(), r.MaxOutputBytes)
	if runCtx.Err() == context.DeadlineExceeded {
		return output, fmt.Errorf("command timed out after %s", r.Timeout)
	}
	if runErr != nil {
		return output, fmt.Errorf("command failed: %w", runErr)
	}
	return output, nil
}
