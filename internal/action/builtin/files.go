package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/harunnryd/sabaki/internal/action"

	"github.com/natefinch/atomic"
)

func init() {
	action.RegisterBuiltin("write_file", func(options action.BuiltinOptions) (action.Runner, error) {
		return &WriteFileRunner{Workdir: options.Workdir}, nil
	})
	action.RegisterBuiltin("read_file", func(options action.BuiltinOptions) (action.Runner, error) {
		return &ReadFileRunner{Workdir: options.Workdir, MaxBytes: options.MaxOutputBytes}, nil
	})
}

type writeFileInput struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// WriteFileRunner replaces a file inside the workdir atomically.
type WriteFileRunner struct {
	Workdir string
}

func (r *WriteFileRunner) Kind() string { return "write_file" }

func (r *WriteFileRunner) Description() string {
	return `Create or overwrite a file in the workspace. args: {"path": "relative/path", "content": "full file content"}`
}

func (r *WriteFileRunner) Run(ctx context.Context, args json.RawMessage) (string, error) {
	var in writeFileInput
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	target, err := resolveInside(r.Workdir, in.Path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("create parent dir: %w", err)
	}
	if err := atomic.WriteFile(target, strings.NewReader(in.Content)); err != nil {
		return "", fmt.Errorf("write %s: %w", in.Path, err)
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(in.Content), in.Path), nil
}

type readFileInput struct {
	Path string `json:"path"`
}

// ReadFileRunner returns up to MaxBytes of a workspace file.
type ReadFileRunner struct {
	Workdir  string
	MaxBytes int
}

func (r *ReadFileRunner) Kind() string { return "read_file" }

func (r *ReadFileRunner) Description() string {
	return `Read a file from the workspace. args: {"path": "relative/path"}`
}

func (r *ReadFileRunner) Run(ctx context.Context, args json.RawMessage) (string, error) {
	var in readFileInput
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	target, err := resolveInside(r.Workdir, in.Path)
	if err != nil {
		return "", err
	}

	f, err := os.Open(target)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", in.Path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, int64(r.MaxBytes)+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", in.Path, err)
	}
	return truncate(string(data), r.MaxBytes), nil
}
