package builtin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/harunnryd/sabaki/internal/action"
)

func TestBuiltinsAreRegistered(t *testing.T) {
	reg := action.NewRegistry()
	if err := reg.LoadBuiltins(action.BuiltinOptions{Workdir: t.TempDir()}); err != nil {
		t.Fatalf("load builtins: %v", err)
	}
	for _, kind := range []string{"shell", "write_file", "read_file"} {
		if _, ok := reg.Get(kind); !ok {
			t.Fatalf("expected built-in %s to be registered", kind)
		}
	}
}

func TestWriteThenReadFile(t *testing.T) {
	dir := t.TempDir()
	writer := &WriteFileRunner{Workdir: dir}
	reader := &ReadFileRunner{Workdir: dir, MaxBytes: 1024}

	out, err := writer.Run(context.Background(), json.RawMessage(`{"path":"notes/todo.txt","content":"ship it"}`))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(out, "notes/todo.txt") {
		t.Fatalf("unexpected write output %q", out)
	}

	data, err := os.ReadFile(filepath.Join(dir, "notes", "todo.txt"))
	if err != nil || string(data) != "ship it" {
		t.Fatalf("file content = %q, err = %v", data, err)
	}

	got, err := reader.Run(context.Background(), json.RawMessage(`{"path":"notes/todo.txt"}`))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != "ship it" {
		t.Fatalf("read = %q", got)
	}
}

func TestFileRunnersRejectEscapes(t *testing.T) {
	dir := t.TempDir()
	writer := &WriteFileRunner{Workdir: dir}
	if _, err := writer.Run(context.Background(), json.RawMessage(`{"path":"../outside.txt","content":"x"}`)); err == nil {
		t.Fatal("expected escape to be rejected")
	}
	reader := &ReadFileRunner{Workdir: dir, MaxBytes: 10}
	if _, err := reader.Run(context.Background(), json.RawMessage(`{"path":"/etc/passwd"}`)); err == nil {
		t.Fatal("expected absolute path outside workdir to be rejected")
	}
}

func TestFileRunnersRejectSymlinkEscapes(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need extra privileges on windows")
	}
	dir := t.TempDir()
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(dir, "out")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if err := os.Symlink(filepath.Join(outside, "new.txt"), filepath.Join(dir, "dangling")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "real"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.Symlink(filepath.Join(dir, "real"), filepath.Join(dir, "alias")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	writer := &WriteFileRunner{Workdir: dir}
	ctx := context.Background()

	for _, path := range []string{"out/x.txt", "dangling", "dangling/x.txt"} {
		args, _ := json.Marshal(map[string]string{"path": path, "content": "x"})
		if _, err := writer.Run(ctx, args); err == nil {
			t.Fatalf("expected %s to be rejected", path)
		}
	}
	entries, _ := os.ReadDir(outside)
	if len(entries) != 0 {
		t.Fatalf("nothing may be written outside the workdir, found %d entries", len(entries))
	}

	if _, err := writer.Run(ctx, json.RawMessage(`{"path":"alias/a.txt","content":"ok"}`)); err != nil {
		t.Fatalf("symlink inside the workdir should be allowed: %v", err)
	}
	if data, err := os.ReadFile(filepath.Join(dir, "real", "a.txt")); err != nil || string(data) != "ok" {
		t.Fatalf("file content = %q, err = %v", data, err)
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	got := truncate("h\u00e9llo", 2)
	if got != "h\n...[truncated]" {
		t.Fatalf("truncate = %q", got)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncate produced invalid UTF-8: %q", got)
	}
	if got := truncate("\u65e5\u672c\u8a9e", 4); got != "\u65e5\n...[truncated]" {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
}

func TestReadFileTruncates(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "big.txt"), []byte(strings.Repeat("a", 64)), 0644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	reader := &ReadFileRunner{Workdir: dir, MaxBytes: 8}
	got, err := reader.Run(context.Background(), json.RawMessage(`{"path":"big.txt"}`))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(got, "aaaaaaaa\n") || !strings.Contains(got, "[truncated]") {
		t.Fatalf("expected truncated output, got %q", got)
	}
}

func TestShellRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on a POSIX echo binary")
	}
	r := &ShellRunner{Workdir: t.TempDir(), Timeout: 5 * time.Second, MaxOutputBytes: 1024}

	out, err := r.Run(context.Background(), json.RawMessage(`{"command":"echo 'hello world'"}`))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.TrimSpace(out) != "hello world" {
		t.Fatalf("output = %q", out)
	}

	if _, err := r.Run(context.Background(), json.RawMessage(`{"command":"   "}`)); err == nil {
		t.Fatal("expected empty command to fail")
	}
	if _, err := r.Run(context.Background(), json.RawMessage(`{"command":"echo hi","workdir":"../.."}`)); err == nil {
		t.Fatal("expected workdir escape to fail")
	}
}
