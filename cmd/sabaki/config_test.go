package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harunnryd/sabaki/internal/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func TestConfigInitCmd(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := configInitCmd.RunE(cmd, nil); err != nil {
		t.Fatalf("config init failed: %v", err)
	}

	home, _ := os.UserHomeDir()
	configPath := filepath.Join(home, ".sabaki", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("config file not created at %s: %v", configPath, err)
	}

	var parsed config.Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("template is not valid yaml: %v", err)
	}
	if parsed.Modes.Default != config.DefaultModesDefault || parsed.Chat.TranscriptLimit != config.DefaultChatTranscriptLimit {
		t.Fatalf("template disagrees with defaults: %+v", parsed)
	}

	if err := configInitCmd.RunE(cmd, nil); err != nil {
		t.Fatalf("config init should succeed when config exists: %v", err)
	}
	if !strings.Contains(out.String(), "already exists") {
		t.Fatalf("expected existing-config notice, got:\n%s", out.String())
	}
}

func TestRedactConfigSecrets(t *testing.T) {
	original := &config.Config{
		Models: config.ModelsConfig{
			Registry: []config.ModelRegistry{
				{Name: "m1", APIKey: "sk-secret-123456"},
				{Name: "m2", APIKey: "abc"},
			},
		},
	}

	redacted := redactConfigSecrets(original)

	if original.Models.Registry[0].APIKey != "sk-secret-123456" {
		t.Fatal("original config was modified")
	}
	if got := redacted.Models.Registry[0].APIKey; got != "sk************56" {
		t.Fatalf("unexpected mask: %q", got)
	}
	if got := redacted.Models.Registry[1].APIKey; got != "****" {
		t.Fatalf("unexpected short mask: %q", got)
	}
}

func TestConfigView_UsesYAMLKeys(t *testing.T) {
	prev := cfg
	defer func() { cfg = prev }()
	cfg = &config.Config{Chat: config.ChatConfig{TranscriptLimit: 7}}

	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	if err := configViewCmd.RunE(cmd, nil); err != nil {
		t.Fatalf("config view failed: %v", err)
	}
	if !strings.Contains(out.String(), "transcript_limit: 7") {
		t.Fatalf("expected snake_case keys, got:\n%s", out.String())
	}
}
