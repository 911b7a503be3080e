package formatter

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/sabaki/internal/mode"
)

func sampleInfos() []mode.Info {
	return []mode.Info{
		{Mode: mode.Ask, Name: "Ask", Capabilities: mode.Capabilities{UsesRouterModel: true}, Active: true},
		{Mode: mode.Edit, Name: "Edit", Capabilities: mode.Capabilities{UsesTools: true, RequiresConfirmation: true}},
	}
}

func TestFormatterFactory_Create(t *testing.T) {
	factory := NewFormatterFactory()

	tests := []struct {
		name    string
		format  OutputFormat
		wantErr bool
	}{
		{name: "table format", format: OutputFormatTable},
		{name: "json format", format: OutputFormatJSON},
		{name: "yaml format", format: OutputFormatYAML},
		{name: "invalid format", format: OutputFormat("invalid"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter, err := factory.Create(tt.format)
			if (err != nil) != tt.wantErr {
				t.Errorf("Create() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && formatter == nil {
				t.Error("Create() returned nil formatter for valid format")
			}
		})
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    OutputFormat
		wantErr bool
	}{
		{input: "TABLE", want: OutputFormatTable},
		{input: "json", want: OutputFormatJSON},
		{input: "Yaml", want: OutputFormatYAML},
		{input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseOutputFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseOutputFormat() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParseOutputFormat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlainTableMarksActiveMode(t *testing.T) {
	output, err := NewPlainTableFormatter().FormatModes(sampleInfos())
	if err != nil {
		t.Fatalf("FormatModes() error = %v", err)
	}

	var askLine string
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, " ask ") {
			askLine = line
		}
	}
	if !strings.Contains(askLine, activeMarker) {
		t.Fatalf("active mode row should carry the marker:\n%s", output)
	}
	if strings.Contains(output, "\x1b[") {
		t.Fatalf("plain table must not contain escape sequences:\n%q", output)
	}
}

func TestTableFormatter_Empty(t *testing.T) {
	output, _ := NewTableFormatter().FormatModes(nil)
	if output != "No modes registered" {
		t.Fatalf("unexpected output %q", output)
	}
	history, _ := NewTableFormatter().FormatHistory(nil)
	if history != "No mode switches yet" {
		t.Fatalf("unexpected output %q", history)
	}
}

func TestJSONFormatter(t *testing.T) {
	output, err := NewJSONFormatter().FormatModes(sampleInfos())
	if err != nil {
		t.Fatalf("FormatModes() error = %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal([]byte(output), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded[0]["active"] != true || decoded[1]["mode"] != "edit" {
		t.Fatalf("unexpected JSON %s", output)
	}
}

func TestYAMLFormatter(t *testing.T) {
	output, err := NewYAMLFormatter().FormatModes(sampleInfos())
	if err != nil {
		t.Fatalf("FormatModes() error = %v", err)
	}
	if !strings.Contains(output, "requires_confirmation: true") || !strings.Contains(output, "mode: ask") {
		t.Fatalf("unexpected YAML:\n%s", output)
	}

	history, err := NewYAMLFormatter().FormatHistory([]mode.SwitchEvent{{From: mode.Ask, To: mode.Edit, Timestamp: time.Unix(0, 0).UTC()}})
	if err != nil {
		t.Fatalf("FormatHistory() error = %v", err)
	}
	if !strings.Contains(history, "to_mode: edit") {
		t.Fatalf("unexpected YAML:\n%s", history)
	}
}
