package formatter

import (
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harunnryd/sabaki/internal/mode"
)

type YAMLFormatter struct{}

func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

func (f *YAMLFormatter) FormatModes(infos []mode.Info) (string, error) {
	data, err := yaml.Marshal(infos)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

type historyEntry struct {
	From      string `yaml:"from_mode"`
	To        string `yaml:"to_mode"`
	Reason    string `yaml:"reason,omitempty"`
	Timestamp string `yaml:"timestamp"`
}

func (f *YAMLFormatter) FormatHistory(events []mode.SwitchEvent) (string, error) {
	entries := make([]historyEntry, 0, len(events))
	for _, e := range events {
		entries = append(entries, historyEntry{
			From:      string(e.From),
			To:        string(e.To),
			Reason:    e.Reason,
			Timestamp: e.Timestamp.Format(time.RFC3339),
		})
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
