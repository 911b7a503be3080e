package formatter

import (
	"encoding/json"

	"github.com/harunnryd/sabaki/internal/mode"
)

type JSONFormatter struct{}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) FormatModes(infos []mode.Info) (string, error) {
	if infos == nil {
		infos = []mode.Info{}
	}
	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (f *JSONFormatter) FormatHistory(events []mode.SwitchEvent) (string, error) {
	if events == nil {
		events = []mode.SwitchEvent{}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
