package formatter

import (
	"time"

	"github.com/harunnryd/sabaki/internal/mode"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

const activeMarker = "*"

type TableFormatter struct {
	plain        bool
	headerStyle  lipgloss.Style
	activeStyle  lipgloss.Style
	oddRowStyle  lipgloss.Style
	evenRowStyle lipgloss.Style
	borderStyle  lipgloss.Style
}

func NewTableFormatter() *TableFormatter {
	purple := lipgloss.Color("99")
	green := lipgloss.Color("42")
	gray := lipgloss.Color("245")
	lightGray := lipgloss.Color("241")

	return &TableFormatter{
		headerStyle: lipgloss.NewStyle().
			Foreground(purple).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 1),
		activeStyle: lipgloss.NewStyle().
			Foreground(green).
			Bold(true).
			Padding(0, 1),
		oddRowStyle: lipgloss.NewStyle().
			Foreground(gray).
			Padding(0, 1),
		evenRowStyle: lipgloss.NewStyle().
			Foreground(lightGray).
			Padding(0, 1),
		borderStyle: lipgloss.NewStyle().
			Foreground(purple),
	}
}

// NewPlainTableFormatter renders without colors, for text that ends up in
// the transcript.
func NewPlainTableFormatter() *TableFormatter {
	pad := lipgloss.NewStyle().Padding(0, 1)
	return &TableFormatter{
		plain:        true,
		headerStyle:  pad,
		activeStyle:  pad,
		oddRowStyle:  pad,
		evenRowStyle: pad,
		borderStyle:  lipgloss.NewStyle(),
	}
}

func (f *TableFormatter) newTable(activeRow int) *table.Table {
	border := lipgloss.RoundedBorder()
	if f.plain {
		border = lipgloss.NormalBorder()
	}
	return table.New().
		Border(border).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return f.headerStyle
			case row == activeRow:
				return f.activeStyle
			case row%2 == 0:
				return f.evenRowStyle
			default:
				return f.oddRowStyle
			}
		})
}

func (f *TableFormatter) FormatModes(infos []mode.Info) (string, error) {
	if len(infos) == 0 {
		return "No modes registered", nil
	}

	activeRow := -2
	for i, info := range infos {
		if info.Active {
			activeRow = i
		}
	}

	t := f.newTable(activeRow).Headers("", "Mode", "Name", "Tools", "Confirm", "Autonomous")
	for _, info := range infos {
		marker := ""
		if info.Active {
			marker = activeMarker
		}
		c := info.Capabilities
		t.Row(marker, string(info.Mode), info.Name, yesNo(c.UsesTools), yesNo(c.RequiresConfirmation), yesNo(c.Autonomous))
	}

	return t.String(), nil
}

func (f *TableFormatter) FormatHistory(events []mode.SwitchEvent) (string, error) {
	if len(events) == 0 {
		return "No mode switches yet", nil
	}

	t := f.newTable(-2).Headers("Time", "From", "To", "Reason")
	for _, e := range events {
		t.Row(e.Timestamp.Format(time.TimeOnly), string(e.From), string(e.To), truncateString(e.Reason, 40))
	}
	return t.String(), nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
