package presentation

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// MaxCellWidth truncates wider cells with an ellipsis.
const MaxCellWidth = 60

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#3C3C3C", Dark: "#BBBBBB"})
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8787"))
)

// Table is a plain column-aligned table. Widths are measured in terminal cells so
// wide runes in keys or type names line up.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Render returns the table as text, one line per row, ending in a newline.
func (t Table) Render() string {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.Rows {
		for i := range widths {
			if i < len(row) {
				widths[i] = max(widths[i], min(runewidth.StringWidth(row[i]), MaxCellWidth))
			}
		}
	}

	var sb strings.Builder
	if t.Title != "" {
		sb.WriteString(titleStyle.Render(t.Title))
		sb.WriteString("\n")
	}

	sb.WriteString(headerStyle.Render(t.line(t.Headers, widths)))
	sb.WriteString("\n")
	for _, row := range t.Rows {
		line := t.line(row, widths)
		if len(row) > 2 && strings.HasPrefix(row[2], "!") {
			line = errorStyle.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (t Table) line(cells []string, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = runewidth.Truncate(cells[i], MaxCellWidth, "…")
		}
		if i == len(widths)-1 {
			parts[i] = cell
		} else {
			parts[i] = runewidth.FillRight(cell, w)
		}
	}
	return strings.TrimRight(strings.Join(parts, "  "), " ")
}
