package presentation

import (
	"encoding/json"
	"io"
	"strings"
)

// Formatter handles output formatting
type Formatter struct {
	writer io.Writer
}

// NewFormatter creates a new formatter
func NewFormatter(writer io.Writer) *Formatter {
	return &Formatter{
		writer: writer,
	}
}

// JSON writes v as indented JSON.
func (f *Formatter) JSON(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// FormatSections writes sections as JSON.
func (f *Formatter) FormatSections(sections []SectionDTO) error {
	return f.JSON(sections)
}

// FormatSectionsTable writes one table per section.
func (f *Formatter) FormatSectionsTable(sections []SectionDTO) error {
	for i, s := range sections {
		if i > 0 {
			if _, err := io.WriteString(f.writer, "\n"); err != nil {
				return err
			}
		}
		rows := make([][]string, len(s.Entries))
		for j, e := range s.Entries {
			module := e.Module
			if e.Error != "" {
				module = "!" + e.Error
			}
			rows[j] = []string{e.Key, e.TypeName, module, e.Version}
		}
		t := Table{
			Title:   s.Name,
			Headers: []string{"KEY", "TYPE", "MODULE", "VERSION"},
			Rows:    rows,
		}
		if _, err := io.WriteString(f.writer, t.Render()); err != nil {
			return err
		}
	}
	return nil
}

// FormatRegistrationsTable writes catalog registrations as a table.
func (f *Formatter) FormatRegistrationsTable(regs []RegistrationDTO) error {
	rows := make([][]string, len(regs))
	for i, r := range regs {
		rows[i] = []string{r.Name, r.Module, r.Version, strings.Join(r.Strategies, "; ")}
	}
	t := Table{Headers: []string{"TYPE", "MODULE", "VERSION", "STRATEGIES"}, Rows: rows}
	_, err := io.WriteString(f.writer, t.Render())
	return err
}
