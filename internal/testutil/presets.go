package testutil

import "github.com/zjrosen/implreg/internal/mapping"

// Keys and references of the reports fixture mapping.
const (
	KeySpreadsheet = "SpreadsheetGenerator[ExecutionReport]"
	KeyFormats     = "Formats"
	KeyExporter    = "Exporter"

	RefCSV     = "reports.CSVGenerator[reports.ExecutionReport], reports"
	RefTSV     = "reports.TSVGenerator[reports.ExecutionReport], reports"
	RefFormats = "reports.Formats, reports"
	RefJSON    = "reports.JSONExporter, reports"
)

// WithReportsMapping adds the default section wired to the sample reports types,
// plus an "Alternate" section that maps the spreadsheet key to the TSV generator.
func (b *Builder) WithReportsMapping() *Builder {
	return b.
		WithSection(mapping.DefaultSection,
			Entry(KeySpreadsheet, RefCSV),
			Entry(KeyFormats, RefFormats),
			Entry(KeyExporter, RefJSON),
		).
		WithSection("Alternate",
			Entry(KeySpreadsheet, RefTSV),
		)
}
