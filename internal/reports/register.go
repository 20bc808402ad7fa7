package reports

import (
	"github.com/zjrosen/implreg/internal/catalog"
)

// Module is the catalog and plugin module name for this package.
const Module = "reports"

// Registrations returns the catalog entries for this package's types.
func Registrations() []catalog.Registration {
	return []catalog.Registration{
		{
			Name:   "reports.CSVGenerator[reports.ExecutionReport]",
			Module: Module,
			New:    catalog.Default(NewCSVGenerator[ExecutionReport]),
			Constructors: []any{
				NewDelimitedGenerator[ExecutionReport],
			},
		},
		{
			Name:   "reports.TSVGenerator[reports.ExecutionReport]",
			Module: Module,
			New:    catalog.Default(NewTSVGenerator[ExecutionReport]),
		},
		{
			Name:     "reports.Formats",
			Module:   Module,
			Instance: catalog.Singleton(GetInstance),
		},
		{
			Name:   "reports.JSONExporter",
			Module: Module,
			New:    catalog.Default(NewJSONExporter),
		},
		{
			Name:   "reports.YAMLExporter",
			Module: Module,
			New:    catalog.Default(NewYAMLExporter),
		},
		{
			Name:   "reports.MarkdownExporter",
			Module: Module,
			New:    catalog.Default(NewMarkdownExporter),
		},
	}
}

// Register adds this package's types to c.
func Register(c *catalog.Catalog) error {
	for _, reg := range Registrations() {
		if err := c.Register(reg); err != nil {
			return err
		}
	}
	return nil
}

// SampleMapping maps the abstract keys of this package to its default
// implementations. "Alternate" swaps in the TSV generator.
func SampleMapping() map[string]map[string]string {
	return map[string]map[string]string{
		"Implementations": {
			"SpreadsheetGenerator[ExecutionReport]": "reports.CSVGenerator[reports.ExecutionReport], reports",
			"Formats":                               "reports.Formats, reports",
			"Exporter":                              "reports.JSONExporter, reports",
		},
		"Alternate": {
			"SpreadsheetGenerator[ExecutionReport]": "reports.TSVGenerator[reports.ExecutionReport], reports",
		},
	}
}
