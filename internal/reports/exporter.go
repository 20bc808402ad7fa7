package reports

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/implreg/internal/plugins"
)

// Exporter writes execution reports in one document format.
type Exporter interface {
	Export(w io.Writer, reports []ExecutionReport) error
	ContentType() string
}

// JSONExporter exports reports as a JSON array.
type JSONExporter struct {
	Indent string
}

// NewJSONExporter returns an exporter with two-space indentation.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{Indent: "  "}
}

func (e *JSONExporter) PluginName() string  { return "json" }
func (e *JSONExporter) ContentType() string { return "application/json" }

func (e *JSONExporter) Export(w io.Writer, reports []ExecutionReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", e.Indent)
	if reports == nil {
		reports = []ExecutionReport{}
	}
	return enc.Encode(reports)
}

// YAMLExporter exports reports as a YAML sequence.
type YAMLExporter struct{}

// NewYAMLExporter returns a YAML exporter.
func NewYAMLExporter() *YAMLExporter {
	return &YAMLExporter{}
}

func (e *YAMLExporter) PluginName() string  { return "yaml" }
func (e *YAMLExporter) ContentType() string { return "application/yaml" }

func (e *YAMLExporter) Export(w io.Writer, reports []ExecutionReport) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(reports); err != nil {
		return err
	}
	return enc.Close()
}

// MarkdownExporter renders a Markdown table. It is not a Plugin, so scans skip it.
type MarkdownExporter struct{}

// NewMarkdownExporter returns a Markdown exporter.
func NewMarkdownExporter() *MarkdownExporter {
	return &MarkdownExporter{}
}

func (e *MarkdownExporter) ContentType() string { return "text/markdown" }

func (e *MarkdownExporter) Export(w io.Writer, reports []ExecutionReport) error {
	cols := ExecutionReport{}.Columns()
	if _, err := fmt.Fprintf(w, "| %s |\n|%s\n", strings.Join(cols, " | "), strings.Repeat(" --- |", len(cols))); err != nil {
		return err
	}
	for _, r := range reports {
		vals := r.Values()
		for i, v := range vals {
			vals[i] = strings.ReplaceAll(v, "|", `\|`)
		}
		if _, err := fmt.Fprintf(w, "| %s |\n", strings.Join(vals, " | ")); err != nil {
			return err
		}
	}
	return nil
}

var (
	_ Exporter       = (*JSONExporter)(nil)
	_ plugins.Plugin = (*JSONExporter)(nil)
	_ Exporter       = (*YAMLExporter)(nil)
	_ plugins.Plugin = (*YAMLExporter)(nil)
	_ Exporter       = (*MarkdownExporter)(nil)
)

// PluginTypes lists the candidates this package offers for plugin discovery.
// Only JSONExporter and YAMLExporter are eligible Exporter plugins.
func PluginTypes() []plugins.Candidate {
	return []plugins.Candidate{
		plugins.TypeOf(NewJSONExporter),
		plugins.TypeOf(NewYAMLExporter),
		plugins.TypeOf(NewMarkdownExporter),
		plugins.TypeOf(NewCSVGenerator[ExecutionReport]),
	}
}

func init() {
	plugins.RegisterModule(Module, PluginTypes()...)
}
