package mapping

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for document extensions with no loader.
var ErrUnsupportedFormat = errors.New("unsupported mapping document format")

// Document formats, selected by file extension.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
	FormatHCL  = "hcl"
)

// FormatOf returns the document format for path.
func FormatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".hcl":
		return FormatHCL, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}
}

// LoadFile reads and parses the mapping document at path.
func LoadFile(path string) (*Snapshot, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(filepath.Base(path), format, content)
}

// Parse decodes a mapping document. filename is only used in diagnostics.
func Parse(filename, format string, content []byte) (*Snapshot, error) {
	switch format {
	case FormatYAML, FormatJSON:
		return parseYAML(filename, content)
	case FormatHCL:
		return parseHCL(filename, content)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// parseYAML handles YAML and JSON (a YAML subset): a map of section -> key -> reference.
func parseYAML(filename string, content []byte) (*Snapshot, error) {
	var sections map[string]map[string]string
	if err := yaml.Unmarshal(content, &sections); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return NewSnapshot(sections), nil
}

// hclDocument is the HCL shape of a mapping document.
type hclDocument struct {
	Sections []hclSection `hcl:"section,block"`
}

type hclSection struct {
	Name    string    `hcl:"name,label"`
	Entries cty.Value `hcl:"entries,optional"`
}

func parseHCL(filename string, content []byte) (*Snapshot, error) {
	file, diags := hclparse.NewParser().ParseHCL(content, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %w", filename, diags)
	}

	var doc hclDocument
	if diags := gohcl.DecodeBody(file.Body, nil, &doc); diags.HasErrors() {
		return nil, fmt.Errorf("decode %s: %w", filename, diags)
	}

	sections := make(map[string]map[string]string, len(doc.Sections))
	for _, sec := range doc.Sections {
		if _, dup := sections[sec.Name]; dup {
			return nil, fmt.Errorf("parse %s: duplicate section %q", filename, sec.Name)
		}
		entries, err := ctyEntries(sec.Entries)
		if err != nil {
			return nil, fmt.Errorf("parse %s: section %q: %w", filename, sec.Name, err)
		}
		sections[sec.Name] = entries
	}
	return NewSnapshot(sections), nil
}

// ctyEntries converts an object or map value of strings into a Go map.
func ctyEntries(val cty.Value) (map[string]string, error) {
	entries := make(map[string]string)
	if val.IsNull() {
		return entries, nil
	}
	ty := val.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("entries must be an object, got %s", ty.FriendlyName())
	}
	if !val.IsWhollyKnown() {
		return nil, fmt.Errorf("entries must be known values")
	}

	for it := val.ElementIterator(); it.Next(); {
		k, v := it.Element()
		if v.IsNull() || v.Type() != cty.String {
			return nil, fmt.Errorf("entry %q must be a string, got %s", k.AsString(), v.Type().FriendlyName())
		}
		entries[k.AsString()] = v.AsString()
	}
	return entries, nil
}
