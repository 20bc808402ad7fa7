package mapping

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// Encode renders sections as a mapping document in format. Output is stable:
// sections and keys are emitted in sorted order.
func Encode(format string, sections map[string]map[string]string) ([]byte, error) {
	switch format {
	case FormatYAML:
		// yaml.v3 sorts map keys when marshaling.
		return yaml.Marshal(sections)
	case FormatJSON:
		out, err := json.MarshalIndent(sections, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	case FormatHCL:
		return encodeHCL(sections), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func encodeHCL(sections map[string]map[string]string) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()
	for i, name := range slices.Sorted(maps.Keys(sections)) {
		if i > 0 {
			body.AppendNewline()
		}
		attrs := make(map[string]cty.Value, len(sections[name]))
		for k, ref := range sections[name] {
			attrs[k] = cty.StringVal(ref)
		}
		entries := cty.EmptyObjectVal
		if len(attrs) > 0 {
			entries = cty.ObjectVal(attrs)
		}
		block := body.AppendNewBlock("section", []string{name})
		block.Body().SetAttributeValue("entries", entries)
	}
	return f.Bytes()
}

// WriteFile encodes sections in the format implied by path's extension and writes
// them to path, creating the parent directory.
func WriteFile(path string, sections map[string]map[string]string) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	content, err := Encode(format, sections)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, content, 0o600)
}
