package mapping

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidReference is returned for references that have no type name or
// unbalanced brackets.
var ErrInvalidReference = errors.New("invalid type reference")

// Reference is a parsed type reference.
type Reference struct {
	// TypeName is the type as written, e.g. "reports.CSVGenerator[reports.ExecutionReport]".
	TypeName string
	// Module identifies the hosting module or package; empty when not given.
	Module string
	// Version is the Version= attribute; empty when not given.
	Version string
	// Attributes holds every key=value attribute, keys lower-cased.
	Attributes map[string]string
	raw        string
}

// String returns the reference as it was parsed.
func (r Reference) String() string {
	return r.raw
}

// ParseReference parses "<TypeName>[, <Module>[, Key=Value...]]".
// Only commas outside brackets separate parts, so nested generic forms such as
// "Gen`1[[Row, Reports]], Reports" keep their type arguments in TypeName.
// typekey.Simple reduces that TypeName to the key "Gen[Row]".
func ParseReference(s string) (Reference, error) {
	raw := strings.TrimSpace(s)
	parts, err := splitReference(raw)
	if err != nil {
		return Reference{}, err
	}

	ref := Reference{
		TypeName:   strings.TrimSpace(parts[0]),
		Attributes: make(map[string]string),
		raw:        raw,
	}
	if ref.TypeName == "" {
		return Reference{}, fmt.Errorf("%w: missing type name in %q", ErrInvalidReference, s)
	}

	for i, part := range parts[1:] {
		part = strings.TrimSpace(part)
		key, value, isAttr := strings.Cut(part, "=")
		if !isAttr {
			if i != 0 {
				return Reference{}, fmt.Errorf("%w: unexpected part %q in %q", ErrInvalidReference, part, s)
			}
			ref.Module = part
			continue
		}
		ref.Attributes[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	ref.Version = ref.Attributes["version"]

	return ref, nil
}

// splitReference splits on top-level commas and checks bracket balance.
func splitReference(s string) ([]string, error) {
	var (
		parts []string
		depth int
		start int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("%w: unbalanced brackets in %q", ErrInvalidReference, s)
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("%w: unbalanced brackets in %q", ErrInvalidReference, s)
	}
	return append(parts, s[start:]), nil
}
