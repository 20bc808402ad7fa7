// Package typekey derives the canonical lookup key for a Go type.
//
// Keys are what mapping documents are written against, so they favour short readable
// names over import paths:
//
//	int16                                  -> short
//	*reports.CSVGenerator                  -> CSVGenerator
//	reports.Generator[reports.Execution]   -> Generator[Execution]
//	Pair[int64,map[string]x/y.Z]           -> Pair[long, map[string]Z]
//	Box[func(x/y.Row) int64]               -> Box[func(Row) long]
//	Gen`1[[Row, Reports]]                  -> Gen[Row]
//
// Normalization is a pure function of the type; it never fails.
package typekey

import (
	"math/big"
	"reflect"
	"strings"
)

// primitives maps predeclared type names to their fixed tokens.
var primitives = map[string]string{
	"int":     "int",
	"int32":   "int",
	"int16":   "short",
	"uint8":   "byte",
	"byte":    "byte",
	"bool":    "bool",
	"int64":   "long",
	"float32": "float",
	"float64": "double",
	"string":  "string",
}

// decimalType is the type that normalizes to the "decimal" token.
var decimalType = reflect.TypeFor[big.Rat]()

// Of returns the key for T. Interface types are used as is, so Of[io.Reader]() is "Reader".
func Of[T any]() string {
	return Normalize(reflect.TypeFor[T]())
}

// Normalize returns the canonical key for t. A nil type normalizes to "".
func Normalize(t reflect.Type) string {
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer && t.Name() == "" {
		t = t.Elem()
	}
	if t == decimalType {
		return "decimal"
	}
	if t.Name() != "" && t.PkgPath() == "" {
		if tok, ok := primitives[t.Name()]; ok {
			return tok
		}
	}
	if t.Name() != "" {
		// Name() is unqualified except for generic arguments.
		return Simple(t.Name())
	}
	return Simple(t.String())
}

// Simple normalizes a type name as printed by reflect (or written by hand), for example
// "github.com/acme/reports.Generator[github.com/acme/reports.Row]". It applies the same
// rules as Normalize: package qualifiers are dropped, predeclared names become tokens and
// generic arguments are normalized recursively and joined with ", ". Names carrying an
// arity suffix ("Gen`1[[Row, Reports]]") take the type name of each bracketed argument.
func Simple(name string) string {
	return parse(strings.TrimSpace(name))
}

func parse(s string) string {
	switch {
	case s == "":
		return ""
	case strings.HasPrefix(s, "*"):
		return parse(s[1:])
	case strings.HasPrefix(s, "[]"):
		return "[]" + parse(s[2:])
	case strings.HasPrefix(s, "["):
		end := closing(s, 0)
		if end < 0 {
			return unqualify(s)
		}
		return s[:end+1] + parse(s[end+1:])
	case strings.HasPrefix(s, "map["):
		end := closing(s, 3)
		if end < 0 {
			return unqualify(s)
		}
		return "map[" + parse(s[4:end]) + "]" + parse(s[end+1:])
	case strings.HasPrefix(s, "chan<- "), strings.HasPrefix(s, "<-chan "):
		return s[:7] + parse(s[7:])
	case strings.HasPrefix(s, "chan "):
		return "chan " + parse(s[5:])
	case strings.HasPrefix(s, "func("), strings.HasPrefix(s, "struct {"), strings.HasPrefix(s, "interface {"):
		return tokens(s)
	}

	open := strings.IndexByte(s, '[')
	if open < 0 {
		return token(s)
	}
	end := closing(s, open)
	if end != len(s)-1 {
		return unqualify(s)
	}
	base := s[:open]
	arity := strings.IndexByte(base, '`')
	if arity >= 0 {
		base = base[:arity]
	}
	args := splitTopLevel(s[open+1 : end])
	for i, a := range args {
		a = strings.TrimSpace(a)
		if arity >= 0 {
			a = qualifiedArg(a)
		}
		args[i] = parse(a)
	}
	return unqualify(base) + "[" + strings.Join(args, ", ") + "]"
}

// qualifiedArg reduces one argument of an arity-suffixed name such as
// "Gen`1[[Row, Reports]]" to its type name: "[Row, Reports]" -> "Row".
func qualifiedArg(a string) string {
	if !strings.HasPrefix(a, "[") || closing(a, 0) != len(a)-1 {
		return a
	}
	return strings.TrimSpace(splitTopLevel(a[1 : len(a)-1])[0])
}

// token maps a single, non generic name.
func token(s string) string {
	if tok, ok := primitives[s]; ok {
		return tok
	}
	if s == "math/big.Rat" || s == "big.Rat" {
		return "decimal"
	}
	return unqualify(s)
}

// tokens normalizes every identifier inside a literal type such as
// "func(github.com/a/b.Row, int64) string", leaving its punctuation, keywords and
// quoted struct tags as they are.
func tokens(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '"' || c == '`':
			end := quoteEnd(s, i)
			b.WriteString(s[i:end])
			i = end
		case isIdentStart(c):
			j := i + 1
			for j < len(s) && isPathByte(s[j]) {
				j++
			}
			if j < len(s) && s[j] == '[' {
				if end := closing(s, j); end > 0 {
					b.WriteString(parse(s[i : end+1]))
					i = end + 1
					continue
				}
			}
			b.WriteString(token(s[i:j]))
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// quoteEnd returns the index just past the string literal opening at s[i].
func quoteEnd(s string, i int) int {
	q := s[i]
	for j := i + 1; j < len(s); j++ {
		switch {
		case s[j] == '\\' && q == '"':
			j++
		case s[j] == q:
			return j + 1
		}
	}
	return len(s)
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// isPathByte reports whether c can continue a possibly path-qualified name.
func isPathByte(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9' || c == '.' || c == '/' || c == '-'
}

// unqualify drops an import path qualifier: "github.com/a/b.Type" -> "Type".
func unqualify(s string) string {
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// closing returns the index of the ']' matching the '[' at open, or -1.
func closing(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits on commas that are not nested inside brackets or parentheses.
func splitTopLevel(s string) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
