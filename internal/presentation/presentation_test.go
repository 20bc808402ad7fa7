package presentation

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/implreg/internal/catalog"
	"github.com/zjrosen/implreg/internal/plugins"
	"github.com/zjrosen/implreg/internal/resolver"
)

func TestFromEntries(t *testing.T) {
	dto := FromEntries("Implementations", map[string]string{
		"b": "reports.CSVGenerator, reports, Version=1.2.0",
		"a": "pkg.T",
		"c": "pkg.T[, broken",
	})

	require.Equal(t, "Implementations", dto.Name)
	require.Len(t, dto.Entries, 3)
	require.Equal(t, "a", dto.Entries[0].Key, "entries sorted by key")

	b := dto.Entries[1]
	require.Equal(t, "reports.CSVGenerator", b.TypeName)
	require.Equal(t, "reports", b.Module)
	require.Equal(t, "1.2.0", b.Version)

	require.NotEmpty(t, dto.Entries[2].Error)
}

func TestFromRegistrations(t *testing.T) {
	c := catalog.New()
	c.MustRegister(catalog.Registration{
		Name:   "pkg.Thing",
		Module: "pkg",
		New:    func() (any, error) { return struct{}{}, nil },
	})

	dtos := FromRegistrations(c.List())
	require.Len(t, dtos, 1)
	require.Equal(t, "pkg.Thing", dtos[0].Name)
	require.Equal(t, []string{"default"}, dtos[0].Strategies)
}

func TestFromPlugins(t *testing.T) {
	dtos := FromPlugins([]plugins.Found{{Module: "m.so", Type: "JSONExporter", Name: "json"}})
	require.Equal(t, []PluginDTO{{Module: "m.so", Type: "JSONExporter", Name: "json"}}, dtos)
}

func TestFromResolveError(t *testing.T) {
	dto := ResolveDTO{Section: "S", Key: "k", Strategy: "default"}
	require.Equal(t, dto, FromResolveError(dto, nil))

	got := FromResolveError(dto, &resolver.Error{Kind: resolver.KindKeyNotFound, Section: "S", Key: "k", Err: errors.New("absent")})
	require.Equal(t, "key_not_found", got.ErrorKind)
	require.NotEmpty(t, got.Error)

	got = FromResolveError(dto, errors.New("plain"))
	require.Empty(t, got.ErrorKind)
	require.Equal(t, "plain", got.Error)
}

func TestFormatter_JSON(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf)

	require.NoError(t, f.FormatSections([]SectionDTO{FromEntries("S", map[string]string{"k": "pkg.T"})}))

	var decoded []SectionDTO
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "pkg.T", decoded[0].Entries[0].Reference)
}

func TestFormatter_SectionsTable(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf)

	sections := []SectionDTO{
		FromEntries("Implementations", map[string]string{"relatório": "reports.CSVGenerator, reports"}),
		FromEntries("Alternate", map[string]string{"x": "pkg.X"}),
	}
	require.NoError(t, f.FormatSectionsTable(sections))

	out := buf.String()
	require.Contains(t, out, "Implementations")
	require.Contains(t, out, "KEY")
	require.Contains(t, out, "relatório")
	require.Contains(t, out, "reports.CSVGenerator")
	require.Contains(t, out, "Alternate")
}

func TestTable_AlignsWideRunes(t *testing.T) {
	tbl := Table{
		Headers: []string{"KEY", "TYPE"},
		Rows: [][]string{
			{"日本", "A"},
			{"ab", "B"},
		},
	}
	lines := strings.Split(strings.TrimSuffix(stripStyles(tbl.Render()), "\n"), "\n")
	require.Len(t, lines, 3)
	// "日本" is four cells wide, so the TYPE column starts at the same cell in every row.
	require.Equal(t, "日本  A", lines[1])
	require.Equal(t, "ab    B", lines[2])
}

func TestTable_TruncatesLongCells(t *testing.T) {
	tbl := Table{Headers: []string{"K", "V"}, Rows: [][]string{{strings.Repeat("x", 100), "v"}}}
	out := stripStyles(tbl.Render())
	require.Contains(t, out, "…")
	require.NotContains(t, out, strings.Repeat("x", MaxCellWidth))
}

func TestFormatter_RegistrationsTable(t *testing.T) {
	var buf bytes.Buffer
	err := NewFormatter(&buf).FormatRegistrationsTable([]RegistrationDTO{
		{Name: "pkg.T", Module: "pkg", Strategies: []string{"default", "singleton"}},
	})
	require.NoError(t, err)
	require.Contains(t, buf.String(), "default; singleton")
}

// stripStyles drops ANSI escapes in case the renderer detected color support.
func stripStyles(s string) string {
	var sb strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			inEscape = false
		case !inEscape:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
