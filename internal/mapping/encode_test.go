package mapping

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var encodeFixture = map[string]map[string]string{
	DefaultSection: {
		"SpreadsheetGenerator[ExecutionReport]": "reports.CSVGenerator[reports.ExecutionReport], reports",
		"Formats":                               "reports.Formats, reports",
	},
	"Empty": {},
}

func TestWriteFile_RoundTripsEveryFormat(t *testing.T) {
	for _, name := range []string{"m.yaml", "m.json", "m.hcl"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			require.NoError(t, WriteFile(path, encodeFixture))

			snap, err := LoadFile(path)
			require.NoError(t, err)

			ctx := context.Background()
			got, err := snap.Entries(ctx, DefaultSection)
			require.NoError(t, err)
			require.Equal(t, encodeFixture[DefaultSection], got)

			empty, err := snap.Entries(ctx, "Empty")
			require.NoError(t, err)
			require.Empty(t, empty)
		})
	}
}

func TestEncode_HCLIsSorted(t *testing.T) {
	out, err := Encode(FormatHCL, map[string]map[string]string{
		"B": {"k": "v"},
		"A": {"k": "v"},
	})
	require.NoError(t, err)
	require.Less(t, strings.Index(string(out), `section "A"`), strings.Index(string(out), `section "B"`))
}

func TestEncode_UnknownFormat(t *testing.T) {
	_, err := Encode("toml", encodeFixture)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestWriteFile_UnknownExtension(t *testing.T) {
	err := WriteFile(filepath.Join(t.TempDir(), "m.txt"), encodeFixture)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}
