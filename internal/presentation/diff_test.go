package presentation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLineDiff(t *testing.T) {
	oldText := "S a = pkg.A\nS b = pkg.B\n"
	newText := "S a = pkg.A\nS b = pkg.C\nS c = pkg.D\n"

	lines := LineDiff(oldText, newText)
	require.True(t, Changed(lines))

	out := FormatDiff(lines, false)
	require.Equal(t, "- S b = pkg.B\n+ S b = pkg.C\n+ S c = pkg.D\n", out)

	withContext := FormatDiff(lines, true)
	require.Contains(t, withContext, "  S a = pkg.A\n")
}

func TestLineDiff_Unchanged(t *testing.T) {
	lines := LineDiff("x\n", "x\n")
	require.False(t, Changed(lines))
	require.Empty(t, FormatDiff(lines, false))
}

func TestListing(t *testing.T) {
	sections := []SectionDTO{
		FromEntries("A", map[string]string{"k2": "pkg.Y", "k1": "pkg.X"}),
		FromEntries("B", map[string]string{}),
	}
	require.Equal(t, "A k1 = pkg.X\nA k2 = pkg.Y\n", Listing(sections))
}
