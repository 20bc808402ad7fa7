package mapping

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSnapshot() *Snapshot {
	return NewSnapshot(map[string]map[string]string{
		DefaultSection: {
			"IGeradorPlanilha[RelatorioExecucaoData]": "reports.CSVGenerator, github.com/zjrosen/implreg/internal/reports",
			"audit":                                   "reports.TSVGenerator",
		},
		"Staging": {
			"audit": "reports.CSVGenerator",
		},
	})
}

func TestSnapshot_Lookup(t *testing.T) {
	snap := newTestSnapshot()

	ref, err := snap.Lookup(context.Background(), DefaultSection, "IGeradorPlanilha[RelatorioExecucaoData]")

	require.NoError(t, err)
	require.Equal(t, "reports.CSVGenerator, github.com/zjrosen/implreg/internal/reports", ref)
}

func TestSnapshot_SectionsAreIndependent(t *testing.T) {
	snap := newTestSnapshot()

	prod, err := snap.Lookup(context.Background(), DefaultSection, "audit")
	require.NoError(t, err)
	staging, err := snap.Lookup(context.Background(), "Staging", "audit")
	require.NoError(t, err)

	require.Equal(t, "reports.TSVGenerator", prod)
	require.Equal(t, "reports.CSVGenerator", staging)
}

func TestSnapshot_Lookup_MissingSection(t *testing.T) {
	snap := newTestSnapshot()

	_, err := snap.Lookup(context.Background(), "Nope", "audit")

	require.ErrorIs(t, err, ErrSectionMissing)
}

func TestSnapshot_Lookup_MissingKey(t *testing.T) {
	snap := newTestSnapshot()

	_, err := snap.Lookup(context.Background(), DefaultSection, "nope")

	require.ErrorIs(t, err, ErrKeyNotFound)
	require.NotErrorIs(t, err, ErrSectionMissing)
}

func TestSnapshot_EntriesReturnsCopy(t *testing.T) {
	snap := newTestSnapshot()

	entries, err := snap.Entries(context.Background(), "Staging")
	require.NoError(t, err)
	entries["audit"] = "mutated"

	ref, err := snap.Lookup(context.Background(), "Staging", "audit")
	require.NoError(t, err)
	require.Equal(t, "reports.CSVGenerator", ref)
}

func TestSnapshot_IsolatedFromInput(t *testing.T) {
	input := map[string]map[string]string{"S": {"k": "v"}}
	snap := NewSnapshot(input)
	input["S"]["k"] = "changed"

	ref, err := snap.Lookup(context.Background(), "S", "k")
	require.NoError(t, err)
	require.Equal(t, "v", ref)
}

func TestSnapshot_Sections(t *testing.T) {
	snap := newTestSnapshot()

	sections, err := snap.Sections(context.Background())

	require.NoError(t, err)
	require.Equal(t, []string{DefaultSection, "Staging"}, sections)
	require.Equal(t, 3, snap.Len())
}

func TestSnapshot_EmptySectionExists(t *testing.T) {
	snap := NewSnapshot(map[string]map[string]string{"Empty": nil})

	entries, err := snap.Entries(context.Background(), "Empty")
	require.NoError(t, err)
	require.Empty(t, entries)

	_, err = snap.Lookup(context.Background(), "Empty", "k")
	require.ErrorIs(t, err, ErrKeyNotFound)
}
