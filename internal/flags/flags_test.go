package flags

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/implreg/internal/log"
)

func TestRegistry_Enabled(t *testing.T) {
	tests := []struct {
		name     string
		registry *Registry
		flag     string
		expected bool
	}{
		{
			name:     "known flag set to true returns true",
			registry: New(map[string]bool{FlagStrictPluginScan: true}),
			flag:     FlagStrictPluginScan,
			expected: true,
		},
		{
			name:     "known flag set to false returns false",
			registry: New(map[string]bool{FlagHTTPResolve: false}),
			flag:     FlagHTTPResolve,
			expected: false,
		},
		{
			name:     "absent flag returns false",
			registry: New(map[string]bool{FlagStrictPluginScan: true}),
			flag:     FlagHTTPResolve,
			expected: false,
		},
		{
			name:     "nil registry returns false",
			registry: nil,
			flag:     FlagStrictPluginScan,
			expected: false,
		},
		{
			name:     "nil flags map returns false",
			registry: New(nil),
			flag:     FlagStrictPluginScan,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.registry.Enabled(tt.flag))
		})
	}
}

func TestRegistry_IsReadOnly(t *testing.T) {
	input := map[string]bool{FlagStrictPluginScan: true}
	r := New(input)

	input[FlagStrictPluginScan] = false
	all := r.All()
	all[FlagHTTPResolve] = true

	require.True(t, r.Enabled(FlagStrictPluginScan))
	require.False(t, r.Enabled(FlagHTTPResolve))
}

func TestRegistry_All_NilRegistry(t *testing.T) {
	var r *Registry
	require.Equal(t, map[string]bool{}, r.All())
}

func TestNew_WarnsOnUnknownFlag(t *testing.T) {
	var buf bytes.Buffer
	log.InitWriter(&buf)
	t.Cleanup(log.Reset)

	New(map[string]bool{"strict-plugins-scan": true})

	require.Contains(t, buf.String(), "unknown feature flag in config flag=strict-plugins-scan")
}
