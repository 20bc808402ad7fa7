package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/implreg/internal/config"
)

// syncBuffer is a bytes.Buffer safe for a concurrent writer and reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatch_PrintsDiffOnChange(t *testing.T) {
	path := initProject(t)
	require.NoError(t, config.SetValue(path, "mapping.watch_debounce", "20ms"))
	doc := filepath.Join(filepath.Dir(path), "mappings.yaml")

	resetCommands(rootCmd)
	cfg, cfgPath = config.Config{}, ""
	out := &syncBuffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(&syncBuffer{})
	rootCmd.SetArgs([]string{"watch", "--config", path})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rootCmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "watching") },
		2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(doc, []byte(`Implementations:
  Exporter: 'reports.YAMLExporter, reports'
`), 0o600))

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "+ Implementations Exporter = reports.YAMLExporter, reports")
	}, 2*time.Second, 10*time.Millisecond)
	require.Contains(t, out.String(), "- Alternate SpreadsheetGenerator[ExecutionReport]")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "watch did not stop")
	}
}
