package plugins

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type Exporter interface {
	Export() string
}

type jsonExporter struct{}

func (*jsonExporter) Export() string     { return "json" }
func (*jsonExporter) PluginName() string { return "json-exporter" }

type plainExporter struct{}

func (*plainExporter) Export() string { return "plain" }

type markerOnly struct{}

func (*markerOnly) PluginName() string { return "marker-only" }

type verboseExporter struct{}

func (*verboseExporter) Export() string     { return "verbose" }
func (*verboseExporter) PluginName() string { return "verbose-exporter" }
func (*verboseExporter) String() string     { return "verbose" }

func newJSONExporter() *jsonExporter       { return &jsonExporter{} }
func newPlainExporter() *plainExporter     { return &plainExporter{} }
func newMarkerOnly() *markerOnly           { return &markerOnly{} }
func newVerboseExporter() *verboseExporter { return &verboseExporter{} }

// fakeLoader serves candidates by module file name and records what it was asked for.
type fakeLoader struct {
	modules map[string][]Candidate
	fail    map[string]error
	loaded  []string
}

func (f *fakeLoader) Load(path string) ([]Candidate, error) {
	name := filepath.Base(path)
	f.loaded = append(f.loaded, name)
	if err, ok := f.fail[name]; ok {
		return nil, err
	}
	return f.modules[name], nil
}

func pluginDir(t *testing.T, files ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("module"), 0644))
	}
	return dir
}

func TestScan_OnlyCapabilityAndMarker(t *testing.T) {
	dir := pluginDir(t, "exporters.so")
	loader := &fakeLoader{modules: map[string][]Candidate{
		"exporters.so": {TypeOf(newJSONExporter), TypeOf(newPlainExporter)},
	}}
	s := NewScanner(WithLoader(loader))

	got, err := Scan[Exporter](context.Background(), s, dir)

	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "json", got[0].Export())
}

func TestScan_EmptyDirectory(t *testing.T) {
	s := NewScanner(WithLoader(&fakeLoader{}))

	got, err := Scan[Exporter](context.Background(), s, t.TempDir())

	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestScan_UnreadableDirectory(t *testing.T) {
	s := NewScanner(WithLoader(&fakeLoader{}))

	got, err := Scan[Exporter](context.Background(), s, filepath.Join(t.TempDir(), "missing"))

	require.ErrorIs(t, err, ErrPluginDir)
	require.Empty(t, got)
}

func TestScan_OnlyModuleFilesDirectlyInDir(t *testing.T) {
	dir := pluginDir(t, "a.so", "b.SO", "readme.txt", "c.so.bak")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested.so"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested.so", "d.so"), nil, 0644))
	loader := &fakeLoader{}
	s := NewScanner(WithLoader(loader))

	_, err := Scan[Exporter](context.Background(), s, dir)

	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a.so", "b.SO"}, loader.loaded)
}

func TestScan_MarkerAloneIsNotEnough(t *testing.T) {
	dir := pluginDir(t, "m.so")
	loader := &fakeLoader{modules: map[string][]Candidate{
		"m.so": {TypeOf(newMarkerOnly), TypeOf(newPlainExporter)},
	}}
	s := NewScanner(WithLoader(loader))

	got, err := Scan[Exporter](context.Background(), s, dir)

	require.NoError(t, err)
	require.Empty(t, got)
}

func TestScan_ExtraInterfacesStillEligible(t *testing.T) {
	dir := pluginDir(t, "m.so")
	loader := &fakeLoader{modules: map[string][]Candidate{
		"m.so": {TypeOf(newVerboseExporter)},
	}}
	s := NewScanner(WithLoader(loader))

	got, err := Scan[Exporter](context.Background(), s, dir)

	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "verbose", got[0].Export())
}

func TestScan_CapabilityIsMarker(t *testing.T) {
	dir := pluginDir(t, "m.so")
	loader := &fakeLoader{modules: map[string][]Candidate{
		"m.so": {TypeOf(newJSONExporter), TypeOf(newMarkerOnly)},
	}}
	s := NewScanner(WithLoader(loader))

	got, err := Scan[Plugin](context.Background(), s, dir)

	require.NoError(t, err)
	require.Empty(t, got, "the intersection with {Plugin, Plugin} never has two elements")
}

func TestScan_NonInterfaceCapability(t *testing.T) {
	s := NewScanner(WithLoader(&fakeLoader{}))

	_, err := Scan[*jsonExporter](context.Background(), s, t.TempDir())

	require.ErrorContains(t, err, "must be an interface type")
}

func TestScan_IsolatesModuleFailures(t *testing.T) {
	dir := pluginDir(t, "a.so", "b.so", "c.so")
	loader := &fakeLoader{
		modules: map[string][]Candidate{
			"b.so": {TypeOf(newJSONExporter)},
			"c.so": {
				{Type: reflect.TypeFor[*verboseExporter](), New: func() (any, error) { panic("init failed") }},
				TypeOf(newVerboseExporter),
			},
		},
		fail: map[string]error{"a.so": errors.New("undefined symbol")},
	}
	s := NewScanner(WithLoader(loader))

	got, err := Scan[Exporter](context.Background(), s, dir)

	require.Len(t, got, 2)
	require.ErrorIs(t, err, ErrModuleLoad)

	failures := ModuleErrors(err)
	require.Len(t, failures, 2)
	require.Equal(t, "a.so", filepath.Base(failures[0].Path))
	require.Empty(t, failures[0].Candidate)
	require.ErrorContains(t, failures[0], "undefined symbol")
	require.Equal(t, "c.so", filepath.Base(failures[1].Path))
	require.Equal(t, "verboseExporter", failures[1].Candidate)
	require.ErrorContains(t, failures[1], "panicked: init failed")
}

func TestScan_StrictAbortsOnFirstFailure(t *testing.T) {
	dir := pluginDir(t, "a.so", "b.so")
	loader := &fakeLoader{
		modules: map[string][]Candidate{"b.so": {TypeOf(newJSONExporter)}},
		fail:    map[string]error{"a.so": errors.New("bad ELF header")},
	}
	s := NewScanner(WithLoader(loader), WithStrict(true))

	got, err := Scan[Exporter](context.Background(), s, dir)

	require.Nil(t, got)
	var me *ModuleError
	require.ErrorAs(t, err, &me)
	require.Equal(t, "a.so", filepath.Base(me.Path))
	require.Equal(t, []string{"a.so"}, loader.loaded)
}

func TestScan_StrictAbortsOnConstructionFailure(t *testing.T) {
	dir := pluginDir(t, "a.so")
	loader := &fakeLoader{modules: map[string][]Candidate{
		"a.so": {TypeOfErr(func() (*jsonExporter, error) { return nil, errors.New("no config") })},
	}}
	s := NewScanner(WithLoader(loader), WithStrict(true))

	got, err := Scan[Exporter](context.Background(), s, dir)

	require.Nil(t, got)
	require.ErrorIs(t, err, ErrModuleLoad)
	require.ErrorContains(t, err, "no config")
}

func TestScan_NilInstance(t *testing.T) {
	dir := pluginDir(t, "a.so")
	loader := &fakeLoader{modules: map[string][]Candidate{
		"a.so": {TypeOf(func() *jsonExporter { return nil })},
	}}
	s := NewScanner(WithLoader(loader))

	got, err := Scan[Exporter](context.Background(), s, dir)

	require.Empty(t, got)
	require.ErrorIs(t, err, errNilInstance)
}

func TestScan_CanceledContext(t *testing.T) {
	dir := pluginDir(t, "a.so")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	loader := &fakeLoader{}
	s := NewScanner(WithLoader(loader))

	_, err := Scan[Exporter](ctx, s, dir)

	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, loader.loaded)
}

func TestScan_DefaultsToExecutableDir(t *testing.T) {
	loader := &fakeLoader{}
	s := NewScanner(WithLoader(loader))

	_, err := Scan[Exporter](context.Background(), s, "")

	require.NoError(t, err)
}

func TestScanRegistered(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("builtin", TypeOf(newJSONExporter), TypeOf(newPlainExporter)))
	require.NoError(t, reg.Register("extras", TypeOf(newVerboseExporter), TypeOf(newMarkerOnly)))
	s := NewScanner(WithRegistry(reg))

	got, err := ScanRegistered[Exporter](context.Background(), s)

	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "json", got[0].Export())
	require.Equal(t, "verbose", got[1].Export())

	found, err := s.ScanModules(context.Background(), reflect.TypeFor[Exporter]())
	require.NoError(t, err)
	require.Equal(t, "builtin", found[0].Module)
	require.Equal(t, "json-exporter", found[0].Name)
	require.Equal(t, "jsonExporter", found[0].Type)
}

func TestScanRegistered_StrictReturnsNoInstances(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("builtin",
		TypeOf(newJSONExporter),
		TypeOfErr(func() (*jsonExporter, error) { return nil, errors.New("no config") }),
	))
	s := NewScanner(WithRegistry(reg), WithStrict(true))

	got, err := ScanRegistered[Exporter](context.Background(), s)

	require.Nil(t, got)
	require.ErrorIs(t, err, ErrModuleLoad)
}

func TestRegistry_DuplicateModule(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("builtin"))

	err := reg.Register("builtin")

	require.ErrorContains(t, err, `"builtin" already registered`)
	require.Len(t, reg.Modules(), 1)
}

func TestEligible(t *testing.T) {
	exporter := reflect.TypeFor[Exporter]()

	tests := []struct {
		name       string
		typ        reflect.Type
		capability reflect.Type
		want       bool
	}{
		{name: "both", typ: reflect.TypeFor[*jsonExporter](), capability: exporter, want: true},
		{name: "value receiver set lacks methods", typ: reflect.TypeFor[jsonExporter](), capability: exporter, want: false},
		{name: "capability only", typ: reflect.TypeFor[*plainExporter](), capability: exporter, want: false},
		{name: "marker only", typ: reflect.TypeFor[*markerOnly](), capability: exporter, want: false},
		{name: "three interfaces", typ: reflect.TypeFor[*verboseExporter](), capability: exporter, want: true},
		{name: "capability is marker", typ: reflect.TypeFor[*jsonExporter](), capability: pluginType, want: false},
		{name: "nil type", typ: nil, capability: exporter, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, eligible(tt.typ, tt.capability))
		})
	}
}
