package catalog

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func prepared(t *testing.T, reg Registration) *Registration {
	t.Helper()
	require.NoError(t, reg.prepare())
	return &reg
}

func TestConstruct_Default(t *testing.T) {
	reg := prepared(t, csvRegistration())

	v, err := reg.Construct()

	require.NoError(t, err)
	require.Equal(t, &csvWriter{delim: ","}, v)
}

func TestConstruct_NewInstanceEveryCall(t *testing.T) {
	reg := prepared(t, csvRegistration())

	a, err := reg.Construct()
	require.NoError(t, err)
	b, err := reg.Construct()
	require.NoError(t, err)

	require.NotSame(t, a, b)
}

func TestConstruct_MatchesByArity(t *testing.T) {
	reg := prepared(t, csvRegistration())
	var buf bytes.Buffer

	one, err := reg.Construct(";")
	require.NoError(t, err)
	require.Equal(t, ";", one.(*csvWriter).delim)

	two, err := reg.Construct("\t", &buf)
	require.NoError(t, err)
	require.Equal(t, "\t", two.(*csvWriter).delim)
	require.Same(t, &buf, two.(*csvWriter).out)
}

func TestConstruct_UntypedNilForNillableParam(t *testing.T) {
	reg := prepared(t, csvRegistration())

	v, err := reg.Construct("|", nil)

	require.NoError(t, err)
	require.Nil(t, v.(*csvWriter).out)
}

func TestConstruct_NoMatch(t *testing.T) {
	reg := prepared(t, csvRegistration())

	tests := []struct {
		name string
		args []any
	}{
		{name: "wrong type", args: []any{42}},
		{name: "too many", args: []any{",", nil, "extra"}},
		{name: "nil for non-nillable", args: []any{nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := reg.Construct(tt.args...)
			require.ErrorIs(t, err, ErrNoMatchingConstructor)
			require.Nil(t, v)
		})
	}
}

func TestConstruct_ConstructorError(t *testing.T) {
	reg := prepared(t, csvRegistration())

	_, err := reg.Construct("", &bytes.Buffer{})

	require.EqualError(t, err, "empty delimiter")
}

func TestConstruct_NoDefault(t *testing.T) {
	reg := prepared(t, Registration{
		Name:     "reports.Registry",
		Instance: Singleton(getInstance),
	})

	_, err := reg.Construct()

	require.ErrorIs(t, err, ErrNoDefault)
}

func TestConstruct_ZeroArgConstructorStandsInForDefault(t *testing.T) {
	reg := prepared(t, Registration{
		Name:         "reports.CSVWriter",
		Constructors: []any{newCSVWriter},
	})

	v, err := reg.Construct()

	require.NoError(t, err)
	require.IsType(t, &csvWriter{}, v)
}

func TestConstruct_RecoversPanic(t *testing.T) {
	reg := prepared(t, Registration{
		Name: "reports.Broken",
		New:  func() (any, error) { panic("boom") },
	})

	v, err := reg.Construct()

	require.ErrorIs(t, err, ErrConstructorPanic)
	require.Contains(t, err.Error(), "boom")
	require.Nil(t, v)
}

func TestConstruct_NilResult(t *testing.T) {
	reg := prepared(t, Registration{
		Name: "reports.Nothing",
		New:  Default(func() *csvWriter { return nil }),
	})

	_, err := reg.Construct()

	require.ErrorIs(t, err, ErrNilInstance)
}

func TestGetInstance(t *testing.T) {
	reg := prepared(t, Registration{
		Name:     "reports.Registry",
		Instance: Singleton(getInstance),
	})

	a, err := reg.GetInstance()
	require.NoError(t, err)
	b, err := reg.GetInstance()
	require.NoError(t, err)

	require.Same(t, theRegistry, a)
	require.Same(t, a, b)
}

func TestGetInstance_Absent(t *testing.T) {
	reg := prepared(t, csvRegistration())

	v, err := reg.GetInstance()

	require.ErrorIs(t, err, ErrNoInstance)
	require.Nil(t, v)
}

func TestDefaultErr(t *testing.T) {
	failing := errors.New("no config")
	reg := prepared(t, Registration{
		Name: "reports.Configured",
		New:  DefaultErr(func() (*csvWriter, error) { return nil, failing }),
	})

	_, err := reg.Construct()

	require.ErrorIs(t, err, failing)
}

func TestStrategies(t *testing.T) {
	reg := prepared(t, Registration{
		Name:         "reports.Registry",
		New:          Default(newCSVWriter),
		Constructors: []any{func(string, int64) *csvWriter { return nil }},
		Instance:     Singleton(getInstance),
	})

	require.Equal(t, []string{"default", "ctor(string, long)", "singleton"}, reg.Strategies())
	require.True(t, reg.HasDefault())
	require.True(t, reg.HasInstance())
}
