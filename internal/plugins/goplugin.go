//go:build (linux || darwin || freebsd) && cgo

package plugins

import (
	"fmt"
	"plugin"
)

// DefaultLoader opens modules with the Go plugin package.
func DefaultLoader() Loader {
	return LoaderFunc(loadGoPlugin)
}

func loadGoPlugin(path string) ([]Candidate, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	sym, err := p.Lookup(SymbolName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModule, err)
	}

	switch fn := sym.(type) {
	case func() []Candidate:
		return fn(), nil
	case *func() []Candidate:
		return (*fn)(), nil
	default:
		return nil, fmt.Errorf("%w: %s has type %T", ErrInvalidModule, SymbolName, sym)
	}
}
