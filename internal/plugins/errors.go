package plugins

import (
	"errors"
	"fmt"
)

// Scan errors
var (
	ErrModuleLoad         = errors.New("plugin module failed")
	ErrPluginDir          = errors.New("plugin directory cannot be read")
	ErrPluginsUnsupported = errors.New("plugin loading is not supported on this platform")
	ErrInvalidModule      = errors.New("plugin module does not export " + SymbolName)
)

// ModuleError reports a module that could not be loaded, or a candidate in it that
// could not be constructed. It matches ErrModuleLoad.
type ModuleError struct {
	Path      string
	Candidate string // empty when the module itself failed to load
	Err       error
}

func (e *ModuleError) Error() string {
	if e.Candidate != "" {
		return fmt.Sprintf("plugin module %s: candidate %s: %v", e.Path, e.Candidate, e.Err)
	}
	return fmt.Sprintf("plugin module %s: %v", e.Path, e.Err)
}

func (e *ModuleError) Unwrap() []error {
	return []error{ErrModuleLoad, e.Err}
}

// ModuleErrors extracts every *ModuleError from a joined scan error.
func ModuleErrors(err error) []*ModuleError {
	if err == nil {
		return nil
	}
	var out []*ModuleError
	if me, ok := err.(*ModuleError); ok {
		return append(out, me)
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, ModuleErrors(e)...)
		}
	}
	return out
}
