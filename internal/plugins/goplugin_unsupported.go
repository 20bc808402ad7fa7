//go:build !((linux || darwin || freebsd) && cgo)

package plugins

// DefaultLoader fails every load on platforms without Go plugin support.
// Compiled-in modules (RegisterModule) still work.
func DefaultLoader() Loader {
	return LoaderFunc(func(string) ([]Candidate, error) {
		return nil, ErrPluginsUnsupported
	})
}
