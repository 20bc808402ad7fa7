package plugins

// ModuleExt is the file extension of loadable plugin modules.
const ModuleExt = ".so"

// SymbolName is the function a plugin module exports to describe its types.
// Its type must be func() []plugins.Candidate.
const SymbolName = "PluginTypes"

// Loader opens a module file and returns the candidates it offers.
type Loader interface {
	Load(path string) ([]Candidate, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(path string) ([]Candidate, error)

// Load implements Loader.
func (f LoaderFunc) Load(path string) ([]Candidate, error) {
	return f(path)
}
