// Package flags provides read-only feature flags loaded from configuration.
// Unknown flags are disabled.
package flags

import (
	"maps"
	"slices"

	"github.com/zjrosen/implreg/internal/log"
)

const (
	// FlagStrictPluginScan aborts a plugin scan at the first module that fails to
	// load or construct, instead of skipping it and reporting it with the results.
	FlagStrictPluginScan = "strict-plugin-scan"

	// FlagHTTPResolve exposes /v1/resolve/{key} on the serve command. Resolving
	// constructs objects, so the route is off unless asked for.
	FlagHTTPResolve = "http-resolve"
)

// Known lists every flag the binary reads.
var Known = []string{FlagStrictPluginScan, FlagHTTPResolve}

// Registry holds feature flag state. It is read-only after New.
type Registry struct {
	flags map[string]bool
}

// New creates a Registry from a config map. A nil map disables every flag.
func New(flags map[string]bool) *Registry {
	r := &Registry{flags: make(map[string]bool, len(flags))}
	maps.Copy(r.flags, flags)
	for name := range flags {
		if !slices.Contains(Known, name) {
			log.Warn(log.CatConfig, "unknown feature flag in config", "flag", name)
		}
	}
	log.Debug(log.CatConfig, "feature flags initialized", "count", len(flags), "flags", r.All())
	return r
}

// Enabled reports whether name is on. It is nil-safe and false for unknown flags.
func (r *Registry) Enabled(name string) bool {
	if r == nil {
		return false
	}
	return r.flags[name]
}

// All returns a copy of all flags.
func (r *Registry) All() map[string]bool {
	if r == nil {
		return make(map[string]bool)
	}
	return maps.Clone(r.flags)
}
