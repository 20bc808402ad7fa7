// Package plugins discovers implementations of a capability in plugin modules.
//
// A candidate type is accepted for capability C when it implements both C and the
// Plugin marker. Go cannot enumerate the types inside a loaded module, so each module
// describes its types explicitly with a list of Candidates:
//
//	// package main, built with -buildmode=plugin
//	func PluginTypes() []plugins.Candidate {
//	    return []plugins.Candidate{
//	        plugins.TypeOf(NewJSONExporter),
//	    }
//	}
//
// Modules come from two places:
//   - files with the ModuleExt extension directly inside a directory, opened with
//     a Loader (the Go plugin package where the platform supports it)
//   - modules compiled into the binary with RegisterModule
//
// A module that fails to load, or a candidate whose constructor fails, is skipped and
// reported as a *ModuleError in the joined error returned next to the results. The
// strict option (flag strict-plugin-scan) aborts at the first failure instead.
package plugins
