// Package mapping is the read side of the implementation mapping: named sections of
// key -> type reference entries.
//
// Keys are either canonical type keys (see package typekey) or arbitrary strings chosen
// by the caller. Values are type references:
//
//	<TypeName>[, <ModuleIdentity>[, Version=..., Culture=..., PublicKeyToken=...]]
//
// The package does not interpret references beyond ParseReference; turning a reference
// into a constructor is the catalog's job.
//
// # Sources
//
// Source is the only contract the resolver depends on. Implementations in this module:
//   - Snapshot: immutable in-memory table, built in code or by the document loaders
//   - FileSource: a YAML, JSON or HCL document on disk, reloadable
//   - sqlite.MappingRepository (internal/infrastructure/sqlite): queried on every lookup
//
// # Documents
//
// YAML / JSON:
//
//	Implementations:
//	  "SpreadsheetGenerator[ExecutionReport]": "reports.CSVGenerator, github.com/zjrosen/implreg/internal/reports"
//
// HCL:
//
//	section "Implementations" {
//	  entries = {
//	    "SpreadsheetGenerator[ExecutionReport]" = "reports.CSVGenerator"
//	  }
//	}
package mapping
