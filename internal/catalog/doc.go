// Package catalog is the explicit type registry behind resolution.
//
// Mapping documents name concrete types by string, but Go cannot load a type from its
// name at run time. Instead every resolvable type is registered up front with the
// construction strategies it supports:
//
//   - New: default construction, no arguments
//   - Constructors: typed funcs selected by argument list (one result, or result + error)
//   - Instance: the type's own singleton factory, its GetInstance
//
// A Registration is addressed by its simple name (normalized with typekey.Simple) plus
// its Go package path. Load resolves a parsed mapping.Reference against the catalog,
// honouring the optional module and Version= constraint.
//
// Registrations usually come from a package-level Register(*catalog.Catalog) function:
//
//	func Register(c *catalog.Catalog) error {
//	    return c.Register(catalog.Registration{
//	        Name:   "reports.CSVGenerator",
//	        Module: "github.com/zjrosen/implreg/internal/reports",
//	        New:    catalog.Default(NewCSVGenerator),
//	    })
//	}
package catalog
