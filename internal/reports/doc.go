// Package reports holds the built-in implementations the registry resolves out of
// the box: spreadsheet generators for execution reports, a formats singleton, and
// exporters discoverable as plugins.
package reports
