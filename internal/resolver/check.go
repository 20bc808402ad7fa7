package resolver

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/zjrosen/implreg/internal/mapping"
)

// CheckResult reports whether one mapping entry loads from the catalog.
type CheckResult struct {
	Key        string   `json:"key"`
	Reference  string   `json:"reference"`
	Type       string   `json:"type,omitempty"`
	Strategies []string `json:"strategies,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// OK reports whether the entry is resolvable.
func (c CheckResult) OK() bool {
	return c.Error == ""
}

// Check loads every entry of the section without constructing anything.
// Results are sorted by key.
func (r *Resolver) Check(ctx context.Context) ([]CheckResult, error) {
	entries, err := r.source.Entries(ctx, r.section)
	if err != nil {
		kind := KindSource
		if errors.Is(err, mapping.ErrSectionMissing) {
			kind = KindSectionMissing
		}
		return nil, &Error{Kind: kind, Strategy: "check", Section: r.section, Err: err}
	}

	results := make([]CheckResult, 0, len(entries))
	for _, key := range slices.Sorted(maps.Keys(entries)) {
		res := CheckResult{Key: key, Reference: entries[key]}
		reg, err := r.catalog.Lookup(entries[key])
		if err != nil {
			res.Error = fmt.Sprintf("%s: %v", KindTypeLoad, err)
		} else {
			res.Type = reg.String()
			res.Strategies = reg.Strategies()
		}
		results = append(results, res)
	}
	return results, nil
}
