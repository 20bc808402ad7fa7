package reports

import (
	"slices"
	"sync"
)

// Formats lists the output formats this build supports. There is one instance per
// process, obtained with GetInstance.
type Formats struct {
	names []string
}

var (
	formatsOnce sync.Once
	formats     *Formats
)

// GetInstance returns the process-wide Formats.
func GetInstance() *Formats {
	formatsOnce.Do(func() {
		formats = &Formats{names: []string{"csv", "json", "markdown", "tsv", "yaml"}}
	})
	return formats
}

// Names returns the supported format names, sorted.
func (f *Formats) Names() []string {
	return slices.Clone(f.names)
}

// Supports reports whether name is a supported format.
func (f *Formats) Supports(name string) bool {
	_, found := slices.BinarySearch(f.names, name)
	return found
}
