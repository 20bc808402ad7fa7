package testutil

import "maps"

// sectionData holds the entries of one section to be built.
type sectionData struct {
	name    string
	entries map[string]string
}

// SectionOption configures a section added with WithSection.
type SectionOption func(*sectionData)

// Entry maps key to a type reference.
func Entry(key, reference string) SectionOption {
	return func(s *sectionData) {
		s.entries[key] = reference
	}
}

// Entries adds every key/reference pair of m.
func Entries(m map[string]string) SectionOption {
	return func(s *sectionData) {
		maps.Copy(s.entries, m)
	}
}
