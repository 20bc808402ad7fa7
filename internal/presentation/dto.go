package presentation

import (
	"maps"
	"slices"

	"github.com/zjrosen/implreg/internal/catalog"
	"github.com/zjrosen/implreg/internal/mapping"
	"github.com/zjrosen/implreg/internal/plugins"
	"github.com/zjrosen/implreg/internal/resolver"
)

// EntryDTO is one mapping entry with its reference broken out.
type EntryDTO struct {
	Key       string `json:"key"`
	Reference string `json:"reference"`
	TypeName  string `json:"type_name,omitempty"`
	Module    string `json:"module,omitempty"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"` // set when the reference does not parse
}

// SectionDTO is a mapping section.
type SectionDTO struct {
	Name    string     `json:"name"`
	Entries []EntryDTO `json:"entries"`
}

// RegistrationDTO describes a catalog registration
type RegistrationDTO struct {
	Name       string   `json:"name"`
	Module     string   `json:"module,omitempty"`
	Version    string   `json:"version,omitempty"`
	Key        string   `json:"key"`
	Strategies []string `json:"strategies"`
}

// PluginDTO describes an instantiated plugin.
type PluginDTO struct {
	Module string `json:"module"`
	Type   string `json:"type"`
	Name   string `json:"name"`
}

// ResolveDTO is the outcome of resolving one key.
type ResolveDTO struct {
	Section   string `json:"section"`
	Key       string `json:"key"`
	Strategy  string `json:"strategy"`
	Type      string `json:"type,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// FromEntries converts a section's entries to DTOs sorted by key.
func FromEntries(section string, entries map[string]string) SectionDTO {
	dto := SectionDTO{Name: section, Entries: make([]EntryDTO, 0, len(entries))}
	for _, key := range slices.Sorted(maps.Keys(entries)) {
		e := EntryDTO{Key: key, Reference: entries[key]}
		ref, err := mapping.ParseReference(entries[key])
		if err != nil {
			e.Error = err.Error()
		} else {
			e.TypeName = ref.TypeName
			e.Module = ref.Module
			e.Version = ref.Version
		}
		dto.Entries = append(dto.Entries, e)
	}
	return dto
}

// FromRegistrations converts catalog registrations to DTOs.
func FromRegistrations(regs []*catalog.Registration) []RegistrationDTO {
	dtos := make([]RegistrationDTO, len(regs))
	for i, reg := range regs {
		dtos[i] = RegistrationDTO{
			Name:       reg.Name,
			Module:     reg.Module,
			Version:    reg.Version,
			Key:        reg.Key(),
			Strategies: reg.Strategies(),
		}
	}
	return dtos
}

// FromPlugins converts scan results to DTOs.
func FromPlugins(found []plugins.Found) []PluginDTO {
	dtos := make([]PluginDTO, len(found))
	for i, f := range found {
		dtos[i] = PluginDTO{Module: f.Module, Type: f.Type, Name: f.Name}
	}
	return dtos
}

// FromResolveError fills the error fields of dto from err.
func FromResolveError(dto ResolveDTO, err error) ResolveDTO {
	if err == nil {
		return dto
	}
	dto.Error = err.Error()
	if kind := resolver.KindOf(err); kind != 0 {
		dto.ErrorKind = kind.String()
	}
	return dto
}
