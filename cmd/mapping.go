package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zjrosen/implreg/internal/config"
	"github.com/zjrosen/implreg/internal/mapping"
	"github.com/zjrosen/implreg/internal/presentation"
	"github.com/zjrosen/implreg/internal/resolver"
)

var mappingTable bool

var mappingListCmd = &cobra.Command{
	Use:   "mapping:list",
	Short: "List mapping sections and their entries",
	Long: `List every section of the configured mapping source as JSON, or as a table
with --table. Entries whose reference does not parse carry an "error" field.

Examples:
  implreg mapping:list
  implreg mapping:list --table
  implreg mapping:list | jq '.[] | select(.name == "Implementations")'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		sections, err := a.Sections(cmd.Context())
		if err != nil {
			return err
		}
		f := presentation.NewFormatter(cmd.OutOrStdout())
		if mappingTable {
			return f.FormatSectionsTable(sections)
		}
		return f.FormatSections(sections)
	},
}

var mappingSetCmd = &cobra.Command{
	Use:   "mapping:set <key> <reference>",
	Short: "Map a key to a type reference (sqlite source)",
	Long: `Create or replace one entry in the active section. The reference must parse
as "TypeName[, Module[, Version=x.y.z]]". Requires mapping.source: sqlite.

Examples:
  implreg mapping:set Exporter 'reports.YAMLExporter, reports'
  implreg mapping:set -s Alternate Formats 'reports.Formats, reports'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		repo, err := a.Repository()
		if err != nil {
			return err
		}
		section := a.Resolver.Section()
		if err := repo.Put(cmd.Context(), section, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s = %s\n", section, args[0], args[1])
		return nil
	},
}

var mappingDeleteAll bool

var mappingDeleteCmd = &cobra.Command{
	Use:   "mapping:delete [key]",
	Short: "Remove an entry, or a whole section with --all (sqlite source)",
	Long: `Remove one entry from the active section, or the section itself with --all.

Examples:
  implreg mapping:delete Exporter
  implreg mapping:delete -s Alternate --all`,
	Args: func(cmd *cobra.Command, args []string) error {
		if mappingDeleteAll {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		repo, err := a.Repository()
		if err != nil {
			return err
		}
		section := a.Resolver.Section()
		if mappingDeleteAll {
			if err := repo.DeleteSection(cmd.Context(), section); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted section %s\n", section)
			return nil
		}
		if err := repo.Delete(cmd.Context(), section, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s: %s\n", section, args[0])
		return nil
	},
}

var mappingImportCmd = &cobra.Command{
	Use:   "mapping:import <file>",
	Short: "Copy a mapping document into the sqlite source",
	Long: `Read a YAML, JSON or HCL mapping document and upsert every section into the
configured SQLite database. Existing entries with the same key are replaced.

Examples:
  implreg mapping:import mappings.hcl`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		repo, err := a.Repository()
		if err != nil {
			return err
		}
		snap, err := mapping.LoadFile(args[0])
		if err != nil {
			return err
		}
		n, err := repo.Import(cmd.Context(), snap)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d entries from %s\n", n, args[0])
		return a.Reload(cmd.Context())
	},
}

// errCheckFailed is returned by mapping:check after the report is printed.
var errCheckFailed = errors.New("mapping check failed")

// checkReport is the mapping:check output.
type checkReport struct {
	Section string                    `json:"section"`
	Schema  []mapping.ValidationIssue `json:"schema_issues,omitempty"`
	Entries []resolver.CheckResult    `json:"entries"`
}

var mappingCheckCmd = &cobra.Command{
	Use:   "mapping:check",
	Short: "Validate the mapping document and check every entry loads",
	Long: `Validate the mapping document against the mapping schema (YAML and JSON file
sources), then confirm every entry of the active section names a registered type
with at least one construction strategy. Exits non-zero when anything fails.

Examples:
  implreg mapping:check
  implreg mapping:check -s Alternate`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		report := checkReport{Section: a.Resolver.Section()}
		failed := false

		if a.Config.Mapping.Source == config.SourceFile {
			issues, err := schemaIssues(a.MappingPath())
			if err != nil {
				return err
			}
			report.Schema = issues
			failed = len(issues) > 0
		}

		results, err := a.Resolver.Check(cmd.Context())
		if err != nil {
			return err
		}
		report.Entries = results
		for _, r := range results {
			if !r.OK() {
				failed = true
			}
		}

		if err := presentation.NewFormatter(cmd.OutOrStdout()).JSON(report); err != nil {
			return err
		}
		if failed {
			return errCheckFailed
		}
		return nil
	},
}

// schemaIssues validates a YAML or JSON document. HCL documents are checked by
// their decoder and report no schema issues.
func schemaIssues(path string) ([]mapping.ValidationIssue, error) {
	format, err := mapping.FormatOf(path)
	if err != nil {
		return nil, err
	}
	if format == mapping.FormatHCL {
		return nil, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator configuration
	if err != nil {
		return nil, err
	}
	res, err := mapping.Validate(data)
	if err != nil {
		return nil, err
	}
	return res.Issues, nil
}

func init() {
	mappingListCmd.Flags().BoolVar(&mappingTable, "table", false, "render as a table")
	mappingDeleteCmd.Flags().BoolVar(&mappingDeleteAll, "all", false, "delete the whole section")

	rootCmd.AddCommand(mappingListCmd)
	rootCmd.AddCommand(mappingSetCmd)
	rootCmd.AddCommand(mappingDeleteCmd)
	rootCmd.AddCommand(mappingImportCmd)
	rootCmd.AddCommand(mappingCheckCmd)
}
