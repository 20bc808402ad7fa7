package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/implreg/internal/presentation"
	"github.com/zjrosen/implreg/internal/typekey"
)

var typesTable bool

var typesListCmd = &cobra.Command{
	Use:   "types:list",
	Short: "List the registered implementation types",
	Long: `List every type in the catalog with the construction strategies it supports.

Examples:
  implreg types:list
  implreg types:list --table
  implreg types:list | jq '.[] | select(.strategies | index("singleton"))'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		dtos := presentation.FromRegistrations(a.Catalog.List())
		f := presentation.NewFormatter(cmd.OutOrStdout())
		if typesTable {
			return f.FormatRegistrationsTable(dtos)
		}
		return f.JSON(dtos)
	},
}

var typekeyCmd = &cobra.Command{
	Use:   "typekey <type-name>",
	Short: "Print the mapping key for a qualified Go type name",
	Long: `Strip package qualifiers from a type name, including generic arguments, to
get the key it is looked up under.

Examples:
  implreg typekey 'reports.SpreadsheetGenerator[github.com/acme/reports.ExecutionReport]'
  # SpreadsheetGenerator[ExecutionReport]`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), typekey.Simple(args[0]))
		return err
	},
}

func init() {
	typesListCmd.Flags().BoolVar(&typesTable, "table", false, "render as a table")
	rootCmd.AddCommand(typesListCmd)

	// typekey needs no configuration.
	typekeyCmd.Annotations = map[string]string{skipConfigAnnotation: "true"}
	rootCmd.AddCommand(typekeyCmd)
}
