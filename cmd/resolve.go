package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/implreg/internal/presentation"
	"github.com/zjrosen/implreg/internal/resolver"
)

var (
	resolveArgs      []string
	resolveSingleton bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <key>",
	Short: "Construct the implementation mapped to a key",
	Long: `Look up <key> in the active mapping section, load the referenced type from
the catalog and construct it. Prints the outcome as JSON; the concrete Go type is
in the "type" field.

Examples:
  implreg resolve 'SpreadsheetGenerator[ExecutionReport]'
  implreg resolve 'SpreadsheetGenerator[ExecutionReport]' --arg ';'
  implreg resolve Formats --singleton
  implreg resolve Exporter -s Alternate | jq .type`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if resolveSingleton && len(resolveArgs) > 0 {
			return fmt.Errorf("--arg and --singleton are mutually exclusive")
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		key := args[0]
		dto := presentation.ResolveDTO{
			Section:  a.Resolver.Section(),
			Key:      key,
			Strategy: string(resolver.StrategyDefault),
		}

		var v any
		switch {
		case resolveSingleton:
			dto.Strategy = string(resolver.StrategySingleton)
			v, err = a.Resolver.ResolveKeySingleton(cmd.Context(), key)
		case len(resolveArgs) > 0:
			dto.Strategy = string(resolver.StrategyArgs)
			ctorArgs := make([]any, len(resolveArgs))
			for i, s := range resolveArgs {
				ctorArgs[i] = s
			}
			v, err = a.Resolver.ResolveKey(cmd.Context(), key, ctorArgs...)
		default:
			v, err = a.Resolver.ResolveKey(cmd.Context(), key)
		}

		f := presentation.NewFormatter(cmd.OutOrStdout())
		if err != nil {
			_ = f.JSON(presentation.FromResolveError(dto, err))
			return err
		}
		dto.Type = fmt.Sprintf("%T", v)
		return f.JSON(dto)
	},
}

func init() {
	resolveCmd.Flags().StringArrayVar(&resolveArgs, "arg", nil, "constructor argument (repeatable, passed as strings)")
	resolveCmd.Flags().BoolVar(&resolveSingleton, "singleton", false, "return the type's singleton instance")
	rootCmd.AddCommand(resolveCmd)
}
