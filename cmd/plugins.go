package cmd

import (
	"fmt"
	"reflect"

	"github.com/spf13/cobra"

	"github.com/zjrosen/implreg/internal/plugins"
	"github.com/zjrosen/implreg/internal/presentation"
	"github.com/zjrosen/implreg/internal/reports"
)

var pluginsRegistered bool

var pluginsScanCmd = &cobra.Command{
	Use:   "plugins:scan [dir]",
	Short: "Discover exporter plugins",
	Long: `Load every plugin module (*.so) in dir, or the configured plugins.dir, and
list the Exporter implementations they provide. With --registered, scan the
modules compiled into this binary instead.

Modules that fail to load are reported on stderr and skipped, unless the
strict-plugin-scan flag is set, in which case the scan stops at the first one.

Examples:
  implreg plugins:scan --registered
  implreg plugins:scan ./plugins`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		capability := reflect.TypeFor[reports.Exporter]()
		s := a.Scanner()

		var found []plugins.Found
		switch {
		case pluginsRegistered:
			found, err = s.ScanModules(cmd.Context(), capability)
		default:
			var dir string
			if len(args) == 1 {
				dir = args[0]
			} else if dir, err = a.PluginDir(); err != nil {
				return err
			}
			found, err = s.ScanDir(cmd.Context(), dir, capability)
		}

		modErrs := plugins.ModuleErrors(err)
		for _, me := range modErrs {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipped: %v\n", me)
		}
		// A strict scan aborts with no instances.
		if err != nil && (len(modErrs) == 0 || found == nil) {
			return err
		}
		return presentation.NewFormatter(cmd.OutOrStdout()).JSON(presentation.FromPlugins(found))
	},
}

func init() {
	pluginsScanCmd.Flags().BoolVar(&pluginsRegistered, "registered", false, "scan compiled-in modules instead of a directory")
	rootCmd.AddCommand(pluginsScanCmd)
}
