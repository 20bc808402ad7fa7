package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zjrosen/implreg/internal/presentation"
	"github.com/zjrosen/implreg/internal/pubsub"
)

var watchContext bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reload mappings when the source changes and print what changed",
	Long: `Watch the mapping document (or SQLite database) for changes. On each change
the source is reloaded, cached lookups are dropped and a line diff of the mapping
listing is printed. A document that fails to parse is reported and the previous
mappings stay in effect. Stops on interrupt.

Examples:
  implreg watch
  implreg watch --context`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		sections, err := a.Sections(ctx)
		if err != nil {
			return err
		}
		prev := presentation.Listing(sections)

		events := a.Subscribe(ctx)
		watchErr := make(chan error, 1)
		go func() { watchErr <- a.Watch(ctx) }()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "watching %s (section %s)\n", a.MappingPath(), a.Resolver.Section())

		for {
			select {
			case err := <-watchErr:
				return err
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				if ev.Type == pubsub.ReloadFailedEvent {
					fmt.Fprintf(cmd.ErrOrStderr(), "reload failed: %v\n", ev.Payload.Err)
					continue
				}
				next := presentation.Listing(ev.Payload.Sections)
				lines := presentation.LineDiff(prev, next)
				if !presentation.Changed(lines) {
					continue
				}
				fmt.Fprint(out, presentation.FormatDiff(lines, watchContext))
				prev = next
			}
		}
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchContext, "context", false, "print unchanged lines around changes")
	rootCmd.AddCommand(watchCmd)
}
