package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zjrosen/implreg/internal/log"
	"github.com/zjrosen/implreg/internal/server"
)

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve mappings over HTTP",
	Long: `Start a read-only HTTP API over the mapping source:

  GET /healthz
  GET /v1/sections
  GET /v1/sections/{section}
  GET /v1/sections/{section}/keys/{key}
  GET /v1/check?section=
  GET /v1/resolve/{key}?section=   (flags.http-resolve)

With --watch, mapping changes on disk are picked up without a restart.

Examples:
  implreg serve
  implreg serve --addr :9090
  implreg serve --watch`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		addr := a.Config.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		if serveWatch {
			go func() {
				if err := a.Watch(ctx); err != nil {
					log.ErrorErr(log.CatWatcher, "mapping watch stopped", err)
				}
			}()
		}
		fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", addr)
		return server.New(a.Resolver, a.Flags).ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "reload mappings when the source changes")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}
