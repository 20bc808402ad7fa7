package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/implreg/internal/app"
	"github.com/zjrosen/implreg/internal/config"
	"github.com/zjrosen/implreg/internal/log"
	"github.com/zjrosen/implreg/internal/paths"
)

// skipConfigAnnotation marks commands that run before any config exists.
const skipConfigAnnotation = "implreg/skip-config"

var (
	version  = "dev"
	cfgFile  string
	section  string
	logLevel string

	cfg      config.Config
	cfgPath  string
	closeLog = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "implreg",
	Short: "Resolve abstract type keys to concrete implementations",
	Long: `implreg maps abstract type keys to concrete implementation references and
constructs instances of them at runtime.

Mappings live in a YAML, JSON or HCL document, or in a SQLite database, grouped
into named sections. Types are resolved against a catalog of registered
implementations and plugin modules.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) { closeLog() },
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .implreg/config.yaml, then ~/.config/implreg/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&section, "section", "s", "",
		"mapping section to use (overrides mapping.section)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log to stderr at this level: debug, info, warn or error")
}

func setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipConfigAnnotation] != "true" {
		loaded, used, err := config.Load(config.LoadOptions{ConfigFile: cfgFile})
		if err != nil {
			return err
		}
		cfg, cfgPath = loaded, used
		if section != "" {
			cfg.Mapping.Section = section
		}
	}
	return initLogging(cmd)
}

func initLogging(cmd *cobra.Command) error {
	closeLog = func() {}
	switch {
	case cfg.Log.Path != "":
		cleanup, err := log.Init(paths.ExpandHome(cfg.Log.Path))
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		closeLog = cleanup
		log.SetMinLevel(log.ParseLevel(cfg.Log.Level))
	case logLevel != "":
		log.InitWriter(cmd.ErrOrStderr())
		closeLog = log.Reset
	}
	if logLevel != "" {
		log.SetMinLevel(log.ParseLevel(logLevel))
	}
	return nil
}

// newApp wires the loaded configuration. Callers must Close the result.
func newApp() (*app.App, error) {
	return app.New(cfg, cfgPath)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
