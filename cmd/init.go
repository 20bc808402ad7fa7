package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zjrosen/implreg/internal/config"
	"github.com/zjrosen/implreg/internal/mapping"
	"github.com/zjrosen/implreg/internal/paths"
	"github.com/zjrosen/implreg/internal/reports"
)

// sampleMappingName matches mapping.path in the default config template.
const sampleMappingName = "mappings.yaml"

var (
	initSource  string
	initMapping string
	initForce   bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config and a sample mapping document",
	Long: `Write a commented default config to .implreg/config.yaml (or --config) and,
for the file source, a sample mapping document next to it if none exists.

Examples:
  implreg init
  implreg init --source sqlite --mapping ~/.config/implreg/mappings.db
  implreg init --config ./implreg.yaml --force`,
	Annotations: map[string]string{skipConfigAnnotation: "true"},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.LocalConfigPath
		}
		mappingKey := "mapping.path"
		switch initSource {
		case config.SourceFile:
		case config.SourceSQLite:
			mappingKey = "mapping.dsn"
		default:
			return fmt.Errorf("unknown mapping source %q (want %s or %s)", initSource, config.SourceFile, config.SourceSQLite)
		}
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		if err := config.WriteDefaultConfig(path); err != nil {
			return err
		}
		if initSource == config.SourceSQLite {
			if err := config.SetValue(path, "mapping.source", config.SourceSQLite); err != nil {
				return err
			}
		}
		if initMapping != "" {
			if err := config.SetValue(path, mappingKey, initMapping); err != nil {
				return err
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		if initSource == config.SourceSQLite {
			return nil
		}

		docPath := initMapping
		if docPath == "" {
			docPath = sampleMappingName
		}
		docPath = paths.RelativeTo(paths.ExpandHome(docPath), filepath.Dir(path))
		written, err := writeSampleMapping(docPath)
		if err != nil {
			return err
		}
		if written {
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", docPath)
		}
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initSource, "source", config.SourceFile, "mapping source: file or sqlite")
	initCmd.Flags().StringVar(&initMapping, "mapping", "", "mapping document (file) or database path (sqlite)")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

// writeSampleMapping writes the built-in report mappings to path unless it exists.
func writeSampleMapping(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	if err := mapping.WriteFile(path, reports.SampleMapping()); err != nil {
		return false, fmt.Errorf("writing sample mapping: %w", err)
	}
	return true, nil
}
