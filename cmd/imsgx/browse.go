package main

import (
	"path/filepath"

	"github.com/matheus3301/imsgx/internal/config"
	"github.com/matheus3301/imsgx/internal/paths"
	"github.com/matheus3301/imsgx/internal/store"
	"github.com/matheus3301/imsgx/internal/tui"
	"github.com/spf13/cobra"
)

func browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse the extracted conversation in the terminal",
		Long: `Opens a terminal browser over conversation_clean. The output lock is not
taken, so an extract may run while browsing; press r to reload.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(config.Overrides{OutputPath: outputPath})
			if err != nil {
				return err
			}
			if err := paths.EnsureDir(filepath.Dir(cfg.OutputPath)); err != nil {
				return err
			}
			db, _, err := store.OpenMigrated(cfg.OutputPath)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			return tui.NewApp(db).Run()
		},
	}
}

// resolveConfig loads config for commands that do not need the pipeline.
func resolveConfig(o config.Overrides) (*config.Config, error) {
	path := cfgPath
	if path == "" {
		path = paths.ConfigPath()
	}
	return config.Resolve(path, o)
}
