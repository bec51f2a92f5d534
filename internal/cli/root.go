// Package cli implements the weekcal command line.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"weekcal/internal/cache"
	"weekcal/internal/config"
	"weekcal/internal/engine"
	"weekcal/internal/ics"
	appLog "weekcal/internal/log"
)

var version = "0.1.0-dev"

type rootOptions struct {
	configPath string
	verbose    bool
}

// Execute runs the weekcal CLI with the process arguments.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "weekcal",
		Short:        "weekcal lays out calendar feeds as a week view",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				appLog.SetLevel(appLog.LevelDebug)
			} else {
				appLog.SetLevel(appLog.LevelInfo)
			}
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("weekcal %s\n", version))
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "./config.yaml", "path to config file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newLayoutCmd(opts))
	root.AddCommand(newServeCmd(opts))

	return root
}

// app is what every command builds from the config file.
type app struct {
	cfg       *config.Config
	resolver  *ics.Resolver
	processor *engine.Processor
}

func newApp(opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	appLog.Debug("config loaded",
		"path", opts.configPath,
		"timezone", cfg.Timezone,
		"sources", len(cfg.ICS),
		"visible_days", cfg.VisibleDays,
	)

	return &app{
		cfg: cfg,
		resolver: &ics.Resolver{
			Fetcher: ics.NewFetcher(cfg.CacheDir),
			Sources: cfg.Sources(),
			Items:   cfg.ItemConfig(),
		},
		processor: engine.New(cache.New()),
	}, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.processor.Close(ctx); err != nil {
		appLog.Error("engine close", err)
	}
}
