package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	appLog "weekcal/internal/log"
	"weekcal/internal/refresh"
	"weekcal/internal/web"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Keep the layout fresh and serve it over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			if listen != "" {
				a.cfg.Listen = listen
			}
			return runServe(cmd.Context(), a)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config)")
	return cmd
}

func runServe(ctx context.Context, a *app) error {
	var watch []string
	for _, s := range a.cfg.Sources() {
		if p, ok := s.LocalPath(); ok {
			watch = append(watch, p)
		}
	}

	r := refresh.New(a.resolver, a.processor, refresh.Options{
		Schedule:     a.cfg.RefreshCron,
		WatchFiles:   watch,
		Layout:       a.cfg.LayoutConfig(),
		BackfillDays: a.cfg.BackfillDays,
		HorizonDays:  a.cfg.HorizonDays,
	})
	srv := web.NewServer(a.cfg, a.processor, web.WithRefresher(r))

	appLog.Info("weekcal serving",
		"listen", a.cfg.Listen,
		"timezone", a.cfg.Timezone,
		"refresh", a.cfg.RefreshCron,
		"sources", len(a.cfg.ICS),
		"watched", len(watch),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.Run(gctx) })
	g.Go(func() error { return srv.ListenAndServe(gctx) })
	err := g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.close(closeCtx)
	appLog.Info("weekcal stopped")
	return err
}
