package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Vodeneev/sportsfeed/internal/pkg/health"
)

var (
	servePort  int
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the feeds as JSON with health probes and Prometheus metrics",
	Long: "serve exposes /api/sports, /api/leagues, /api/news and /api/scores plus /ping, /health and /metrics. " +
		"With --watch the score watcher runs in the same process and /poll triggers an immediate poll.",
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default health.port)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Also run the score watcher")
	addWatchFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if servePort > 0 {
		cfg.Health.Port = servePort
	}
	addr, err := health.AddrFor(cfg.Health.Port)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	client, err := newClient(cfg, reg)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	opts := health.Options{Gatherer: reg}

	if serveWatch {
		applyWatchFlags(cfg)
		w, cleanup, err := newWatcher(cfg, client)
		if err != nil {
			return err
		}
		defer cleanup()
		opts.Trigger = w.Trigger
		g.Go(func() error { return w.Run(ctx) })
	}

	mux := health.NewMux(client, opts)
	g.Go(func() error {
		return health.Run(ctx, addr, serviceName, mux, cfg.Health.ReadHeaderTimeout)
	})
	return g.Wait()
}
