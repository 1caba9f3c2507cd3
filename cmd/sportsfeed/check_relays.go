package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Vodeneev/sportsfeed/internal/pkg/resolver"
)

var checkTarget string

var checkRelaysCmd = &cobra.Command{
	Use:   "check-relays",
	Short: "Probe the direct route and every configured relay",
	Long: "check-relays fetches the sports index (or --target) directly and through each relay of the " +
		"configured chain concurrently and prints one line per route. It fails when no route works.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		r, err := newResolver(cfg, nil)
		if err != nil {
			return err
		}
		target := checkTarget
		if target == "" {
			target = cfg.Upstream.BaseURL
		}
		return checkRelays(cmd.Context(), cmd.OutOrStdout(), r, target)
	},
}

func init() {
	checkRelaysCmd.Flags().StringVar(&checkTarget, "target", "", "URL to fetch (default upstream.base_url)")
	rootCmd.AddCommand(checkRelaysCmd)
}

type probeResult struct {
	stage   string
	ok      bool
	kind    string
	bytes   int
	elapsed time.Duration
	err     string
}

func checkRelays(ctx context.Context, w io.Writer, r *resolver.Resolver, target string) error {
	stages := append([]string{resolver.StageDirect}, r.Chain().Names()...)
	fmt.Fprintf(w, "Checking %d routes (target %s)...\n\n", len(stages), target)

	results := make([]probeResult, len(stages))
	var g errgroup.Group
	for i, stage := range stages {
		g.Go(func() error {
			start := time.Now()
			out, err := r.Probe(ctx, stage, target)
			res := probeResult{stage: stage, ok: err == nil, elapsed: time.Since(start).Round(time.Millisecond)}
			if err != nil {
				res.err = err.Error()
			} else {
				res.kind = out.Kind.String()
				res.bytes = len(out.Body)
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	okCount := 0
	for _, res := range results {
		if res.ok {
			okCount++
			fmt.Fprintf(w, "[OK] %s -> %s, %d bytes in %s\n", res.stage, res.kind, res.bytes, res.elapsed)
		} else {
			fmt.Fprintf(w, "[FAIL] %s -> %s\n", res.stage, res.err)
		}
	}

	fmt.Fprintf(w, "\n--- Summary: %d OK, %d FAIL (total %d)\n", okCount, len(stages)-okCount, len(stages))
	if okCount == 0 {
		return fmt.Errorf("all routes failed")
	}
	return nil
}
