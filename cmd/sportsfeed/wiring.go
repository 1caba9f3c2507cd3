package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Vodeneev/sportsfeed/internal/pkg/config"
	"github.com/Vodeneev/sportsfeed/internal/pkg/espn"
	"github.com/Vodeneev/sportsfeed/internal/pkg/metrics"
	"github.com/Vodeneev/sportsfeed/internal/pkg/relay"
	"github.com/Vodeneev/sportsfeed/internal/pkg/resolver"
)

// newResolver builds the resolver described by cfg. Attempt metrics are
// registered on reg when it is not nil.
func newResolver(cfg *config.Config, reg prometheus.Registerer) (*resolver.Resolver, error) {
	chain, err := relay.FromConfig(cfg.Resolver.Relays)
	if err != nil {
		return nil, err
	}

	opts := []resolver.Option{
		resolver.WithAttemptTimeout(cfg.Resolver.AttemptTimeout),
		resolver.WithUserAgent(cfg.Upstream.UserAgent),
		resolver.WithHeaders(cfg.Upstream.Headers),
	}
	if reg != nil {
		m, err := metrics.NewResolver(reg)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		opts = append(opts, resolver.WithObserver(m))
	}
	if cfg.Resolver.Browser.Enabled {
		opts = append(opts, resolver.WithBrowser(&resolver.ChromeFetcher{
			Timeout:   cfg.Resolver.Browser.Timeout,
			UserAgent: cfg.Upstream.UserAgent,
		}))
	}
	return resolver.New(chain, opts...), nil
}

func newClient(cfg *config.Config, reg prometheus.Registerer) (*espn.Client, error) {
	r, err := newResolver(cfg, reg)
	if err != nil {
		return nil, err
	}
	return espn.NewClient(r, cfg.Upstream.BaseURL), nil
}
