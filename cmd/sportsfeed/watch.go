package main

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Vodeneev/sportsfeed/internal/pkg/config"
	"github.com/Vodeneev/sportsfeed/internal/pkg/espn"
	"github.com/Vodeneev/sportsfeed/internal/pkg/notify"
	"github.com/Vodeneev/sportsfeed/internal/pkg/storage"
	"github.com/Vodeneev/sportsfeed/internal/pkg/watch"
)

var (
	watchSport    string
	watchLeague   string
	watchInterval time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll a scoreboard and alert on score or status changes",
	Long: "watch polls the scoreboard of watch.sport / watch.league every watch.interval, keeps the last " +
		"line and status of each game in the configured snapshot storage (memory, postgres or redis) and " +
		"sends an alert to Telegram (or the log when no bot token is set) whenever they change.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyWatchFlags(cfg)
		client, err := newClient(cfg, nil)
		if err != nil {
			return err
		}
		w, cleanup, err := newWatcher(cfg, client)
		if err != nil {
			return err
		}
		defer cleanup()
		return w.Run(cmd.Context())
	},
}

func init() {
	addWatchFlags(watchCmd)
	rootCmd.AddCommand(watchCmd)
}

func addWatchFlags(c *cobra.Command) {
	c.Flags().StringVar(&watchSport, "watch-sport", "", "Override watch.sport")
	c.Flags().StringVar(&watchLeague, "watch-league", "", "Override watch.league")
	c.Flags().DurationVar(&watchInterval, "watch-interval", 0, "Override watch.interval")
}

func applyWatchFlags(cfg *config.Config) {
	if watchSport != "" {
		cfg.Watch.Sport = watchSport
	}
	if watchLeague != "" {
		cfg.Watch.League = watchLeague
	}
	if watchInterval > 0 {
		cfg.Watch.Interval = watchInterval
	}
	if cfg.Watch.Sport == "" && cfg.Watch.League == "" {
		cfg.Watch.Sport = "football"
	}
}

// newWatcher opens snapshot storage and the notifier; cleanup flushes
// pending alerts and closes the storage.
func newWatcher(cfg *config.Config, client *espn.Client) (*watch.Watcher, func(), error) {
	store, err := storage.New(cfg)
	if err != nil {
		return nil, nil, err
	}

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != 0 {
		tg, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			slog.Error("Telegram notifier unavailable, alerts go to the log", "error", err)
		} else {
			notifier = tg
		}
	}

	w := watch.New(client.WithLimit(0), store, notifier, watch.Options{
		Sport:        cfg.Watch.Sport,
		League:       cfg.Watch.League,
		Interval:     cfg.Watch.Interval,
		CycleTimeout: cfg.Watch.Interval,
		Retention:    cfg.Watch.Retention,
	})
	cleanup := func() {
		notifier.Stop()
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close snapshot storage", "error", err)
		}
	}
	return w, cleanup, nil
}
