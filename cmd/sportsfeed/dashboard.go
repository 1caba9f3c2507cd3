package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Vodeneev/sportsfeed/internal/pkg/app"
)

var (
	dashSport  string
	dashLeague string
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Load sports, pick a sport and league, and show news and scores side by side",
	Long: "dashboard loads the sports index, selects the first sport (or --sport) and its first league " +
		"(or --league), then fetches news and scores concurrently. A panel that cannot be loaded is shown " +
		"as unavailable while the other still renders.",
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

func init() {
	dashboardCmd.Flags().StringVarP(&dashSport, "sport", "s", "", "Sport slug to select instead of the first one")
	dashboardCmd.Flags().StringVarP(&dashLeague, "league", "l", "", "League selector to use instead of the first one")
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	client, err := newClient(cfg, nil)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	state := app.New(client)

	// Panel failures are already reflected in the state flags.
	if err := state.Init(ctx); err != nil {
		slog.Warn("Dashboard init incomplete", "error", err)
	}
	if dashSport != "" && dashSport != state.Sport && !state.SportsUnavailable {
		if err := state.SelectSport(ctx, dashSport); err != nil {
			slog.Warn("Dashboard sport selection incomplete", "sport", dashSport, "error", err)
		}
	}
	if dashLeague != "" && !state.SportsUnavailable {
		if err := state.SelectLeague(ctx, dashLeague); err != nil {
			slog.Warn("Dashboard league selection incomplete", "league", dashLeague, "error", err)
		}
	}
	return printDashboard(cmd.OutOrStdout(), state)
}
