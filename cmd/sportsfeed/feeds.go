package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	feedSport  string
	feedLeague string
	feedLimit  int
)

var sportsCmd = &cobra.Command{
	Use:   "sports",
	Short: "List sports from the index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newClient(cfg, nil)
		if err != nil {
			return err
		}
		sports, err := client.Sports(cmd.Context())
		if err != nil {
			return fmt.Errorf("load sports: %w", err)
		}
		return printSports(cmd.OutOrStdout(), sports)
	},
}

var leaguesCmd = &cobra.Command{
	Use:   "leagues <sport>",
	Short: "List the leagues of a sport",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cfg, nil)
		if err != nil {
			return err
		}
		leagues, err := client.Leagues(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("load leagues: %w", err)
		}
		return printLeagues(cmd.OutOrStdout(), leagues)
	},
}

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Show headlines for a sport or league",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newClient(cfg, nil)
		if err != nil {
			return err
		}
		news, err := client.WithLimit(feedLimit).News(cmd.Context(), feedSport, feedLeague)
		if err != nil {
			return fmt.Errorf("load news: %w", err)
		}
		return printNews(cmd.OutOrStdout(), news)
	},
}

var scoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Show the scoreboard of a sport or league",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newClient(cfg, nil)
		if err != nil {
			return err
		}
		games, err := client.WithLimit(feedLimit).Scores(cmd.Context(), feedSport, feedLeague)
		if err != nil {
			return fmt.Errorf("load scores: %w", err)
		}
		return printScores(cmd.OutOrStdout(), games)
	},
}

func init() {
	for _, c := range []*cobra.Command{newsCmd, scoresCmd} {
		c.Flags().StringVarP(&feedSport, "sport", "s", "football", "Sport slug")
		c.Flags().StringVarP(&feedLeague, "league", "l", "", `League as "sport/league" (e.g. football/nfl)`)
		c.Flags().IntVarP(&feedLimit, "limit", "n", 8, "Maximum items (0 = all)")
	}
	rootCmd.AddCommand(sportsCmd, leaguesCmd, newsCmd, scoresCmd)
}
