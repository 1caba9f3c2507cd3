package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Vodeneev/sportsfeed/internal/pkg/app"
	"github.com/Vodeneev/sportsfeed/internal/pkg/models"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSports(w io.Writer, sports []models.Sport) error {
	if jsonOutput {
		return printJSON(w, sports)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tNAME")
	for _, s := range sports {
		fmt.Fprintf(tw, "%s\t%s\n", s.Slug, s.Name)
	}
	return tw.Flush()
}

func printLeagues(w io.Writer, leagues []models.League) error {
	if jsonOutput {
		return printJSON(w, leagues)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SELECTOR\tLABEL\tID")
	for _, l := range leagues {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", l.Selector(), l.Label, l.ID)
	}
	return tw.Flush()
}

func printNews(w io.Writer, news []models.Article) error {
	if jsonOutput {
		return printJSON(w, news)
	}
	if len(news) == 0 {
		fmt.Fprintln(w, "No news.")
		return nil
	}
	for i, a := range news {
		fmt.Fprintf(w, "%d. %s\n", i+1, a.Title)
		if a.Summary != "" {
			fmt.Fprintf(w, "   %s\n", a.Summary)
		}
		fmt.Fprintf(w, "   %s\n", a.Link)
	}
	return nil
}

func printScores(w io.Writer, games []models.Game) error {
	if jsonOutput {
		return printJSON(w, games)
	}
	if len(games) == 0 {
		fmt.Fprintln(w, "No games.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, g := range games {
		fmt.Fprintf(tw, "%s\t%s\n", g.Line, g.Status)
	}
	return tw.Flush()
}

const unavailable = "Data unavailable."

func printDashboard(w io.Writer, s *app.State) error {
	if jsonOutput {
		return printJSON(w, s)
	}
	if s.SportsUnavailable {
		fmt.Fprintln(w, "Sports could not be loaded.")
		return nil
	}

	quick := make([]string, 0, app.QuickLimit)
	for _, sp := range s.QuickSports() {
		quick = append(quick, sp.Name)
	}
	fmt.Fprintf(w, "Sports: %s\n", strings.Join(quick, " | "))
	fmt.Fprintf(w, "Sport:  %s\n", s.Sport)
	switch {
	case s.LeaguesUnavailable:
		fmt.Fprintln(w, "League: (error)")
	default:
		fmt.Fprintf(w, "League: %s\n", leagueLabel(s))
	}

	fmt.Fprintln(w, "\n== News ==")
	if s.NewsUnavailable {
		fmt.Fprintln(w, unavailable)
	} else if err := printNews(w, s.News); err != nil {
		return err
	}

	fmt.Fprintln(w, "\n== Scores ==")
	if s.ScoresUnavailable {
		fmt.Fprintln(w, unavailable)
		return nil
	}
	return printScores(w, s.Games)
}

func leagueLabel(s *app.State) string {
	for _, l := range s.Leagues {
		if l.Selector() == s.League {
			return l.Label
		}
	}
	if s.League == "" {
		return "-"
	}
	return s.League
}
