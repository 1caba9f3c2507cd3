// Package app holds the dashboard state: the sport and league selection and
// the news and scoreboard panels loaded for it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Vodeneev/sportsfeed/internal/pkg/models"
)

// QuickLimit is how many sports the quick-pick list offers.
const QuickLimit = 8

// Loader is satisfied by *espn.Client.
type Loader interface {
	Sports(ctx context.Context) ([]models.Sport, error)
	Leagues(ctx context.Context, sport string) ([]models.League, error)
	News(ctx context.Context, sport, league string) ([]models.Article, error)
	Scores(ctx context.Context, sport, league string) ([]models.Game, error)
}

// State is not safe for concurrent use; each dashboard owns one.
type State struct {
	loader Loader

	Sports  []models.Sport  `json:"sports"`
	Sport   string          `json:"sport"`
	Leagues []models.League `json:"leagues"`
	// League is the selector of the chosen league (models.League.Selector).
	League string           `json:"league"`
	News   []models.Article `json:"news"`
	Games  []models.Game    `json:"games"`

	SportsUnavailable  bool `json:"sports_unavailable,omitempty"`
	LeaguesUnavailable bool `json:"leagues_unavailable,omitempty"`
	NewsUnavailable    bool `json:"news_unavailable,omitempty"`
	ScoresUnavailable  bool `json:"scores_unavailable,omitempty"`
}

func New(loader Loader) *State {
	return &State{loader: loader}
}

// Init loads the sports index, selects the first sport and refreshes its
// panels. When the index cannot be fetched every panel is marked
// unavailable and the error is returned.
func (s *State) Init(ctx context.Context) error {
	sports, err := s.loader.Sports(ctx)
	if err != nil {
		s.Sports = nil
		s.SportsUnavailable = true
		s.LeaguesUnavailable = true
		s.NewsUnavailable = true
		s.ScoresUnavailable = true
		return fmt.Errorf("load sports: %w", err)
	}
	s.Sports = sports
	s.SportsUnavailable = false
	if len(sports) == 0 {
		slog.Warn("Sports index is empty, nothing to select")
		return nil
	}
	return s.SelectSport(ctx, sports[0].Slug)
}

// QuickSports returns the sports offered for one-click selection.
func (s *State) QuickSports() []models.Sport {
	if len(s.Sports) > QuickLimit {
		return s.Sports[:QuickLimit]
	}
	return s.Sports
}

// SelectSport switches to sport, reloads its leagues, selects the first one
// and refreshes the panels. A league failure leaves no league selected and
// the panels are still refreshed at sport level.
func (s *State) SelectSport(ctx context.Context, sport string) error {
	s.Sport = sport
	s.League = ""

	var leagueErr error
	leagues, err := s.loader.Leagues(ctx, sport)
	if err != nil {
		slog.Warn("Failed to load leagues", "sport", sport, "error", err)
		s.Leagues = nil
		s.LeaguesUnavailable = true
		leagueErr = fmt.Errorf("load leagues for %s: %w", sport, err)
	} else {
		s.Leagues = leagues
		s.LeaguesUnavailable = false
		if len(leagues) > 0 {
			s.League = leagues[0].Selector()
		}
	}

	return errors.Join(leagueErr, s.Refresh(ctx))
}

// SelectLeague switches the league selector and refreshes the panels.
func (s *State) SelectLeague(ctx context.Context, league string) error {
	s.League = league
	return s.Refresh(ctx)
}

// Refresh reloads news and scores concurrently. Each panel degrades on its
// own: a failed panel is emptied and flagged unavailable while the other
// keeps its fresh data. The returned error joins both panel failures.
func (s *State) Refresh(ctx context.Context) error {
	viewID := uuid.NewString()
	logger := slog.With("view_id", viewID, "sport", s.Sport, "league", s.League)

	var (
		news            []models.Article
		games           []models.Game
		newsErr, scrErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		news, newsErr = s.loader.News(ctx, s.Sport, s.League)
		return nil
	})
	g.Go(func() error {
		games, scrErr = s.loader.Scores(ctx, s.Sport, s.League)
		return nil
	})
	_ = g.Wait()

	s.News, s.NewsUnavailable = news, newsErr != nil
	s.Games, s.ScoresUnavailable = games, scrErr != nil
	if newsErr != nil {
		s.News = nil
		logger.Warn("News panel unavailable", "error", newsErr)
		newsErr = fmt.Errorf("load news: %w", newsErr)
	}
	if scrErr != nil {
		s.Games = nil
		logger.Warn("Scores panel unavailable", "error", scrErr)
		scrErr = fmt.Errorf("load scores: %w", scrErr)
	}
	logger.Debug("Refreshed panels", "articles", len(s.News), "games", len(s.Games))

	return errors.Join(newsErr, scrErr)
}
