package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Vodeneev/sportsfeed/internal/pkg/models"
	"github.com/Vodeneev/sportsfeed/internal/pkg/resolver"
)

// Loader is satisfied by *espn.Client.
type Loader interface {
	Sports(ctx context.Context) ([]models.Sport, error)
	Leagues(ctx context.Context, sport string) ([]models.League, error)
	News(ctx context.Context, sport, league string) ([]models.Article, error)
	Scores(ctx context.Context, sport, league string) ([]models.Game, error)
}

// Feed serves the normalized ESPN documents as JSON under /api/.
type Feed struct {
	Loader Loader
}

// HandleSports handles GET /api/sports
func (f *Feed) HandleSports(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	serve(w, r, "sports", func(ctx context.Context) (any, int, error) {
		sports, err := f.Loader.Sports(ctx)
		return sports, len(sports), err
	})
}

// HandleLeagues handles GET /api/leagues?sport=football
func (f *Feed) HandleLeagues(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	sport := r.URL.Query().Get("sport")
	if sport == "" {
		writeError(w, http.StatusBadRequest, "sport is required")
		return
	}
	serve(w, r, "leagues", func(ctx context.Context) (any, int, error) {
		leagues, err := f.Loader.Leagues(ctx, sport)
		return leagues, len(leagues), err
	})
}

// HandleNews handles GET /api/news?sport=football&league=football/nfl
func (f *Feed) HandleNews(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	sport, league, ok := feedParams(w, r)
	if !ok {
		return
	}
	serve(w, r, "news", func(ctx context.Context) (any, int, error) {
		news, err := f.Loader.News(ctx, sport, league)
		return news, len(news), err
	})
}

// HandleScores handles GET /api/scores?sport=football&league=football/nfl
func (f *Feed) HandleScores(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	sport, league, ok := feedParams(w, r)
	if !ok {
		return
	}
	serve(w, r, "games", func(ctx context.Context) (any, int, error) {
		games, err := f.Loader.Scores(ctx, sport, league)
		return games, len(games), err
	})
}

// allowGet answers 405 for anything but GET, before any parameter checks.
func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

func feedParams(w http.ResponseWriter, r *http.Request) (sport, league string, ok bool) {
	q := r.URL.Query()
	sport, league = q.Get("sport"), q.Get("league")
	if sport == "" && league == "" {
		writeError(w, http.StatusBadRequest, "sport or league is required")
		return "", "", false
	}
	return sport, league, true
}

// serve runs load and writes {"<key>": items, "meta": {...}}. A failed
// upstream fetch maps to 503.
func serve(w http.ResponseWriter, r *http.Request, key string, load func(ctx context.Context) (any, int, error)) {
	start := time.Now()
	w.Header().Set("Access-Control-Allow-Origin", "*")

	items, count, err := load(r.Context())
	duration := time.Since(start)
	if err != nil {
		if errors.Is(err, resolver.ErrFetchFailed) {
			slog.Warn("Upstream unavailable", "path", r.URL.Path, "query", r.URL.RawQuery, "duration", duration)
			writeError(w, http.StatusServiceUnavailable, "data unavailable")
			return
		}
		slog.Error("Failed to load feed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("X-Query-Duration", duration.String())
	w.Header().Set("X-Items-Count", strconv.Itoa(count))
	writeJSON(w, http.StatusOK, map[string]any{
		key: items,
		"meta": map[string]any{
			"count":    count,
			"duration": duration.String(),
		},
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
