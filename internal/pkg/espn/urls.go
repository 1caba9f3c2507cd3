package espn

import (
	"net/url"
	"strings"
)

// URLs builds fetch targets under the site API base path.
type URLs struct {
	Base string
}

func (u URLs) base() string { return strings.TrimRight(u.Base, "/") }

// Sports is the sports index.
func (u URLs) Sports() string { return u.base() }

// Sport is the detail document of one sport, which lists its leagues.
func (u URLs) Sport(slug string) string {
	return u.base() + "/" + url.PathEscape(slug)
}

func (u URLs) News(sport, league string) string {
	return u.feed(sport, league, "news")
}

func (u URLs) Scoreboard(sport, league string) string {
	return u.feed(sport, league, "scoreboard")
}

// feed addresses a league-level feed when league is a "sport/league" pair
// and falls back to the sport-level feed otherwise.
func (u URLs) feed(sport, league, kind string) string {
	if s, l, ok := splitLeague(league); ok {
		return u.base() + "/" + url.PathEscape(s) + "/" + url.PathEscape(l) + "/" + kind
	}
	return u.base() + "/" + url.PathEscape(sport) + "/" + kind
}

func splitLeague(league string) (sport, name string, ok bool) {
	parts := strings.Split(league, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
