package espn

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Vodeneev/sportsfeed/internal/pkg/models"
)

// DefaultLimit is how many articles and games a feed keeps.
const DefaultLimit = 8

// FallbackLeagues is offered when a sport document lists no leagues.
var FallbackLeagues = []models.League{
	{ID: "football/nfl", Label: "NFL", Path: "football/nfl"},
	{ID: "basketball/nba", Label: "NBA", Path: "basketball/nba"},
	{ID: "soccer/eng.1", Label: "Premier League", Path: "soccer/eng.1"},
}

// first returns the first non-blank candidate.
func first(candidates ...text) string {
	for _, c := range candidates {
		if s := strings.TrimSpace(string(c)); s != "" {
			return s
		}
	}
	return ""
}

// firstList returns the first non-empty list.
func firstList[T any](candidates ...list[T]) list[T] {
	for _, c := range candidates {
		if len(c) > 0 {
			return c
		}
	}
	return nil
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

func normalizeSports(doc sportsDoc) []models.Sport {
	out := make([]models.Sport, 0, len(doc.Sports))
	for _, s := range doc.Sports {
		slug := first(s.Slug)
		if slug == "" {
			continue
		}
		out = append(out, models.Sport{Slug: slug, Name: first(s.Name, s.Slug)})
	}
	return out
}

var whitespace = regexp.MustCompile(`\s+`)

func kebab(s string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
}

// normalizeLeagues turns a sport document into selectable leagues, falling
// back to FallbackLeagues when nothing usable is listed.
func normalizeLeagues(sport string, doc sportDoc) []models.League {
	records := firstList(doc.Leagues, doc.Sublinks, doc.Sites)
	if len(records) == 0 {
		for _, s := range doc.Sports {
			if len(s.Leagues) > 0 {
				records = s.Leagues
				break
			}
		}
	}

	out := make([]models.League, 0, len(records))
	for _, l := range records {
		id := first(l.UID, l.Slug)
		if id == "" {
			if name := first(l.Name); name != "" {
				id = kebab(name)
			} else {
				id = "league"
			}
		}
		league := models.League{
			ID:    id,
			Label: first(l.Name, l.DisplayName, l.Abbrev, l.Abbreviation, text(id)),
		}
		if slug := first(l.Slug); slug != "" && sport != "" {
			league.Path = sport + "/" + slug
		}
		out = append(out, league)
	}

	if len(out) == 0 {
		out = append(out, FallbackLeagues...)
	}
	return out
}

func normalizeNews(doc newsDoc, n int) []models.Article {
	records := limit(firstList(doc.Articles, doc.Headlines, doc.Items, doc.News), n)
	out := make([]models.Article, 0, len(records))
	for _, a := range records {
		out = append(out, models.Article{
			Title:    plainText(first(a.Title, a.Headline, a.Name, a.ShortDescription, a.Lede)),
			Summary:  plainText(first(a.Summary, a.Description, a.Excerpt)),
			ImageURL: articleImage(a),
			Link:     articleLink(a),
		})
	}
	return out
}

func articleImage(a articleRecord) string {
	if len(a.Images) > 0 {
		if u := first(a.Images[0].URL); u != "" {
			return u
		}
	}
	if thumb, ok := a.Thumbnail.get(); ok {
		return first(thumb.Href)
	}
	return ""
}

func articleLink(a articleRecord) string {
	if links, ok := a.Links.get(); ok {
		if web, ok := links.Web.get(); ok {
			if href := first(web.Href); href != "" {
				return href
			}
		}
	}
	if link := first(a.Link); link != "" {
		return link
	}
	return "#"
}

func normalizeScores(doc scoreboardDoc, n int) []models.Game {
	records := limit(firstList(doc.Events, doc.Games), n)
	out := make([]models.Game, 0, len(records))
	for _, ev := range records {
		competitors := ev.Competitors
		if len(ev.Competitions) > 0 && len(ev.Competitions[0].Competitors) > 0 {
			competitors = ev.Competitions[0].Competitors
		}

		game := models.Game{ID: first(ev.ID, ev.UID)}
		parts := make([]string, 0, len(competitors))
		for _, c := range competitors {
			name := first(c.Name)
			if team, ok := c.Team.get(); ok {
				if dn := first(team.DisplayName); dn != "" {
					name = dn
				}
			}
			score := first(c.Score)
			game.Competitors = append(game.Competitors, models.Competitor{Name: name, Score: score})
			if score != "" {
				parts = append(parts, name+" "+score)
			} else {
				parts = append(parts, name)
			}
		}
		game.Line = strings.Join(parts, " vs ")
		if game.ID == "" {
			game.ID = first(ev.Name, text(game.Line))
		}

		if st, ok := ev.Status.get(); ok {
			if typ, ok := st.Type.get(); ok {
				game.Status = first(typ.ShortDetail, typ.Description)
			}
		}
		out = append(out, game)
	}
	return out
}

// plainText drops markup some feeds embed in titles and summaries.
func plainText(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.TrimSpace(whitespace.ReplaceAllString(doc.Text(), " "))
}
