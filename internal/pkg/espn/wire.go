package espn

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// The site API reshapes its documents between sports and endpoints, so the
// records below declare every field name seen in the wild as optional and
// never fail on a field of an unexpected type.

// text decodes a JSON string or number; anything else decodes to "".
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			*t = text(s)
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(b, &n); err == nil {
			*t = text(n.String())
		}
	case 't', 'f':
		if v, err := strconv.ParseBool(string(b)); err == nil {
			*t = text(strconv.FormatBool(v))
		}
	}
	return nil
}

// list decodes a JSON array of T, skipping elements that do not decode.
// Any non-array value decodes to an empty list.
type list[T any] []T

func (l *list[T]) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		*l = nil
		return nil
	}
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	*l = out
	return nil
}

// obj decodes a JSON object into T; any other value decodes to nil.
type obj[T any] struct {
	V *T
}

func (o *obj[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	o.V = &v
	return nil
}

func (o obj[T]) get() (T, bool) {
	if o.V == nil {
		var zero T
		return zero, false
	}
	return *o.V, true
}

type sportsDoc struct {
	Sports list[sportRecord] `json:"sports"`
}

type sportRecord struct {
	Slug    text               `json:"slug"`
	Name    text               `json:"name"`
	Leagues list[leagueRecord] `json:"leagues"`
}

type sportDoc struct {
	Leagues  list[leagueRecord] `json:"leagues"`
	Sublinks list[leagueRecord] `json:"sublinks"`
	Sites    list[leagueRecord] `json:"sites"`
	Sports   list[sportRecord]  `json:"sports"`
}

type leagueRecord struct {
	UID          text `json:"uid"`
	Slug         text `json:"slug"`
	Name         text `json:"name"`
	DisplayName  text `json:"displayName"`
	Abbrev       text `json:"abbrev"`
	Abbreviation text `json:"abbreviation"`
}

type newsDoc struct {
	Articles  list[articleRecord] `json:"articles"`
	Headlines list[articleRecord] `json:"headlines"`
	Items     list[articleRecord] `json:"items"`
	News      list[articleRecord] `json:"news"`
}

type articleRecord struct {
	Title            text              `json:"title"`
	Headline         text              `json:"headline"`
	Name             text              `json:"name"`
	ShortDescription text              `json:"shortDescription"`
	Lede             text              `json:"lede"`
	Summary          text              `json:"summary"`
	Description      text              `json:"description"`
	Excerpt          text              `json:"excerpt"`
	Images           list[imageRecord] `json:"images"`
	Thumbnail        obj[hrefRecord]   `json:"thumbnail"`
	Links            obj[articleLinks] `json:"links"`
	Link             text              `json:"link"`
}

type imageRecord struct {
	URL text `json:"url"`
}

type hrefRecord struct {
	Href text `json:"href"`
}

type articleLinks struct {
	Web obj[hrefRecord] `json:"web"`
}

type scoreboardDoc struct {
	Events list[eventRecord] `json:"events"`
	Games  list[eventRecord] `json:"games"`
}

type eventRecord struct {
	ID           text                    `json:"id"`
	UID          text                    `json:"uid"`
	Name         text                    `json:"name"`
	Competitions list[competitionRecord] `json:"competitions"`
	Competitors  list[competitorRecord]  `json:"competitors"`
	Status       obj[statusRecord]       `json:"status"`
}

type competitionRecord struct {
	Competitors list[competitorRecord] `json:"competitors"`
}

type competitorRecord struct {
	Team  obj[teamRecord] `json:"team"`
	Name  text            `json:"name"`
	Score text            `json:"score"`
}

type teamRecord struct {
	DisplayName text `json:"displayName"`
}

type statusRecord struct {
	Type obj[statusType] `json:"type"`
}

type statusType struct {
	ShortDetail text `json:"shortDetail"`
	Description text `json:"description"`
}
