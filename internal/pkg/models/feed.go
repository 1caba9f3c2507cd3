package models

// Sport is one entry of the sports index.
type Sport struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// League is a selectable league of a sport. ID follows the upstream
// identifier (uid, slug or derived from the name); Path is the
// "sport/league" segment pair used to address league-level news and
// scoreboards, empty when the upstream gives nothing to build it from.
type League struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Path  string `json:"path,omitempty"`
}

// Selector returns the value used to build league-level URLs.
func (l League) Selector() string {
	if l.Path != "" {
		return l.Path
	}
	return l.ID
}

type Article struct {
	Title    string `json:"title"`
	Summary  string `json:"summary,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Link     string `json:"link"`
}

type Competitor struct {
	Name  string `json:"name"`
	Score string `json:"score,omitempty"`
}

// Game is one scoreboard entry.
type Game struct {
	ID          string       `json:"id"`
	Competitors []Competitor `json:"competitors"`
	// Line is the display form: "Home 3 vs Away 1".
	Line   string `json:"line"`
	Status string `json:"status,omitempty"`
}
