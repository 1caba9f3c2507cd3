package handlers

import (
	"net/http"
)

// Poll triggers the score watcher.
type Poll struct {
	Trigger func()
}

// HandlePoll handles GET|POST /poll: requests an immediate scoreboard poll
// and returns without waiting for it.
func (p *Poll) HandlePoll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if p.Trigger == nil {
		writeError(w, http.StatusNotFound, "score watch is not running")
		return
	}
	p.Trigger()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "triggered"})
}
