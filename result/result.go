// Package result holds the outcome of a bookmark check session: per-bookmark
// results, aggregate statistics, error classification and report writers.
package result

import (
	"time"

	"github.com/lukemcguire/linkreaper/bookmark"
)

// LinkResult represents the result of checking a single bookmark.
type LinkResult struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	URL           string          `json:"url"`
	Folder        string          `json:"folder"`
	Status        bookmark.Status `json:"status"`
	Skipped       bool            `json:"skipped"`     // local/intranet URL, not probed
	StatusCode    int             `json:"status_code"` // 0 when no response was seen
	Error         string          `json:"error,omitempty"`
	ErrorCategory ErrorCategory   `json:"error_type,omitempty"`
	Attempts      int             `json:"attempts"`
	FailureStreak int             `json:"failure_streak,omitempty"` // consecutive failed runs, from history
}

// Stats contains aggregate statistics for a check session.
type Stats struct {
	Total    int           // bookmarks in the session
	Checked  int           // bookmarks with a terminal status
	Valid    int           // includes skipped
	Invalid  int
	Timeout  int
	Skipped  int           // local/intranet bookmarks that were not probed
	Duration time.Duration // wall time of the session
}

// Broken returns the number of invalid and timed-out bookmarks.
func (s Stats) Broken() int {
	return s.Invalid + s.Timeout
}

// Report is the complete output of a check session.
type Report struct {
	RunID   string       // unique ID of the session, used by the history store
	Results []LinkResult // one entry per checked bookmark, in queue order
	Stats   Stats
	Stopped bool // the session was stopped before the queue was drained
}

// Broken returns the invalid and timed-out results.
func (r *Report) Broken() []LinkResult {
	var broken []LinkResult
	for _, res := range r.Results {
		if res.Status.Broken() {
			broken = append(broken, res)
		}
	}
	return broken
}

// ByStatus returns the results with the given status.
func (r *Report) ByStatus(status bookmark.Status) []LinkResult {
	var matched []LinkResult
	for _, res := range r.Results {
		if res.Status == status {
			matched = append(matched, res)
		}
	}
	return matched
}

// Tally recomputes the status counters in Stats from Results.
func (r *Report) Tally() {
	r.Stats.Checked = 0
	r.Stats.Valid, r.Stats.Invalid, r.Stats.Timeout, r.Stats.Skipped = 0, 0, 0, 0
	for _, res := range r.Results {
		switch res.Status {
		case bookmark.Valid:
			r.Stats.Valid++
		case bookmark.Invalid:
			r.Stats.Invalid++
		case bookmark.Timeout:
			r.Stats.Timeout++
		default:
			continue
		}
		r.Stats.Checked++
		if res.Skipped {
			r.Stats.Skipped++
		}
	}
}
