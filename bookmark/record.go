// Package bookmark holds the bookmark data model used by linkreaper: the
// folder tree read from a browser, the flat records a check session works
// on, list queries over those records, and deletion with undo.
package bookmark

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a bookmark or folder ID does not exist.
var ErrNotFound = errors.New("bookmark not found")

// Record is a single URL bookmark flattened out of the tree.
// During a check session only Status and Checked are mutated, and only by
// the goroutine probing this record.
type Record struct {
	ID        string
	Title     string
	URL       string
	DateAdded time.Time
	ParentID  string
	Path      string // folder breadcrumb, e.g. "Bookmarks bar > Dev"
	Status    Status
	Checked   bool
}

// Advance moves the record to next if the transition is legal.
// It returns false and leaves the record unchanged otherwise.
func (r *Record) Advance(next Status) bool {
	if !r.Status.CanAdvance(next) {
		return false
	}
	r.Status = next
	if next.Terminal() {
		r.Checked = true
	}
	return true
}

// DisplayTitle returns the title, or a placeholder for untitled bookmarks.
func (r *Record) DisplayTitle() string {
	if r.Title == "" {
		return "Untitled"
	}
	return r.Title
}
