package bookmark

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// SortField selects the column records are ordered by.
type SortField string

const (
	SortByTitle     SortField = "title"
	SortByURL       SortField = "url"
	SortByDateAdded SortField = "dateAdded"
)

// DefaultPageSize is used when a Query leaves PageSize unset.
const DefaultPageSize = 20

// ParseSortField validates a user-supplied sort column.
func ParseSortField(name string) (SortField, error) {
	switch field := SortField(name); field {
	case SortByTitle, SortByURL, SortByDateAdded:
		return field, nil
	default:
		return "", fmt.Errorf("unknown sort field %q (want title, url or dateAdded)", name)
	}
}

// Query filters, sorts and paginates a list of records.
type Query struct {
	FolderID string  // only records directly inside this folder; empty = all
	Status   *Status // only records with this status; nil = all
	Broken   bool    // only invalid or timed-out records
	Search   string  // case-insensitive substring of title or URL
	Sort     SortField
	Desc     bool
	Page     int // 1-based; values < 1 are treated as 1
	PageSize int // <= 0 means DefaultPageSize
}

// Page is one page of query results.
type Page struct {
	Items  []*Record
	Total  int // matching records across all pages
	Number int
	Pages  int
}

// Filter returns the records matching the folder, status and search filters,
// in their original order.
func (q Query) Filter(records []*Record) []*Record {
	search := strings.ToLower(q.Search)
	matched := make([]*Record, 0, len(records))
	for _, rec := range records {
		if q.FolderID != "" && rec.ParentID != q.FolderID {
			continue
		}
		if q.Status != nil && rec.Status != *q.Status {
			continue
		}
		if q.Broken && !rec.Status.Broken() {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(rec.Title), search) &&
			!strings.Contains(strings.ToLower(rec.URL), search) {
			continue
		}
		matched = append(matched, rec)
	}
	return matched
}

// Apply filters, sorts and paginates records. The input slice is not modified.
func (q Query) Apply(records []*Record) Page {
	matched := q.Filter(records)
	q.sort(matched)

	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := (len(matched) + size - 1) / size
	number := max(q.Page, 1)
	if pages > 0 && number > pages {
		number = pages
	}

	start := min((number-1)*size, len(matched))
	end := min(start+size, len(matched))

	return Page{
		Items:  matched[start:end],
		Total:  len(matched),
		Number: number,
		Pages:  pages,
	}
}

func (q Query) sort(records []*Record) {
	if q.Sort == "" {
		return
	}
	slices.SortStableFunc(records, func(a, b *Record) int {
		var c int
		switch q.Sort {
		case SortByTitle:
			c = cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		case SortByURL:
			c = cmp.Compare(strings.ToLower(a.URL), strings.ToLower(b.URL))
		case SortByDateAdded:
			c = a.DateAdded.Compare(b.DateAdded)
		}
		if q.Desc {
			return -c
		}
		return c
	})
}

// CountByStatus tallies records per status.
func CountByStatus(records []*Record) [StatusCount]int {
	var counts [StatusCount]int
	for _, rec := range records {
		if rec.Status.IsValid() {
			counts[rec.Status]++
		}
	}
	return counts
}
