package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lukemcguire/linkreaper/bookmark"
	"github.com/lukemcguire/linkreaper/result"
)

// reviewPageSize is the number of rows on one page of the review list.
const reviewPageSize = 10

// reviewFilter is one step of the status filter cycle.
type reviewFilter struct {
	label  string
	status *bookmark.Status
	broken bool
}

func statusFilter(s bookmark.Status) reviewFilter {
	return reviewFilter{label: s.String(), status: &s}
}

// reviewFilters is the cycle walked by the f key.
var reviewFilters = []reviewFilter{
	{label: "broken", broken: true},
	statusFilter(bookmark.Invalid),
	statusFilter(bookmark.Timeout),
	statusFilter(bookmark.Valid),
	{label: "all"},
}

func (m Model) handleReviewKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q", "esc":
		m.quitting = true
		return m, tea.Quit
	case "f":
		m.filter = (m.filter + 1) % len(reviewFilters)
		m.page, m.cursor = 1, 0
	case "g":
		m.folder = (m.folder + 1) % (len(m.folderIDs()) + 1)
		m.page, m.cursor = 1, 0
	case "right", "pgdown":
		m.page++
		m.cursor = 0
	case "left", "pgup":
		m.page = max(1, m.page-1)
		m.cursor = 0
	case "down", "j":
		m.cursor++
	case "up", "k":
		m.cursor--
	case " ", "x":
		m.toggleSelected()
	case "a":
		m.togglePage()
	case "d":
		targets, kind := m.deleteTargets()
		if len(targets) == 0 {
			m.setNotice("No invalid bookmarks to delete.", false)
			break
		}
		m.pending, m.pendingKind = targets, kind
		m.phase = phaseConfirm
	case "u":
		if m.editor == nil || !m.editor.CanUndo() {
			m.setNotice("Nothing to undo.", false)
			break
		}
		return m, m.undoCmd()
	}
	m.clampList()
	return m, nil
}

// folderIDs lists the folders that directly hold a checked bookmark, in
// bookmark order.
func (m Model) folderIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, rec := range m.records {
		if !seen[rec.ParentID] {
			seen[rec.ParentID] = true
			ids = append(ids, rec.ParentID)
		}
	}
	return ids
}

func (m Model) folderLabel() string {
	if m.folder == 0 {
		return "all folders"
	}
	id := m.folderIDs()[m.folder-1]
	for _, rec := range m.records {
		if rec.ParentID == id && rec.Path != "" {
			return rec.Path
		}
	}
	return "folder " + id
}

func (m Model) query() bookmark.Query {
	f := reviewFilters[m.filter]
	q := bookmark.Query{
		Status:   f.status,
		Broken:   f.broken,
		Page:     m.page,
		PageSize: reviewPageSize,
	}
	if m.folder > 0 {
		q.FolderID = m.folderIDs()[m.folder-1]
	}
	return q
}

// reviewRecords snapshots the bookmarks that were not deleted, carrying the
// status the session reported for each.
func (m Model) reviewRecords() []*bookmark.Record {
	out := make([]*bookmark.Record, 0, len(m.records))
	for _, rec := range m.records {
		if m.deleted[rec.ID] {
			continue
		}
		snap := *rec
		snap.Status = m.statuses[rec.ID]
		out = append(out, &snap)
	}
	return out
}

func (m Model) reviewPage() bookmark.Page {
	return m.query().Apply(m.reviewRecords())
}

// clampList keeps the page number and cursor inside the current list.
func (m *Model) clampList() {
	p := m.reviewPage()
	m.page = p.Number
	if p.Pages == 0 {
		m.page = 1
	}
	m.cursor = max(0, min(m.cursor, len(p.Items)-1))
}

func (m *Model) toggleSelected() {
	items := m.reviewPage().Items
	if m.cursor >= len(items) {
		return
	}
	id := items[m.cursor].ID
	if m.selected[id] {
		delete(m.selected, id)
		return
	}
	m.selected[id] = true
}

// togglePage selects every row on the page, or clears them all when they
// are already selected.
func (m *Model) togglePage() {
	items := m.reviewPage().Items
	all := len(items) > 0
	for _, rec := range items {
		if !m.selected[rec.ID] {
			all = false
			break
		}
	}
	for _, rec := range items {
		if all {
			delete(m.selected, rec.ID)
		} else {
			m.selected[rec.ID] = true
		}
	}
}

// deleteTargets returns the selected bookmarks, or every invalid one when
// nothing is selected.
func (m Model) deleteTargets() ([]*bookmark.Record, string) {
	var selected []*bookmark.Record
	for _, rec := range m.records {
		if m.selected[rec.ID] && !m.deleted[rec.ID] {
			selected = append(selected, rec)
		}
	}
	if len(selected) > 0 {
		return selected, "selected"
	}
	return m.deletable(), "invalid"
}

func (m Model) resultsByID() map[string]result.LinkResult {
	out := make(map[string]result.LinkResult)
	if m.report == nil {
		return out
	}
	for _, link := range m.report.Results {
		out[link.ID] = link
	}
	return out
}

// renderReview draws the current page of the review list.
func (m Model) renderReview() string {
	var b strings.Builder
	if m.report != nil && m.report.Stopped {
		b.WriteString(promptStyle.Render(fmt.Sprintf(
			"Stopped after %d of %d bookmarks.", m.report.Stats.Checked, m.report.Stats.Total)))
		b.WriteString("\n")
	}

	page := m.reviewPage()
	b.WriteString(titleStyle.Render(fmt.Sprintf("Showing %s bookmarks in %s", reviewFilters[m.filter].label, m.folderLabel())))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  page %d/%d, %d selected", page.Number, max(page.Pages, 1), len(m.selected))))
	b.WriteString("\n")

	if len(page.Items) == 0 {
		b.WriteString(dimStyle.Render("No bookmarks match this filter."))
		b.WriteString("\n")
	} else {
		results := m.resultsByID()
		rows := make([][]string, 0, len(page.Items))
		for i, rec := range page.Items {
			mark := "[ ]"
			if m.selected[rec.ID] {
				mark = "[x]"
			}
			if i == m.cursor {
				mark = ">" + mark
			} else {
				mark = " " + mark
			}
			link := results[rec.ID]
			folder := link.Folder
			if folder == "" {
				folder = rec.Path
			}
			rows = append(rows, []string{mark, badge(rec.Status).label, rec.DisplayTitle(), rec.URL, folder, reason(link)})
		}

		cursor := m.cursor
		list := table.New().
			Border(lipgloss.RoundedBorder()).
			Headers("", "Status", "Title", "URL", "Folder", "Reason").
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				style := cellStyle
				if col == 1 || col == 5 {
					style = badge(page.Items[row].Status).style
				}
				if row == cursor {
					style = style.Bold(true)
				}
				return style
			}).
			Rows(rows...)
		if m.width > 0 {
			list = list.Width(m.width)
		}
		b.WriteString(list.Render())
		b.WriteString("\n")
	}

	b.WriteString(renderCounts(m.counts()))
	b.WriteString("\n")
	return b.String()
}
