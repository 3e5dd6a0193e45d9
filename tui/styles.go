package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lukemcguire/linkreaper/bookmark"
	"github.com/lukemcguire/linkreaper/result"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	cellStyle    = lipgloss.NewStyle()
	promptStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
)

// statusBadge is how a status is shown.
type statusBadge struct {
	label string
	style lipgloss.Style
}

// statusBadges is indexed by bookmark.Status and must cover every status.
var statusBadges = [bookmark.StatusCount]statusBadge{
	bookmark.Pending:  {"Pending", lipgloss.NewStyle().Faint(true)},
	bookmark.Checking: {"Checking", lipgloss.NewStyle().Foreground(lipgloss.Color("12"))},
	bookmark.Valid:    {"Valid", lipgloss.NewStyle().Foreground(lipgloss.Color("10"))},
	bookmark.Invalid:  {"Invalid", lipgloss.NewStyle().Foreground(lipgloss.Color("9"))},
	bookmark.Timeout:  {"Timeout", lipgloss.NewStyle().Foreground(lipgloss.Color("11"))},
}

func badge(s bookmark.Status) statusBadge {
	if int(s) < 0 || int(s) >= len(statusBadges) {
		return statusBadge{label: s.String(), style: dimStyle}
	}
	return statusBadges[s]
}

// renderCounts renders one "Label: n" badge per status, skipping zeros.
func renderCounts(counts [bookmark.StatusCount]int) string {
	parts := make([]string, 0, len(counts))
	for _, s := range bookmark.Statuses() {
		if counts[s] == 0 {
			continue
		}
		b := badge(s)
		parts = append(parts, b.style.Render(fmt.Sprintf("%s: %d", b.label, counts[s])))
	}
	return strings.Join(parts, "  ")
}

// summaryOrder lists the statuses that get a table, most actionable first.
var summaryOrder = []bookmark.Status{bookmark.Invalid, bookmark.Timeout}

// RenderSummary produces a Lip Gloss styled summary of a check report.
// Bookmarks whose IDs are in hidden (deleted ones) are left out.
func RenderSummary(rep *result.Report, hidden map[string]bool) string {
	if rep == nil {
		return errorStyle.Render("No results available.")
	}

	var builder strings.Builder
	var counts [bookmark.StatusCount]int
	grouped := make(map[bookmark.Status][]result.LinkResult)
	for _, link := range rep.Results {
		if hidden[link.ID] {
			continue
		}
		counts[link.Status]++
		grouped[link.Status] = append(grouped[link.Status], link)
	}

	if rep.Stopped {
		builder.WriteString(promptStyle.Render(fmt.Sprintf(
			"Stopped after %d of %d bookmarks.", rep.Stats.Checked, rep.Stats.Total)))
		builder.WriteString("\n\n")
	}

	broken := counts[bookmark.Invalid] + counts[bookmark.Timeout]
	if broken == 0 {
		builder.WriteString(successStyle.Render("No broken bookmarks found!"))
		builder.WriteString("\n")
		builder.WriteString(dimStyle.Render(fmt.Sprintf(
			"Checked %d bookmarks in %s (%d local skipped)",
			rep.Stats.Checked,
			rep.Stats.Duration.Round(1_000_000), // round to ms
			rep.Stats.Skipped,
		)))
		builder.WriteString("\n")
		return builder.String()
	}

	for _, status := range summaryOrder {
		links := grouped[status]
		if len(links) == 0 {
			continue
		}

		b := badge(status)
		builder.WriteString(b.style.Bold(true).Render(fmt.Sprintf("## %s (%d)", b.label, len(links))))
		builder.WriteString("\n")

		rows := make([][]string, 0, len(links))
		for _, link := range links {
			rows = append(rows, []string{link.Title, link.URL, link.Folder, reason(link)})
		}

		reasonStyle := b.style
		statusTable := table.New().
			Border(lipgloss.RoundedBorder()).
			Headers("Title", "URL", "Folder", "Reason").
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				if col == 3 {
					return reasonStyle
				}
				return cellStyle
			}).
			Rows(rows...)

		builder.WriteString(statusTable.Render())
		builder.WriteString("\n\n")
	}

	builder.WriteString(titleStyle.Render(fmt.Sprintf(
		"Found %d broken bookmarks out of %d checked (%s)",
		broken,
		rep.Stats.Checked,
		rep.Stats.Duration.Round(1_000_000),
	)))
	builder.WriteString("\n")
	builder.WriteString(renderCounts(counts))
	builder.WriteString("\n")

	return builder.String()
}

// reason explains why a link is broken.
func reason(link result.LinkResult) string {
	parts := []string{}
	if link.ErrorCategory != "" {
		parts = append(parts, result.FormatCategory(link.ErrorCategory))
	}
	if link.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", link.StatusCode))
	}
	if link.FailureStreak > 1 {
		parts = append(parts, fmt.Sprintf("failing %d runs", link.FailureStreak))
	}
	if len(parts) == 0 {
		return link.Error
	}
	return strings.Join(parts, ", ")
}
