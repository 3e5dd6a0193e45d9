package result

import (
	"fmt"
	"io"
)

// PrintResults writes broken bookmark details and a summary to w.
func PrintResults(w io.Writer, res *Report) {
	broken := res.Broken()
	if len(broken) == 0 {
		_, _ = fmt.Fprintf(w, "No broken bookmarks found!\n")
	} else {
		_, _ = fmt.Fprintf(w, "Broken Bookmarks:\n")
		PrintLinks(w, broken)
	}
	PrintSummary(w, res)
}

// PrintLinks writes one block per link, separated by blank lines.
func PrintLinks(w io.Writer, links []LinkResult) {
	writef := func(format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

	for i, link := range links {
		writef("  [%s] %s\n", link.Status, link.Title)
		writef("  URL: %s\n", link.URL)
		if link.Error != "" {
			writef("  Error: %s\n", link.Error)
		} else if link.StatusCode != 0 {
			writef("  Status: %d\n", link.StatusCode)
		}
		if link.Folder != "" {
			writef("  Folder: %s\n", link.Folder)
		}
		if link.FailureStreak > 1 {
			writef("  Failing for %d runs\n", link.FailureStreak)
		}
		if i < len(links)-1 {
			writef("\n")
		}
	}
}

// PrintSummary writes the one-line tally of a report.
func PrintSummary(w io.Writer, res *Report) {
	prefix := ""
	if res.Stopped {
		prefix = "Stopped early: "
	}
	_, _ = fmt.Fprintf(w, "%sChecked %d of %d bookmarks: %d valid (%d skipped), %d invalid, %d timed out\n",
		prefix, res.Stats.Checked, res.Stats.Total, res.Stats.Valid, res.Stats.Skipped, res.Stats.Invalid, res.Stats.Timeout)
}
