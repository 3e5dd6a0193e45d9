package result

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// WriteJSON writes the results as a formatted JSON array to the writer.
// Uses flat array format (not wrapped with metadata) for simpler scripting.
func WriteJSON(w io.Writer, links []LinkResult) error {
	if links == nil {
		links = []LinkResult{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(links); err != nil {
		return fmt.Errorf("write json output: %w", err)
	}
	return nil
}

// csvHeader is the column order of WriteCSV.
var csvHeader = []string{"id", "title", "url", "folder", "status", "skipped", "status_code", "error_type", "error", "attempts"}

// WriteCSV writes the results as CSV to the writer.
// Always includes a header row, even if there are no results.
func WriteCSV(w io.Writer, links []LinkResult) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, link := range links {
		record := []string{
			link.ID,
			link.Title,
			link.URL,
			link.Folder,
			link.Status.String(),
			strconv.FormatBool(link.Skipped),
			statusCodeStr(link.StatusCode),
			string(link.ErrorCategory),
			link.Error,
			strconv.Itoa(link.Attempts),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record for %s: %w", link.URL, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv output: %w", err)
	}
	return nil
}

// statusCodeStr converts an HTTP status code to a string.
// Returns empty string for 0 (no HTTP status).
func statusCodeStr(code int) string {
	if code == 0 {
		return ""
	}
	return strconv.Itoa(code)
}
