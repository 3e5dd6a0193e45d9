package result

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/lukemcguire/linkreaper/bookmark"
)

func sampleLinks() []LinkResult {
	return []LinkResult{
		{
			ID:            "12",
			Title:         "Old blog",
			URL:           "https://example.com/broken?a=1&b=2",
			Folder:        "Bookmarks bar > Reading",
			Status:        bookmark.Invalid,
			Error:         "dial tcp: lookup example.com: no such host",
			ErrorCategory: CategoryDNSFailure,
			Attempts:      1,
		},
		{
			ID:       "13",
			Title:    "NAS",
			URL:      "http://192.168.1.10/",
			Status:   bookmark.Valid,
			Skipped:  true,
			Attempts: 0,
		},
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleLinks()); err != nil {
		t.Fatalf("WriteJSON returned error: %v", err)
	}

	var decoded []LinkResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("Expected 2 links, got %d", len(decoded))
	}
	if decoded[0].Status != bookmark.Invalid || !decoded[1].Skipped {
		t.Errorf("decoded = %+v", decoded)
	}

	var raw []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("Failed to unmarshal to map: %v", err)
	}
	for _, key := range []string{"id", "url", "status", "skipped", "status_code", "error_type", "folder", "attempts"} {
		if _, ok := raw[0][key]; !ok {
			t.Errorf("Expected %q field in JSON output", key)
		}
	}
	if raw[0]["status"] != "invalid" {
		t.Errorf("status serialized as %v, want \"invalid\"", raw[0]["status"])
	}

	if !strings.Contains(buf.String(), "?a=1&b=2") {
		t.Error("URLs should not be HTML-escaped")
	}
}

func TestWriteJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, nil); err != nil {
		t.Fatalf("WriteJSON returned error: %v", err)
	}
	if buf.String() != "[]\n" {
		t.Errorf("Expected '[]\\n', got %q", buf.String())
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleLinks()); err != nil {
		t.Fatalf("WriteCSV returned error: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV output: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records (header + 2 data), got %d", len(records))
	}
	for i, col := range csvHeader {
		if records[0][i] != col {
			t.Errorf("Header column %d: expected %q, got %q", i, col, records[0][i])
		}
	}

	row := records[1]
	if row[2] != "https://example.com/broken?a=1&b=2" || row[4] != "invalid" || row[7] != "dns_failure" {
		t.Errorf("unexpected first row: %v", row)
	}
	if records[2][5] != "true" {
		t.Errorf("Expected skipped=true in row 2, got %q", records[2][5])
	}
	if records[2][6] != "" {
		t.Errorf("Expected empty status_code for status 0, got %q", records[2][6])
	}
}

func TestWriteCSV_EmptyWithHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV returned error: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV output: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Expected 1 record (header only), got %d", len(records))
	}
}

func TestStatusCodeStr(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{0, ""},
		{200, "200"},
		{404, "404"},
	}

	for _, tt := range tests {
		if got := statusCodeStr(tt.code); got != tt.expected {
			t.Errorf("statusCodeStr(%d) = %q, expected %q", tt.code, got, tt.expected)
		}
	}
}
