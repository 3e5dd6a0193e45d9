package urlutil

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"fragment dropped", "https://go.dev/doc/effective_go#names", "https://go.dev/doc/effective_go", false},
		{"trailing slash dropped", "https://pkg.go.dev/net/http/", "https://pkg.go.dev/net/http", false},
		{"root slash kept", "https://go.dev/", "https://go.dev/", false},
		{"query kept", "https://www.google.com/search?q=golang", "https://www.google.com/search?q=golang", false},
		{"scheme and host lowercased, path kept", "HTTPS://GitHub.com/Golang/Go", "https://github.com/Golang/Go", false},
		{"default https port dropped", "https://go.dev:443/blog", "https://go.dev/blog", false},
		{"default http port dropped", "http://example.org:80/", "http://example.org/", false},
		{"other port kept", "http://example.org:8080/", "http://example.org:8080/", false},
		{"empty", "", "", true},
		{"no scheme", "://broken", "", true},
		{"no host", "mailto:someone@example.org", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Normalize(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeMakesEquivalentBookmarksEqual(t *testing.T) {
	a, errA := Normalize("https://Go.dev:443/doc/#install")
	b, errB := Normalize("https://go.dev/doc")
	if errA != nil || errB != nil {
		t.Fatalf("errors: %v, %v", errA, errB)
	}
	if a != b {
		t.Errorf("%q != %q", a, b)
	}
}

func TestNormalizeOrRaw(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"HTTPS://Example.com/a/#top", "https://example.com/a"},
		{"file:///home/me/notes.txt", "file:///home/me/notes.txt"},
		{"javascript:alert(1)", "javascript:alert(1)"},
	}

	for _, tt := range tests {
		if got := NormalizeOrRaw(tt.input); got != tt.want {
			t.Errorf("NormalizeOrRaw(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
