package urlutil

import "testing"

func TestIsHTTPScheme(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"https scheme", "https://example.com", true},
		{"http scheme", "http://example.com", true},
		{"uppercase scheme", "HTTP://example.com", true},
		{"mailto scheme", "mailto:user@example.com", false},
		{"javascript bookmarklet", "javascript:void(0)", false},
		{"ftp scheme", "ftp://files.example.com", false},
		{"chrome internal page", "chrome://settings", false},
		{"empty string", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsHTTPScheme(tt.input)
			if got != tt.expected {
				t.Errorf("IsHTTPScheme(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsLocalOrIntranet(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"file URL", "file:///C:/Users/me/index.html", true},
		{"localhost", "http://localhost:3000/app", true},
		{"localhost uppercase", "http://LOCALHOST/", true},
		{"loopback", "http://127.0.0.1:8080", true},
		{"mdns name", "http://printer.local/status", true},
		{"10/8", "http://10.0.0.5/x", true},
		{"10/8 upper edge", "https://10.255.255.255/", true},
		{"172.16/12 low", "http://172.16.0.1/", true},
		{"172.16/12 high", "http://172.31.200.4/", true},
		{"172.15 outside", "http://172.15.0.1/", false},
		{"172.32 outside", "http://172.32.0.1/", false},
		{"192.168/16", "http://192.168.1.1/admin", true},
		{"192.169 outside", "http://192.169.1.1/", false},
		{"public IP", "http://8.8.8.8/", false},
		{"public host", "https://example.com/", false},
		{"local as label not suffix", "https://local.example.com/", false},
		{"four-digit group is not an IP", "http://1000.0.0.1/", false},
		{"three groups is not an IP", "http://10.0.1/", false},
		{"malformed URL", "http://[::1", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsLocalOrIntranet(tt.input); got != tt.expected {
				t.Errorf("IsLocalOrIntranet(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsCheckable(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"https://example.com/", true},
		{"file:///home/me/notes.txt", true},
		{"http://", true},
		{"http://exa mple.com/", true},
		{"http://%zz/", true},
		{"https://[::1", true},
		{"example.com/no-scheme", true},
		{"javascript:void(0)", false},
		{"mailto:user@example.com", false},
		{"chrome://settings", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsCheckable(tt.input); got != tt.want {
			t.Errorf("IsCheckable(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
