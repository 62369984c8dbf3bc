package builder

import "testing"

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"https", "https://example.com", true},
		{"http with path and query", "http://example.com/a/b?c=d#e", true},
		{"port", "http://localhost:8080", true},
		{"ipv6", "http://[::1]/", true},
		{"surrounding whitespace", "  https://example.com  ", true},
		{"mailto", "mailto:someone@example.com", true},
		{"file without host", "file:///tmp/x.html", true},
		{"custom scheme", "myapp:open", true},
		{"plain word", "not-a-url", false},
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"missing scheme", "example.com", false},
		{"scheme only", "https://", false},
		{"relative path", "/just/a/path", false},
		{"bad port", "http://example.com:port", false},
		{"leading digit scheme", "1http://example.com", false},
		{"stray percent in path", "https://example.com/a%zz", true},
		{"percent sign in path", "https://example.com/50%off", true},
		{"space in path", "https://example.com/a b", true},
		{"special scheme without slashes", "http:example.com", true},
		{"special scheme with one slash", "https:/example.com", true},
		{"backslashes", `https:\\example.com\a`, true},
		{"tab inside host", "https://exa\tmple.com", true},
		{"newline inside path", "https://example.com/a\nb", true},
		{"empty port", "http://example.com:/", true},
		{"max port", "http://example.com:65535", true},
		{"port out of range", "https://example.com:99999", false},
		{"long zero padded port", "http://example.com:0000080", true},
		{"credentials", "https://user:pw@example.com", true},
		{"credentials without host", "https://user@", false},
		{"space in host", "http://exa mple.com", false},
		{"stray percent in host", "http://exa%zzmple.com", false},
		{"ipv4", "http://192.168.0.1/", true},
		{"ipv4 out of range", "http://192.168.0.256/", false},
		{"single number host", "http://3232235521", true},
		{"too many ipv4 parts", "http://1.2.3.4.5", false},
		{"bad octal host", "http://08", false},
		{"unclosed ipv6", "http://[::1/", false},
		{"ipv4 in brackets", "http://[1.2.3.4]/", false},
		{"host and port without scheme slashes", "localhost:3000", true},
		{"non-special empty authority", "foo://", true},
		{"non-special port without host", "foo://:80", false},
		{"non-special bad port", "foo://host:99999", false},
		{"non-special percent host", "foo://a%zz/", true},
		{"file scheme only", "file:", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateURL(tt.in); got != tt.want {
				t.Errorf("ValidateURL(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
