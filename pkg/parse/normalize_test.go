package parse

import (
	"errors"
	"net/url"
	"testing"

	"render-crawler/pkg/utils"
)

func TestNormalizeURL_NilInput(t *testing.T) {
	result := NormalizeURL(nil)
	if result != "" {
		t.Errorf("NormalizeURL(nil) = %q, want empty string", result)
	}
}

func TestNormalizeURL_SchemeAndHostLowercase(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "UppercaseScheme",
			input:    "HTTP://example.com/path",
			expected: "http://example.com/path",
		},
		{
			name:     "UppercaseHost",
			input:    "http://EXAMPLE.COM/path",
			expected: "http://example.com/path",
		},
		{
			name:     "MixedCase",
			input:    "HTTPS://Example.COM/Path",
			expected: "https://example.com/Path", // Path case preserved
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, _ := url.Parse(tt.input)
			result := NormalizeURL(parsed)
			if result != tt.expected {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeURL_DefaultPorts(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"HTTPPort80Removed", "http://example.com:80/path", "http://example.com/path"},
		{"HTTPSPort443Removed", "https://example.com:443/path", "https://example.com/path"},
		{"NonDefaultPortKept", "http://example.com:8080/path", "http://example.com:8080/path"},
		{"HTTPOn443Kept", "http://example.com:443/path", "http://example.com:443/path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, _ := url.Parse(tt.input)
			if result := NormalizeURL(parsed); result != tt.expected {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeURL_FragmentRemovedQueryKept(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"EmptyPathBecomesRoot", "http://example.com", "http://example.com/"},
		{"FragmentRemoved", "http://example.com/page#section", "http://example.com/page"},
		{"QueryKept", "http://example.com/search?q=go", "http://example.com/search?q=go"},
		{"QueryKeptFragmentRemoved", "http://example.com/search?q=go#top", "http://example.com/search?q=go"},
		{"TrailingSlashKept", "http://example.com/docs/", "http://example.com/docs/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, _ := url.Parse(tt.input)
			if result := NormalizeURL(parsed); result != tt.expected {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeURL_DoesNotModifyInput(t *testing.T) {
	parsed, _ := url.Parse("HTTP://Example.com:80/Path#frag")
	original := parsed.String()

	_ = NormalizeURL(parsed)

	if parsed.String() != original {
		t.Errorf("NormalizeURL modified input: got %q, want %q", parsed.String(), original)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"https://ex.com/a",
		"HTTPS://EX.com:443",
		"http://example.com/a/b?x=1&y=2#frag",
		"https://example.com/docs/",
		"https://example.com/%E2%82%AC/price",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			first, err := Normalize(input)
			if err != nil {
				t.Fatalf("Normalize(%q) unexpected error: %v", input, err)
			}
			second, err := Normalize(first)
			if err != nil {
				t.Fatalf("Normalize(%q) unexpected error: %v", first, err)
			}
			if first != second {
				t.Errorf("Normalize not idempotent: %q -> %q -> %q", input, first, second)
			}
		})
	}
}

func TestNormalize_AbsoluteUnchanged(t *testing.T) {
	got, err := Normalize("https://ex.com/b")
	if err != nil {
		t.Fatalf("Normalize() unexpected error: %v", err)
	}
	if got != "https://ex.com/b" {
		t.Errorf("Normalize() = %q, want %q", got, "https://ex.com/b")
	}
}

func TestNormalize_Rejects(t *testing.T) {
	inputs := []string{
		"mailto:someone@example.com",
		"javascript:void(0)",
		"ftp://example.com/file",
		"/relative/path",
		"http://",
		"http://[::1",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := Normalize(input)
			if err == nil {
				t.Fatalf("Normalize(%q) expected error, got nil", input)
			}
			if !errors.Is(err, utils.ErrInvalidURL) {
				t.Errorf("Normalize(%q) error = %v, want ErrInvalidURL", input, err)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		ref      string
		expected string
	}{
		{"RootRelative", "https://ex.com/a", "/c", "https://ex.com/c"},
		{"Relative", "https://ex.com/docs/intro", "guide", "https://ex.com/docs/guide"},
		{"ParentRelative", "https://ex.com/docs/api/x", "../y", "https://ex.com/docs/y"},
		{"AbsoluteIgnoresBase", "https://ex.com/a", "https://other.org/b", "https://other.org/b"},
		{"FragmentOnlyIsBase", "https://ex.com/a", "#top", "https://ex.com/a"},
		{"ProtocolRelative", "https://ex.com/a", "//cdn.ex.com/x", "https://cdn.ex.com/x"},
		{"QueryOnly", "https://ex.com/list", "?page=2", "https://ex.com/list?page=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.base, tt.ref)
			if err != nil {
				t.Fatalf("Resolve(%q, %q) unexpected error: %v", tt.base, tt.ref, err)
			}
			if got != tt.expected {
				t.Errorf("Resolve(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.expected)
			}
		})
	}
}

func TestResolve_SameInputsSameResult(t *testing.T) {
	a, errA := Resolve("https://ex.com/a/b", "../c")
	b, errB := Resolve("https://ex.com/a/b", "../c")
	if errA != nil || errB != nil {
		t.Fatalf("Resolve() unexpected errors: %v, %v", errA, errB)
	}
	if a != b {
		t.Errorf("Resolve() not deterministic: %q vs %q", a, b)
	}
}

func TestResolve_Errors(t *testing.T) {
	if _, err := Resolve("not-absolute", "/c"); !errors.Is(err, utils.ErrInvalidURL) {
		t.Errorf("Resolve with relative base error = %v, want ErrInvalidURL", err)
	}
	if _, err := Resolve("https://ex.com/", "mailto:x@ex.com"); !errors.Is(err, utils.ErrInvalidURL) {
		t.Errorf("Resolve mailto error = %v, want ErrInvalidURL", err)
	}
}
