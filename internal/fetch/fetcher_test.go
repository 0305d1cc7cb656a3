package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vkuzmin-dev/polyglot/internal/logger"
)

func TestIsURL(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"https://example.com/article", true},
		{"http://example.com", true},
		{"ftp://example.com", false},
		{"example.com", false},
		{"not a url", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsURL(tt.text); got != tt.want {
			t.Errorf("IsURL(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestPageTextStripsChrome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><title>t</title><script>var x = 1;</script></head>
			<body><nav>menu items</nav><p>First paragraph.</p>
			<p>Second   paragraph.</p><footer>copyright</footer></body></html>`))
	}))
	defer srv.Close()

	f := New(srv.Client(), logger.NewTestLogger())
	text, err := f.PageText(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("PageText failed: %v", err)
	}

	if !strings.Contains(text, "First paragraph. Second paragraph.") {
		t.Errorf("expected normalized paragraphs, got %q", text)
	}
	for _, stripped := range []string{"var x", "menu items", "copyright"} {
		if strings.Contains(text, stripped) {
			t.Errorf("expected %q to be stripped, got %q", stripped, text)
		}
	}
}

func TestPageTextPlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("just plain text\n"))
	}))
	defer srv.Close()

	f := New(srv.Client(), logger.NewTestLogger())
	text, err := f.PageText(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("PageText failed: %v", err)
	}
	if text != "just plain text" {
		t.Errorf("got %q", text)
	}
}

func TestPageTextErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := New(srv.Client(), logger.NewTestLogger())
	if _, err := f.PageText(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error on 403")
	}
}

func TestPageTextRejectsInvalidURL(t *testing.T) {
	f := New(http.DefaultClient, logger.NewTestLogger())
	if _, err := f.PageText(context.Background(), "not-a-url"); err == nil {
		t.Fatal("expected error for invalid URL")
	}
}
