// Package fetch retrieves web pages and reduces them to plain text
// suitable for a summarization prompt.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/vkuzmin-dev/polyglot/internal/logger"
)

// MaxTextLength caps the extracted text so a huge article does not
// blow past provider input limits.
const MaxTextLength = 12000

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/136.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:138.0) Gecko/20100101 Firefox/138.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Safari/605.1.15",
}

var whitespaceRe = regexp.MustCompile(`\s+`)

type Fetcher struct {
	client *http.Client
	logger logger.Logger
}

func New(client *http.Client, log logger.Logger) *Fetcher {
	return &Fetcher{
		client: client,
		logger: log.WithField("component", "fetch"),
	}
}

// IsURL reports whether text is a single http(s) URL and nothing else.
func IsURL(text string) bool {
	u, err := url.ParseRequestURI(text)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// PageText downloads the page and returns its visible text with
// chrome (scripts, navigation, footers) stripped and whitespace
// collapsed.
func (f *Fetcher) PageText(ctx context.Context, pageURL string) (string, error) {
	if !IsURL(pageURL) {
		return "", fmt.Errorf("invalid URL: %s", pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("connection reset by peer (EOF) fetching %s", pageURL)
		}
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	utf8Reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("charset detection failed: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "html") {
		body, err := io.ReadAll(io.LimitReader(utf8Reader, MaxTextLength))
		if err != nil {
			return "", fmt.Errorf("reading body failed: %w", err)
		}
		return strings.TrimSpace(string(body)), nil
	}

	doc, err := goquery.NewDocumentFromReader(utf8Reader)
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	text := ExtractText(doc)
	if text == "" {
		return "", fmt.Errorf("no readable text on %s", pageURL)
	}

	f.logger.WithFields(logger.Fields{
		"url":   pageURL,
		"chars": len(text),
	}).Debug("Page text extracted")

	return text, nil
}

// ExtractText strips non-content nodes and collapses whitespace.
func ExtractText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, footer, nav, aside, header, form, iframe, .cookie-consent, .sidebar").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	text := whitespaceRe.ReplaceAllString(doc.Text(), " ")
	text = strings.TrimSpace(text)
	if len(text) > MaxTextLength {
		text = text[:MaxTextLength]
	}
	return text
}
