package websense

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const userAgent = "aura/0.1 (read-only)"

type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

type FetchResult struct {
	Title     string
	URL       string
	Text      string
	Snippet   string
	FetchedAt time.Time
	Domain    string
}

// DuckDuckGo HTML endpoint, no API key needed.
func Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if k <= 0 {
		k = 5
	}
	u := "https://duckduckgo.com/html/?q=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, errors.New("search http status: " + resp.Status)
	}

	b, _ := io.ReadAll(io.LimitReader(resp.Body, 2_000_000))
	html := string(b)

	// Result anchors: <a rel="nofollow" class="result__a" href="...">TITLE</a>
	re := regexp.MustCompile(`<a[^>]+class="result__a"[^>]+href="([^"]+)"[^>]*>([^<]+)</a>`)
	m := re.FindAllStringSubmatch(html, k)

	out := make([]SearchResult, 0, len(m))
	for _, mm := range m {
		out = append(out, SearchResult{
			Title: htmlUnescape(mm[2]),
			URL:   htmlUnescape(mm[1]),
		})
	}
	return out, nil
}

func Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	pu, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, errors.New("fetch http status: " + resp.Status)
	}

	b, _ := io.ReadAll(io.LimitReader(resp.Body, 3_000_000))
	html := string(b)

	title := extractTitle(html)
	text := normalizeWhitespace(stripHTML(html))

	snippet := text
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}

	return &FetchResult{
		Title:     title,
		URL:       rawURL,
		Text:      text,
		Snippet:   snippet,
		FetchedAt: time.Now(),
		Domain:    pu.Hostname(),
	}, nil
}

// FormatResults renders search results as the evidence block handed to the
// LLM. An empty result set degrades to a note, not an error.
func FormatResults(results []SearchResult) string {
	if len(results) == 0 {
		return "No recent search results found. Using general knowledge."
	}
	var b strings.Builder
	b.WriteString("Latest Search Results:\n\n")
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r.Title)
		if r.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", r.Snippet)
		}
	}
	return b.String()
}

func extractTitle(html string) string {
	re := regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	m := re.FindStringSubmatch(html)
	if len(m) < 2 {
		return ""
	}
	return normalizeWhitespace(stripHTML(m[1]))
}

func stripHTML(s string) string {
	reSS := regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</\1>`)
	s = reSS.ReplaceAllString(s, " ")

	reT := regexp.MustCompile(`(?is)<[^>]+>`)
	s = reT.ReplaceAllString(s, " ")

	return htmlUnescape(s)
}

func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	re := regexp.MustCompile(`\s+`)
	s = re.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func htmlUnescape(s string) string {
	r := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)
	return r.Replace(s)
}
