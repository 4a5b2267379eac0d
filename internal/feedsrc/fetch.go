package feedsrc

import (
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// BodyFetcher pulls full article text for candidates whose feed entry only
// carries a stub description.
type BodyFetcher struct {
	client        *http.Client
	failedDomains map[string]struct{}
}

// NewBodyFetcher creates a fetcher with the given per-request timeout.
func NewBodyFetcher(timeout time.Duration) *BodyFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &BodyFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		failedDomains: make(map[string]struct{}),
	}
}

// Fetch returns readable article text, or "" when nothing was extractable.
// A domain that returns an HTTP error is skipped for the rest of the run.
func (f *BodyFetcher) Fetch(articleURL string) string {
	u, _ := url.Parse(articleURL)
	domain := ""
	if u != nil {
		domain = strings.ToLower(u.Host)
	}
	if _, failed := f.failedDomains[domain]; failed {
		return ""
	}

	text, httpErr := f.fetchText(articleURL)
	if httpErr != nil {
		if domain != "" {
			f.failedDomains[domain] = struct{}{}
		}
		log.Printf("HTTP error for %s, skipping remaining from %s", articleURL, domain)
		return ""
	}
	return text
}

func (f *BodyFetcher) fetchText(articleURL string) (string, error) {
	req, err := http.NewRequest("GET", articleURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "contentguard/1.0 (content validator)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", nil // connection error, not HTTP error
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil
	}

	parsedURL, _ := url.Parse(articleURL)
	article, err := readability.FromReader(strings.NewReader(string(bodyBytes)), parsedURL)
	if err != nil {
		return "", nil
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) > 100 {
		return text, nil
	}
	return "", nil
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return http.StatusText(e.code)
}
