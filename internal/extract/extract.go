// Package extract pulls readable article text from headline links, used as
// optional context for the ranking prompt.
package extract

import (
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/abhij1306/digestbot/internal/feed"
	"github.com/abhij1306/digestbot/internal/text"
)

const minTextLen = 100

// Extractor fetches article pages and extracts readable text.
type Extractor struct {
	client   *http.Client
	maxChars int
}

// New creates a new Extractor. maxChars caps each returned snippet.
func New(timeout time.Duration, maxChars int) *Extractor {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if maxChars <= 0 {
		maxChars = 300
	}
	return &Extractor{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		maxChars: maxChars,
	}
}

// Snippets fetches up to limit headline pages and returns link -> snippet.
// One HTTP failure disables further fetches from that domain for the run.
// Failures are logged and skipped; the map simply lacks those links.
func (e *Extractor) Snippets(headlines []feed.Headline, limit int) map[string]string {
	snippets := make(map[string]string)
	failedDomains := make(map[string]struct{})

	fetched := 0
	for _, h := range headlines {
		if fetched >= limit {
			break
		}

		u, _ := url.Parse(h.Link)
		domain := ""
		if u != nil {
			domain = strings.ToLower(u.Host)
		}
		if _, failed := failedDomains[domain]; failed {
			continue
		}

		body, httpErr := e.fetchText(h.Link)
		if httpErr != nil {
			if domain != "" {
				failedDomains[domain] = struct{}{}
			}
			log.Printf("HTTP error for %s, skipping remaining from %s", h.Link, domain)
			continue
		}
		if body == "" {
			continue
		}

		snippets[h.Link] = text.Truncate(body, e.maxChars)
		fetched++
	}

	if len(snippets) > 0 {
		log.Printf("Extracted context for %d headlines", len(snippets))
	}
	return snippets
}

func (e *Extractor) fetchText(articleURL string) (string, error) {
	req, err := http.NewRequest("GET", articleURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "digestbot/1.0 (news digest)")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
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

	body := strings.Join(strings.Fields(article.TextContent), " ")
	if len(body) >= minTextLen {
		return body, nil
	}
	return "", nil
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return http.StatusText(e.code)
}
