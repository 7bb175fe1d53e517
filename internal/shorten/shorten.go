// Package shorten replaces long links with Short.io short URLs. Every
// failure keeps the original link; one link never affects another.
package shorten

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/abhij1306/digestbot/internal/feed"
)

const (
	defaultBaseURL = "https://api.short.io"
	minURLLen      = 30
	attempts       = 2
)

// Client is a Short.io API client.
type Client struct {
	BaseURL string
	apiKey  string
	domain  string
	client  *http.Client
	// pause between calls, shortened in tests
	pause time.Duration
}

// New creates a new Client reading the API key from the named environment
// variable.
func New(apiKeyEnv, domain string) *Client {
	return &Client{
		BaseURL: defaultBaseURL,
		apiKey:  os.Getenv(apiKeyEnv),
		domain:  domain,
		client:  &http.Client{Timeout: 8 * time.Second},
		pause:   200 * time.Millisecond,
	}
}

// IsConfigured returns whether the API key is available.
func (c *Client) IsConfigured() bool {
	return c.apiKey != "" && c.domain != ""
}

// Shorten returns a short URL for u, or u itself when shortening is not
// configured, u is already short, or the API fails.
func (c *Client) Shorten(u string) string {
	if u == "" || len(u) < minURLLen || !c.IsConfigured() {
		return u
	}

	for attempt := 0; attempt < attempts; attempt++ {
		time.Sleep(c.pause)
		short, err := c.createLink(u)
		if err != nil {
			log.Printf("Short.io attempt %d failed: %v", attempt+1, err)
			continue
		}
		if short != "" {
			return short
		}
	}
	return u
}

// ShortenAll shortens every headline link in place and returns the slice.
func (c *Client) ShortenAll(headlines []feed.Headline) []feed.Headline {
	if !c.IsConfigured() {
		return headlines
	}
	shortened := 0
	for i := range headlines {
		short := c.Shorten(headlines[i].Link)
		if short != headlines[i].Link {
			headlines[i].Link = short
			shortened++
		}
	}
	if shortened > 0 {
		log.Printf("Shortened %d of %d links", shortened, len(headlines))
	}
	return headlines
}

func (c *Client) createLink(u string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"originalURL": u,
		"domain":      c.domain,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest("POST", c.BaseURL+"/links", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &statusError{code: resp.StatusCode}
	}

	var result struct {
		ShortURL string `json:"shortURL"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.ShortURL, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return http.StatusText(e.code)
}
