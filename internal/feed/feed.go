// Package feed fetches RSS/Atom feeds and filters entries by recency.
package feed

import (
	"crypto/sha1"
	"encoding/hex"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/abhij1306/digestbot/internal/config"
)

// Headline is a single feed entry. It lives only for one pipeline run.
type Headline struct {
	Title     string
	Link      string
	Source    string
	Summary   string
	Published time.Time // zero when the feed gave no usable timestamp
}

// ID returns the dedupe identity for a headline: sha1(title|link).
func (h Headline) ID() string {
	sum := sha1.Sum([]byte(h.Title + "|" + h.Link))
	return hex.EncodeToString(sum[:])
}

// Result holds counters from a fetch run.
type Result struct {
	Headlines  []Headline
	TotalFound int
	Stale      int
	Duplicates int
	FeedErrors int
}

// Fetcher fetches configured feeds. A feed that fails to fetch or parse is
// logged and skipped; it never aborts the run.
type Fetcher struct {
	parser *gofeed.Parser
}

// NewFetcher creates a new Fetcher.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	p := gofeed.NewParser()
	p.UserAgent = "digestbot/1.0 (news digest)"
	p.Client = &http.Client{Timeout: timeout}
	return &Fetcher{parser: p}
}

// FetchSection fetches all feeds of one section, keeping at most perFeed
// entries per feed and discarding entries older than the cutoff. Entries
// whose published time is unknown are kept. seen carries dedupe IDs across
// sections of the same run.
func (f *Fetcher) FetchSection(section config.Section, cutoff time.Duration, perFeed int, seen map[string]struct{}) *Result {
	oldest := time.Now().Add(-cutoff)
	r := &Result{}

	for _, fc := range section.Feeds {
		name := fc.Name
		if name == "" {
			name = sourceNameFromURL(fc.URL)
		}

		parsed, err := f.parser.ParseURL(fc.URL)
		if err != nil {
			log.Printf("Failed to fetch feed %s: %v", fc.URL, err)
			r.FeedErrors++
			continue
		}

		kept := 0
		for _, item := range parsed.Items {
			if kept >= perFeed {
				break
			}
			r.TotalFound++

			h := headlineFromItem(item, name)
			if h == nil {
				continue
			}
			if !h.Published.IsZero() && h.Published.Before(oldest) {
				r.Stale++
				continue
			}
			if _, dup := seen[h.ID()]; dup {
				r.Duplicates++
				continue
			}
			seen[h.ID()] = struct{}{}
			r.Headlines = append(r.Headlines, *h)
			kept++
		}
		log.Printf("Fetched %d fresh entries from %s", kept, name)
	}

	return r
}

func headlineFromItem(item *gofeed.Item, source string) *Headline {
	link := item.Link
	if link == "" {
		link = item.GUID
	}
	title := strings.TrimSpace(item.Title)
	if title == "" || link == "" {
		return nil
	}

	var published time.Time
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	summary := item.Description
	if summary == "" && item.Content != "" {
		summary = item.Content
	}

	return &Headline{
		Title:     title,
		Link:      link,
		Source:    source,
		Summary:   CleanText(summary),
		Published: published,
	}
}

// CleanText strips HTML tags, decodes common entities, and collapses
// whitespace.
func CleanText(text string) string {
	var b strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}

	s := b.String()
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	return strings.Join(strings.Fields(s), " ")
}

func sourceNameFromURL(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return feedURL
	}

	for _, prefix := range []string{"www.", "rss.", "feeds.", "news."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	name := host
	if len(parts) >= 2 {
		name = parts[len(parts)-2]
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
