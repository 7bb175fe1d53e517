// Package digest renders ranked headlines into the text message sent to
// Telegram and archived to disk.
package digest

import (
	"fmt"
	"strings"
	"time"

	"github.com/abhij1306/digestbot/internal/feed"
	"github.com/abhij1306/digestbot/internal/text"
)

// IST is the timezone used for all digest headers and archive timestamps.
var IST = time.FixedZone("IST", 5*3600+30*60)

// Section is one named group of headlines in display order.
type Section struct {
	Name  string
	Items []feed.Headline
}

// ItemCount returns the total number of headlines across sections.
func ItemCount(sections []Section) int {
	n := 0
	for _, s := range sections {
		n += len(s.Items)
	}
	return n
}

// Header renders the digest header line. Date headers get the IST date,
// clock headers (breaking alerts) the IST time of day.
func Header(title string, clock bool, now time.Time) string {
	ist := now.In(IST)
	if clock {
		return fmt.Sprintf("%s — %s", title, ist.Format("03:04 PM")+" IST")
	}
	return fmt.Sprintf("%s — %s", title, ist.Format("02 Jan 2006"))
}

// Render builds the digest text: header, then each section in order with a
// name line (omitted when there is a single unnamed or solitary section)
// and one bullet per headline. maxItems caps the total across sections;
// limit truncates the final text.
func Render(header string, sections []Section, maxItems, limit int) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")

	remaining := maxItems
	multi := len(sections) > 1
	for _, s := range sections {
		if remaining <= 0 {
			break
		}
		if len(s.Items) == 0 {
			continue
		}
		if multi && s.Name != "" {
			fmt.Fprintf(&b, "%s\n\n", s.Name)
		}
		for _, h := range s.Items {
			if remaining <= 0 {
				break
			}
			entry := formatItem(h)
			if entry == "" {
				continue
			}
			b.WriteString(entry)
			remaining--
		}
	}

	out := b.String()
	if limit > 0 {
		out = text.Truncate(out, limit)
	}
	return out
}

func formatItem(h feed.Headline) string {
	title := strings.TrimSpace(feed.CleanText(h.Title))
	if title == "" {
		return ""
	}
	return fmt.Sprintf("• %s\n  %s\n\n", title, h.Link)
}
