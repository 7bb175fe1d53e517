// Package rank orders headlines by relevance using an LLM provider, with a
// chronological fallback when ranking is unavailable or fails.
package rank

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/abhij1306/digestbot/internal/feed"
	"github.com/abhij1306/digestbot/internal/llm"
	"github.com/abhij1306/digestbot/internal/text"
)

const (
	maxPromptTitles = 30
	maxTitleLen     = 140
	maxSnippetLen   = 300
)

const rankPromptFormat = `You are a news curator. From these headlines, select ONLY the most important and UNIQUE stories for the "%s" digest.

EXCLUDE:
- Duplicate stories (same event from different sources)
- Minor updates with no news value
- Opinion pieces without news value

Headlines:
%s
Return ONLY the numbers of the top %d UNIQUE, RELEVANT headlines, comma-separated and most important first (e.g., 3,1,7,2,9)`

var digitsRe = regexp.MustCompile(`\d+`)

// Result holds counters from a ranking run.
type Result struct {
	Input  int
	Output int
	Ranked bool // false when the chronological fallback was used
}

// Ranker ranks headlines via an LLM provider.
type Ranker struct {
	provider  llm.Provider
	maxTokens int
}

// New creates a new Ranker. A nil provider is allowed; every Rank call then
// takes the fallback path.
func New(provider llm.Provider, maxTokens int) *Ranker {
	if maxTokens <= 0 {
		maxTokens = 150
	}
	return &Ranker{provider: provider, maxTokens: maxTokens}
}

// Rank returns at most limit headlines in relevance order. The returned
// slice is always a subset of the input. On any failure (no provider,
// request error, nothing parseable) it returns the input sorted by
// published time descending instead. snippets optionally maps headline
// links to article text used as extra prompt context.
func (r *Ranker) Rank(ctx context.Context, label string, headlines []feed.Headline, limit int, snippets map[string]string) ([]feed.Headline, *Result) {
	res := &Result{Input: len(headlines)}

	if len(headlines) == 0 {
		return headlines, res
	}
	if r.provider == nil || !r.provider.IsConfigured() {
		out := fallback(headlines, limit)
		res.Output = len(out)
		return out, res
	}

	candidates := headlines
	if len(candidates) > maxPromptTitles {
		candidates = candidates[:maxPromptTitles]
	}

	prompt := buildPrompt(label, candidates, limit, snippets)
	reply, err := r.provider.Generate(ctx, prompt, r.maxTokens)
	if err != nil {
		log.Printf("Ranking failed, falling back to chronological order: %v", err)
		out := fallback(headlines, limit)
		res.Output = len(out)
		return out, res
	}

	indices := parseIndices(reply, len(candidates))
	if len(indices) == 0 {
		log.Printf("No usable indices in ranking reply, falling back")
		out := fallback(headlines, limit)
		res.Output = len(out)
		return out, res
	}

	ranked := make([]feed.Headline, 0, len(indices))
	for _, i := range indices {
		ranked = append(ranked, candidates[i])
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	log.Printf("Ranked %d of %d headlines", len(ranked), len(headlines))
	res.Output = len(ranked)
	res.Ranked = true
	return ranked, res
}

// buildPrompt numbers the candidate titles (truncated) and appends optional
// article snippets.
func buildPrompt(label string, candidates []feed.Headline, limit int, snippets map[string]string) string {
	var titles strings.Builder
	for i, h := range candidates {
		title := text.Truncate(feed.CleanText(h.Title), maxTitleLen)
		fmt.Fprintf(&titles, "%d. %s\n", i+1, title)
		if snippet, ok := snippets[h.Link]; ok && snippet != "" {
			fmt.Fprintf(&titles, "   context: %s\n", text.Truncate(snippet, maxSnippetLen))
		}
	}
	return fmt.Sprintf(rankPromptFormat, label, titles.String(), limit)
}

// parseIndices extracts 1-based indices from the reply and converts them to
// unique, in-range 0-based positions, preserving reply order.
func parseIndices(reply string, n int) []int {
	var indices []int
	seen := make(map[int]struct{})
	for _, m := range digitsRe.FindAllString(reply, -1) {
		v, err := strconv.Atoi(m)
		if err != nil || v < 1 || v > n {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		indices = append(indices, v-1)
	}
	return indices
}

// fallback sorts by published time descending. Headlines with unknown
// timestamps sort last; order is otherwise preserved among equals.
func fallback(headlines []feed.Headline, limit int) []feed.Headline {
	out := make([]feed.Headline, len(headlines))
	copy(out, headlines)
	sort.SliceStable(out, func(i, j int) bool {
		if out[j].Published.IsZero() {
			return !out[i].Published.IsZero()
		}
		if out[i].Published.IsZero() {
			return false
		}
		return out[i].Published.After(out[j].Published)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
