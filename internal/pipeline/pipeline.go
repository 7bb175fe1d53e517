// Package pipeline runs one digest end to end: fetch, rank, shorten,
// format, send, archive.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/abhij1306/digestbot/internal/archive"
	"github.com/abhij1306/digestbot/internal/config"
	"github.com/abhij1306/digestbot/internal/digest"
	"github.com/abhij1306/digestbot/internal/extract"
	"github.com/abhij1306/digestbot/internal/feed"
	"github.com/abhij1306/digestbot/internal/llm"
	"github.com/abhij1306/digestbot/internal/rank"
	"github.com/abhij1306/digestbot/internal/shorten"
	"github.com/abhij1306/digestbot/internal/telegram"
)

// maxContextFetches caps article-page fetches per run when fetch_context
// is enabled.
const maxContextFetches = 5

// Fetcher fetches one section's feeds.
type Fetcher interface {
	FetchSection(section config.Section, cutoff time.Duration, perFeed int, seen map[string]struct{}) *feed.Result
}

// Ranker orders headlines by relevance.
type Ranker interface {
	Rank(ctx context.Context, label string, headlines []feed.Headline, limit int, snippets map[string]string) ([]feed.Headline, *rank.Result)
}

// Shortener replaces links with short equivalents.
type Shortener interface {
	IsConfigured() bool
	ShortenAll(headlines []feed.Headline) []feed.Headline
}

// Sender delivers the formatted digest.
type Sender interface {
	IsConfigured() bool
	Send(message string) (int, error)
}

// Extractor fetches article text for ranking context.
type Extractor interface {
	Snippets(headlines []feed.Headline, limit int) map[string]string
}

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	Pipeline string
	Steps    []StepResult
	Message  string
	Sent     bool
}

// Deps bundles the collaborators a Pipeline needs. Zero fields are allowed
// where the corresponding step is disabled by config.
type Deps struct {
	Fetcher   Fetcher
	Ranker    Ranker
	Shortener Shortener
	Sender    Sender
	Extractor Extractor
	Store     *archive.DB
	DataDir   string
	Now       func() time.Time
}

// Pipeline runs one configured digest.
type Pipeline struct {
	cfg  config.Pipeline
	deps Deps
}

// New creates a pipeline from explicit dependencies.
func New(cfg config.Pipeline, deps Deps) *Pipeline {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Pipeline{cfg: cfg, deps: deps}
}

// FromConfig builds a pipeline with its default collaborators.
func FromConfig(cfg *config.Config, name string, store *archive.DB) (*Pipeline, error) {
	pcfg, err := cfg.GetPipeline(name)
	if err != nil {
		return nil, err
	}

	deps := Deps{
		Fetcher: feed.NewFetcher(30 * time.Second),
		Sender:  telegram.New(os.Getenv(cfg.Telegram.TokenEnv), os.Getenv(cfg.Telegram.ChatIDEnv)),
		Store:   store,
		DataDir: cfg.GetDataDir(),
	}

	if pcfg.Ranked {
		deps.Ranker = rank.New(llm.CreateProvider(cfg.Ranking), cfg.Ranking.MaxTokens)
	}
	if cfg.Shortener.Enabled {
		deps.Shortener = shorten.New(cfg.Shortener.APIKeyEnv, cfg.Shortener.Domain)
	}
	if pcfg.FetchContext {
		deps.Extractor = extract.New(15*time.Second, 300)
	}

	return New(pcfg, deps), nil
}

// Run executes the pipeline. Step errors are recorded, not propagated;
// only a missing-credentials send error should be treated as fatal by the
// caller.
func (p *Pipeline) Run(ctx context.Context) *Result {
	r := &Result{Pipeline: p.cfg.Name}
	now := p.deps.Now()

	// Step 1: fetch and filter
	sections, fetchTotals := p.runFetch()
	r.Steps = append(r.Steps, StepResult{
		Name: "Fetch",
		Summary: fmt.Sprintf("%d fresh headlines (%d stale, %d duplicates, %d feed errors)",
			digest.ItemCount(sections), fetchTotals.Stale, fetchTotals.Duplicates, fetchTotals.FeedErrors),
	})

	if digest.ItemCount(sections) == 0 && p.cfg.SkipEmpty {
		r.Steps = append(r.Steps, StepResult{Name: "Send", Summary: "Nothing to send"})
		p.recordRun(r, fetchTotals, false, 0, now)
		return r
	}

	// Step 2: rank
	ranked := false
	if p.cfg.Ranked && p.deps.Ranker != nil {
		sections, ranked = p.runRank(ctx, sections)
		r.Steps = append(r.Steps, StepResult{
			Name:    "Rank",
			Summary: rankSummary(ranked, digest.ItemCount(sections)),
		})
	}

	// Step 3: shorten links
	if p.deps.Shortener != nil && p.deps.Shortener.IsConfigured() {
		for i := range sections {
			sections[i].Items = p.deps.Shortener.ShortenAll(sections[i].Items)
		}
		r.Steps = append(r.Steps, StepResult{Name: "Shorten", Summary: "Links shortened"})
	}

	// Step 4: format
	header := digest.Header(p.cfg.Header, p.cfg.ClockHeader, now)
	r.Message = digest.Render(header, sections, p.cfg.MaxItems, telegram.MaxMessage)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Format",
		Summary: fmt.Sprintf("%d chars", len(r.Message)),
	})

	// Step 5: send
	chunks, sendErr := p.deps.Sender.Send(r.Message)
	if sendErr != nil {
		log.Printf("Send failed: %v", sendErr)
		r.Steps = append(r.Steps, StepResult{Name: "Send", Err: sendErr})
	} else {
		r.Sent = true
		r.Steps = append(r.Steps, StepResult{Name: "Send", Summary: fmt.Sprintf("%d chunk(s) delivered", chunks)})
	}

	// Step 6: archive
	p.runArchive(r, sections, chunks, now)
	p.recordRun(r, fetchTotals, ranked, chunks, now)

	return r
}

// fetchTotals aggregates counters across sections.
type fetchTotals struct {
	Found      int
	Stale      int
	Duplicates int
	FeedErrors int
}

func (p *Pipeline) runFetch() ([]digest.Section, fetchTotals) {
	cutoff := time.Duration(p.cfg.CutoffHours) * time.Hour
	seen := make(map[string]struct{})
	var sections []digest.Section
	var totals fetchTotals

	for _, sc := range p.cfg.Sections {
		res := p.deps.Fetcher.FetchSection(sc, cutoff, p.cfg.PerFeed, seen)
		totals.Found += res.TotalFound
		totals.Stale += res.Stale
		totals.Duplicates += res.Duplicates
		totals.FeedErrors += res.FeedErrors
		sections = append(sections, digest.Section{Name: sc.Name, Items: res.Headlines})
	}
	return sections, totals
}

func (p *Pipeline) runRank(ctx context.Context, sections []digest.Section) ([]digest.Section, bool) {
	var snippets map[string]string
	if p.deps.Extractor != nil {
		var all []feed.Headline
		for _, s := range sections {
			all = append(all, s.Items...)
		}
		snippets = p.deps.Extractor.Snippets(all, maxContextFetches)
	}

	ranked := true
	for i := range sections {
		out, res := p.deps.Ranker.Rank(ctx, p.cfg.Name, sections[i].Items, p.cfg.MaxItems, snippets)
		sections[i].Items = out
		if !res.Ranked {
			ranked = false
		}
	}
	return sections, ranked
}

func (p *Pipeline) runArchive(r *Result, sections []digest.Section, chunks int, now time.Time) {
	status := archive.Status{
		Sent:           r.Sent,
		ItemsCollected: digest.ItemCount(sections),
		ChunksSent:     chunks,
	}

	ist := now.In(digest.IST)
	var filePath *string
	if p.deps.DataDir != "" {
		path, err := archive.WriteFile(p.deps.DataDir, p.cfg.Name, r.Message, status, ist)
		if err != nil {
			log.Printf("Failed to write digest file: %v", err)
			r.Steps = append(r.Steps, StepResult{Name: "Archive", Err: err})
			return
		}
		filePath = &path
	}

	if p.deps.Store != nil {
		_, err := p.deps.Store.InsertDigest(&archive.Digest{
			Pipeline:     p.cfg.Name,
			RunAt:        ist.Format("2006-01-02 15:04"),
			Body:         r.Message,
			ItemCount:    digest.ItemCount(sections),
			SectionCount: len(sections),
			Sent:         r.Sent,
			FilePath:     filePath,
		})
		if err != nil {
			log.Printf("Failed to archive digest: %v", err)
			r.Steps = append(r.Steps, StepResult{Name: "Archive", Err: err})
			return
		}
	}

	summary := "Digest archived"
	if filePath != nil {
		summary = fmt.Sprintf("Digest archived to %s", *filePath)
	}
	r.Steps = append(r.Steps, StepResult{Name: "Archive", Summary: summary})
}

func (p *Pipeline) recordRun(r *Result, totals fetchTotals, ranked bool, chunks int, now time.Time) {
	if p.deps.Store == nil {
		return
	}
	_, err := p.deps.Store.InsertRun(&archive.Run{
		Pipeline:   p.cfg.Name,
		RunAt:      now.In(digest.IST).Format("2006-01-02 15:04"),
		Fetched:    totals.Found,
		Stale:      totals.Stale,
		Duplicates: totals.Duplicates,
		FeedErrors: totals.FeedErrors,
		Ranked:     ranked,
		ChunksSent: chunks,
		Sent:       r.Sent,
	})
	if err != nil {
		log.Printf("Failed to record run: %v", err)
	}
}

func rankSummary(ranked bool, n int) string {
	if ranked {
		return fmt.Sprintf("%d headlines ranked", n)
	}
	return fmt.Sprintf("Ranking unavailable, %d headlines in chronological order", n)
}
