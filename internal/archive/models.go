package archive

// Digest is one archived digest body.
type Digest struct {
	ID           int64
	Pipeline     string
	RunAt        string // IST, "2006-01-02 15:04"
	Body         string
	ItemCount    int
	SectionCount int
	Sent         bool
	FilePath     *string
	CreatedAt    *string
}

// Run holds the counters recorded for one pipeline invocation.
type Run struct {
	ID         int64
	Pipeline   string
	RunAt      string
	Fetched    int
	Stale      int
	Duplicates int
	FeedErrors int
	Ranked     bool
	ChunksSent int
	Sent       bool
	CreatedAt  *string
}

// Stats contains aggregate archive statistics.
type Stats struct {
	TotalDigests int
	SentDigests  int
	TotalRuns    int
	Pipelines    int
}
