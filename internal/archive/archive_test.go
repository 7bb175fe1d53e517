package archive

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertAndGetDigest(t *testing.T) {
	db := openTestDB(t)

	id, err := db.InsertDigest(&Digest{
		Pipeline:     "market",
		RunAt:        "2026-02-06 20:00",
		Body:         "📈 Market Digest — 06 Feb 2026\n\n• Headline\n  https://a\n\n",
		ItemCount:    1,
		SectionCount: 2,
		Sent:         true,
	})
	if err != nil {
		t.Fatalf("InsertDigest: %v", err)
	}

	d, err := db.GetDigest(id)
	if err != nil {
		t.Fatalf("GetDigest: %v", err)
	}
	if d == nil {
		t.Fatal("expected digest")
	}
	if d.Pipeline != "market" || !d.Sent || d.ItemCount != 1 {
		t.Errorf("unexpected digest: %+v", d)
	}
}

func TestGetDigestMissing(t *testing.T) {
	db := openTestDB(t)
	d, err := db.GetDigest(42)
	if err != nil {
		t.Fatalf("GetDigest: %v", err)
	}
	if d != nil {
		t.Error("expected nil for missing digest")
	}
}

func TestGetRecentDigestsOrder(t *testing.T) {
	db := openTestDB(t)
	for _, p := range []string{"market", "tech", "breaking"} {
		if _, err := db.InsertDigest(&Digest{Pipeline: p, RunAt: "2026-02-06 20:00", Body: p}); err != nil {
			t.Fatalf("InsertDigest: %v", err)
		}
	}

	digests, err := db.GetRecentDigests(2)
	if err != nil {
		t.Fatalf("GetRecentDigests: %v", err)
	}
	if len(digests) != 2 {
		t.Fatalf("expected 2 digests, got %d", len(digests))
	}
	if digests[0].Pipeline != "breaking" || digests[1].Pipeline != "tech" {
		t.Errorf("expected newest first, got %s then %s", digests[0].Pipeline, digests[1].Pipeline)
	}
}

func TestRunsAndStats(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.InsertRun(&Run{Pipeline: "breaking", RunAt: "2026-02-06 18:00", Fetched: 9, Stale: 3, Sent: false}); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}
	if _, err := db.InsertRun(&Run{Pipeline: "breaking", RunAt: "2026-02-06 20:00", Fetched: 7, Ranked: false, ChunksSent: 1, Sent: true}); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}

	last, err := db.GetLastRun("breaking")
	if err != nil {
		t.Fatalf("GetLastRun: %v", err)
	}
	if last == nil || last.RunAt != "2026-02-06 20:00" || !last.Sent {
		t.Errorf("unexpected last run: %+v", last)
	}

	if none, _ := db.GetLastRun("tech"); none != nil {
		t.Error("expected nil for pipeline with no runs")
	}

	db.InsertDigest(&Digest{Pipeline: "breaking", RunAt: "2026-02-06 20:00", Body: "x", Sent: true})

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalRuns != 2 || stats.TotalDigests != 1 || stats.SentDigests != 1 || stats.Pipelines != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	db.Close()
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 2, 6, 20, 0, 0, 0, time.UTC)

	path, err := WriteFile(dir, "tech", "body text", Status{Sent: true, ItemsCollected: 7, ChunksSent: 1}, now)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if filepath.Base(path) != "tech_20260206_2000.md" {
		t.Errorf("unexpected file name %q", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading archive file: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "body text") {
		t.Error("expected body at start of file")
	}
	if !strings.Contains(content, "METADATA:") || !strings.Contains(content, `"telegram_sent": true`) {
		t.Errorf("expected metadata trailer, got:\n%s", content)
	}
}

func TestWriteFileWriteOnce(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 2, 6, 20, 0, 0, 0, time.UTC)

	path, err := WriteFile(dir, "tech", "first", Status{}, now)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := WriteFile(dir, "tech", "second", Status{}, now); err != nil {
		t.Fatalf("second WriteFile: %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "first") {
		t.Error("existing archive file must not be overwritten")
	}
}
