package archive

import "database/sql"

// InsertDigest records one digest. Digest rows are write-once per run.
func (db *DB) InsertDigest(d *Digest) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO digests (pipeline, run_at, body, item_count, section_count, sent, file_path)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.Pipeline, d.RunAt, d.Body, d.ItemCount, d.SectionCount, boolToInt(d.Sent), d.FilePath,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetDigest returns one digest by ID, or nil when absent.
func (db *DB) GetDigest(id int64) (*Digest, error) {
	row := db.conn.QueryRow(
		`SELECT id, pipeline, run_at, body, item_count, section_count, sent, file_path, created_at
		FROM digests WHERE id = ?`, id,
	)
	return scanDigest(row)
}

// GetRecentDigests returns the n most recent digests, newest first.
func (db *DB) GetRecentDigests(n int) ([]Digest, error) {
	rows, err := db.conn.Query(
		`SELECT id, pipeline, run_at, body, item_count, section_count, sent, file_path, created_at
		FROM digests ORDER BY id DESC LIMIT ?`, n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var digests []Digest
	for rows.Next() {
		var d Digest
		var sent int
		if err := rows.Scan(&d.ID, &d.Pipeline, &d.RunAt, &d.Body, &d.ItemCount,
			&d.SectionCount, &sent, &d.FilePath, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.Sent = sent != 0
		digests = append(digests, d)
	}
	return digests, rows.Err()
}

// InsertRun records the counters for one pipeline invocation.
func (db *DB) InsertRun(r *Run) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO runs (pipeline, run_at, fetched, stale, duplicates, feed_errors, ranked, chunks_sent, sent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Pipeline, r.RunAt, r.Fetched, r.Stale, r.Duplicates, r.FeedErrors,
		boolToInt(r.Ranked), r.ChunksSent, boolToInt(r.Sent),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetLastRun returns the most recent run for a pipeline, or nil.
func (db *DB) GetLastRun(pipeline string) (*Run, error) {
	row := db.conn.QueryRow(
		`SELECT id, pipeline, run_at, fetched, stale, duplicates, feed_errors, ranked, chunks_sent, sent, created_at
		FROM runs WHERE pipeline = ? ORDER BY id DESC LIMIT 1`, pipeline,
	)

	var r Run
	var ranked, sent int
	err := row.Scan(&r.ID, &r.Pipeline, &r.RunAt, &r.Fetched, &r.Stale, &r.Duplicates,
		&r.FeedErrors, &ranked, &r.ChunksSent, &sent, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Ranked = ranked != 0
	r.Sent = sent != 0
	return &r, nil
}

// GetStats returns aggregate archive statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM digests", &s.TotalDigests},
		{"SELECT COUNT(*) FROM digests WHERE sent = 1", &s.SentDigests},
		{"SELECT COUNT(*) FROM runs", &s.TotalRuns},
		{"SELECT COUNT(DISTINCT pipeline) FROM runs", &s.Pipelines},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func scanDigest(row *sql.Row) (*Digest, error) {
	var d Digest
	var sent int
	err := row.Scan(&d.ID, &d.Pipeline, &d.RunAt, &d.Body, &d.ItemCount,
		&d.SectionCount, &sent, &d.FilePath, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.Sent = sent != 0
	return &d, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
