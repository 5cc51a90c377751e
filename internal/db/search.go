package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roasbeef/critic/internal/strategy"
)

// ErrSearchUnavailable is returned by SearchReviews when the sqlite driver
// was built without the FTS5 module (mattn/go-sqlite3 only compiles it in
// behind the sqlite_fts5 build tag). Everything else works without it;
// only full-text search degrades.
var ErrSearchUnavailable = errors.New(
	"full-text search unavailable: sqlite built without FTS5 " +
		"(build with -tags sqlite_fts5)",
)

// searchIndexDDL creates the FTS5 index over review text as an external
// content table, with triggers keeping it in sync with the reviews table.
const searchIndexDDL = `
CREATE VIRTUAL TABLE IF NOT EXISTS reviews_fts USING fts5(
    review_text,
    content='reviews',
    content_rowid='rowid'
);
CREATE TRIGGER IF NOT EXISTS reviews_fts_insert
AFTER INSERT ON reviews BEGIN
    INSERT INTO reviews_fts (rowid, review_text)
    VALUES (new.rowid, new.review_text);
END;
CREATE TRIGGER IF NOT EXISTS reviews_fts_delete
AFTER DELETE ON reviews BEGIN
    INSERT INTO reviews_fts (reviews_fts, rowid, review_text)
    VALUES ('delete', old.rowid, old.review_text);
END;
`

// initSearchIndex creates the FTS5 index if the loaded sqlite build
// supports it. The index lives outside the migration path on purpose: a
// driver built without FTS5 must still migrate and serve everything except
// search. Returns false when FTS5 is unavailable.
func (s *Store) initSearchIndex(ctx context.Context) (bool, error) {
	_, err := s.db.ExecContext(ctx, searchIndexDDL)
	if err != nil {
		if strings.Contains(err.Error(), "no such module: fts5") {
			log.Warnf("sqlite built without FTS5, review search " +
				"disabled (build with -tags sqlite_fts5)")
			return false, nil
		}

		return false, fmt.Errorf("failed to create search index: %w",
			err)
	}

	// Rebuild the index from the content table so rows written while
	// search was unavailable become searchable.
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO reviews_fts (reviews_fts) VALUES ('rebuild')",
	)
	if err != nil {
		return false, fmt.Errorf("failed to rebuild search index: %w",
			err)
	}

	return true, nil
}

// SearchResult represents a review search result with its FTS rank.
type SearchResult struct {
	ReviewSummary
	Rank float64
}

// SearchReviews performs a full-text search across stored review text
// using FTS5. The query should use FTS5 query syntax (e.g., "word1 word2"
// for AND, "word1 OR word2" for OR). Returns ErrSearchUnavailable when
// the sqlite build has no FTS5 support.
func (s *Store) SearchReviews(ctx context.Context, query string,
	limit int) ([]SearchResult, error) {

	if !s.searchReady {
		return nil, ErrSearchUnavailable
	}

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.owner, r.repo, r.pr_number, r.bucket_key,
		       r.strategy, r.outcome_signal, r.num_findings,
		       r.created_at, fts.rank
		FROM reviews r
		JOIN reviews_fts fts ON r.rowid = fts.rowid
		WHERE reviews_fts MATCH ?
		ORDER BY fts.rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search reviews: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			r     SearchResult
			strat string
		)
		err := rows.Scan(
			&r.ID, &r.Owner, &r.Repo, &r.Number, &r.BucketKey,
			&strat, &r.OutcomeSignal, &r.NumFindings,
			&r.CreatedAt, &r.Rank,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search "+
				"result: %w", err)
		}
		r.Strategy = strategy.Strategy(strat)

		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search results: %w",
			err)
	}

	return results, nil
}
