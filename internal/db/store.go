package db

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/roasbeef/critic/internal/engine"
	"github.com/roasbeef/critic/internal/knowledge"
	"github.com/roasbeef/critic/internal/learner"
	"github.com/roasbeef/critic/internal/strategy"
)

// DefaultNumTxRetries is the number of times a transaction is retried when
// it fails with a serialization or deadlock error.
const DefaultNumTxRetries = 10

// Store wraps the database connection with transaction support and the
// domain query methods. It backs the knowledge corpus, the selector's
// learning state, and the review history.
type Store struct {
	db *sql.DB

	// searchReady is set at open time when the sqlite build carries the
	// FTS5 module and the search index exists.
	searchReady bool
}

// NewStore creates a new Store instance wrapping the given database
// connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// TxFunc is the function signature for transaction callbacks.
type TxFunc func(ctx context.Context, tx *sql.Tx) error

// WithTx executes the given function within a database transaction,
// retrying on serialization and deadlock errors. If the function returns a
// non-retryable error, the transaction is rolled back. Otherwise, it is
// committed.
func (s *Store) WithTx(ctx context.Context, fn TxFunc) error {
	var lastErr error
	for attempt := 0; attempt <= DefaultNumTxRetries; attempt++ {
		err := s.tryTx(ctx, fn)
		if err == nil {
			return nil
		}

		lastErr = err
		if !IsSerializationOrDeadlockError(MapSQLError(err)) {
			return err
		}

		log.Debugf("Retrying tx after repeatable error "+
			"(attempt %d): %v", attempt+1, err)
	}

	return fmt.Errorf("%w: %v", ErrRetriesExceeded, lastErr)
}

// tryTx runs a single transaction attempt.
func (s *Store) tryTx(ctx context.Context, fn TxFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(ctx, tx); err != nil {
		// Attempt rollback, but prioritize returning the original
		// error.
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %w, rollback error: %v",
				err, rbErr)
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Compile-time checks that Store implements the persistence interfaces of
// the packages it backs.
var (
	_ knowledge.CorpusStore = (*Store)(nil)
	_ learner.StateStore    = (*Store)(nil)
	_ engine.ResultStore    = (*Store)(nil)
)

// ReplaceCorpus atomically replaces all stored rule documents. Either
// every document is written or the previous corpus is left intact.
func (s *Store) ReplaceCorpus(ctx context.Context,
	docs []knowledge.Document) error {

	return s.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(
			ctx, "DELETE FROM documents",
		); err != nil {
			return fmt.Errorf("failed to clear documents: %w", err)
		}

		const insert = `INSERT INTO documents
			(id, doc_text, embedding, tags)
			VALUES (?, ?, ?, ?)`

		for _, doc := range docs {
			_, err := tx.ExecContext(
				ctx, insert, doc.ID, doc.Text,
				encodeEmbedding(doc.Embedding),
				strings.Join(doc.Tags, ","),
			)
			if err != nil {
				return fmt.Errorf("failed to insert "+
					"document %s: %w", doc.ID, err)
			}
		}

		return nil
	})
}

// LoadCorpus returns all stored rule documents.
func (s *Store) LoadCorpus(ctx context.Context) ([]knowledge.Document,
	error) {

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, doc_text, embedding, tags FROM documents "+
			"ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []knowledge.Document
	for rows.Next() {
		var (
			doc  knowledge.Document
			blob []byte
			tags string
		)
		if err := rows.Scan(
			&doc.ID, &doc.Text, &blob, &tags,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w",
				err)
		}

		doc.Embedding, err = decodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("failed to decode embedding "+
				"for %s: %w", doc.ID, err)
		}
		if tags != "" {
			doc.Tags = strings.Split(tags, ",")
		}

		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// SaveSelectorState persists the full learning state, replacing whatever
// was stored before.
func (s *Store) SaveSelectorState(ctx context.Context,
	state learner.State) error {

	return s.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(
			ctx, "DELETE FROM selector_state",
		); err != nil {
			return fmt.Errorf("failed to clear selector "+
				"state: %w", err)
		}

		const insert = `INSERT INTO selector_state
			(bucket_key, strategy, trials, total_reward)
			VALUES (?, ?, ?, ?)`

		for bucket, arms := range state {
			for strat, stats := range arms {
				_, err := tx.ExecContext(
					ctx, insert, bucket, string(strat),
					stats.Trials, stats.TotalReward,
				)
				if err != nil {
					return fmt.Errorf("failed to insert "+
						"arm %s/%s: %w", bucket,
						strat, err)
				}
			}
		}

		return nil
	})
}

// LoadSelectorState returns the persisted learning state. An empty
// database yields an empty (non-nil) state.
func (s *Store) LoadSelectorState(ctx context.Context) (learner.State,
	error) {

	rows, err := s.db.QueryContext(ctx,
		"SELECT bucket_key, strategy, trials, total_reward "+
			"FROM selector_state",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query selector state: %w",
			err)
	}
	defer rows.Close()

	state := make(learner.State)
	for rows.Next() {
		var (
			bucket, strat string
			stats         learner.ArmStats
		)
		if err := rows.Scan(
			&bucket, &strat, &stats.Trials, &stats.TotalReward,
		); err != nil {
			return nil, fmt.Errorf("failed to scan selector "+
				"state: %w", err)
		}

		arms, ok := state[bucket]
		if !ok {
			arms = make(map[strategy.Strategy]learner.ArmStats)
			state[bucket] = arms
		}
		arms[strategy.Strategy(strat)] = stats
	}

	return state, rows.Err()
}

// SaveReview stores a finished review result.
func (s *Store) SaveReview(ctx context.Context,
	result *engine.ReviewResult) error {

	verdictDecision := ""
	if result.Verdict != nil {
		verdictDecision = result.Verdict.Decision
	}

	const insert = `INSERT INTO reviews
		(id, owner, repo, pr_number, bucket_key, strategy,
		 review_text, verdict_decision, outcome_signal,
		 num_findings, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(
		ctx, insert, result.ID, result.Ref.Owner, result.Ref.Repo,
		result.Ref.Number, result.BucketKey,
		string(result.StrategyUsed), result.GeneratedText,
		verdictDecision, result.OutcomeSignal, len(result.Findings),
		result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert review %s: %w",
			result.ID, MapSQLError(err))
	}

	return nil
}

// ReviewSummary is a condensed view of a stored review.
type ReviewSummary struct {
	ID            string
	Owner         string
	Repo          string
	Number        int
	BucketKey     string
	Strategy      strategy.Strategy
	OutcomeSignal float64
	NumFindings   int
	CreatedAt     time.Time
}

// ListReviews returns the most recent stored reviews, newest first.
func (s *Store) ListReviews(ctx context.Context,
	limit int) ([]ReviewSummary, error) {

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, owner, repo, pr_number, bucket_key, strategy, "+
			"outcome_signal, num_findings, created_at "+
			"FROM reviews ORDER BY created_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	var summaries []ReviewSummary
	for rows.Next() {
		var (
			rs    ReviewSummary
			strat string
		)
		if err := rows.Scan(
			&rs.ID, &rs.Owner, &rs.Repo, &rs.Number,
			&rs.BucketKey, &strat, &rs.OutcomeSignal,
			&rs.NumFindings, &rs.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w",
				err)
		}
		rs.Strategy = strategy.Strategy(strat)

		summaries = append(summaries, rs)
	}

	return summaries, rows.Err()
}

// encodeEmbedding serializes an embedding vector as little-endian float64
// values.
func encodeEmbedding(vec []float64) []byte {
	buf := make([]byte, 8*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint64(
			buf[i*8:], math.Float64bits(v),
		)
	}

	return buf
}

// decodeEmbedding deserializes an embedding vector.
func decodeEmbedding(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a "+
			"multiple of 8", len(buf))
	}

	vec := make([]float64, len(buf)/8)
	for i := range vec {
		vec[i] = math.Float64frombits(
			binary.LittleEndian.Uint64(buf[i*8:]),
		)
	}

	return vec, nil
}
