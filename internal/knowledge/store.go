package knowledge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrEmptyStore is returned by Query when no documents have been
	// ingested. Callers degrade to an empty context rather than failing
	// the review cycle.
	ErrEmptyStore = errors.New("knowledge store is empty")

	// ErrIngestInProgress is returned when an ingestion is attempted
	// while another one is still running.
	ErrIngestInProgress = errors.New("ingestion in progress")
)

// CorpusStore persists the corpus across restarts. Implementations must
// make ReplaceCorpus atomic: either every document is stored or the
// previous corpus is left intact.
type CorpusStore interface {
	// ReplaceCorpus atomically replaces all stored documents.
	ReplaceCorpus(ctx context.Context, docs []Document) error

	// LoadCorpus returns all stored documents.
	LoadCorpus(ctx context.Context) ([]Document, error)
}

// Store holds the ingested rule corpus and answers similarity queries.
// Queries are read-mostly and proceed concurrently; ingestion is a rare,
// exclusive operation that commits via a single atomic swap.
type Store struct {
	embedder Embedder
	corpus   CorpusStore

	// ingestMu serializes ingestions. It is separate from mu so slow
	// embedding work never blocks queries against the current corpus.
	ingestMu sync.Mutex

	mu   sync.RWMutex
	docs []Document
}

// NewStore creates a knowledge store. The corpus store may be nil, in
// which case the store is purely in-memory.
func NewStore(embedder Embedder, corpus CorpusStore) *Store {
	return &Store{
		embedder: embedder,
		corpus:   corpus,
	}
}

// Load restores the corpus from the backing store. Called once at startup.
func (s *Store) Load(ctx context.Context) error {
	if s.corpus == nil {
		return nil
	}

	docs, err := s.corpus.LoadCorpus(ctx)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}

	s.mu.Lock()
	s.docs = docs
	s.mu.Unlock()

	log.InfoS(ctx, "Knowledge corpus loaded", "documents", len(docs))

	return nil
}

// Ingest replaces the entire corpus with the given rule documents. The
// replacement is all-or-nothing: embeddings are computed and persisted
// before the in-memory corpus is swapped, so a failure at any point leaves
// the previous corpus intact and queryable. Documents with identical text
// collapse to a single entry, which makes ingestion idempotent.
func (s *Store) Ingest(ctx context.Context, rules []RuleDocument) error {
	if !s.ingestMu.TryLock() {
		return ErrIngestInProgress
	}
	defer s.ingestMu.Unlock()

	if len(rules) == 0 {
		return fmt.Errorf("no documents to ingest")
	}

	seen := make(map[string]struct{}, len(rules))
	docs := make([]Document, 0, len(rules))
	for _, rule := range rules {
		id := DocumentID(rule.Text)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		vec, err := s.embedder.Embed(ctx, rule.Text)
		if err != nil {
			return fmt.Errorf("embed document %s: %w", id, err)
		}

		tags := append([]string(nil), rule.Tags...)
		sort.Strings(tags)

		docs = append(docs, Document{
			ID:        id,
			Text:      rule.Text,
			Embedding: vec,
			Tags:      tags,
		})
	}

	// Keep the stored order deterministic regardless of input order.
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].ID < docs[j].ID
	})

	if s.corpus != nil {
		if err := s.corpus.ReplaceCorpus(ctx, docs); err != nil {
			return fmt.Errorf("persist corpus: %w", err)
		}
	}

	s.mu.Lock()
	s.docs = docs
	s.mu.Unlock()

	log.InfoS(ctx, "Knowledge corpus replaced",
		"documents", len(docs),
		"input_rules", len(rules))

	return nil
}

// Query returns the k nearest documents to the query vector by cosine
// similarity, score-descending with ties broken by document ID ascending.
func (s *Store) Query(vec []float64, k int) ([]ScoredDocument, error) {
	if k < 1 {
		return nil, fmt.Errorf("query k must be >= 1, got %d", k)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.docs) == 0 {
		return nil, ErrEmptyStore
	}

	scored := make([]ScoredDocument, len(s.docs))
	for i, doc := range s.docs {
		scored[i] = ScoredDocument{
			Document: doc,
			Score:    CosineSimilarity(vec, doc.Embedding),
		}
	}
	sortScored(scored)

	if k > len(scored) {
		k = len(scored)
	}

	return scored[:k], nil
}

// Len returns the number of ingested documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
