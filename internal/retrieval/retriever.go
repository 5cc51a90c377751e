package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roasbeef/critic/internal/changeset"
	"github.com/roasbeef/critic/internal/knowledge"
)

const (
	// DefaultTopK is the number of nearest documents requested from the
	// knowledge store before relevance filtering.
	DefaultTopK = 8

	// DefaultRelevanceFloor is the minimum similarity score a document
	// must reach to appear in the retrieved context. This is what keeps
	// the engine from citing rules the change set has nothing to do
	// with.
	DefaultRelevanceFloor = 0.1

	// DefaultPerFileHunkCap bounds how many bytes of each file's hunk
	// text contribute to the query, keeping query cost bounded for
	// oversized diffs. Truncation keeps the head of each hunk, so the
	// query for a given change set is deterministic.
	DefaultPerFileHunkCap = 2048
)

// Config tunes retrieval behavior. The zero value selects the defaults.
type Config struct {
	TopK           int
	RelevanceFloor float64
	PerFileHunkCap int
}

// normalized fills in defaults for unset fields.
func (c Config) normalized() Config {
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.RelevanceFloor <= 0 {
		c.RelevanceFloor = DefaultRelevanceFloor
	}
	if c.PerFileHunkCap <= 0 {
		c.PerFileHunkCap = DefaultPerFileHunkCap
	}

	return c
}

// Context is the ordered, bounded, relevance-filtered document set handed
// to prompt construction. An empty Context is a valid result: it means no
// ingested rule cleared the relevance floor for this change set.
type Context struct {
	// Documents is ordered score-descending, ties broken by document ID
	// ascending, deduplicated by ID.
	Documents []knowledge.ScoredDocument

	// StoreEmpty is set when the knowledge store held no documents at
	// all, so the prompt can note the missing knowledge base rather
	// than silently reviewing without rules.
	StoreEmpty bool
}

// Empty reports whether no documents cleared the relevance floor.
func (c Context) Empty() bool {
	return len(c.Documents) == 0
}

// Retriever turns a change set into a similarity query and post-filters
// the knowledge store's answer.
type Retriever struct {
	store    *knowledge.Store
	embedder knowledge.Embedder
	cfg      Config
}

// NewRetriever creates a retriever over the given store. The embedder must
// be the same one used at ingestion time so query vectors live in the same
// space as document vectors.
func NewRetriever(store *knowledge.Store, embedder knowledge.Embedder,
	cfg Config,
) *Retriever {
	return &Retriever{
		store:    store,
		embedder: embedder,
		cfg:      cfg.normalized(),
	}
}

// Retrieve builds the query representation for the change set and returns
// the bounded, deduplicated, relevance-filtered context. Identical inputs
// always produce identical ordered output.
func (r *Retriever) Retrieve(ctx context.Context,
	cs *changeset.ChangeSet,
) (Context, error) {
	query := BuildQuery(cs, r.cfg.PerFileHunkCap)

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return Context{}, fmt.Errorf("embed query: %w", err)
	}

	scored, err := r.store.Query(vec, r.cfg.TopK)
	if err != nil {
		// An empty store degrades to an empty context; the review
		// proceeds with a "no knowledge base" note.
		if errors.Is(err, knowledge.ErrEmptyStore) {
			log.WarnS(ctx, "Knowledge store empty, proceeding "+
				"without context", err)
			return Context{StoreEmpty: true}, nil
		}

		return Context{}, fmt.Errorf("query store: %w", err)
	}

	var kept []knowledge.ScoredDocument
	for _, sd := range scored {
		if sd.Score < r.cfg.RelevanceFloor {
			continue
		}
		kept = append(kept, sd)
	}

	log.DebugS(ctx, "Retrieved review context",
		"candidates", len(scored),
		"kept", len(kept),
		"floor", r.cfg.RelevanceFloor)

	return Context{Documents: kept}, nil
}

// BuildQuery concatenates changed file paths, languages, and bounded hunk
// text into the retrieval query. Each file contributes at most hunkCap
// bytes of hunk text, truncated from the head so the result is stable.
func BuildQuery(cs *changeset.ChangeSet, hunkCap int) string {
	var b strings.Builder
	for _, f := range cs.Files {
		b.WriteString(f.Path)
		b.WriteByte(' ')
		if f.Language != "" {
			b.WriteString(f.Language)
			b.WriteByte(' ')
		}

		hunk := f.HunkText
		if hunkCap > 0 && len(hunk) > hunkCap {
			hunk = hunk[:hunkCap]
		}
		b.WriteString(hunk)
		b.WriteByte('\n')
	}

	return b.String()
}
