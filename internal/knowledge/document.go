package knowledge

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// Document is an ingested engineering rule with its embedding. Documents
// are immutable once ingested: they are created during ingestion, never
// mutated, and removed only when a later ingestion replaces the corpus.
type Document struct {
	// ID is derived from the document text, so re-ingesting identical
	// content yields identical IDs.
	ID string

	// Text is the rule text shown to the generation backend.
	Text string

	// Embedding is the vector representation computed at ingestion time.
	Embedding []float64

	// Tags are normalized labels, e.g. languages the rule applies to.
	Tags []string
}

// HasTag reports whether the document carries the given tag.
func (d *Document) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}

	return false
}

// RuleDocument is the ingestion input shape: rule text plus tags, before
// any embedding has been computed.
type RuleDocument struct {
	Text string
	Tags []string
}

// DocumentID computes the content-derived ID for a rule text.
func DocumentID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "doc-" + hex.EncodeToString(sum[:6])
}

// ScoredDocument pairs a document with its similarity score for a query.
type ScoredDocument struct {
	Document Document
	Score    float64
}

// sortScored orders results score-descending with ties broken by document
// ID ascending so query results are deterministic.
func sortScored(docs []ScoredDocument) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].Document.ID < docs[j].Document.ID
	})
}
