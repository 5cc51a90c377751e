package changeset

import "fmt"

// SizeBucket is a coarse classification of a change set by total changed
// lines. Buckets let the strategy selector generalize what it learns across
// change sets of similar shape instead of treating every PR as unique.
type SizeBucket string

const (
	SizeTiny   SizeBucket = "tiny"
	SizeSmall  SizeBucket = "small"
	SizeMedium SizeBucket = "medium"
	SizeLarge  SizeBucket = "large"
)

// Bucket thresholds in total changed lines. A tiny change is a one-liner
// style fix, small fits in a single sitting, medium is a feature branch,
// large is everything beyond that.
const (
	tinyMaxLines   = 10
	smallMaxLines  = 100
	mediumMaxLines = 500
)

// Size returns the size bucket for the change set.
func (cs *ChangeSet) Size() SizeBucket {
	switch {
	case cs.TotalLines <= tinyMaxLines:
		return SizeTiny
	case cs.TotalLines <= smallMaxLines:
		return SizeSmall
	case cs.TotalLines <= mediumMaxLines:
		return SizeMedium
	default:
		return SizeLarge
	}
}

// BucketKey derives the context bucket key used by the strategy selector:
// the primary language combined with the size bucket, e.g. "python/small".
func (cs *ChangeSet) BucketKey() string {
	return fmt.Sprintf("%s/%s", cs.PrimaryLanguage(), cs.Size())
}
