package extract

import "context"

// PageExtractor is the opaque "raw text from a page reference" capability.
// It may be network-bound. A failed page yields an error value, never a
// panic; the engine treats such errors as per-page data.
type PageExtractor interface {
	Extract(ctx context.Context, pageRef string) (string, error)
}

// Classifier decides whether a text segment is linguistically plausible.
// Implementations must be deterministic for a given input within one process
// lifetime so results can be cached.
type Classifier interface {
	Plausible(segment string) bool
}
