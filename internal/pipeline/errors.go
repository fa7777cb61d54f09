package pipeline

import "github.com/rotisserie/eris"

// Sentinel errors for the terminal pipeline states. Everything else
// degrades to a partial record with advisory flags instead of an error.
var (
	// ErrLinkDead means the product page returned 404. Not retryable.
	ErrLinkDead = eris.New("pipeline: link dead")

	// ErrRateLimited means the product page returned 403 or 429.
	// Retryable after backoff with a finite budget.
	ErrRateLimited = eris.New("pipeline: rate limited")

	// ErrRescueFailed means live extraction failed and the rescue pass
	// also yielded nothing. The URL needs manual input.
	ErrRescueFailed = eris.New("pipeline: rescue failed")
)
