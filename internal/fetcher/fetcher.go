package fetcher

import "context"

// Fetcher is the core interface for balance lookups.
// Each call looks up a single address and folds every failure into the
// returned Outcome, so a bad address never aborts the rest of the batch.
type Fetcher interface {
	// Fetch retrieves the balance for address.
	// It always returns exactly one Outcome.
	Fetch(ctx context.Context, address string) Outcome
}
