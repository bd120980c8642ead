package fetcher

// Record pairs an address with the outcome of its lookup.
// It's designed to be sent through channels from worker goroutines
// to a coordinator that collects results in completion order.
type Record struct {
	// Address is the input identifier, verbatim from the address list
	Address string

	// Outcome is the single, immutable result for this address
	Outcome Outcome
}
