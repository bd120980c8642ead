package testutil

import (
	"context"
	"fmt"

	"satoribalance/internal/fetcher"
)

// MockFetcher is a mock implementation of the Fetcher interface for testing
type MockFetcher struct {
	FetchFunc func(ctx context.Context, address string) fetcher.Outcome
}

// Fetch implements the Fetcher interface
func (m *MockFetcher) Fetch(ctx context.Context, address string) fetcher.Outcome {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, address)
	}
	return fetcher.Absent()
}

// NewMockFetcher creates a mock fetcher answering from a fixed table.
// Addresses missing from outcomes are reported as absent.
func NewMockFetcher(outcomes map[string]fetcher.Outcome) fetcher.Fetcher {
	return &MockFetcher{
		FetchFunc: func(ctx context.Context, address string) fetcher.Outcome {
			if o, ok := outcomes[address]; ok {
				return o
			}
			return fetcher.Absent()
		},
	}
}

// Addresses returns n distinct test addresses.
func Addresses(n int) []string {
	addresses := make([]string, n)
	for i := range addresses {
		addresses[i] = fmt.Sprintf("EaddrTest%04d", i)
	}
	return addresses
}
