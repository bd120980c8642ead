package coordinator

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"satoribalance/internal/fetcher"
	"satoribalance/internal/metrics"
	"satoribalance/internal/testutil"
)

func TestNew(t *testing.T) {
	coord := New(testutil.NewMockFetcher(nil))
	if coord == nil {
		t.Fatal("New() returned nil")
	}
	if coord.concurrency != DefaultConcurrency {
		t.Errorf("concurrency = %d, want %d", coord.concurrency, DefaultConcurrency)
	}
	if coord.logger == nil {
		t.Error("logger is nil")
	}
}

func TestNew_WithConcurrency(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want int
	}{
		{"positive", 3, 3},
		{"zero keeps default", 0, DefaultConcurrency},
		{"negative keeps default", -5, DefaultConcurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coord := New(testutil.NewMockFetcher(nil), WithConcurrency(tt.n))
			if coord.concurrency != tt.want {
				t.Errorf("concurrency = %d, want %d", coord.concurrency, tt.want)
			}
		})
	}
}

func TestRun_OneRecordPerAddress(t *testing.T) {
	outcomes := map[string]fetcher.Outcome{
		"addrA": fetcher.Value("1,234.50", decimal.RequireFromString("1234.50")),
		"addrC": fetcher.Failure(fetcher.TimeoutText),
	}
	addresses := []string{"addrA", "addrB", "addrC"}

	records := New(testutil.NewMockFetcher(outcomes)).Run(context.Background(), addresses)

	if len(records) != len(addresses) {
		t.Fatalf("Run() returned %d records, want %d", len(records), len(addresses))
	}

	got := make(map[string]string, len(records))
	for _, r := range records {
		got[r.Address] = r.Outcome.Text
	}

	want := map[string]string{
		"addrA": "1,234.50",
		"addrB": fetcher.AbsentText,
		"addrC": fetcher.TimeoutText,
	}
	for address, text := range want {
		if got[address] != text {
			t.Errorf("record[%s] = %q, want %q", address, got[address], text)
		}
	}
}

func TestRun_Empty(t *testing.T) {
	called := false
	mock := &testutil.MockFetcher{
		FetchFunc: func(ctx context.Context, address string) fetcher.Outcome {
			called = true
			return fetcher.Absent()
		},
	}

	records := New(mock).Run(context.Background(), nil)

	if len(records) != 0 {
		t.Errorf("Run() returned %d records, want 0", len(records))
	}
	if called {
		t.Error("fetcher called for empty input")
	}
}

func TestRun_ConcurrencyBound(t *testing.T) {
	const limit = 10

	var inFlight, maxInFlight atomic.Int32
	mock := &testutil.MockFetcher{
		FetchFunc: func(ctx context.Context, address string) fetcher.Outcome {
			n := inFlight.Add(1)
			for {
				m := maxInFlight.Load()
				if n <= m || maxInFlight.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
			return fetcher.Absent()
		},
	}

	addresses := testutil.Addresses(60)
	records := New(mock, WithConcurrency(limit)).Run(context.Background(), addresses)

	if len(records) != len(addresses) {
		t.Fatalf("Run() returned %d records, want %d", len(records), len(addresses))
	}
	if m := maxInFlight.Load(); m > limit {
		t.Errorf("max in flight = %d, want <= %d", m, limit)
	}
	if m := maxInFlight.Load(); m < 2 {
		t.Errorf("max in flight = %d, lookups did not run concurrently", m)
	}
}

func TestRun_CompletionOrder(t *testing.T) {
	delays := map[string]time.Duration{
		"slow":   60 * time.Millisecond,
		"medium": 30 * time.Millisecond,
		"fast":   1 * time.Millisecond,
	}
	mock := &testutil.MockFetcher{
		FetchFunc: func(ctx context.Context, address string) fetcher.Outcome {
			time.Sleep(delays[address])
			return fetcher.Absent()
		},
	}

	records := New(mock).Run(context.Background(), []string{"slow", "medium", "fast"})

	if len(records) != 3 {
		t.Fatalf("Run() returned %d records, want 3", len(records))
	}
	if records[0].Address != "fast" {
		t.Errorf("first completed = %q, want %q", records[0].Address, "fast")
	}
}

func TestRun_Progress(t *testing.T) {
	var mu sync.Mutex
	var dones []int

	addresses := testutil.Addresses(5)
	coord := New(testutil.NewMockFetcher(nil), WithProgress(func(done, total int, record fetcher.Record) {
		mu.Lock()
		defer mu.Unlock()
		if total != len(addresses) {
			t.Errorf("progress total = %d, want %d", total, len(addresses))
		}
		dones = append(dones, done)
	}))

	coord.Run(context.Background(), addresses)

	sort.Ints(dones)
	if len(dones) != len(addresses) {
		t.Fatalf("progress called %d times, want %d", len(dones), len(addresses))
	}
	for i, d := range dones {
		if d != i+1 {
			t.Errorf("progress done[%d] = %d, want %d", i, d, i+1)
		}
	}
}

func TestRun_PanicBecomesFailure(t *testing.T) {
	mock := &testutil.MockFetcher{
		FetchFunc: func(ctx context.Context, address string) fetcher.Outcome {
			if address == "boom" {
				panic("extractor exploded")
			}
			return fetcher.Absent()
		},
	}

	records := New(mock, WithConcurrency(1)).Run(context.Background(), []string{"boom", "fine", "also-fine"})

	if len(records) != 3 {
		t.Fatalf("Run() returned %d records, want 3", len(records))
	}
	for _, r := range records {
		if r.Address == "boom" {
			if r.Outcome.Kind != fetcher.KindFailure || !strings.HasPrefix(r.Outcome.Text, "Error: ") {
				t.Errorf("panicking lookup = %+v, want error failure", r.Outcome)
			}
		}
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	mock := &testutil.MockFetcher{
		FetchFunc: func(ctx context.Context, address string) fetcher.Outcome {
			select {
			case <-ctx.Done():
				return fetcher.ErrorFailure(ctx.Err())
			case <-time.After(5 * time.Second):
				return fetcher.Absent()
			}
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	addresses := testutil.Addresses(20)
	records := New(mock, WithConcurrency(2)).Run(ctx, addresses)

	// Every address still yields exactly one record.
	if len(records) != len(addresses) {
		t.Fatalf("Run() returned %d records, want %d", len(records), len(addresses))
	}
	for _, r := range records {
		if r.Outcome.Kind != fetcher.KindFailure {
			t.Errorf("record %s = %+v, want failure after cancellation", r.Address, r.Outcome)
		}
	}
}

func TestRun_MetricsGaugeReturnsToZero(t *testing.T) {
	recorder := metrics.New()

	New(testutil.NewMockFetcher(nil), WithMetrics(recorder)).Run(context.Background(), testutil.Addresses(15))

	families, err := recorder.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() returned unexpected error: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "satori_fetches_in_flight" {
			continue
		}
		if v := mf.GetMetric()[0].GetGauge().GetValue(); v != 0 {
			t.Errorf("in-flight gauge = %v after run, want 0", v)
		}
	}
}
