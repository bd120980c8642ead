package cryptoscope

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"satoribalance/internal/fetcher"
	"satoribalance/internal/metrics"
	"satoribalance/internal/testutil"
)

// fastOptions keeps retry waits and timeouts short enough for unit tests.
func fastOptions(baseURL string) Options {
	return Options{
		BaseURL:        baseURL,
		AttemptTimeout: 100 * time.Millisecond,
		RetryWait:      5 * time.Millisecond,
	}
}

func TestNewBalanceFetcher_Defaults(t *testing.T) {
	f := NewBalanceFetcher(Options{})

	if f == nil {
		t.Fatal("NewBalanceFetcher() returned nil")
	}
	if f.maxAttempts != DefaultMaxAttempts {
		t.Errorf("maxAttempts = %d, want %d", f.maxAttempts, DefaultMaxAttempts)
	}
	if f.attemptTimeout != DefaultAttemptTimeout {
		t.Errorf("attemptTimeout = %v, want %v", f.attemptTimeout, DefaultAttemptTimeout)
	}
	if f.retryWait != 0 {
		t.Errorf("retryWait = %v, want 0 for zero option", f.retryWait)
	}
	if f.client == nil {
		t.Error("client is nil")
	}
	if f.extractor == nil {
		t.Error("extractor is nil")
	}
}

func TestBalanceFetcher_Fetch_Value(t *testing.T) {
	server := testutil.NewExplorerServer(t, map[string]string{
		"addrA": testutil.BalancePage("1,234.50"),
	})

	f := NewBalanceFetcher(fastOptions(server.URL))
	got := f.Fetch(context.Background(), "addrA")

	if got.Kind != fetcher.KindValue {
		t.Fatalf("Kind = %v, want %v (text %q)", got.Kind, fetcher.KindValue, got.Text)
	}
	if got.Text != "1,234.50" {
		t.Errorf("Text = %q, want %q", got.Text, "1,234.50")
	}
	if !got.Amount.Equal(decimal.RequireFromString("1234.50")) {
		t.Errorf("Amount = %s, want 1234.50", got.Amount)
	}
}

func TestBalanceFetcher_Fetch_Absent(t *testing.T) {
	server := testutil.NewExplorerServer(t, nil)

	f := NewBalanceFetcher(fastOptions(server.URL))
	got := f.Fetch(context.Background(), "addrB")

	if got.Kind != fetcher.KindAbsent || got.Text != fetcher.AbsentText {
		t.Errorf("Fetch() = %+v, want absent", got)
	}
}

func TestBalanceFetcher_Fetch_NonNumericCell(t *testing.T) {
	server := testutil.NewExplorerServer(t, map[string]string{
		"addrC": testutil.BalancePage("loading..."),
	})

	f := NewBalanceFetcher(fastOptions(server.URL))
	got := f.Fetch(context.Background(), "addrC")

	if got.Kind != fetcher.KindFailure || got.Text != "loading..." {
		t.Errorf("Fetch() = %+v, want failure with raw cell text", got)
	}
}

func TestBalanceFetcher_Fetch_RequestShape(t *testing.T) {
	var gotAgent, gotAddress, gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		gotAddress = r.URL.Query().Get("address")
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(testutil.BalancePage("1")))
	}))
	defer server.Close()

	f := NewBalanceFetcher(fastOptions(server.URL))
	f.Fetch(context.Background(), "EXk9+/addr")

	if gotAgent != fetcher.DefaultUserAgent {
		t.Errorf("User-Agent = %q, want %q", gotAgent, fetcher.DefaultUserAgent)
	}
	if gotAddress != "EXk9+/addr" {
		t.Errorf("address param = %q, want %q", gotAddress, "EXk9+/addr")
	}
	if gotPath != "/address/address.php" {
		t.Errorf("path = %q, want %q", gotPath, "/address/address.php")
	}
}

func TestBalanceFetcher_Fetch_BadStatusExhaustsRetries(t *testing.T) {
	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	recorder := metrics.New()
	opts := fastOptions(server.URL)
	opts.Metrics = recorder
	f := NewBalanceFetcher(opts)

	got := f.Fetch(context.Background(), "addr")

	if got.Kind != fetcher.KindFailure || got.Text != fetcher.ExhaustedText {
		t.Errorf("Fetch() = %+v, want %q", got, fetcher.ExhaustedText)
	}
	if n := hits.Load(); n != DefaultMaxAttempts {
		t.Errorf("server hits = %d, want %d", n, DefaultMaxAttempts)
	}
}

func TestBalanceFetcher_Fetch_RecoversOnRetry(t *testing.T) {
	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(testutil.BalancePage("42")))
	}))
	defer server.Close()

	f := NewBalanceFetcher(fastOptions(server.URL))
	got := f.Fetch(context.Background(), "addr")

	if got.Kind != fetcher.KindValue || got.Text != "42" {
		t.Errorf("Fetch() = %+v, want value 42", got)
	}
	if n := hits.Load(); n != 3 {
		t.Errorf("server hits = %d, want 3", n)
	}
}

func TestBalanceFetcher_Fetch_RetryWaitOnlyAfterBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	opts := fastOptions(server.URL)
	opts.RetryWait = 50 * time.Millisecond
	f := NewBalanceFetcher(opts)

	start := time.Now()
	f.Fetch(context.Background(), "addr")
	elapsed := time.Since(start)

	// Two waits between three attempts; none after the last one.
	if elapsed < 100*time.Millisecond {
		t.Errorf("elapsed = %v, want at least two retry waits", elapsed)
	}
	if elapsed > 2*time.Second {
		t.Errorf("elapsed = %v, retry wait looks unbounded", elapsed)
	}
}

func TestBalanceFetcher_Fetch_TimeoutExactlyThreeAttempts(t *testing.T) {
	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	opts := fastOptions(server.URL)
	opts.AttemptTimeout = 50 * time.Millisecond
	f := NewBalanceFetcher(opts)

	got := f.Fetch(context.Background(), "slow")

	if got.Kind != fetcher.KindFailure || got.Text != fetcher.TimeoutText {
		t.Errorf("Fetch() = %+v, want %q", got, fetcher.TimeoutText)
	}
	if n := hits.Load(); n != 3 {
		t.Errorf("server hits = %d, want exactly 3", n)
	}
}

func TestBalanceFetcher_Fetch_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	f := NewBalanceFetcher(fastOptions(baseURL))
	got := f.Fetch(context.Background(), "addr")

	if got.Kind != fetcher.KindFailure {
		t.Fatalf("Kind = %v, want %v", got.Kind, fetcher.KindFailure)
	}
	if !strings.HasPrefix(got.Text, "Error: ") {
		t.Errorf("Text = %q, want prefix %q", got.Text, "Error: ")
	}
}

func TestBalanceFetcher_Fetch_CanceledContext(t *testing.T) {
	server := testutil.NewExplorerServer(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewBalanceFetcher(fastOptions(server.URL))
	got := f.Fetch(ctx, "addr")

	if got.Kind != fetcher.KindFailure || !strings.HasPrefix(got.Text, "Error: ") {
		t.Errorf("Fetch() = %+v, want error failure", got)
	}
}

func TestTerminalOutcome(t *testing.T) {
	tests := []struct {
		name string
		last *fetcher.FetchError
		want string
	}{
		{"nil", nil, fetcher.ExhaustedText},
		{"timeout", fetcher.NewTimeoutError(context.DeadlineExceeded), fetcher.TimeoutText},
		{"status", fetcher.ClassifyHTTPError(500), fetcher.ExhaustedText},
		{"network", fetcher.NewNetworkError(errDial), "Error: dial tcp: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := terminalOutcome(tt.last).Text; got != tt.want {
				t.Errorf("terminalOutcome() = %q, want %q", got, tt.want)
			}
		})
	}
}

type dialErr struct{}

func (dialErr) Error() string { return "dial tcp: connection refused" }

var errDial error = dialErr{}
