package cryptoscope

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"resty.dev/v3"

	"satoribalance/internal/extractor"
	"satoribalance/internal/fetcher"
	"satoribalance/internal/metrics"
	"satoribalance/internal/ratelimit"
)

const (
	// DefaultBaseURL is the Evrmore explorer serving address pages
	DefaultBaseURL = "https://evr.cryptoscope.io"

	addressPath = "/address/address.php"

	// Default retry configuration
	DefaultMaxAttempts    = 3
	DefaultAttemptTimeout = 30 * time.Second
	DefaultRetryWait      = 1 * time.Second
)

// Options configures a BalanceFetcher. Zero values select the defaults.
type Options struct {
	BaseURL        string
	UserAgent      string
	MaxAttempts    int
	AttemptTimeout time.Duration
	RetryWait      time.Duration

	Extractor extractor.Extractor
	Limiter   *ratelimit.Limiter
	Metrics   *metrics.Recorder
	Logger    *slog.Logger
}

// BalanceFetcher fetches the SATORI balance shown on an address page
type BalanceFetcher struct {
	client         *resty.Client
	extractor      extractor.Extractor
	maxAttempts    int
	attemptTimeout time.Duration
	retryWait      time.Duration
	limiter        *ratelimit.Limiter
	metrics        *metrics.Recorder
	logger         *slog.Logger
}

// NewBalanceFetcher creates a new address balance fetcher
func NewBalanceFetcher(opts Options) *BalanceFetcher {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = DefaultAttemptTimeout
	}
	if opts.RetryWait < 0 {
		opts.RetryWait = 0
	}
	if opts.Extractor == nil {
		opts.Extractor = extractor.NewLabelExtractor(extractor.DefaultLabel)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &BalanceFetcher{
		client:         fetcher.NewHTTPClient(opts.BaseURL, opts.UserAgent),
		extractor:      opts.Extractor,
		maxAttempts:    opts.MaxAttempts,
		attemptTimeout: opts.AttemptTimeout,
		retryWait:      opts.RetryWait,
		limiter:        opts.Limiter,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
	}
}

// Fetch retrieves the balance for address, retrying failed attempts.
//
// Only a bad status is followed by the fixed retry wait; timeouts and
// transport errors are retried immediately. The last failed attempt decides
// the terminal outcome.
func (f *BalanceFetcher) Fetch(ctx context.Context, address string) fetcher.Outcome {
	var last *fetcher.FetchError

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		page, err := f.fetchPage(ctx, address)
		if err == nil {
			if attempt > 1 {
				f.logger.Debug("balance page fetched after retry",
					"address", address,
					"attempt", attempt)
			}
			return fetcher.FromToken(f.extractor.Extract(page))
		}

		last = err
		f.logger.Debug("balance page attempt failed",
			"address", address,
			"attempt", attempt,
			"error_type", err.Type,
			"error", err.Error())

		if ctx.Err() != nil {
			return fetcher.ErrorFailure(ctx.Err())
		}

		if err.IsStatus() && attempt < f.maxAttempts {
			if waitErr := sleep(ctx, f.retryWait); waitErr != nil {
				return fetcher.ErrorFailure(waitErr)
			}
		}
	}

	f.logger.Warn("balance lookup exhausted retries",
		"address", address,
		"attempts", f.maxAttempts,
		"error_type", last.Type)

	return terminalOutcome(last)
}

// fetchPage performs a single attempt and returns the page body.
func (f *BalanceFetcher) fetchPage(ctx context.Context, address string) (string, *fetcher.FetchError) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", fetcher.NewNetworkError(err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, f.attemptTimeout)
	defer cancel()

	start := time.Now()
	resp, err := f.client.R().
		SetContext(attemptCtx).
		SetQueryParam("address", address).
		Get(addressPath)
	elapsed := time.Since(start)

	if err != nil {
		var ferr *fetcher.FetchError
		if attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			ferr = fetcher.NewTimeoutError(err)
		} else {
			ferr = fetcher.ClassifyTransportError(err)
		}
		f.metrics.ObserveAttempt(string(ferr.Type), elapsed)
		return "", ferr
	}

	if resp.StatusCode() != http.StatusOK {
		ferr := fetcher.ClassifyHTTPError(resp.StatusCode())
		f.metrics.ObserveAttempt(string(ferr.Type), elapsed)
		return "", ferr
	}

	f.metrics.ObserveAttempt("ok", elapsed)
	return resp.String(), nil
}

// terminalOutcome maps the last attempt's error to the rendered failure.
func terminalOutcome(last *fetcher.FetchError) fetcher.Outcome {
	switch {
	case last == nil:
		return fetcher.Failure(fetcher.ExhaustedText)
	case last.Type == fetcher.ErrorTypeTimeout:
		return fetcher.Failure(fetcher.TimeoutText)
	case !last.IsStatus() && last.Cause != nil:
		return fetcher.ErrorFailure(last.Cause)
	default:
		return fetcher.Failure(fetcher.ExhaustedText)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
