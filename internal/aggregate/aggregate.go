// Package aggregate folds per-address outcomes into run totals.
package aggregate

import (
	"github.com/shopspring/decimal"

	"satoribalance/internal/fetcher"
)

// Summary is derived from a set of records and can be recomputed at any time.
type Summary struct {
	Total        decimal.Decimal
	ValidCount   int
	AbsentCount  int
	FailureCount int
	Average      decimal.Decimal
}

// Count returns the number of records the summary covers.
func (s Summary) Count() int {
	return s.ValidCount + s.AbsentCount + s.FailureCount
}

// Equal reports whether two summaries hold the same totals and counts.
func (s Summary) Equal(other Summary) bool {
	return s.Total.Equal(other.Total) &&
		s.Average.Equal(other.Average) &&
		s.ValidCount == other.ValidCount &&
		s.AbsentCount == other.AbsentCount &&
		s.FailureCount == other.FailureCount
}

// Summarize classifies each record by its outcome kind.
func Summarize(records []fetcher.Record) Summary {
	s := Summary{Total: decimal.Zero}

	for _, r := range records {
		switch r.Outcome.Kind {
		case fetcher.KindValue:
			s.Total = s.Total.Add(r.Outcome.Amount)
			s.ValidCount++
		case fetcher.KindAbsent:
			s.AbsentCount++
		default:
			s.FailureCount++
		}
	}

	return withAverage(s)
}

// SummarizeRendered classifies each record by re-parsing its rendered text,
// ignoring the outcome kind. Any text that parses as an amount counts as a
// valid balance, even a failure reason. Use it only where totals must match
// reports produced by earlier versions of the checker.
func SummarizeRendered(records []fetcher.Record) Summary {
	s := Summary{Total: decimal.Zero}

	for _, r := range records {
		if amount, ok := fetcher.ParseAmount(r.Outcome.Text); ok {
			s.Total = s.Total.Add(amount)
			s.ValidCount++
			continue
		}
		if r.Outcome.Text == fetcher.AbsentText {
			s.AbsentCount++
		} else {
			s.FailureCount++
		}
	}

	return withAverage(s)
}

func withAverage(s Summary) Summary {
	if s.ValidCount == 0 {
		s.Average = decimal.Zero
		return s
	}
	s.Average = s.Total.Div(decimal.NewFromInt(int64(s.ValidCount)))
	return s
}
