// Package report renders run results: the CSV results table, the console
// summary and an optional markdown report.
package report

import (
	"fmt"
	"io"

	"satoribalance/internal/aggregate"
)

// WriteSummary prints the human-readable summary block.
func WriteSummary(w io.Writer, s aggregate.Summary) error {
	_, err := fmt.Fprintf(w, `
Summary:
Total SATORI Balance: %s
Number of addresses with valid balance: %d
Number of addresses with 'No SATORI': %d
Number of errors: %d
Average SATORI Balance: %s
`,
		s.Total.String(),
		s.ValidCount,
		s.AbsentCount,
		s.FailureCount,
		s.Average.StringFixed(2),
	)
	return err
}
