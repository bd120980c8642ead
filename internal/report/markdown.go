package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"satoribalance/internal/aggregate"
	"satoribalance/internal/fetcher"
)

// WriteMarkdown renders the summary and the full results table as markdown.
func WriteMarkdown(w io.Writer, generated time.Time, s aggregate.Summary, records []fetcher.Record) error {
	md := markdown.NewMarkdown(w)

	md.H1("SATORI Balance Report")
	md.PlainText("")
	md.PlainText("Generated " + generated.Format("2006-01-02 15:04:05 MST"))
	md.PlainText("")

	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total SATORI Balance", s.Total.String()},
			{"Addresses with valid balance", strconv.Itoa(s.ValidCount)},
			{"Addresses with no SATORI", strconv.Itoa(s.AbsentCount)},
			{"Errors", strconv.Itoa(s.FailureCount)},
			{"Average SATORI Balance", s.Average.StringFixed(2)},
		},
	})
	md.PlainText("")

	md.H2("Balances")
	md.PlainText("")
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{"`" + r.Address + "`", r.Outcome.String(), r.Outcome.Kind.String()})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Address", "SATORI Balance", "Outcome"},
		Rows:   rows,
	})

	return md.Build()
}

// SaveMarkdown writes the markdown report to path.
func SaveMarkdown(path string, generated time.Time, s aggregate.Summary, records []fetcher.Record) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := WriteMarkdown(file, generated, s, records); err != nil {
		file.Close()
		return fmt.Errorf("failed to write markdown report: %w", err)
	}
	return file.Close()
}
