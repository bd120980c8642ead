package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"satoribalance/internal/fetcher"
)

// CSV column headers.
var csvHeader = []string{"Address", "SATORI Balance"}

// WriteCSV writes one row per record, in the given order.
func WriteCSV(w io.Writer, records []fetcher.Record) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write([]string{r.Address, r.Outcome.String()}); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", r.Address, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the results table to path, replacing any existing file.
func SaveCSV(path string, records []fetcher.Record) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := WriteCSV(file, records); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
