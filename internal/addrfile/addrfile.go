// Package addrfile reads the line-delimited address list.
package addrfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Load reads addresses from the file at path.
func Load(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open address file: %w", err)
	}
	defer file.Close()

	addresses, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read address file %s: %w", path, err)
	}
	return addresses, nil
}

// Parse returns one address per non-empty line, trimmed of surrounding
// whitespace. Addresses are otherwise taken verbatim.
func Parse(r io.Reader) ([]string, error) {
	var addresses []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		addresses = append(addresses, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return addresses, nil
}
