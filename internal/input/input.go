// Package input reads the list of URLs to index.
package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadURLs returns one URL per non-blank line. Lines are trimmed and lines
// starting with '#' are skipped. Order and duplicates are preserved.
func ReadURLs(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read urls: %w", err)
	}
	return urls, nil
}

// ReadURLFile reads URLs from the file at path.
func ReadURLFile(path string) ([]string, error) {
	f, err := os.Open(path) // #nosec G304 -- operator-supplied input file.
	if err != nil {
		return nil, fmt.Errorf("open url file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadURLs(f)
}
