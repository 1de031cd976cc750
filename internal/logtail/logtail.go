package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Read returns the last maxLines lines of the file at path, oldest first.
// maxLines <= 0 returns every line. A missing file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	var ring []string
	if maxLines > 0 {
		ring = make([]string, 0, maxLines)
	}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	seen := 0
	for scanner.Scan() {
		switch {
		case maxLines <= 0 || len(ring) < maxLines:
			ring = append(ring, scanner.Text())
		default:
			ring[seen%maxLines] = scanner.Text()
		}
		seen++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	if maxLines <= 0 || seen <= maxLines {
		return ring, nil
	}
	start := seen % maxLines
	return append(ring[start:], ring[:start]...), nil
}

// level extracts the zerolog level of a JSON log line. Lines that are not
// JSON, such as console output, report ok false.
func level(line string) (zerolog.Level, bool) {
	var entry struct {
		Level string `json:"level"`
	}
	if err := json.Unmarshal([]byte(line), &entry); err != nil || entry.Level == "" {
		return zerolog.NoLevel, false
	}
	lvl, err := zerolog.ParseLevel(entry.Level)
	if err != nil {
		return zerolog.NoLevel, false
	}
	return lvl, true
}

// AtLeast keeps the lines at min or above. Lines without a level are kept.
func AtLeast(lines []string, min zerolog.Level) []string {
	out := lines[:0:0]
	for _, line := range lines {
		if lvl, ok := level(line); ok && lvl < min {
			continue
		}
		out = append(out, line)
	}
	return out
}

// Print writes lines to w. With pretty, JSON entries go through zerolog's
// console formatter; anything else is written unchanged.
func Print(w io.Writer, lines []string, pretty bool) error {
	console := zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: "2006-01-02 15:04:05"}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, ok := level(line); pretty && ok {
			if _, err := console.Write([]byte(line)); err == nil {
				continue
			}
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
