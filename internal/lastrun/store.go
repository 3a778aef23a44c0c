// Package lastrun persists the last successful poll instant per source.
package lastrun

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Store reads and writes the last-run file. The format is one line per
// source, `<source-uri> <RFC3339 instant>`, whitespace-separated. The
// file is read fully at cycle start and replaced whole at cycle end.
type Store struct {
	path   string
	logger *zap.Logger
}

// New creates a Store for the given file path.
func New(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, logger: logger}
}

// Load reads the full mapping. A missing file yields an empty mapping;
// malformed lines are skipped with a warning.
func (s *Store) Load() (map[string]time.Time, error) {
	runs := make(map[string]time.Time)

	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return runs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open last-run file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			s.logger.Warn("skipping malformed last-run line", zap.String("line", line))
			continue
		}
		instant, err := time.Parse(time.RFC3339Nano, fields[1])
		if err != nil {
			s.logger.Warn("skipping last-run line with unparsable instant",
				zap.String("line", line), zap.Error(err))
			continue
		}
		runs[fields[0]] = instant
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read last-run file: %w", err)
	}
	return runs, nil
}

// Save replaces the file content with the given mapping in one atomic
// overwrite: the new content is written to a sibling temp file and
// renamed over the old one, so a failed write never leaves a partial
// file behind.
func (s *Store) Save(runs map[string]time.Time) error {
	uris := make([]string, 0, len(runs))
	for uri := range runs {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	var b strings.Builder
	for _, uri := range uris {
		fmt.Fprintf(&b, "%s %s\n", uri, runs[uri].UTC().Format(time.RFC3339Nano))
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp last-run file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write last-run file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close last-run file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace last-run file: %w", err)
	}
	return nil
}
