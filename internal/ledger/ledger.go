// Package ledger is the append-only record of completed fetch windows and
// the duplicate-range guard built on top of it. It is backed by a flat
// text file, one line per fetch:
//
//	2024-09-03 10:12:44 - INFO - HF, 2024-08-01, 2024-08-02
//
// The file is the sole persisted state of the system. Every new request
// scans it linearly; that is acceptable only while the log stays small.
package ledger

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	dateLayout      = "2006-01-02"
)

// Entry is one parsed log line.
type Entry struct {
	Timestamp time.Time
	Folder    string
	From      time.Time
	To        time.Time
}

// Ledger records fetch windows and answers overlap queries.
type Ledger struct {
	path string
	now  func() time.Time
}

// New creates a Ledger backed by the file at path. The file may not exist
// yet; it is created on the first Record.
func New(path string) *Ledger {
	return &Ledger{path: path, now: time.Now}
}

// Record appends one line for a completed fetch. Not atomic with respect
// to concurrent Overlaps calls; low request concurrency is assumed.
func (l *Ledger) Record(folder string, from, to time.Time) error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open fetch log: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("%s - INFO - %s, %s, %s\n",
		l.now().Format(timestampLayout),
		folder,
		from.Format(dateLayout),
		to.Format(dateLayout))
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("failed to append fetch log: %w", err)
	}
	return nil
}

// Overlaps reports whether a recorded window for folder shares at least
// one day with [since, before]. Boundaries are inclusive; windows for
// other folders never collide. The first hit short-circuits the scan.
func (l *Ledger) Overlaps(folder string, since, before time.Time) (bool, error) {
	entries, err := l.scan(func(e Entry) bool {
		return e.Folder == folder && !since.After(e.To) && !before.Before(e.From)
	})
	if err != nil {
		return false, err
	}
	return len(entries) > 0, nil
}

// Entries returns the full parsed history, newest first.
func (l *Ledger) Entries() ([]Entry, error) {
	entries, err := l.scan(nil)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// scan reads the log top to bottom, skipping malformed lines. With a
// match predicate it stops at the first hit.
func (l *Ledger) scan(match func(Entry) bool) ([]Entry, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open fetch log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		entry, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		if match == nil {
			entries = append(entries, entry)
			continue
		}
		if match(entry) {
			return []Entry{entry}, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fetch log: %w", err)
	}
	return entries, nil
}

func parseLine(line string) (Entry, bool) {
	parts := strings.SplitN(strings.TrimSpace(line), " - ", 3)
	if len(parts) != 3 {
		return Entry{}, false
	}

	ts, err := time.Parse(timestampLayout, parts[0])
	if err != nil {
		return Entry{}, false
	}

	details := strings.Split(parts[2], ", ")
	if len(details) != 3 {
		return Entry{}, false
	}
	from, err := time.Parse(dateLayout, details[1])
	if err != nil {
		return Entry{}, false
	}
	to, err := time.Parse(dateLayout, details[2])
	if err != nil {
		return Entry{}, false
	}

	return Entry{Timestamp: ts, Folder: details[0], From: from, To: to}, true
}
