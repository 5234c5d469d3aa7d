// Package errlog appends failures to a plain-text log file per day, so a
// user can look up what went wrong in earlier runs without rerunning them.
package errlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultPrefix is the file name prefix used when Daily.Prefix is empty.
const DefaultPrefix = "audiobook_errors"

// Daily writes entries to <Dir>/<Prefix>_YYYY-MM-DD.log, one line per
// entry:
//
//	2026-03-01T10:04:05Z, convert /books/moby.pdf, audiobook: synthesizing failed: ...
//
// Daily is safe for concurrent use.
type Daily struct {
	Dir    string
	Prefix string

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	mu sync.Mutex
}

// Path returns the log file for the day of t.
func (d *Daily) Path(t time.Time) string {
	prefix := d.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return filepath.Join(d.Dir, fmt.Sprintf("%s_%s.log", prefix, t.Format(time.DateOnly)))
}

// Log appends one entry. Newlines in activity and detail are replaced so
// every entry stays on one line.
func (d *Daily) Log(activity, detail string) error {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	t := now()
	line := fmt.Sprintf("%s, %s, %s\n", t.Format(time.RFC3339), flatten(activity), flatten(detail))

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Dir != "" {
		if err := os.MkdirAll(d.Dir, 0o755); err != nil {
			return fmt.Errorf("errlog: %w", err)
		}
	}
	f, err := os.OpenFile(d.Path(t), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("errlog: %w", err)
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("errlog: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("errlog: %w", err)
	}
	return nil
}

// LogError appends err under activity. A nil err is not logged.
func (d *Daily) LogError(activity string, err error) error {
	if err == nil {
		return nil
	}
	return d.Log(activity, err.Error())
}

var flattener = strings.NewReplacer("\r\n", " | ", "\n", " | ", "\r", " | ")

func flatten(s string) string {
	return flattener.Replace(strings.TrimSpace(s))
}
