package probe

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"
)

// Status classifies a probe notification.
type Status string

const (
	// StatusNew marks a probe never notified before.
	StatusNew Status = "new"
	// StatusReminder marks a probe last notified outside the
	// suppression window.
	StatusReminder Status = "reminder"
)

// dateLayout is the on-disk date format, one notification date per
// probe.
const dateLayout = "2006-01-02"

// History is the duplicate-suppression gate. It reads a plain-text
// file of tab-separated (probe id, last report date) lines, answers
// whether a probe should be notified, and rewrites the file from its
// in-memory state at the end of the run.
type History struct {
	path   string
	window time.Duration

	order   []string
	entries map[string]time.Time
}

// LoadHistory reads the history file. A missing file is not an error;
// the gate starts empty.
func LoadHistory(path string, window time.Duration) (*History, error) {
	h := &History{
		path:    path,
		window:  window,
		entries: make(map[string]time.Time),
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return h, nil
		}
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		probeID, dateStr, ok := strings.Cut(scanner.Text(), "\t")
		if !ok {
			return nil, fmt.Errorf("malformed history line %q in %s", scanner.Text(), path)
		}
		date, err := time.ParseInLocation(dateLayout, dateStr, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("malformed history date for probe %q: %w", probeID, err)
		}
		if _, dup := h.entries[probeID]; !dup {
			h.order = append(h.order, probeID)
		}
		h.entries[probeID] = date
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}
	return h, nil
}

// Gate decides whether to notify about a probe at time now. Within the
// suppression window the notification is skipped and the recorded date
// kept; outside the window the notification becomes a reminder and the
// date refreshes; an unknown probe gets a fresh notification and a new
// line.
func (h *History) Gate(probeID string, now time.Time) (Status, bool) {
	last, known := h.entries[probeID]
	if !known {
		h.order = append(h.order, probeID)
		h.entries[probeID] = now.UTC()
		return StatusNew, true
	}
	if now.UTC().Sub(last) < h.window {
		return "", false
	}
	h.entries[probeID] = now.UTC()
	return StatusReminder, true
}

// Save rewrites the history file from the in-memory list.
func (h *History) Save() error {
	var b strings.Builder
	for _, probeID := range h.order {
		fmt.Fprintf(&b, "%s\t%s\n", probeID, h.entries[probeID].Format(dateLayout))
	}
	if err := os.WriteFile(h.path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to rewrite history file: %w", err)
	}
	return nil
}
