package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// SearchFilter narrows a log search. The date range selects day files;
// the remaining fields are per-entry equality filters, ignored when
// empty. Limit defaults to 100.
type SearchFilter struct {
	Start      time.Time
	End        time.Time
	EntityType string
	EntityID   string
	UserID     string
	TerminalID string
	Action     string
	Limit      int
}

// Statistics aggregates audit entries over a date range.
type Statistics struct {
	TotalEntries int            `json:"total_entries"`
	ByAction     map[string]int `json:"by_action"`
	ByEntity     map[string]int `json:"by_entity"`
	ByTerminal   map[string]int `json:"by_terminal"`
	ByUser       map[string]int `json:"by_user"`
	BySeverity   map[string]int `json:"by_severity"`
	Conflicts    int            `json:"conflicts"`
	SyncFailures int            `json:"sync_failures"`
}

// Search streams day files in chronological order, applying the filter
// and stopping at the limit. Buffered entries are flushed first so
// recent activity is visible.
func (l *Logger) Search(filter SearchFilter) ([]Entry, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	l.Flush()

	out := make([]Entry, 0, filter.Limit)
	err := l.scanRange(filter.Start, filter.End, func(e Entry) bool {
		if !filter.matches(e) {
			return true
		}
		out = append(out, e)
		return len(out) < filter.Limit
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetStatistics aggregates counts by action, entity, terminal, user,
// and severity over the date range, plus conflict and sync-failure
// totals.
func (l *Logger) GetStatistics(start, end time.Time) (*Statistics, error) {
	l.Flush()

	stats := &Statistics{
		ByAction:   make(map[string]int),
		ByEntity:   make(map[string]int),
		ByTerminal: make(map[string]int),
		ByUser:     make(map[string]int),
		BySeverity: make(map[string]int),
	}
	err := l.scanRange(start, end, func(e Entry) bool {
		stats.TotalEntries++
		stats.ByAction[e.Action]++
		if e.EntityType != "" {
			stats.ByEntity[e.EntityType]++
		}
		if e.TerminalID != "" {
			stats.ByTerminal[e.TerminalID]++
		}
		if e.UserID != "" {
			stats.ByUser[e.UserID]++
		}
		stats.BySeverity[string(e.Severity)]++
		if e.ConflictResolution != "" {
			stats.Conflicts++
		}
		if e.SyncStatus == "failed" {
			stats.SyncFailures++
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// scanRange visits every entry of every day file in [start, end] in
// chronological order. The visit function returns false to stop early.
func (l *Logger) scanRange(start, end time.Time, visit func(Entry) bool) error {
	day := dayStart(start)
	last := dayStart(end)

	for !day.After(last) {
		cont, err := l.scanDayFile(l.dayFilePath(day), visit)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
		day = day.AddDate(0, 0, 1)
	}
	return nil
}

func (l *Logger) scanDayFile(path string, visit func(Entry) bool) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("opening audit file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			l.logger.Warn("Skipping malformed audit line", "file", path, "error", err)
			continue
		}
		if !visit(e) {
			return false, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("reading audit file: %w", err)
	}
	return true, nil
}

func (f SearchFilter) matches(e Entry) bool {
	if f.EntityType != "" && e.EntityType != f.EntityType {
		return false
	}
	if f.EntityID != "" && e.EntityID != f.EntityID {
		return false
	}
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.TerminalID != "" && e.TerminalID != f.TerminalID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	return true
}

func dayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
