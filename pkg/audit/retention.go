package audit

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CleanupOldLogs removes day files older than the retention window and
// returns how many were removed. Rotated files are exempt from
// date-based cleanup.
func (l *Logger) CleanupOldLogs() (int, error) {
	cutoff := dayStart(l.clock.Now()).AddDate(0, 0, -l.cfg.RetentionDays)

	entries, err := os.ReadDir(l.cfg.LogDir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		day, ok := parseDayFileName(de.Name())
		if !ok {
			continue
		}
		if !day.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(l.cfg.LogDir, de.Name())); err != nil {
			l.logger.Error("Failed to remove expired audit file",
				"file", de.Name(),
				"error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// parseDayFileName extracts the date from a plain day file name
// (audit_YYYYMMDD.jsonl). Rotated files do not match.
func parseDayFileName(name string) (time.Time, bool) {
	const prefix, suffix = "audit_", ".jsonl"
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return time.Time{}, false
	}
	datePart := strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix)
	if len(datePart) != 8 {
		return time.Time{}, false
	}
	day, err := time.ParseInLocation("20060102", datePart, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}
