// Package fsutil contains small pure helpers shared by the transfer
// engine and its adapters: byte/duration formatting, dialog title
// building, and path component extraction.
package fsutil

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// FormatBytes formats a byte count as a human-readable size.
func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatDuration renders a duration in the compact form used by progress
// lines: "4s", "2m 30s", "1h 05m".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// OperationTitle builds the human title for a transfer, e.g.
// `Copy "notes.txt"` for a single item or "Move 12 items" for a batch.
func OperationTitle(verb string, sources []string) string {
	if verb != "" {
		verb = strings.ToUpper(verb[:1]) + strings.ToLower(verb[1:])
	}
	switch len(sources) {
	case 0:
		return verb
	case 1:
		return fmt.Sprintf("%s %q", verb, LeafName(sources[0]))
	default:
		return fmt.Sprintf("%s %d items", verb, len(sources))
	}
}

// LeafName returns the final path component, with trailing separators
// ignored. An empty or root path yields the path unchanged.
func LeafName(path string) string {
	trimmed := strings.TrimRight(path, string(filepath.Separator))
	if trimmed == "" {
		return path
	}
	return filepath.Base(trimmed)
}

// Percent returns done/total as 0-100, clamped. A zero total reports 0.
func Percent(done, total uint64) float64 {
	if total == 0 {
		return 0
	}
	p := float64(done) / float64(total) * 100
	if p > 100 {
		return 100
	}
	return p
}
