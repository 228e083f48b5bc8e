// Package format holds small presentation helpers shared by the server and
// session layers.
package format

import (
	"fmt"
	"strings"
)

// Duration renders a millisecond duration the way the UI shows elapsed
// turn time: "950ms", "12s", "2m 5s".
func Duration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	seconds := ms / 1000
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}

// Truncate clips s to at most max runes, ellipsis included.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// Title derives a session title from the first line of the first message,
// clipped to 50 runes.
func Title(input string) string {
	line := input
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "Untitled session"
	}
	return Truncate(line, 50)
}

// Filename returns the last path segment, treating both separators the way
// file paths appear in tool inputs.
func Filename(path string) string {
	if path == "" {
		return path
	}
	idx := strings.LastIndexAny(path, "/\\")
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}
