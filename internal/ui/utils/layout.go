package utils

import (
	"fmt"

	"github.com/fenilsonani/folder-cleaner/internal/ui/styles"
)

const (
	// MinTerminalWidth is the minimum recommended terminal width
	MinTerminalWidth = 60
	// MinTerminalHeight is the minimum recommended terminal height
	MinTerminalHeight = 16

	// reservedLines covers the title, header, status bar and help
	reservedLines = 9
)

// PageSize returns how many list rows fit in a terminal of the given height
func PageSize(terminalHeight int) int {
	size := terminalHeight - reservedLines
	if size < 5 {
		size = 5
	}
	return size
}

// Window returns the [start, end) slice of a list of n rows that keeps the
// cursor visible on a page of the given size.
func Window(cursor, n, page int) (int, int) {
	if n <= page {
		return 0, n
	}
	start := cursor - page/2
	if start < 0 {
		start = 0
	}
	if start+page > n {
		start = n - page
	}
	return start, start + page
}

// IsTerminalTooSmall checks if the terminal is below minimum recommended size
func IsTerminalTooSmall(width, height int) bool {
	return width < MinTerminalWidth || height < MinTerminalHeight
}

// SizeWarningBanner returns a warning line when the terminal is too small
func SizeWarningBanner(width, height int) string {
	if width == 0 || !IsTerminalTooSmall(width, height) {
		return ""
	}
	warning := fmt.Sprintf("Terminal too small (%dx%d), recommended %dx%d",
		width, height, MinTerminalWidth, MinTerminalHeight)
	return styles.WarningStyle.Render(warning) + "\n"
}

// TruncateMiddle shortens s to maxLen runes, keeping its start and end
func TruncateMiddle(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen < 5 {
		return string(r[:maxLen])
	}
	side := (maxLen - 1) / 2
	return string(r[:side]) + "…" + string(r[len(r)-(maxLen-1-side):])
}
