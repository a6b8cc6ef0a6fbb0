package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fenilsonani/folder-cleaner/internal/ui/styles"
	"github.com/fenilsonani/folder-cleaner/pkg/utils"
)

// StatusBar shows the sort mode, selection count and selected size
type StatusBar struct {
	mode      string
	selected  int
	total     int
	size      int64
	sizeKnown bool
	message   string
}

// NewStatusBar creates a new status bar
func NewStatusBar() *StatusBar {
	return &StatusBar{}
}

// SetMode sets the sort mode label
func (s *StatusBar) SetMode(mode string) {
	s.mode = mode
}

// SetSelection sets the selection count and total
func (s *StatusBar) SetSelection(selected, total int) {
	s.selected = selected
	s.total = total
}

// SetSize sets the aggregate size of the selection
func (s *StatusBar) SetSize(size int64) {
	s.size = size
	s.sizeKnown = true
}

// SetMessage sets a transient message shown on the right
func (s *StatusBar) SetMessage(message string) {
	s.message = message
}

// Render renders the status bar with the given width
func (s *StatusBar) Render(width int) string {
	if width <= 0 {
		width = 80
	}

	var parts []string
	if s.mode != "" {
		parts = append(parts, styles.BoldStyle.Render("by "+s.mode))
	}
	parts = append(parts, fmt.Sprintf("%d/%d selected", s.selected, s.total))

	sizeInfo := "…"
	if s.sizeKnown {
		sizeInfo = utils.FormatSize(s.size)
	}
	parts = append(parts, styles.FileSizeStyle.Render(sizeInfo))

	left := strings.Join(parts, " • ")
	right := s.message

	spacing := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if spacing < 1 {
		right = ""
		spacing = 1
	}

	return styles.StatusBarStyle.Width(width).Render(left + strings.Repeat(" ", spacing) + right)
}
