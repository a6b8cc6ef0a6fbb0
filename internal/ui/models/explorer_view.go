package models

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	bprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/fenilsonani/folder-cleaner/internal/cleaner"
	"github.com/fenilsonani/folder-cleaner/internal/progress"
	"github.com/fenilsonani/folder-cleaner/internal/scanner"
	"github.com/fenilsonani/folder-cleaner/internal/sorting"
	"github.com/fenilsonani/folder-cleaner/internal/ui/components"
	"github.com/fenilsonani/folder-cleaner/internal/ui/styles"
	uiutils "github.com/fenilsonani/folder-cleaner/internal/ui/utils"
)

// Controller is the set of explorer commands the view issues
type Controller interface {
	Refresh() error
	Toggle(relPath string) error
	ChangeSort() (sorting.Mode, error)
	DeselectAll() error
	CleanSelected() bool
}

// ExplorerModel lists the root's entries and drives a Controller
type ExplorerModel struct {
	ctrl   Controller
	root   string
	keys   KeyMap
	help   help.Model
	status *components.StatusBar

	spinner    spinner.Model
	bar        bprogress.Model
	entries    []scanner.Entry
	cursor     int
	mode       sorting.Mode
	scanning   bool
	confirming bool
	cleaning   bool

	scanPath   string
	cleanState *progress.CleanProgress
	message    string

	width  int
	height int
}

// NewExplorerModel creates the model. The listing is empty until an
// EntriesMsg arrives.
func NewExplorerModel(ctrl Controller, root string, mode sorting.Mode) *ExplorerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.CursorStyle

	status := components.NewStatusBar()
	status.SetMode(mode.String())

	return &ExplorerModel{
		ctrl:     ctrl,
		root:     root,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		status:   status,
		spinner:  s,
		bar:      bprogress.New(bprogress.WithDefaultGradient(), bprogress.WithWidth(30)),
		entries:  []scanner.Entry{},
		mode:     mode,
		scanning: true,
	}
}

// Init starts the spinner
func (m *ExplorerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages
func (m *ExplorerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case EntriesMsg:
		m.entries = msg.Entries
		m.scanning = false
		m.scanPath = ""
		if m.cursor >= len(m.entries) {
			m.cursor = max(len(m.entries)-1, 0)
		}
		m.status.SetSelection(m.selectedCount(), len(m.entries))
		return m, nil

	case SizeMsg:
		m.status.SetSize(msg.Bytes)
		return m, nil

	case ModeMsg:
		m.mode = msg.Mode
		m.status.SetMode(msg.Mode.String())
		return m, nil

	case ScanProgressMsg:
		if msg.Progress != nil {
			m.scanPath = msg.Progress.CurrentPath
		}
		return m, nil

	case CleanProgressMsg:
		m.cleanState = msg.Progress
		return m, nil

	case CleanedMsg:
		m.cleaning = false
		m.cleanState = nil
		m.message = cleanMessage(msg.Result)
		m.scanning = true
		return m, m.spinner.Tick

	case nothingToCleanMsg:
		m.cleaning = false
		m.message = "Nothing to clean"
		return m, nil

	case ErrMsg:
		m.message = styles.ErrorStyle.Render(msg.Err.Error())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *ExplorerModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirming {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.confirming = false
			m.cleaning = true
			m.message = ""
			return m, tea.Batch(m.spinner.Tick, m.cleanCmd())
		case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Quit):
			m.confirming = false
			m.message = "Clean cancelled"
		}
		return m, nil
	}

	// keys are ignored until the clean finishes
	if m.cleaning {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Top):
		m.cursor = 0

	case key.Matches(msg, m.keys.Bottom):
		m.cursor = max(len(m.entries)-1, 0)

	case key.Matches(msg, m.keys.Toggle):
		if len(m.entries) == 0 {
			return m, nil
		}
		rel := m.entries[m.cursor].RelPath
		return m, func() tea.Msg {
			if err := m.ctrl.Toggle(rel); err != nil {
				return ErrMsg{Err: fmt.Errorf("toggle %s: %w", rel, err)}
			}
			return nil
		}

	case key.Matches(msg, m.keys.Sort):
		return m, func() tea.Msg {
			mode, err := m.ctrl.ChangeSort()
			if err != nil {
				return ErrMsg{Err: err}
			}
			return ModeMsg{Mode: mode}
		}

	case key.Matches(msg, m.keys.DeselectAll):
		m.message = ""
		return m, func() tea.Msg {
			if err := m.ctrl.DeselectAll(); err != nil {
				return ErrMsg{Err: err}
			}
			return nil
		}

	case key.Matches(msg, m.keys.Clean):
		if m.selectedCount() == 0 {
			m.message = "Nothing to clean"
			return m, nil
		}
		m.confirming = true

	case key.Matches(msg, m.keys.Refresh):
		m.scanning = true
		m.message = ""
		return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
			if err := m.ctrl.Refresh(); err != nil {
				return ErrMsg{Err: err}
			}
			return nil
		})
	}

	return m, nil
}

func (m *ExplorerModel) cleanCmd() tea.Cmd {
	return func() tea.Msg {
		if !m.ctrl.CleanSelected() {
			return nothingToCleanMsg{}
		}
		return nil
	}
}

func (m *ExplorerModel) busy() bool {
	return m.scanning || m.cleaning
}

func (m *ExplorerModel) selectedCount() int {
	n := 0
	for _, e := range m.entries {
		if e.Selected {
			n++
		}
	}
	return n
}

// View renders the explorer
func (m *ExplorerModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("📁 " + m.root))
	b.WriteString("\n")
	b.WriteString(uiutils.SizeWarningBanner(m.width, m.height))

	switch {
	case m.cleaning:
		b.WriteString(m.renderCleaning())
	case m.scanning && len(m.entries) == 0:
		b.WriteString(m.spinner.View())
		b.WriteString(" Scanning…")
		if m.scanPath != "" {
			b.WriteString(styles.DimStyle.Render(" " + m.scanPath))
		}
		b.WriteString("\n")
	case len(m.entries) == 0:
		b.WriteString(styles.DimStyle.Render("Nothing here"))
		b.WriteString("\n")
	default:
		b.WriteString(m.renderList())
	}

	b.WriteString("\n")
	if m.confirming {
		b.WriteString(styles.WarningStyle.Render(fmt.Sprintf("Delete %d selected item(s)? This cannot be undone. [y/n]", m.selectedCount())))
		b.WriteString("\n")
	}

	message := m.message
	if m.scanning && len(m.entries) > 0 {
		message = m.spinner.View() + " refreshing"
	}
	m.status.SetMessage(message)
	b.WriteString(m.status.Render(m.width))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

func (m *ExplorerModel) renderList() string {
	var b strings.Builder

	nameWidth := 40
	if m.width > 30 {
		nameWidth = m.width - 24
	}

	start, end := uiutils.Window(m.cursor, len(m.entries), uiutils.PageSize(m.height))
	for i := start; i < end; i++ {
		e := m.entries[i]

		cursor := "  "
		if i == m.cursor {
			cursor = styles.CursorStyle.Render("> ")
		}
		box := styles.UncheckedBox()
		if e.Selected {
			box = styles.CheckedBox()
		}

		name := uiutils.TruncateMiddle(e.RelPath, nameWidth)
		if e.IsDir {
			name = styles.DirStyle.Render(name + "/")
		} else {
			name = styles.FileStyle.Render(name)
		}

		fmt.Fprintf(&b, "%s%s %s %s\n", cursor, box, name,
			styles.FileSizeStyle.Render(humanize.IBytes(uint64(e.Size))))
	}

	if end-start < len(m.entries) {
		b.WriteString(styles.DimStyle.Render(fmt.Sprintf("  %d-%d of %d", start+1, end, len(m.entries))))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *ExplorerModel) renderCleaning() string {
	var b strings.Builder
	b.WriteString(m.spinner.View())
	b.WriteString(" Cleaning…\n")

	if p := m.cleanState; p != nil {
		percent := 0.0
		if p.PathsTotal > 0 {
			percent = float64(p.PathsDone) / float64(p.PathsTotal)
		}
		b.WriteString(m.bar.ViewAs(percent))
		fmt.Fprintf(&b, " %d/%d\n", p.PathsDone, p.PathsTotal)
		if p.CurrentPath != "" {
			b.WriteString(styles.DimStyle.Render(p.CurrentPath))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func cleanMessage(result *cleaner.CleanResult) string {
	if result == nil {
		return ""
	}
	if len(result.Failed) > 0 {
		return styles.WarningStyle.Render(fmt.Sprintf("Cleaned %d, %d failed",
			len(result.Cleaned), len(result.Failed)))
	}
	verb := "Freed"
	if result.DryRun {
		verb = "Would free"
	}
	return styles.SuccessStyle.Render(fmt.Sprintf("✓ %s %s", verb, humanize.IBytes(uint64(result.FreedSize))))
}
