package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fenilsonani/folder-cleaner/internal/cleaner"
	"github.com/fenilsonani/folder-cleaner/internal/explorer"
	"github.com/fenilsonani/folder-cleaner/internal/progress"
	"github.com/fenilsonani/folder-cleaner/internal/scanner"
	"github.com/fenilsonani/folder-cleaner/internal/ui/models"
)

// RunInteractive starts the interactive explorer over an open session.
// reporter may be nil; when set, scan and clean progress is shown.
func RunInteractive(session *explorer.Session, reporter *progress.ProgressReporter, root string) error {
	m := models.NewExplorerModel(session, root, session.Mode())
	p := tea.NewProgram(m, tea.WithAltScreen())

	sub := session.Subscribe(explorer.ListenerFuncs{
		Entries: func(entries []scanner.Entry) { p.Send(models.EntriesMsg{Entries: entries}) },
		Size:    func(bytes int64) { p.Send(models.SizeMsg{Bytes: bytes}) },
		Cleaned: func(result *cleaner.CleanResult) { p.Send(models.CleanedMsg{Result: result}) },
	})
	defer sub.Cancel()

	if reporter != nil {
		updates := reporter.Subscribe()
		defer reporter.Unsubscribe(updates)
		go func() {
			for update := range updates {
				if msg := models.FromProgress(update); msg != nil {
					p.Send(msg)
				}
			}
		}()
	}

	if err := session.Refresh(); err != nil {
		return fmt.Errorf("failed to start scan: %w", err)
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running interactive mode: %w", err)
	}
	return nil
}
