// ABOUTME: Bubbletea model for batch conversion progress
// ABOUTME: Tracks each input through convert and renders an overall progress bar
package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// FileState is the conversion stage of one input
type FileState int

const (
	FilePending FileState = iota
	FileConverting
	FileDone
	FileFailed
)

func (s FileState) String() string {
	switch s {
	case FileConverting:
		return "converting"
	case FileDone:
		return "done"
	case FileFailed:
		return "failed"
	default:
		return "pending"
	}
}

type fileRow struct {
	input  string
	state  FileState
	detail string
}

// Model represents the TUI state
type Model struct {
	files     []fileRow
	started   time.Time
	finished  bool
	cancelled bool
	cancel    func()

	width  int
	height int
}

// FileStartedMsg reports that conversion of Files[Index] began
type FileStartedMsg struct {
	Index int
}

// FileDoneMsg reports the outcome of Files[Index]
type FileDoneMsg struct {
	Index    int
	Codec    string
	Duration time.Duration
	Err      error
}

// BatchDoneMsg reports that every input has been handled
type BatchDoneMsg struct{}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case FileStartedMsg:
		if m.valid(msg.Index) {
			m.files[msg.Index].state = FileConverting
		}
	case FileDoneMsg:
		if m.valid(msg.Index) {
			m.applyDone(msg)
		}
	case BatchDoneMsg:
		m.finished = true
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) valid(i int) bool {
	return i >= 0 && i < len(m.files)
}

func (m *Model) applyDone(msg FileDoneMsg) {
	row := &m.files[msg.Index]
	if msg.Err != nil {
		row.state = FileFailed
		row.detail = msg.Err.Error()
		return
	}
	row.state = FileDone
	row.detail = fmt.Sprintf("%s, %v", msg.Codec, msg.Duration.Round(10*time.Millisecond))
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.cancelled = true
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit
	}
	return m, nil
}

// Counts returns how many inputs finished and failed
func (m Model) Counts() (done, failed int) {
	for _, f := range m.files {
		switch f.state {
		case FileDone:
			done++
		case FileFailed:
			failed++
		}
	}
	return done, failed
}

// View renders the TUI
func (m Model) View() string {
	var b strings.Builder

	done, failed := m.Counts()
	total := len(m.files)

	b.WriteString("┌─ whisperprep convert ────────────────────────────────┐\n")
	b.WriteString(fmt.Sprintf("│ [%s] %3d/%-3d failed: %-3d %-11s │\n",
		renderBar(done+failed, total, 20), done+failed, total, failed,
		time.Since(m.started).Round(time.Second)))
	b.WriteString("├──────────────────────────────────────────────────────┤\n")

	for _, f := range m.files {
		b.WriteString(fmt.Sprintf("│ %s %-22s %-27s │\n",
			stateIcon(f.state), truncate(filepath.Base(f.input), 22), truncate(f.detail, 27)))
	}

	b.WriteString("└──────────────────────────────────────────────────────┘\n")
	switch {
	case m.cancelled:
		b.WriteString("Cancelled\n")
	case m.finished:
		b.WriteString("Finished\n")
	default:
		b.WriteString("q: cancel\n")
	}

	return b.String()
}

func stateIcon(s FileState) string {
	switch s {
	case FileConverting:
		return "…"
	case FileDone:
		return "✓"
	case FileFailed:
		return "✗"
	default:
		return "·"
	}
}

func renderBar(value, max, width int) string {
	filled := 0
	if max > 0 {
		filled = (value * width) / max
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
