// ABOUTME: Server TUI showing the job queue
// ABOUTME: Real-time job status display using bubbletea
package server

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// maxJobRows bounds how many recent jobs the TUI lists
const maxJobRows = 12

// ServerTUI manages the server TUI
type ServerTUI struct {
	program  *tea.Program
	updates  chan ServerStatus
	quitChan chan struct{}
}

// ServerStatus holds server state for TUI
type ServerStatus struct {
	Name        string
	Port        int
	Queued      int
	Subscribers int
	Jobs        []JobInfo
}

// JobInfo holds job information for display
type JobInfo struct {
	ID    string
	Input string
	State string
	Error string
}

type tuiModel struct {
	status    ServerStatus
	startTime time.Time
	quitting  bool
	quitChan  chan struct{}
}

type tickMsg time.Time
type statusMsg ServerStatus

func (m tuiModel) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.quitting = true
			select {
			case m.quitChan <- struct{}{}:
			default:
			}
			return m, tea.Quit
		}

	case tickMsg:
		return m, tickEvery()

	case statusMsg:
		m.status = ServerStatus(msg)
		return m, nil
	}

	return m, nil
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	jobsStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func (m tuiModel) View() string {
	if m.quitting {
		return "Shutting down server...\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("whisperprep server"))
	b.WriteString("\n\n")

	field := func(name, value string) {
		b.WriteString(headerStyle.Render(name + ": "))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}
	field("Server", m.status.Name)
	field("Port", fmt.Sprintf("%d", m.status.Port))
	field("Uptime", time.Since(m.startTime).Round(time.Second).String())
	field("Queued", fmt.Sprintf("%d", m.status.Queued))
	field("Subscribers", fmt.Sprintf("%d", m.status.Subscribers))
	b.WriteString("\n")

	b.WriteString(jobsStyle.Render(fmt.Sprintf("Jobs (%d)", len(m.status.Jobs))))
	b.WriteString("\n\n")

	if len(m.status.Jobs) == 0 {
		b.WriteString(valueStyle.Render("  No jobs yet"))
		b.WriteString("\n")
	}
	for i, job := range m.status.Jobs {
		if i == maxJobRows {
			b.WriteString(valueStyle.Render(fmt.Sprintf("  ... %d more", len(m.status.Jobs)-maxJobRows)))
			b.WriteString("\n")
			break
		}
		b.WriteString(renderJob(job))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Faint(true).Render("Press 'q' or Ctrl+C to quit"))

	return b.String()
}

func renderJob(job JobInfo) string {
	id := job.ID
	if len(id) > 8 {
		id = id[:8]
	}

	state := valueStyle.Render(job.State)
	switch job.State {
	case "done":
		state = doneStyle.Render(job.State)
	case "failed":
		state = failedStyle.Render(job.State + ": " + job.Error)
	}

	return fmt.Sprintf("  • %s %-24s %s", id, filepath.Base(job.Input), state)
}

// NewServerTUI creates a new server TUI
func NewServerTUI(serverName string, port int) *ServerTUI {
	return &ServerTUI{
		updates:  make(chan ServerStatus, 10),
		quitChan: make(chan struct{}, 1),
	}
}

// Start runs the TUI until it quits
func (t *ServerTUI) Start(serverName string, port int) error {
	m := tuiModel{
		status:    ServerStatus{Name: serverName, Port: port},
		startTime: time.Now(),
		quitChan:  t.quitChan,
	}

	t.program = tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		for status := range t.updates {
			if t.program != nil {
				t.program.Send(statusMsg(status))
			}
		}
	}()

	_, err := t.program.Run()
	return err
}

// Update sends a status update to the TUI without blocking
func (t *ServerTUI) Update(status ServerStatus) {
	select {
	case t.updates <- status:
	default:
	}
}

// Stop stops the TUI
func (t *ServerTUI) Stop() {
	if t.program != nil {
		t.program.Quit()
	}
	close(t.updates)
}

// QuitChan returns the channel that signals when user wants to quit
func (t *ServerTUI) QuitChan() <-chan struct{} {
	return t.quitChan
}
