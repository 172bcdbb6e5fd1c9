// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for batch conversion
package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// NewModel creates a model for inputs. cancel is called when the user quits early.
func NewModel(inputs []string, cancel func()) Model {
	files := make([]fileRow, len(inputs))
	for i, in := range inputs {
		files[i] = fileRow{input: in}
	}

	return Model{
		files:   files,
		started: time.Now(),
		cancel:  cancel,
	}
}

// Run creates the program. The caller feeds it progress messages with Send
// and blocks on Run.
func Run(inputs []string, cancel func()) *tea.Program {
	return tea.NewProgram(NewModel(inputs, cancel))
}
