// Package tui is the interactive adapter for the apply state machine's
// event stream: a bubbletea Elm-architecture model presenting the
// Dump/List/Write/Quit confirmation menu, styled with lipgloss the way
// shubham030-recovery/cmd/recover-tui/main.go styles its own screens.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shubham/ntfsboot/internal/apply"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)
)

// Model drives one apply.Applier from keyboard input: d/D dumps the
// diff, l/L previews the root directory, w/W writes both boot sectors
// (counts as the "positive confirmation" spec.md's write verb needs),
// q/Q/Esc/Ctrl+C quits.
type Model struct {
	applier *apply.Applier
	state   apply.State

	lastOutput string
	err        error
	quitting   bool
	written    bool
}

// New builds a Model over an already-composed Applier - the caller
// (cmd/ntfsboot-tui) runs RebuildNTFSBoot first and hands the
// resulting Applier here for the interactive confirmation step.
func New(a *apply.Applier) Model {
	return Model{applier: a}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "q", "Q", "esc", "ctrl+c":
		m.applier.Handle(apply.EventQuit, false, &m.state)
		m.quitting = true
		return m, tea.Quit
	case "d", "D":
		m.lastOutput = m.applier.Dump()
		m.err = nil
	case "l", "L":
		entries, err := m.applier.List()
		m.err = err
		if err == nil {
			m.lastOutput = strings.Join(entries, "\n")
		}
	case "w", "W":
		res := m.applier.Write()
		m.written = res.PrimaryErr == nil && res.BackupErr == nil
		if res.PrimaryErr != nil {
			m.err = res.PrimaryErr
		} else if res.BackupErr != nil {
			m.err = res.BackupErr
		} else {
			m.err = nil
		}
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		if m.written {
			return "boot sector written (primary + backup).\n"
		}
		return "aborted, no changes written.\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("NTFS boot sector rebuild"))
	b.WriteString("\n\n")

	if m.written {
		b.WriteString(successStyle.Render("boot sector written (primary + backup)"))
		b.WriteString("\n\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("error: %v", m.err)))
		b.WriteString("\n\n")
	}
	if m.lastOutput != "" {
		b.WriteString(m.lastOutput)
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("d: dump diff   l: list root directory   w: write   q: quit"))
	b.WriteString("\n")
	return b.String()
}
