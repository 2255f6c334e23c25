// ABOUTME: Interactive TUI wizard for configuring inkreader storage and sync key.
// ABOUTME: 2-step bubbletea model collecting the data directory and the device sync key.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harper/inkreader/internal/db"
	"github.com/harper/inkreader/internal/sync"
)

// Step represents the current wizard step.
type Step int

const (
	StepDataDir Step = iota
	StepSyncKey
	StepDone
)

// SetupModel is the bubbletea model for the setup wizard.
type SetupModel struct {
	step     Step
	dataDir  textinput.Model
	key      textinput.Model
	errMsg   string
	newKey   func() (string, error)
	quitting bool
}

var (
	brandStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	faintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func newInput(placeholder, value string, limit int) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.Width = 50
	if limit > 0 {
		in.CharLimit = limit
	}
	if value != "" {
		in.SetValue(value)
	}
	return in
}

// NewSetupModel creates the wizard, pre-filled with the current config values.
func NewSetupModel(dataDir, syncKey string) SetupModel {
	m := SetupModel{
		step:    StepDataDir,
		dataDir: newInput(db.GetDefaultDataDir(), dataDir, 0),
		key:     newInput("leave blank to generate a new key", syncKey, sync.KeyLength),
		newKey:  sync.NewKey,
	}
	m.dataDir.Focus()
	return m
}

// Init implements tea.Model.
func (m SetupModel) Init() tea.Cmd {
	return textinput.Blink
}

// active returns the input for the current step, or nil once done.
func (m *SetupModel) active() *textinput.Model {
	switch m.step {
	case StepDataDir:
		return &m.dataDir
	case StepSyncKey:
		return &m.key
	}
	return nil
}

// Update implements tea.Model.
func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEscape:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			if m.active() != nil {
				return m.advance()
			}
		}
	}

	in := m.active()
	if in == nil {
		return m, nil
	}
	var cmd tea.Cmd
	*in, cmd = in.Update(msg)
	return m, cmd
}

// advance validates the current input and moves to the next step.
func (m SetupModel) advance() (tea.Model, tea.Cmd) {
	m.errMsg = ""

	switch m.step {
	case StepDataDir:
		if strings.TrimSpace(m.dataDir.Value()) == "" {
			m.dataDir.SetValue(db.GetDefaultDataDir())
		}
		m.dataDir.Blur()
		m.step = StepSyncKey
		m.key.Focus()
		return m, textinput.Blink

	case StepSyncKey:
		raw := strings.TrimSpace(m.key.Value())
		if raw == "" {
			generated, err := m.newKey()
			if err != nil {
				m.errMsg = fmt.Sprintf("could not generate a key: %v", err)
				return m, nil
			}
			raw = generated
		}
		key, err := sync.NormalizeKey(raw)
		if err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.key.SetValue(key)
		m.key.Blur()
		m.step = StepDone
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m SetupModel) View() string {
	var b strings.Builder

	b.WriteString("\n" + brandStyle.Render("   INKREADER") + titleStyle.Render(" - Setup") + "\n\n")
	b.WriteString("Configure where inkreader stores data and which reading history it follows.\n\n")

	switch m.step {
	case StepDataDir:
		writeStep(&b, "Step 1 of 2: Data Directory",
			fmt.Sprintf("(press Enter for default: %s)", db.GetDefaultDataDir()), m.dataDir.View())

	case StepSyncKey:
		fmt.Fprintf(&b, "  Data directory: %s\n\n", m.dataDir.Value())
		writeStep(&b, "Step 2 of 2: Sync Key",
			fmt.Sprintf("(%d letters or digits; reuse the key from another device to share read state)", sync.KeyLength),
			m.key.View())
		if m.errMsg != "" {
			b.WriteString(errorStyle.Render(m.errMsg) + "\n")
		}

	case StepDone:
		b.WriteString(successStyle.Render("Setup complete!") + "\n\n")
		fmt.Fprintf(&b, "  Data directory:  %s\n", m.dataDir.Value())
		fmt.Fprintf(&b, "  Sync key:        %s\n\n", m.key.Value())
	}

	return b.String()
}

func writeStep(b *strings.Builder, heading, hint, input string) {
	b.WriteString(faintStyle.Render(heading) + "\n")
	b.WriteString(faintStyle.Render(hint) + "\n")
	b.WriteString(input + "\n")
}

// Result returns the entered values.
func (m SetupModel) Result() (dataDir, syncKey string) {
	return m.dataDir.Value(), m.key.Value()
}

// ShouldSave reports whether the wizard finished without being cancelled.
func (m SetupModel) ShouldSave() bool {
	return m.step == StepDone && !m.quitting
}
