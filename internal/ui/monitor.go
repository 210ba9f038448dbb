package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Messages the daemon feeds into the monitor program. They mirror the
// engine's observer hooks one to one.
type (
	// HeldMsg reports a master-key state change.
	HeldMsg bool
	// CursorMsg reports the current sequence path.
	CursorMsg []string
	// InvalidMsg reports a key that matched nothing at the cursor.
	InvalidMsg string
	// ActionMsg reports a resolved action, already rendered.
	ActionMsg string
)

const monitorHistory = 8

// MonitorModel is the live view of the engine used by the monitor
// subcommand: master-key state, sequence cursor, and the last few resolved
// actions.
type MonitorModel struct {
	device  string
	master  string
	held    bool
	path    []string
	invalid string
	actions []string
}

// NewMonitor creates a monitor view for the given device and master key.
func NewMonitor(device, master string) MonitorModel {
	return MonitorModel{device: device, master: master}
}

func (m MonitorModel) Init() tea.Cmd {
	return nil
}

func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
	case HeldMsg:
		m.held = bool(msg)
		if !m.held {
			m.invalid = ""
		}
	case CursorMsg:
		m.path = msg
		m.invalid = ""
	case InvalidMsg:
		m.invalid = string(msg)
	case ActionMsg:
		m.actions = append([]string{string(msg)}, m.actions...)
		if len(m.actions) > monitorHistory {
			m.actions = m.actions[:monitorHistory]
		}
	}
	return m, nil
}

func (m MonitorModel) View() string {
	var b strings.Builder

	b.WriteString(Title("leaderd monitor"))
	b.WriteString(Muted(fmt.Sprintf("  %s · master %s", m.device, m.master)))
	b.WriteString("\n\n")

	badge := IdleBadgeStyle.Render("IDLE")
	if m.held {
		badge = HeldBadgeStyle.Render("HELD")
	}
	b.WriteString("  " + badge)

	if m.held {
		path := "·"
		if len(m.path) > 0 {
			path = strings.Join(m.path, " ▸ ")
		}
		b.WriteString("  " + PathStyle.Render(path))
	}
	if m.invalid != "" {
		b.WriteString("  " + Warning("no binding for "+m.invalid))
	}
	b.WriteString("\n\n")

	b.WriteString(Bold("Recent actions") + "\n")
	if len(m.actions) == 0 {
		b.WriteString(Muted("  (none yet)") + "\n")
	}
	for _, a := range m.actions {
		b.WriteString("  " + SubtitleStyle.Render(a) + "\n")
	}

	b.WriteString("\n" + Muted("q to quit") + "\n")

	return MonitorBoxStyle.Render(b.String())
}
