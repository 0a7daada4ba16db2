package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	responseStyle = lipgloss.NewStyle().Bold(true)
	spinnerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
)

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("namecall"))
	b.WriteString("  ")
	b.WriteString(m.connView())
	b.WriteString("\n\n")

	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if m.busy {
		b.WriteString(m.spinner.View())
		b.WriteString(" waiting for worker...")
	} else if m.response != "" {
		b.WriteString(responseStyle.Render(m.response))
	}
	b.WriteString("\n")

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(errStyle.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("enter: send • esc: quit"))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) connView() string {
	switch m.conn {
	case ConnStateConnected:
		return okStyle.Render("● " + m.conn.String())
	case ConnStateConnecting:
		return warnStyle.Render("○ " + m.conn.String())
	default:
		return errStyle.Render("○ " + m.conn.String())
	}
}
