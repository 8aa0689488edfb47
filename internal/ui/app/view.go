package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xperiencelabs/archat/internal/chat"
	"github.com/xperiencelabs/archat/internal/ui/components"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C7086"))

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(lipgloss.Color("#6C7086"))
)

// View implements tea.Model
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{
		m.renderHeader(),
		m.viewport.View(),
	}
	if pane := m.renderErrorPane(); pane != "" {
		sections = append(sections, pane)
	}
	sections = append(sections, m.renderStatusLine(), inputStyle.Width(m.width).Render(m.input.View()))

	return strings.Join(sections, "\n")
}

func (m *Model) renderHeader() string {
	name := "archat"
	host := ""
	if m.profile != nil {
		name = fmt.Sprintf("archat [%s]", m.profile.Name)
		host = m.profile.Host
	}
	text := fmt.Sprintf("%s %s  %s", name, host, components.RenderState(m.session.State()))
	return headerStyle.Width(m.width).Render(text)
}

func (m *Model) renderStatusLine() string {
	var parts []string
	if m.inFlight > 0 {
		parts = append(parts, m.spinner.View()+" waiting for the server")
	}
	if m.vizAvailable {
		parts = append(parts, "/visualize ready")
	}
	if len(parts) == 0 {
		return footerStyle.Render("enter to send, /help for commands, esc to quit")
	}
	return footerStyle.Render(strings.Join(parts, "  |  "))
}

// renderErrorPane shows the error that ended the session, if any
func (m *Model) renderErrorPane() string {
	if m.lastError == nil || m.session.State() != chat.StateFailed {
		return ""
	}
	return components.RenderErrorPane(m.lastError, m.width)
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
