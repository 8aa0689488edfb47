// Package components provides shared interface elements for the chat console: session
// status indicators, the activity spinner and error panes.
package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"github.com/xperiencelabs/archat/internal/chat"
)

// statusStyles maps status strings to their corresponding visual style.
var statusStyles = map[string]lipgloss.Style{
	"pending": lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
	"success": lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
	"error":   lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
	"warning": lipgloss.NewStyle().Foreground(lipgloss.Color("#FAB387")),
	"info":    lipgloss.NewStyle().Foreground(lipgloss.Color("#89B4FA")),
	"running": lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
	"closed":  lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
}

// statusIcons maps status strings to their corresponding icon.
var statusIcons = map[string]string{
	"pending": "⏳",
	"success": "●",
	"error":   "✗",
	"warning": "!",
	"info":    "i",
	"running": "…",
	"closed":  "○",
}

// RenderStatus formats a status message with an appropriate icon and color.
func RenderStatus(status, message string) string {
	style, exists := statusStyles[status]
	if !exists {
		style = lipgloss.NewStyle()
	}

	icon, exists := statusIcons[status]
	if !exists {
		icon = "-"
	}

	return style.Render(fmt.Sprintf("%s %s", icon, message))
}

// StatusFor maps a client state onto one of the status keys above
func StatusFor(state chat.State) string {
	switch state {
	case chat.StateUninitialized:
		return "pending"
	case chat.StateStarting:
		return "running"
	case chat.StateReady:
		return "success"
	case chat.StateSending:
		return "running"
	case chat.StateFailed:
		return "error"
	case chat.StateClosed:
		return "closed"
	default:
		return "info"
	}
}

// RenderState renders the header badge of a client state
func RenderState(state chat.State) string {
	return RenderStatus(StatusFor(state), state.String())
}

// NewSpinner returns the spinner shown while a request is in flight. The caller owns
// its ticks.
func NewSpinner() spinner.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = statusStyles["running"]
	return sp
}
