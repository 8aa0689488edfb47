package content

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/xperiencelabs/archat/internal/interfaces"
)

// ThemeManager turns a configured theme into Lipgloss styles
type ThemeManager struct {
	currentTheme *interfaces.Theme
	styles       map[string]lipgloss.Style
}

// Style names
const (
	StyleSent     = "sent"
	StyleReceived = "received"
	StyleError    = "error"
	StyleInfo     = "info"
	StyleImage    = "image"
	StyleRaw      = "raw"
)

// NewThemeManager creates a manager with neutral defaults
func NewThemeManager() *ThemeManager {
	tm := &ThemeManager{}
	tm.initializeDefaultStyles()
	return tm
}

func (tm *ThemeManager) initializeDefaultStyles() {
	tm.styles = map[string]lipgloss.Style{
		StyleSent:     lipgloss.NewStyle().Foreground(lipgloss.Color("#0366d6")).Bold(true),
		StyleReceived: lipgloss.NewStyle(),
		StyleError:    lipgloss.NewStyle().Foreground(lipgloss.Color("#dc3545")).Bold(true),
		StyleInfo:     lipgloss.NewStyle().Foreground(lipgloss.Color("#6a737d")).Italic(true),
		StyleImage:    lipgloss.NewStyle().Foreground(lipgloss.Color("#17a2b8")).Underline(true),
		StyleRaw:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

// SetTheme applies theme colors on top of the defaults. Empty colors keep the default.
func (tm *ThemeManager) SetTheme(theme *interfaces.Theme) {
	tm.currentTheme = theme
	if theme == nil {
		return
	}

	colors := map[string]string{
		StyleSent:     theme.Sent,
		StyleReceived: theme.Received,
		StyleError:    theme.Error,
		StyleInfo:     theme.Info,
	}
	for name, color := range colors {
		if color != "" {
			tm.styles[name] = tm.styles[name].Foreground(lipgloss.Color(color))
		}
	}
}

// Theme returns the applied theme, or nil
func (tm *ThemeManager) Theme() *interfaces.Theme {
	return tm.currentTheme
}

// Style returns a named style, or an empty style for unknown names
func (tm *ThemeManager) Style(name string) lipgloss.Style {
	if style, ok := tm.styles[name]; ok {
		return style
	}
	return lipgloss.NewStyle()
}
