package components

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	apperrors "github.com/xperiencelabs/archat/internal/errors"
)

// Styling for error components.
var (
	errorPaneStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder(), false, true, true, true).
			BorderForeground(lipgloss.Color("#F38BA8")).
			Padding(0, 1)

	errorHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#F38BA8"))

	errorCodeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAB387")).
			Italic(true)

	recoveryHintStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#A6E3A1"))
)

// RenderErrorPane renders a failure with its reason and, for contextual errors, the
// error type, code and whether the session survives it.
func RenderErrorPane(err error, width int) string {
	if err == nil {
		return ""
	}

	var builder strings.Builder
	builder.WriteString(errorHeaderStyle.Render("✗ " + apperrors.ReasonOf(err)))

	var ctxErr *apperrors.ContextualError
	if stderrors.As(err, &ctxErr) {
		detail := string(ctxErr.Type)
		if ctxErr.Code != "" {
			detail = fmt.Sprintf("%s (%s)", detail, ctxErr.Code)
		}
		builder.WriteRune('\n')
		builder.WriteString(errorCodeStyle.Render("  " + detail))

		builder.WriteRune('\n')
		if ctxErr.IsRecoverable() {
			builder.WriteString(recoveryHintStyle.Render("  the conversation can continue"))
		} else {
			builder.WriteString(recoveryHintStyle.Render("  restart the session to continue"))
		}
	}

	if width > 4 {
		return errorPaneStyle.Width(width - 4).Render(builder.String())
	}
	return errorPaneStyle.Render(builder.String())
}
