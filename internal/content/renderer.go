// Package content renders chat transcripts and raw server responses for the terminal.
package content

import (
	"fmt"
	"strings"

	"github.com/xperiencelabs/archat/internal/interfaces"
)

// Default labels shown in front of each message
const (
	LabelSent     = "you"
	LabelReceived = "assistant"
)

// Renderer formats messages with theme styles and resolves image references to URLs
type Renderer struct {
	themes      *ThemeManager
	highlighter *SyntaxHighlighter
	resolve     func(ref string) string
}

// NewRenderer creates a renderer for theme. resolve maps image references from replies
// to displayable URLs and may be nil.
func NewRenderer(theme *interfaces.Theme, resolve func(string) string) *Renderer {
	themes := NewThemeManager()
	themes.SetTheme(theme)

	highlight := "github"
	if theme != nil && theme.Highlight != "" {
		highlight = theme.Highlight
	}
	if resolve == nil {
		resolve = func(ref string) string { return ref }
	}

	return &Renderer{
		themes:      themes,
		highlighter: NewSyntaxHighlighter(highlight, "terminal256"),
		resolve:     resolve,
	}
}

// Themes exposes the style set
func (r *Renderer) Themes() *ThemeManager {
	return r.themes
}

// RenderMessage formats one transcript entry on a single line
func (r *Renderer) RenderMessage(msg interfaces.ChatMessage) string {
	label, style := LabelReceived, r.themes.Style(StyleReceived)
	if msg.Direction == interfaces.DirectionSent {
		label, style = LabelSent, r.themes.Style(StyleSent)
	}

	body := msg.Text
	if msg.IsImage() {
		ref := msg.ImageRef
		if msg.Direction == interfaces.DirectionReceived {
			ref = r.resolve(ref)
		}
		body = r.themes.Style(StyleImage).Render("[image] " + ref)
	}
	return fmt.Sprintf("%s %s", style.Render(label+":"), body)
}

// RenderTranscript formats messages one per line
func (r *Renderer) RenderTranscript(messages []interfaces.ChatMessage) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, r.RenderMessage(msg))
	}
	return strings.Join(lines, "\n")
}

// RenderError formats a failure reason
func (r *Renderer) RenderError(reason string) string {
	return r.themes.Style(StyleError).Render("error: " + reason)
}

// RenderInfo formats a status line
func (r *Renderer) RenderInfo(text string) string {
	return r.themes.Style(StyleInfo).Render(text)
}

// RenderRaw shows a raw server response, JSON highlighted
func (r *Renderer) RenderRaw(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return r.RenderInfo("no response received yet")
	}
	return r.themes.Style(StyleRaw).Render(r.highlighter.HighlightResponse(raw))
}
