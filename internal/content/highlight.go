package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma"
	"github.com/alecthomas/chroma/formatters"
	"github.com/alecthomas/chroma/lexers"
	"github.com/alecthomas/chroma/styles"
)

// SyntaxHighlighter colors source text for the terminal using Chroma
type SyntaxHighlighter struct {
	formatter chroma.Formatter
	style     *chroma.Style
	theme     string
}

// NewSyntaxHighlighter creates a highlighter. Unknown style or formatter names fall
// back to github and the plain formatter.
func NewSyntaxHighlighter(themeName, formatterName string) *SyntaxHighlighter {
	formatter := formatters.Get(formatterName)
	if formatter == nil {
		formatter = formatters.Fallback
	}

	style := styles.Get(themeName)
	if style == nil {
		style = styles.GitHub
	}

	return &SyntaxHighlighter{
		formatter: formatter,
		style:     style,
		theme:     themeName,
	}
}

// Highlight colors code written in language. On failure the input is returned unchanged.
func (sh *SyntaxHighlighter) Highlight(code, language string) (string, error) {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code, err
	}

	var highlighted strings.Builder
	if err := sh.formatter.Format(&highlighted, sh.style, iterator); err != nil {
		return code, err
	}
	return highlighted.String(), nil
}

// SetTheme switches the Chroma style
func (sh *SyntaxHighlighter) SetTheme(themeName string) error {
	style := styles.Get(themeName)
	if style == nil || (style == styles.Fallback && themeName != style.Name) {
		return fmt.Errorf("theme '%s' not found", themeName)
	}
	sh.style = style
	sh.theme = themeName
	return nil
}

// Theme returns the active Chroma style name
func (sh *SyntaxHighlighter) Theme() string {
	return sh.theme
}

// PrettyJSON indents a JSON document. ok is false when raw is not valid JSON.
func PrettyJSON(raw string) (string, bool) {
	var out bytes.Buffer
	if err := json.Indent(&out, []byte(strings.TrimSpace(raw)), "", "  "); err != nil {
		return raw, false
	}
	return out.String(), true
}

// HighlightResponse formats a raw server response for display: JSON bodies are
// indented and colored, anything else is shown verbatim.
func (sh *SyntaxHighlighter) HighlightResponse(raw string) string {
	pretty, ok := PrettyJSON(raw)
	if !ok {
		return raw
	}
	highlighted, err := sh.Highlight(pretty, "json")
	if err != nil {
		return pretty
	}
	return highlighted
}
