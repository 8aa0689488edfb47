package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/xperiencelabs/archat/internal/chat"
	apperrors "github.com/xperiencelabs/archat/internal/errors"
)

type slashCommand struct {
	name        string
	usage       string
	description string
}

var slashCommands = []slashCommand{
	{name: "/upload", usage: "/upload <path>", description: "send a photo for a visual recommendation"},
	{name: "/visualize", usage: "/visualize", description: "show the models collected for the 3D viewer"},
	{name: "/raw", usage: "/raw", description: "show the last raw server response"},
	{name: "/session", usage: "/session", description: "show the current session id"},
	{name: "/clear", usage: "/clear", description: "clear the screen"},
	{name: "/help", usage: "/help", description: "list commands"},
	{name: "/quit", usage: "/quit", description: "close the session and exit"},
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil

	case SessionReadyMsg:
		m.ready = true
		m.input.Placeholder = inputIdleText
		id, _ := m.session.SessionID()
		m.appendLine(m.renderer.RenderInfo(fmt.Sprintf("connected to %s (session %s)", m.profile.Host, id)))
		return m, nil

	case ChatMessageMsg:
		m.appendLine(m.renderer.RenderMessage(msg.Message))
		return m, nil

	case VisualizationAvailableMsg:
		m.vizAvailable = true
		m.appendLine(m.renderer.RenderInfo("visualization available, type /visualize"))
		return m, nil

	case SessionErrorMsg:
		m.appendLine(m.renderer.RenderError(msg.Reason))
		return m, nil

	case callDoneMsg:
		return m, m.handleCallDone(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m.quit()

	case "enter":
		text := strings.TrimSpace(m.input.Value())
		m.input.SetValue("")
		return m.submit(text)

	case "up":
		m.navigateHistory(-1)
		return nil

	case "down":
		m.navigateHistory(1)
		return nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) submit(text string) tea.Cmd {
	if text == "" {
		return nil
	}
	m.rememberInput(text)

	if strings.HasPrefix(text, "/") {
		return m.runCommand(text)
	}

	m.inFlight++
	return m.call("send", func(ctx context.Context) error {
		return m.session.SendMessage(ctx, text)
	})
}

func (m *Model) runCommand(text string) tea.Cmd {
	name := strings.Fields(text)[0]
	args := strings.TrimSpace(strings.TrimPrefix(text, name))

	switch name {
	case "/help":
		for _, c := range slashCommands {
			m.appendLine(m.renderer.RenderInfo(fmt.Sprintf("%-18s %s", c.usage, c.description)))
		}
		return nil

	case "/upload":
		return m.upload(args)

	case "/visualize":
		m.showVisualization()
		return nil

	case "/raw":
		m.appendLine(m.renderer.RenderRaw(m.session.LastRaw()))
		return nil

	case "/session":
		if id, ok := m.session.SessionID(); ok {
			m.appendLine(m.renderer.RenderInfo("session " + id))
		} else {
			m.appendLine(m.renderer.RenderInfo("no session"))
		}
		return nil

	case "/clear":
		m.lines = nil
		m.refreshViewport()
		return nil

	case "/quit", "/exit":
		return m.quit()
	}

	m.appendLine(m.renderer.RenderError("unknown command " + name))
	return nil
}

func (m *Model) upload(path string) tea.Cmd {
	if path == "" {
		m.appendLine(m.renderer.RenderError("usage: /upload <path>"))
		return nil
	}

	data, err := m.readFile(path)
	if err != nil {
		m.logger.Warn("image read failed", "path", path, "error", err)
		m.appendLine(m.renderer.RenderError("cannot read " + path))
		return nil
	}

	filename := filepath.Base(path)
	m.appendLine(m.renderer.RenderInfo(fmt.Sprintf("uploading %s (%d bytes)", filename, len(data))))
	m.inFlight++
	return m.call("upload", func(ctx context.Context) error {
		return m.session.UploadImage(ctx, data, filename)
	})
}

func (m *Model) showVisualization() {
	handoff, ok := m.session.Visualization().Handoff()
	if !m.vizAvailable || !ok {
		m.appendLine(m.renderer.RenderInfo("no visualization available yet"))
		return
	}

	if handoff.Model != "" {
		m.appendLine(m.renderer.RenderInfo("3D model " + m.endpoints.ResolveAsset(handoff.Model)))
		return
	}
	for _, ref := range handoff.Models3D {
		m.appendLine(m.renderer.RenderInfo("3D model " + m.endpoints.ResolveAsset(ref)))
	}
	for _, ref := range handoff.Images2D {
		m.appendLine(m.renderer.RenderInfo("image " + m.endpoints.ResolveAsset(ref)))
	}
}

// call runs fn off the update loop and reports its outcome as a callDoneMsg
func (m *Model) call(operation string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return callDoneMsg{operation: operation, err: fn(ctx)}
	}
}

func (m *Model) handleCallDone(msg callDoneMsg) tea.Cmd {
	if m.inFlight > 0 {
		m.inFlight--
	}
	if msg.err == nil || m.quitting {
		return nil
	}

	m.lastError = msg.err
	m.logger.Debug("request failed", "operation", msg.operation, "error", msg.err)

	// validation failures never reach the sink
	if apperrors.IsType(msg.err, apperrors.ErrorTypeValidation) {
		m.appendLine(m.renderer.RenderError(apperrors.ReasonOf(msg.err)))
	}
	if m.session.State() == chat.StateFailed {
		m.input.Blur()
	}
	return nil
}

func (m *Model) navigateHistory(direction int) {
	if len(m.inputHistory) == 0 {
		return
	}
	m.historyIndex += direction
	if m.historyIndex < 0 {
		m.historyIndex = 0
	}
	if m.historyIndex >= len(m.inputHistory) {
		m.historyIndex = len(m.inputHistory)
		m.input.SetValue("")
		return
	}
	m.input.SetValue(m.inputHistory[m.historyIndex])
	m.input.CursorEnd()
}

// quit closes the session off the update loop so that sink deliveries blocked on
// the program can drain, then stops the program
func (m *Model) quit() tea.Cmd {
	if m.quitting {
		return tea.Quit
	}
	m.quitting = true
	return tea.Sequence(m.closeSession, tea.Quit)
}

func (m *Model) closeSession() tea.Msg {
	if err := m.session.Close(); err != nil {
		m.logger.Warn("session close failed", "error", err)
	}
	return nil
}
