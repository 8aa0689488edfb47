// Package app implements the interactive chat console. The model owns the scrolling
// transcript view, the prompt and the request spinner; the session client reports
// back through a ProgramSink that turns sink callbacks into Bubble Tea messages.
package app

import (
	"context"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/xperiencelabs/archat/internal/chat"
	"github.com/xperiencelabs/archat/internal/content"
	"github.com/xperiencelabs/archat/internal/interfaces"
	"github.com/xperiencelabs/archat/internal/logging"
	"github.com/xperiencelabs/archat/internal/protocol"
	"github.com/xperiencelabs/archat/internal/ui/components"
)

// Session is the part of the chat client the console drives. *chat.Client implements it.
type Session interface {
	Start(ctx context.Context) error
	SendMessage(ctx context.Context, text string) error
	UploadImage(ctx context.Context, data []byte, filename string) error
	Close() error
	State() chat.State
	SessionID() (string, bool)
	Visualization() chat.Visualization
	LastRaw() string
}

// Layout constants
const (
	headerHeight    = 1
	footerHeight    = 3
	defaultWidth    = 80
	defaultHeight   = 24
	minViewport     = 3
	inputCharLimit  = 2000
	inputPrompt     = "› "
	inputIdleText   = "Ask for a recommendation... /help for commands"
	inputWaitText   = "Connecting..."
	maxHistoryItems = 100
)

// Model is the Bubble Tea model of the chat console
type Model struct {
	ctx       context.Context
	session   Session
	renderer  *content.Renderer
	endpoints protocol.Endpoints
	profile   *interfaces.Profile
	logger    *logging.Logger
	readFile  func(string) ([]byte, error)

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	lines        []string
	inputHistory []string
	historyIndex int

	ready         bool
	inFlight      int
	vizAvailable  bool
	lastError     error
	quitting      bool
	width, height int
}

// NewModel creates the console model. The session must not have been started; Init
// starts it.
func NewModel(ctx context.Context, session Session, renderer *content.Renderer, profile *interfaces.Profile) *Model {
	if ctx == nil {
		ctx = context.Background()
	}

	input := textinput.New()
	input.Prompt = inputPrompt
	input.Placeholder = inputWaitText
	input.CharLimit = inputCharLimit
	input.Width = defaultWidth - 4
	input.Focus()

	vp := viewport.New(defaultWidth, defaultHeight-headerHeight-footerHeight)

	return &Model{
		ctx:       ctx,
		session:   session,
		renderer:  renderer,
		endpoints: protocol.EndpointsFor(profile),
		profile:   profile,
		logger:    logging.GetUILogger(),
		readFile:  os.ReadFile,
		input:     input,
		viewport:  vp,
		spinner:   components.NewSpinner(),
		width:     defaultWidth,
		height:    defaultHeight,
	}
}

// Init starts the session handshake together with the cursor and spinner ticks
func (m *Model) Init() tea.Cmd {
	m.inFlight++
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.call("start", m.session.Start))
}

// Lines returns the rendered transcript lines
func (m *Model) Lines() []string {
	return append([]string(nil), m.lines...)
}

// Ready reports whether the session handshake succeeded
func (m *Model) Ready() bool {
	return m.ready
}

// VisualizationAvailable reports whether /visualize has something to show
func (m *Model) VisualizationAvailable() bool {
	return m.vizAvailable
}

// Quitting reports whether the console is shutting down
func (m *Model) Quitting() bool {
	return m.quitting
}

func (m *Model) appendLine(line string) {
	m.lines = append(m.lines, line)
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	m.viewport.SetContent(joinLines(m.lines))
	m.viewport.GotoBottom()
}

func (m *Model) setSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.width, m.height = width, height

	vpHeight := height - headerHeight - footerHeight
	if vpHeight < minViewport {
		vpHeight = minViewport
	}
	m.viewport.Width = width
	m.viewport.Height = vpHeight
	m.input.Width = width - 4
	m.refreshViewport()
}

func (m *Model) rememberInput(text string) {
	m.inputHistory = append(m.inputHistory, text)
	if len(m.inputHistory) > maxHistoryItems {
		m.inputHistory = m.inputHistory[len(m.inputHistory)-maxHistoryItems:]
	}
	m.historyIndex = len(m.inputHistory)
}
