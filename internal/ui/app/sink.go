package app

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/xperiencelabs/archat/internal/interfaces"
)

// Messages produced by the session client through ProgramSink
type (
	SessionReadyMsg struct{}

	ChatMessageMsg struct {
		Message interfaces.ChatMessage
	}

	VisualizationAvailableMsg struct{}

	SessionErrorMsg struct {
		Reason string
	}
)

// callDoneMsg reports the end of a request started by the console
type callDoneMsg struct {
	operation string
	err       error
}

// ProgramSink forwards sink callbacks into a running Bubble Tea program. Callbacks
// arriving before Attach are buffered and replayed in order.
type ProgramSink struct {
	mu      sync.Mutex
	send    func(tea.Msg)
	pending []tea.Msg
}

// NewProgramSink creates an unattached sink
func NewProgramSink() *ProgramSink {
	return &ProgramSink{}
}

// Attach routes messages to program
func (s *ProgramSink) Attach(program *tea.Program) {
	s.AttachFunc(program.Send)
}

// AttachFunc routes messages to send and flushes anything buffered
func (s *ProgramSink) AttachFunc(send func(tea.Msg)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.send = send
	for _, msg := range s.pending {
		send(msg)
	}
	s.pending = nil
}

func (s *ProgramSink) dispatch(msg tea.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.send == nil {
		s.pending = append(s.pending, msg)
		return
	}
	s.send(msg)
}

func (s *ProgramSink) OnSessionReady() {
	s.dispatch(SessionReadyMsg{})
}

func (s *ProgramSink) OnMessage(msg interfaces.ChatMessage) {
	s.dispatch(ChatMessageMsg{Message: msg})
}

func (s *ProgramSink) OnVisualizationAvailable() {
	s.dispatch(VisualizationAvailableMsg{})
}

func (s *ProgramSink) OnError(reason string) {
	s.dispatch(SessionErrorMsg{Reason: reason})
}
