package app

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/xperiencelabs/archat/internal/chat"
	"github.com/xperiencelabs/archat/internal/content"
	"github.com/xperiencelabs/archat/internal/interfaces"
)

// Options configures Run
type Options struct {
	Profile  *interfaces.Profile
	Renderer *content.Renderer
	// NewClient builds the session client reporting to the given sink
	NewClient func(sink interfaces.EventSink) *chat.Client
	In        io.Reader
	Out       io.Writer
}

// Run opens a session and blocks until the user quits. It returns the conversation id
// the transcript was archived under.
func Run(ctx context.Context, opts Options) (string, error) {
	sink := NewProgramSink()
	client := opts.NewClient(sink)
	defer client.Close()

	model := NewModel(ctx, client, opts.Renderer, opts.Profile)

	programOpts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if opts.In != nil {
		programOpts = append(programOpts, tea.WithInput(opts.In))
	}
	if opts.Out != nil {
		programOpts = append(programOpts, tea.WithOutput(opts.Out))
	}
	program := tea.NewProgram(model, programOpts...)
	sink.Attach(program)

	_, err := program.Run()
	if err != nil && ctx.Err() != nil {
		err = nil
	}
	return client.ConversationID(), err
}
