package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xperiencelabs/archat/internal/interfaces"
	"github.com/xperiencelabs/archat/internal/transcript"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)
)

// Output formats of the history command
const (
	formatText = "text"
	formatYAML = "yaml"
	formatJSON = "json"
)

// transcriptExport is the document written for a single conversation
type transcriptExport struct {
	ID       string                   `json:"id" yaml:"id"`
	Messages []interfaces.ChatMessage `json:"messages" yaml:"messages"`
}

func (c *cli) newHistoryCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "history [conversation-id]",
		Short: "List archived conversations or print one transcript",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case formatText, formatYAML, formatJSON:
			default:
				return fmt.Errorf("unknown format %q (want text, yaml or json)", format)
			}

			console, err := c.console()
			if err != nil {
				return err
			}
			defer console.Close()

			store, err := console.Store()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if len(args) == 0 {
				conversations, err := store.List(ctx)
				if err != nil {
					return err
				}
				return writeConversations(c.out, format, conversations)
			}

			messages, err := store.Load(ctx, args[0])
			if err != nil {
				if transcript.IsNotFound(err) {
					return fmt.Errorf("conversation %s not found", args[0])
				}
				return err
			}
			if format == formatText {
				fmt.Fprintln(c.out, console.Renderer().RenderTranscript(messages))
				return nil
			}
			return encode(c.out, format, transcriptExport{ID: args[0], Messages: messages})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, yaml or json")
	return cmd
}

func writeConversations(out io.Writer, format string, conversations []interfaces.Conversation) error {
	if format != formatText {
		if conversations == nil {
			conversations = []interfaces.Conversation{}
		}
		return encode(out, format, conversations)
	}

	if len(conversations) == 0 {
		fmt.Fprintln(out, "No archived conversations.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, headerStyle.Render("ID")+"\t"+headerStyle.Render("MESSAGES")+"\t"+headerStyle.Render("UPDATED")+"\t"+headerStyle.Render("SESSION"))
	for _, conv := range conversations {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			idStyle.Render(conv.ID),
			countStyle.Render(fmt.Sprintf("%d", conv.MessageCount)),
			conv.UpdatedAt.Local().Format(time.DateTime),
			conv.SessionID)
	}
	return w.Flush()
}

func encode(out io.Writer, format string, v any) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}
