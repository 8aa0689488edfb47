package main

import (
	"fmt"

	"github.com/spf13/cobra"

	uiapp "github.com/xperiencelabs/archat/internal/ui/app"
)

func (c *cli) newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive chat",
		Long: `Open a full-screen conversation with the recommendation server.

Type a message and press enter to send it. Commands:
  /upload <path>   send a photo for a visual recommendation
  /visualize       list the models collected for the 3D viewer
  /raw             show the last raw server response
  /quit            close the session`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runChat(cmd)
		},
	}
}

func (c *cli) runChat(cmd *cobra.Command) error {
	console, err := c.console()
	if err != nil {
		return err
	}
	defer console.Close()

	conversationID, err := uiapp.Run(cmd.Context(), uiapp.Options{
		Profile:   console.Profile(),
		Renderer:  console.Renderer(),
		NewClient: console.NewClient,
		In:        c.in,
		Out:       c.out,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "conversation %s saved\n", conversationID)
	return nil
}
