package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xperiencelabs/archat/internal/app"
	"github.com/xperiencelabs/archat/internal/chat"
	apperrors "github.com/xperiencelabs/archat/internal/errors"
)

// reportedError marks a failure the printer sink already showed
type reportedError struct {
	err error
}

func (e *reportedError) Error() string {
	return apperrors.ReasonOf(e.err)
}

func (e *reportedError) Unwrap() error {
	return e.err
}

type oneShotOptions struct {
	raw       bool
	visualize bool
}

func (c *cli) newAskCmd() *cobra.Command {
	var opts oneShotOptions
	cmd := &cobra.Command{
		Use:   "ask <message...>",
		Short: "Send one message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return c.oneShot(cmd.Context(), opts, func(ctx context.Context, client *chat.Client) error {
				return client.SendMessage(ctx, text)
			})
		},
	}
	addOneShotFlags(cmd, &opts)
	return cmd
}

func (c *cli) newRecommendCmd() *cobra.Command {
	var opts oneShotOptions
	cmd := &cobra.Command{
		Use:   "recommend <image-path>",
		Short: "Upload a photo and print the recommendation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}
			return c.oneShot(cmd.Context(), opts, func(ctx context.Context, client *chat.Client) error {
				return client.UploadImage(ctx, data, filepath.Base(path))
			})
		},
	}
	addOneShotFlags(cmd, &opts)
	return cmd
}

func addOneShotFlags(cmd *cobra.Command, opts *oneShotOptions) {
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "also print the raw server response")
	cmd.Flags().BoolVar(&opts.visualize, "visualize", false, "print the 3D viewer hand-off when images were returned")
}

// oneShot starts a session, runs one call and prints everything the sink receives
func (c *cli) oneShot(ctx context.Context, opts oneShotOptions, call func(context.Context, *chat.Client) error) error {
	console, err := c.console()
	if err != nil {
		return err
	}
	defer console.Close()

	renderer := console.Renderer()
	sink := newPrinterSink(c.out, renderer)
	client := console.NewClient(sink)
	defer client.Close()

	if err := client.Start(ctx); err != nil {
		return &reportedError{err: err}
	}

	callErr := call(ctx, client)
	if opts.raw {
		fmt.Fprintln(c.out, renderer.RenderRaw(client.LastRaw()))
	}
	if opts.visualize && sink.visualizationAvailable() {
		printHandoff(c, console, client.Visualization())
	}
	if callErr != nil {
		if apperrors.IsType(callErr, apperrors.ErrorTypeValidation) {
			return callErr
		}
		return &reportedError{err: callErr}
	}

	fmt.Fprintf(c.errOut, "conversation %s\n", client.ConversationID())
	return nil
}

func printHandoff(c *cli, console *app.Console, visual chat.Visualization) {
	handoff, ok := visual.Handoff()
	if !ok {
		return
	}
	endpoints := console.Endpoints()
	if handoff.Model != "" {
		fmt.Fprintf(c.out, "3D model %s\n", endpoints.ResolveAsset(handoff.Model))
		return
	}
	for _, ref := range handoff.Models3D {
		fmt.Fprintf(c.out, "3D model %s\n", endpoints.ResolveAsset(ref))
	}
	for _, ref := range handoff.Images2D {
		fmt.Fprintf(c.out, "image %s\n", endpoints.ResolveAsset(ref))
	}
}
