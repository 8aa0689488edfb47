// Command mockserver runs a local stand-in for the recommendation server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xperiencelabs/archat/internal/logging"
	"github.com/xperiencelabs/archat/internal/mockserver"
)

func main() {
	var addr string
	var debug bool

	root := &cobra.Command{
		Use:   "mockserver",
		Short: "Serve canned recommendation replies for local development",
		Long: `Serve /start, /chat, /recommend/ and /static/ with canned replies.

Message keywords select the reply shape:
  show      text plus 2D/3D content items
  similar   text plus internal_data images
  scrape    content_scrapped fallback text
  rotate    a new session id
  error     a 503 response`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logConfig := logging.DefaultConfig()
			logConfig.Component = "mockserver"
			if debug {
				logConfig.Level = logging.DebugLevel
			}
			if err := logging.InitGlobalLogger(logConfig); err != nil {
				return err
			}
			logger := logging.GetGlobalLogger()

			server := &http.Server{
				Addr:              addr,
				Handler:           mockserver.New(logger).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				server.Shutdown(shutdownCtx)
			}()

			fmt.Fprintf(cmd.OutOrStdout(), "mock recommendation server listening on %s\n", addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	root.Flags().StringVar(&addr, "addr", ":8000", "listen address")
	root.Flags().BoolVar(&debug, "debug", false, "log every request")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
