package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/xperiencelabs/archat/internal/health"
	"github.com/xperiencelabs/archat/internal/interfaces"
)

var (
	readyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func (c *cli) newDoctorCmd() *cobra.Command {
	var (
		format    string
		handshake bool
	)
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the recommendation server is reachable",
		Long: `Dial the profile's host and optionally run a start handshake.

The handshake opens a real session on the server, so it only runs with --handshake.`,
		Args: cobra.NoArgs,
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

			var transport interfaces.Transport
			if handshake {
				transport = console.Transport()
			}
			report := health.NewMonitor(c.logger).Check(cmd.Context(), console.Profile(), transport)

			if format == formatText {
				if err := writeReport(c, report); err != nil {
					return err
				}
			} else if err := encode(c.out, format, report); err != nil {
				return err
			}
			if !report.Healthy() {
				return errors.New("server is not healthy")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, yaml or json")
	cmd.Flags().BoolVar(&handshake, "handshake", false, "also open a session through /start")
	return cmd
}

func writeReport(c *cli, report health.Report) error {
	fmt.Fprintln(c.out, headerStyle.Render("Server")+" "+idStyle.Render(report.Host))

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	for _, check := range report.Checks {
		status := string(check.Status)
		switch check.Status {
		case health.StatusReady:
			status = readyStyle.Render(status)
		case health.StatusSkipped:
			status = skippedStyle.Render(status)
		default:
			status = failedStyle.Render(status)
		}

		detail := check.Detail
		if check.Error != "" {
			detail = check.Error
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", check.Name, status, check.ResponseTime.Round(time.Millisecond), detail)
	}
	return w.Flush()
}
