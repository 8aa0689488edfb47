package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/xperiencelabs/archat/internal/app"
	"github.com/xperiencelabs/archat/internal/config"
	"github.com/xperiencelabs/archat/internal/logging"
	"github.com/xperiencelabs/archat/internal/protocol"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// cli holds the persistent flags and the streams commands write to
type cli struct {
	profile string
	host    string
	theme   string
	debug   bool
	logFile string
	envFile string

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	logger *logging.Logger
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	c := &cli{in: in, out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "archat",
		Short: "Chat with a furniture recommendation server",
		Long: `archat talks to a recommendation server the way the AR companion app does.

It opens a session, exchanges chat messages, uploads photos for visual
recommendations and archives every conversation.

Quick Start:
  archat                                  # interactive chat with the default profile
  archat ask "a sofa for a small room"    # one question, printed answer
  archat recommend chair.jpg              # upload a photo
  archat history                          # list archived conversations
  archat doctor --handshake               # check the server`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s, client: %s)", version, commit, date, protocol.ClientVersion),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				c.logger.Close()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runChat(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.profile, "profile", "p", "", "profile from the profiles file")
	flags.StringVar(&c.host, "host", "", "server host and port, bypassing profiles (e.g. localhost:8000)")
	flags.StringVar(&c.theme, "theme", "", "color theme")
	flags.BoolVar(&c.debug, "debug", false, "enable debug logging")
	flags.StringVar(&c.logFile, "log-file", "", "log destination (defaults to a file for the interactive chat, stderr otherwise)")
	flags.StringVar(&c.envFile, "env-file", ".env", "dotenv file with ARCHAT_* overrides")

	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		c.newChatCmd(),
		c.newAskCmd(),
		c.newRecommendCmd(),
		c.newHistoryCmd(),
		c.newProfilesCmd(),
		c.newDoctorCmd(),
	)
	return root
}

// setup loads the dotenv file and initializes logging. The interactive chat owns the
// terminal, so it logs to a file.
func (c *cli) setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(c.envFile); err != nil {
		return err
	}

	logConfig := logging.DefaultConfig()
	logConfig.Level = logging.WarnLevel
	if c.debug || os.Getenv("ARCHAT_DEBUG") == "true" {
		logConfig.Level = logging.DebugLevel
		logConfig.Format = "json"
	}

	switch {
	case c.logFile != "":
		logConfig.Output = c.logFile
	case isInteractive(cmd):
		path, err := logging.DefaultLogFile()
		if err != nil {
			return err
		}
		logConfig.Output = path
		if !c.debug {
			logConfig.Level = logging.InfoLevel
		}
	}

	logger, err := logging.NewLogger(logConfig)
	if err != nil {
		return err
	}
	logging.SetGlobalLogger(logger)
	c.logger = logger
	logger.Debug("archat starting", "version", version, "command", cmd.Name())
	return nil
}

func isInteractive(cmd *cobra.Command) bool {
	return cmd.Name() == "chat" || !cmd.HasParent()
}

// console resolves the profile selected by the persistent flags
func (c *cli) console() (*app.Console, error) {
	mgr, err := config.NewManager()
	if err != nil {
		return nil, err
	}
	return app.NewConsole(app.Dependencies{
		ConfigManager: mgr,
		Logger:        c.logger,
	}, app.Overrides{
		Profile: c.profile,
		Host:    c.host,
		Theme:   c.theme,
	})
}
