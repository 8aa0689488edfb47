package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xperiencelabs/archat/internal/config"
	"github.com/xperiencelabs/archat/internal/interfaces"
	"github.com/xperiencelabs/archat/internal/protocol"
)

func (c *cli) newProfilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List and manage configured profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.listProfiles()
		},
	}
	cmd.AddCommand(
		c.newProfilesAddCmd(),
		c.newProfilesDeleteCmd(),
		c.newForgetCredentialsCmd(),
	)
	return cmd
}

func (c *cli) listProfiles() error {
	mgr, err := config.NewManager()
	if err != nil {
		return err
	}

	names, err := mgr.ListProfiles()
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out, headerStyle.Render("Profiles")+" "+idStyle.Render(mgr.GetConfigPath()))
	for _, name := range names {
		profile, err := mgr.LoadProfile(name)
		if err != nil {
			fmt.Fprintf(c.out, "  %s  (invalid: %v)\n", name, err)
			continue
		}
		endpoints := protocol.EndpointsFor(profile)
		fmt.Fprintf(c.out, "  %s  %s  transcript=%s\n", name, endpoints.Chat, profile.Transcript.Backend)
	}
	return nil
}

func (c *cli) newProfilesAddCmd() *cobra.Command {
	var (
		scheme     string
		token      string
		backend    string
		uploadURL  string
		staticPath string
	)
	cmd := &cobra.Command{
		Use:   "add <name> <host>",
		Short: "Create or replace a profile",
		Example: `  archat profiles add lab 10.0.2.2:8000
  archat profiles add prod api.example.com:443 --scheme https --token "$TOKEN"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := config.NewManager()
			if err != nil {
				return err
			}

			// start from the defaults, not LoadProfile, so env overrides are not persisted
			profile := config.DefaultProfile()
			profile.Name = args[0]
			profile.Host = args[1]
			profile.UploadURL = uploadURL
			if scheme != "" {
				profile.Scheme = scheme
			}
			if staticPath != "" {
				profile.StaticPath = staticPath
			}
			if token != "" {
				profile.Auth = interfaces.AuthConfig{Type: config.AuthBearer, Token: token}
			}
			if backend != "" {
				profile.Transcript.Backend = backend
			}

			if err := mgr.SaveProfile(&profile); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "profile %s saved (%s)\n", profile.Name, protocol.EndpointsFor(&profile).Chat)
			return nil
		},
	}
	cmd.Flags().StringVar(&scheme, "scheme", "", "http or https")
	cmd.Flags().StringVar(&token, "token", "", "bearer token, stored encrypted")
	cmd.Flags().StringVar(&backend, "transcript", "", "transcript backend: memory, sqlite or redis")
	cmd.Flags().StringVar(&uploadURL, "upload-url", "", "absolute URL for image uploads")
	cmd.Flags().StringVar(&staticPath, "static-path", "", "path of the static asset directory")
	return cmd
}

func (c *cli) newProfilesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := config.NewManager()
			if err != nil {
				return err
			}
			if err := mgr.DeleteProfile(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "profile %s deleted\n", args[0])
			return nil
		},
	}
}

func (c *cli) newForgetCredentialsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget-credentials",
		Short: "Remove every stored token and password and discard the encryption key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := config.NewManager()
			if err != nil {
				return err
			}
			cleared, err := mgr.ForgetCredentials()
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "credentials removed from %d profile(s)\n", cleared)
			return nil
		},
	}
}
