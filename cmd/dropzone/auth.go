package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ning0612/Dropzone/internal/adapter/gdrive"
	"github.com/Ning0612/Dropzone/internal/domain"
)

func newAuthCmd(a *app) *cobra.Command {
	auth := &cobra.Command{
		Use:   "auth",
		Short: "Authorize remote sources",
	}

	auth.AddCommand(&cobra.Command{
		Use:   "gdrive",
		Short: "Run the OAuth flow for a Google Drive source (read-only scope)",
		Long: `Prints an authorization URL, reads the code from stdin and stores the
token at the source's token_path (default: user config dir).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := a.gdriveSource()
			if err != nil {
				return err
			}

			clientID, clientSecret := src.Config["client_id"], src.Config["client_secret"]
			if clientID == "" || clientSecret == "" {
				return fmt.Errorf("%w: source %s requires client_id and client_secret", domain.ErrConfigInvalid, src.Name)
			}

			authenticator := gdrive.NewAuthenticator(clientID, clientSecret, src.Config["token_path"])
			if _, err := authenticator.Authenticate(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "token saved to %s\n", authenticator.TokenPath())
			return nil
		},
	})

	return auth
}

// gdriveSource returns the --source gdrive source, or the only one configured
func (a *app) gdriveSource() (*domain.Source, error) {
	if a.source != "" {
		src, err := a.cfg.GetSource(a.source)
		if err != nil {
			return nil, err
		}
		if src.Type != domain.SourceGDrive {
			return nil, fmt.Errorf("%w: source %s is not a gdrive source", domain.ErrConfigInvalid, src.Name)
		}
		return src, nil
	}

	var found *domain.Source
	for i := range a.cfg.Sources {
		if a.cfg.Sources[i].Type != domain.SourceGDrive {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: several gdrive sources, pick one with --source", domain.ErrConfigInvalid)
		}
		found = &a.cfg.Sources[i]
	}
	if found == nil {
		return nil, fmt.Errorf("%w: no gdrive source configured", domain.ErrSourceNotFound)
	}
	return found, nil
}
