package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"mailsweep/internal/config"
	"mailsweep/internal/credential"
	"mailsweep/internal/gmail"
)

func newAuthCmd(a *app) *cobra.Command {
	var allowDelete bool
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize Gmail access or store the IMAP password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}

			if cfg.Provider == config.ProviderIMAP {
				var password string
				err := huh.NewInput().
					Title(fmt.Sprintf("IMAP password for %s@%s", cfg.IMAP.Username, cfg.IMAP.Host)).
					EchoMode(huh.EchoModePassword).
					Value(&password).
					Run()
				if err != nil {
					return err
				}
				password = strings.TrimSpace(password)
				if password == "" {
					return fmt.Errorf("empty password")
				}
				if err := credential.New(cfg.Dir).Set(imapPasswordKey(cfg.IMAP.Username), []byte(password)); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "IMAP password stored in the keyring.")
				return nil
			}

			scopes := gmailScopes(cfg)
			if allowDelete {
				scopes = gmail.Scopes(true)
			}
			if err := gmail.Login(cmd.Context(), cfg.Gmail.Credentials, tokenStore(cfg), scopes); err != nil {
				return err
			}
			a.logger.Info("gmail token saved", "store", cfg.Gmail.TokenStore, "scopes", scopes)
			return nil
		},
	}
	cmd.Flags().BoolVar(&allowDelete, "allow-delete", false, "request full mail access so --cleanup delete can run")
	return cmd
}
