package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"mailsweep/internal/config"
	"mailsweep/internal/credential"
	"mailsweep/internal/gmail"
	"mailsweep/internal/history"
	"mailsweep/internal/imapmail"
	"mailsweep/internal/store"
	"mailsweep/internal/sweep"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openHistory opens the configured history backend.
func openHistory(ctx context.Context, cfg config.Config, logger *log.Logger) (*history.Store, io.Closer, error) {
	if cfg.History.Backend == config.BackendSQLite {
		db, err := store.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open history database: %w", err)
		}
		if n, err := db.Count(ctx); err == nil {
			logger.Debug("sqlite history", "path", cfg.History.Path, "senders", n)
		}
		return history.Open(ctx, db, logger), db, nil
	}
	return history.Open(ctx, history.NewJSONFile(cfg.History.Path), logger), nopCloser{}, nil
}

func tokenStore(cfg config.Config) gmail.TokenStore {
	if cfg.Gmail.TokenStore == config.TokenStoreKeyring {
		return gmail.KeyringTokens{Ring: credential.New(cfg.Dir)}
	}
	return gmail.FileTokens{Path: cfg.Gmail.TokenFile}
}

// gmailScopes widens the grant to full mail access only for permanent delete.
func gmailScopes(cfg config.Config) []string {
	return gmail.Scopes(cfg.Cleanup == config.CleanupDelete)
}

func imapPasswordKey(username string) string {
	return "imap:" + username
}

// openMailbox authenticates against the configured provider. Errors here are
// setup errors and abort the run.
func openMailbox(ctx context.Context, cfg config.Config, logger *log.Logger) (sweep.Mailbox, io.Closer, error) {
	switch cfg.Provider {
	case config.ProviderIMAP:
		password := cfg.IMAP.Password
		if password == "" {
			b, err := credential.New(cfg.Dir).Get(imapPasswordKey(cfg.IMAP.Username))
			if errors.Is(err, credential.ErrNotFound) {
				return nil, nil, fmt.Errorf("no IMAP password for %s; run `mailsweep auth --provider imap`", cfg.IMAP.Username)
			}
			if err != nil {
				return nil, nil, err
			}
			password = string(b)
		}
		mb, err := imapmail.Dial(ctx, imapmail.Config{
			Host:         cfg.IMAP.Host,
			Port:         cfg.IMAP.Port,
			Username:     cfg.IMAP.Username,
			Password:     password,
			StartTLS:     cfg.IMAP.StartTLS,
			Mailbox:      cfg.IMAP.Mailbox,
			AllMailbox:   cfg.IMAP.AllMailbox,
			TrashMailbox: cfg.IMAP.TrashMailbox,
		}, cfg.Scope, cfg.MinInterval, logger)
		if err != nil {
			return nil, nil, err
		}
		return mb, mb, nil
	default:
		svc, err := gmail.NewService(ctx, cfg.Gmail.Credentials, tokenStore(cfg), gmailScopes(cfg))
		if err != nil {
			return nil, nil, fmt.Errorf("gmail auth: %w", err)
		}
		return gmail.NewMailbox(svc, cfg.Scope, cfg.MinInterval, logger), nopCloser{}, nil
	}
}
