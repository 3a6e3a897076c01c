package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"mailsweep/internal/config"
	"mailsweep/internal/invoke"
	"mailsweep/internal/report"
	"mailsweep/internal/sweep"
)

func newRunCmd(a *app) *cobra.Command {
	var live, yes bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Search, unsubscribe and clean up (preview unless --live)",
		Long: `Search the mailbox, group matches by sender and resolve each sender's
unsubscribe link. Without --live nothing is invoked, changed or recorded;
the report shows what would happen.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if live {
				a.v.Set("mode", config.ModeLive)
			}
			cfg, err := a.load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runID := uuid.NewString()
			logger := a.logger.With("run", runID[:8])

			if cfg.Live() && !yes {
				ok, err := confirm(cfg)
				if err != nil {
					return fmt.Errorf("confirmation needs a terminal, pass --yes to skip it: %w", err)
				}
				if !ok {
					fmt.Fprintln(cmd.ErrOrStderr(), "Aborted.")
					return nil
				}
			}

			hist, histCloser, err := openHistory(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer histCloser.Close()

			mailbox, mbCloser, err := openMailbox(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer mbCloser.Close()

			inv := invoke.New(logger, cfg.Invoke.Timeout, cfg.Invoke.Retries, cfg.Invoke.Backoff, cfg.Invoke.UserAgent)
			proc := sweep.New(mailbox, inv, hist, sweep.Options{
				Query:        cfg.Query,
				MaxEmails:    cfg.MaxEmails,
				Strategy:     cfg.Strategy,
				Cleanup:      cfg.Cleanup,
				ForceCleanup: cfg.ForceCleanup,
				Preview:      !cfg.Live(),
				Label:        cfg.Label,
			}, logger)

			logger.Info("starting", "mode", cfg.Mode, "strategy", cfg.Strategy, "cleanup", cfg.Cleanup, "scope", cfg.Scope)
			sum, runErr := proc.Run(ctx)
			if runErr != nil && !errors.Is(runErr, context.Canceled) {
				return runErr
			}

			if err := report.Write(cmd.OutOrStdout(), cfg.Output, report.Run{RunID: runID, Query: cfg.Query, Summary: sum}); err != nil {
				return err
			}
			if runErr != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Operation cancelled by user.")
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&live, "live", false, "actually invoke links and modify messages")
	f.BoolVarP(&yes, "yes", "y", false, "skip the live-mode confirmation")
	f.String("query", "", "custom search query (overrides --preset)")
	f.String("preset", "", "preset query: "+strings.Join(config.PresetNames(), ", "))
	f.Int64("max", 0, "maximum number of messages to scan, at least 1 (default 100)")
	f.String("strategy", "", "processing strategy: sender or message (default sender)")
	f.String("cleanup", "", "cleanup policy: keep, trash or delete (default keep)")
	f.String("scope", "", "search scope: inbox or all (default inbox)")
	f.Bool("force-cleanup", false, "trash/delete even when no unsubscribe link is found")
	f.String("label", "", `label applied after a successful unsubscribe (default "Unsubscribed")`)
	f.StringP("output", "o", "", "report format: text, json or yaml (default text)")

	bind := map[string]string{
		"query":         "query",
		"preset":        "preset",
		"max":           "max_emails",
		"strategy":      "strategy",
		"cleanup":       "cleanup",
		"scope":         "scope",
		"force-cleanup": "force_cleanup",
		"label":         "label",
		"output":        "output",
	}
	for flag, key := range bind {
		_ = a.v.BindPFlag(key, f.Lookup(flag))
	}
	return cmd
}

func confirm(cfg config.Config) (bool, error) {
	desc := fmt.Sprintf("Query %q, up to %d messages, strategy %s, cleanup %s.", cfg.Query, cfg.MaxEmails, cfg.Strategy, cfg.Cleanup)
	title := "Invoke unsubscribe links and modify messages?"
	if cfg.Cleanup == config.CleanupDelete {
		title = "Invoke unsubscribe links and PERMANENTLY DELETE messages? This cannot be undone."
	}
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Description(desc).
		Affirmative("Proceed").
		Negative("Cancel").
		Value(&ok).
		Run()
	return ok, err
}
