package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mailsweep/internal/invoke"
	"mailsweep/internal/report"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or edit recorded unsubscribe attempts",
	}

	var output string
	list := &cobra.Command{
		Use:   "list",
		Short: "List every sender attempted so far",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			hist, closer, err := openHistory(cmd.Context(), cfg, a.logger)
			if err != nil {
				return err
			}
			defer closer.Close()
			return report.WriteHistory(cmd.OutOrStdout(), output, hist.Records(), time.Now())
		},
	}
	list.Flags().StringVarP(&output, "output", "o", report.FormatText, "format: text, json or yaml")

	forget := &cobra.Command{
		Use:   "forget EMAIL",
		Short: "Remove a sender so the next live run tries again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			hist, closer, err := openHistory(cmd.Context(), cfg, a.logger)
			if err != nil {
				return err
			}
			defer closer.Close()

			removed, err := hist.Forget(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("no history for %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Forgot %s.\n", args[0])
			return nil
		},
	}

	open := &cobra.Command{
		Use:   "open EMAIL",
		Short: "Open the recorded unsubscribe URL in the browser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			hist, closer, err := openHistory(cmd.Context(), cfg, a.logger)
			if err != nil {
				return err
			}
			defer closer.Close()

			rec, ok := hist.Get(args[0])
			if !ok {
				return fmt.Errorf("%w for %s", invoke.ErrNoURL, args[0])
			}
			if rec.URL != "" {
				fmt.Fprintln(cmd.OutOrStdout(), rec.URL)
			}
			return invoke.NewBrowser(a.logger).Open(rec)
		},
	}

	cmd.AddCommand(list, forget, open)
	return cmd
}
