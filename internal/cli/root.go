// Package cli wires configuration, providers and the sweep processor into the
// mailsweep command tree.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mailsweep/internal/config"
)

// app carries state shared by every subcommand.
type app struct {
	v        *viper.Viper
	cfgPath  string
	dir      string
	logLevel string
	logger   *log.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "mailsweep",
		Short:         "Find unsubscribe links in your mailbox and act on them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is normal.
			_ = godotenv.Load()

			level, err := log.ParseLevel(a.logLevel)
			if err != nil {
				return fmt.Errorf("invalid --log-level %q: %w", a.logLevel, err)
			}
			a.logger = log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
				Level:           level,
				ReportTimestamp: true,
				TimeFormat:      time.Kitchen,
			})
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "", "config file (default ~/.config/mailsweep/config.yaml)")
	pf.StringVar(&a.dir, "dir", "", "directory for token, history and credentials (default ~/.config/mailsweep)")
	pf.StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.String("provider", "", "mail provider: gmail or imap")
	_ = a.v.BindPFlag("provider", pf.Lookup("provider"))

	root.AddCommand(newRunCmd(a), newAuthCmd(a), newHistoryCmd(a))
	return root
}

// load resolves the configuration once flags are parsed.
func (a *app) load() (config.Config, error) {
	dir := a.dir
	if dir == "" {
		dir = config.DefaultDir()
	}
	path := a.cfgPath
	if path == "" {
		path = filepath.Join(dir, "config.yaml")
	}
	cfg, err := config.Load(a.v, path, dir)
	if err != nil {
		return config.Config{}, err
	}
	a.logger.Debug("config loaded", "path", path, "provider", cfg.Provider, "mode", cfg.Mode)
	return cfg, nil
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
