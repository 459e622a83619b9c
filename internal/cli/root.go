// Package cli exposes the card services as cobra commands.
package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-idcard/internal/app"
	"github.com/noah-isme/sma-idcard/pkg/config"
	"github.com/noah-isme/sma-idcard/pkg/logger"
)

// ConfigLoader returns the runtime configuration.
type ConfigLoader func() (*config.Config, error)

type runtime struct {
	load    ConfigLoader
	verbose bool
	backend string

	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCommand builds the idcard command tree. A nil loader reads the environment.
func NewRootCommand(load ConfigLoader) *cobra.Command {
	if load == nil {
		load = config.Load
	}
	rt := &runtime{load: load}

	root := &cobra.Command{
		Use:   "idcard",
		Short: "Register students and produce their ID cards",
		Long: `Register students, pick a card template and export ID cards.

The last two submissions are kept; the newest is the current card and the
one before it the previous card.`,
		SilenceUsage:      true,
		PersistentPreRunE: rt.setup,
	}
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&rt.backend, "store", "", "override STORE_BACKEND (memory, sqlite, postgres, redis)")

	root.AddCommand(
		newServeCommand(rt),
		newSubmitCommand(rt),
		newHistoryCommand(rt),
		newTemplatesCommand(rt),
		newExportCommand(rt),
		newPreviewCommand(rt),
	)
	return root
}

func (r *runtime) setup(cmd *cobra.Command, args []string) error {
	cfg, err := r.load()
	if err != nil {
		return err
	}
	if r.backend != "" {
		cfg.Store.Backend = strings.ToLower(strings.TrimSpace(r.backend))
	}
	r.cfg = cfg

	r.logger, err = logger.NewCLI(cfg, r.verbose)
	return err
}

// withApp opens the application for one command and closes it afterwards.
func (r *runtime) withApp(fn func(a *app.App) error) error {
	a, err := app.New(r.cfg, r.logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			r.logger.Sugar().Warnw("close application", "error", cerr)
		}
	}()
	return fn(a)
}
