package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/deckhand-sh/deckhand/pkg/deploy"
)

// composeAction applies one compose operation to a selected app and its
// services.
type composeAction func(ctx context.Context, d *deploy.Deployer, sel appServices) error

func newComposeCmd(args *RootArgs, use, short string, action composeAction) *cobra.Command {
	allFlag := new(bool)

	cmd := &cobra.Command{
		Use:   use + " [targets]...",
		Short: short,
		Long: short + `.

Targets select whole apps ("myapp") or single services ("myapp.backend").`,
		RunE: func(cc *cobra.Command, rawArgs []string) error {
			sess, err := newSession(cc, args)
			if err != nil {
				return err
			}
			defer sess.Close()

			ctx := cc.Context()

			m, err := sess.Manifest(ctx)
			if err != nil {
				return err
			}

			selections, err := resolveTargets(m, rawArgs, *allFlag)
			if err != nil {
				return err
			}

			d, err := sess.Deployer(m)
			if err != nil {
				return err
			}

			for _, sel := range selections {
				slog.Debug(use, "app", sel.App.Name, "services", sel.Services)

				if err := action(ctx, d, sel); err != nil {
					return fmt.Errorf("%s %s: %w", use, sel.App.Name, err)
				}
			}

			return nil
		},
		SilenceUsage: true,
	}

	cmd.Flags().BoolVarP(allFlag, "all", "a", false, "Select all apps in the manifest")

	return cmd
}

// NewUpCmd returns the up command.
func NewUpCmd(args *RootArgs) *cobra.Command {
	return newComposeCmd(args, "up", "Bring up containers for one or more apps or services",
		func(ctx context.Context, d *deploy.Deployer, sel appServices) error {
			return d.Up(ctx, sel.App, sel.Services...)
		})
}

// NewDownCmd returns the down command.
func NewDownCmd(args *RootArgs) *cobra.Command {
	return newComposeCmd(args, "down", "Take down containers for one or more apps or services",
		func(ctx context.Context, d *deploy.Deployer, sel appServices) error {
			return d.Down(ctx, sel.App, sel.Services...)
		})
}

// NewRestartCmd returns the restart command.
func NewRestartCmd(args *RootArgs) *cobra.Command {
	return newComposeCmd(args, "restart", "Restart containers for one or more apps or services",
		func(ctx context.Context, d *deploy.Deployer, sel appServices) error {
			return d.Restart(ctx, sel.App, sel.Services...)
		})
}
