package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/deckhand-sh/deckhand/pkg/deckerrors"
	"github.com/deckhand-sh/deckhand/pkg/manifest"
	"github.com/deckhand-sh/deckhand/pkg/names"
)

var ErrDeployFailed = errors.New("deploy failed")

const deployExample = `  # Deploy a single app
  deckhand deploy myapp

  # Deploy several apps
  deckhand deploy traefik website

  # Deploy everything in the manifest
  deckhand deploy --all
`

// NewDeployCmd returns the deploy command.
func NewDeployCmd(args *RootArgs) *cobra.Command {
	allFlag := new(bool)

	cmd := &cobra.Command{
		Use:     "deploy [apps]...",
		Short:   "Deploy one or more apps to the host",
		Example: deployExample,
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

			apps, err := selectApps(m, rawArgs, *allFlag)
			if err != nil {
				return err
			}

			d, err := sess.Deployer(m)
			if err != nil {
				return err
			}

			slog.Debug("deploying", "host", d.Host().String(), "apps", len(apps))

			if err := d.DeployAll(ctx, apps); err != nil {
				return fmt.Errorf("%w: %w", ErrDeployFailed, err)
			}

			return nil
		},
		SilenceUsage: true,
	}

	cmd.Flags().BoolVarP(allFlag, "all", "a", false, "Deploy all apps in the manifest")

	return cmd
}

// selectApps resolves app name arguments, or every concrete app when all is
// set.
func selectApps(m *manifest.Manifest, rawNames []string, all bool) ([]*manifest.App, error) {
	if all {
		return m.Apps(), nil
	}

	if len(rawNames) == 0 {
		return nil, deckerrors.Usagef("must specify --all or one or more apps")
	}

	apps := make([]*manifest.App, 0, len(rawNames))

	for _, raw := range rawNames {
		name, err := names.Normalise(raw)
		if err != nil {
			return nil, deckerrors.Usagef("invalid app name %q: %v", raw, err)
		}

		app, err := m.App(name)
		if err != nil {
			return nil, err
		}

		apps = append(apps, app)
	}

	return apps, nil
}
