package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/deckhand-sh/deckhand/pkg/deckerrors"
	"github.com/deckhand-sh/deckhand/pkg/deploy"
	"github.com/deckhand-sh/deckhand/pkg/lockfile"
	"github.com/deckhand-sh/deckhand/pkg/manifest"
)

const lockExample = `  # Show recorded locks
  deckhand lock

  # Lock an app's git base to its current remote commit
  deckhand lock myapp

  # Lock an app to a specific commit
  deckhand lock myapp 1a2b3c4d

  # Lock every app with a git base
  deckhand lock --all

  # Remove an app's lock
  deckhand lock --unlock myapp
`

// NewLockCmd returns the lock command.
func NewLockCmd(args *RootArgs) *cobra.Command {
	var (
		allFlag    = new(bool)
		unlockFlag = new(bool)
	)

	cmd := &cobra.Command{
		Use:     "lock [app] [hash]",
		Short:   "Pin apps with git bases to specific commits",
		Example: lockExample,
		Args:    cobra.MaximumNArgs(2),
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

			lf, err := sess.Lockfile(m)
			if err != nil {
				return err
			}

			switch {
			case *unlockFlag:
				if len(rawArgs) != 1 {
					return deckerrors.Usagef("--unlock takes exactly one app")
				}

				return unlockApp(cc, m, lf, rawArgs[0])
			case *allFlag:
				return lockAllApps(ctx, cc, sess, m, lf)
			case len(rawArgs) == 0:
				showLocks(cc, lf)

				return nil
			default:
				hash := ""
				if len(rawArgs) == 2 {
					hash = rawArgs[1]
				}

				app, err := m.App(rawArgs[0])
				if err != nil {
					return err
				}

				if err := lockApp(ctx, sess, lf, app, hash); err != nil {
					return err
				}

				if err := lf.Save(); err != nil {
					return err
				}

				cc.Printf("Locked %s\n", app.Name)

				return nil
			}
		},
		SilenceUsage: true,
	}

	cmd.Flags().BoolVarP(allFlag, "all", "a", false, "Lock all apps with git bases")
	cmd.Flags().BoolVar(unlockFlag, "unlock", false, "Remove the lock for an app")

	return cmd
}

func showLocks(cc *cobra.Command, lf *lockfile.Lockfile) {
	if lf.Len() == 0 {
		cc.Println("No apps locked")

		return
	}

	for _, name := range lf.Names() {
		entry, _ := lf.App(name)
		cc.Printf("%s\n  origin: %s\n  hash:   %s\n  date:   %s\n",
			name, entry.Origin, entry.Hash, entry.Date)
	}
}

// lockApp records the app's git base at hash, resolving the base's current
// remote commit when hash is empty.
func lockApp(
	ctx context.Context,
	sess *session,
	lf *lockfile.Lockfile,
	app *manifest.App,
	hash string,
) error {
	u := deploy.GitExtends(app)
	if u == nil {
		return deckerrors.Usagef("app %s does not extend a git manifest", app.Name)
	}

	if hash == "" {
		head, err := sess.fetcher.HeadCommit(ctx, u.Repo, u.Ref)
		if err != nil {
			return err
		}

		hash = head
	}

	lf.Lock(app.Name, u.Repo, hash)

	return nil
}

func lockAllApps(
	ctx context.Context,
	cc *cobra.Command,
	sess *session,
	m *manifest.Manifest,
	lf *lockfile.Lockfile,
) error {
	locked := 0

	for _, app := range m.Apps() {
		if deploy.GitExtends(app) == nil {
			continue
		}

		if err := lockApp(ctx, sess, lf, app, ""); err != nil {
			return err
		}

		cc.Printf("Locked %s\n", app.Name)

		locked++
	}

	if locked == 0 {
		cc.Println("No apps with git bases to lock")

		return nil
	}

	return lf.Save()
}

func unlockApp(cc *cobra.Command, m *manifest.Manifest, lf *lockfile.Lockfile, rawName string) error {
	app, err := m.App(rawName)
	if err != nil {
		return err
	}

	if _, ok := lf.App(app.Name); !ok {
		cc.Printf("%s is not locked\n", app.Name)

		return nil
	}

	lf.Unlock(app.Name)

	if err := lf.Save(); err != nil {
		return err
	}

	cc.Printf("Unlocked %s\n", app.Name)

	return nil
}
