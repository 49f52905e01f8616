package commands

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/deckhand-sh/deckhand/pkg/config"
	"github.com/deckhand-sh/deckhand/pkg/deckerrors"
)

const useExample = `  # Use a manifest by default
  deckhand use ~/deploy/deckhand.yml

  # Save an alias while setting the default
  deckhand use ~/deploy/deckhand.yml --alias prod

  # Switch to a saved alias
  deckhand use prod

  # List aliases
  deckhand use --list

  # Stop using a default manifest
  deckhand use
`

// NewUseCmd returns the use command.
func NewUseCmd(args *RootArgs) *cobra.Command {
	var (
		alias    = new(string)
		listFlag = new(bool)
	)

	cmd := &cobra.Command{
		Use:     "use [manifest]",
		Short:   "Set a manifest as the default",
		Example: useExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cc *cobra.Command, rawArgs []string) error {
			sess, err := newSession(cc, args)
			if err != nil {
				return err
			}
			defer sess.Close()

			if *listFlag {
				printAliases(cc, sess.settings.Aliases())

				return nil
			}

			if len(rawArgs) == 0 {
				if err := sess.settings.Set(config.KeyManifest, ""); err != nil {
					return err
				}

				cc.Println("Now using no manifest")

				return nil
			}

			path, err := resolveManifestArg(sess, rawArgs[0])
			if err != nil {
				return err
			}

			// Load it to make sure it works.
			if _, err := sess.loader.Load(cc.Context(), path); err != nil {
				return err
			}

			if err := sess.settings.Set(config.KeyManifest, path); err != nil {
				return err
			}

			if *alias != "" {
				if err := sess.settings.SetAlias(*alias, path); err != nil {
					return err
				}

				cc.Printf("Manifest alias %q saved\n", *alias)
			}

			cc.Println("Now using manifest", path)

			return nil
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(alias, "alias", "a", "", "Save an alias for the manifest")
	cmd.Flags().BoolVarP(listFlag, "list", "l", false, "List saved aliases")

	return cmd
}

// resolveManifestArg turns a use argument into an absolute manifest path,
// falling back to saved aliases when it is not a file.
func resolveManifestArg(sess *session, raw string) (string, error) {
	if _, err := os.Stat(raw); err == nil {
		return filepath.Abs(raw)
	}

	if target, ok := sess.settings.Aliases()[raw]; ok {
		return target, nil
	}

	return "", deckerrors.Usagef("manifest %s not found", raw)
}

func printAliases(cc *cobra.Command, aliases map[string]string) {
	if len(aliases) == 0 {
		cc.Println("No aliases defined")

		return
	}

	names := make([]string, 0, len(aliases))
	for name := range aliases {
		names = append(names, name)
	}

	sort.Strings(names)

	cc.Println("Available aliases:")

	for _, name := range names {
		cc.Printf("  %s: %s\n", name, aliases[name])
	}
}
