package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/deckhand-sh/deckhand/pkg/manifest"
	"github.com/deckhand-sh/deckhand/pkg/remote"
)

// NewLsCmd returns the ls command.
func NewLsCmd(args *RootArgs) *cobra.Command {
	longFlag := new(bool)

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List apps in the manifest",
		Args:  cobra.NoArgs,
		RunE: func(cc *cobra.Command, _ []string) error {
			sess, err := newSession(cc, args)
			if err != nil {
				return err
			}
			defer sess.Close()

			m, err := sess.Manifest(cc.Context())
			if err != nil {
				return err
			}

			cc.Println("Manifest:", m.Path)

			if m.Host != nil {
				cc.Println("Host:", remote.New(m.Host).String())
			}

			cc.Println("Apps:")

			for _, app := range m.Apps() {
				if *longFlag {
					cc.Print(renderChain(app))
				} else {
					cc.Println("  " + app.SnakeName())
				}
			}

			return nil
		},
		SilenceUsage: true,
	}

	cmd.Flags().BoolVarP(longFlag, "long", "l", false, "Show long listing format, expanding app inheritance")

	return cmd
}

// renderChain renders an app and its concrete bases, most derived first.
func renderChain(app *manifest.App) string {
	var b strings.Builder

	indent := "  "

	for _, level := range app.Chain() {
		if level.Abstract {
			continue
		}

		b.WriteString(indent)

		if level == app {
			b.WriteString(app.SnakeName())
		} else {
			b.WriteString(level.Name)
		}

		if level.OriginFile != "" {
			b.WriteString(" (" + level.OriginFile + ")")
		}

		b.WriteString("\n")

		indent += "  "
	}

	return b.String()
}
