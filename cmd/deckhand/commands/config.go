package commands

import (
	"github.com/spf13/cobra"

	"github.com/deckhand-sh/deckhand/pkg/config"
)

// NewConfigCmd returns the config command.
func NewConfigCmd(args *RootArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change deckhand settings",
		Args:  cobra.NoArgs,
		RunE: func(cc *cobra.Command, _ []string) error {
			sess, err := newSession(cc, args)
			if err != nil {
				return err
			}
			defer sess.Close()

			for _, key := range config.Keys() {
				value, err := sess.settings.Get(key)
				if err != nil {
					return err
				}

				cc.Printf("%s: %s\n", key, value)
			}

			return nil
		},
		SilenceUsage: true,
	}

	cmd.AddCommand(NewConfigGetCmd(args))
	cmd.AddCommand(NewConfigSetCmd(args))

	return cmd
}

// NewConfigGetCmd returns the config get command.
func NewConfigGetCmd(args *RootArgs) *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Show one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cc *cobra.Command, rawArgs []string) error {
			sess, err := newSession(cc, args)
			if err != nil {
				return err
			}
			defer sess.Close()

			value, err := sess.settings.Get(rawArgs[0])
			if err != nil {
				return err
			}

			cc.Println(value)

			return nil
		},
		SilenceUsage: true,
	}
}

// NewConfigSetCmd returns the config set command.
func NewConfigSetCmd(args *RootArgs) *cobra.Command {
	return &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Change a setting in the config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cc *cobra.Command, rawArgs []string) error {
			sess, err := newSession(cc, args)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.settings.Set(rawArgs[0], rawArgs[1]); err != nil {
				return err
			}

			cc.Printf("Setting %s set to %s\n", rawArgs[0], rawArgs[1])

			return nil
		},
		SilenceUsage: true,
	}
}
