package commands

import (
	"github.com/spf13/cobra"

	"github.com/deckhand-sh/deckhand/pkg/deckerrors"
)

// NewExecCmd returns the exec command.
func NewExecCmd(args *RootArgs) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <app.service> <command>",
		Short: "Run a command in a running service container",
		Args:  cobra.ExactArgs(2),
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

			tgt, err := parseTarget(rawArgs[0])
			if err != nil {
				return err
			}

			if tgt.Service == "" {
				return deckerrors.Usagef("must specify an app.service target")
			}

			app, err := m.App(tgt.App)
			if err != nil {
				return err
			}

			d, err := sess.Deployer(m)
			if err != nil {
				return err
			}

			return d.ExecService(ctx, app, tgt.Service, rawArgs[1])
		},
		SilenceUsage: true,
	}
}

// NewLogsCmd returns the logs command.
func NewLogsCmd(args *RootArgs) *cobra.Command {
	return &cobra.Command{
		Use:   "logs <app.service>",
		Short: "Show logs for a service",
		Args:  cobra.ExactArgs(1),
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

			tgt, err := parseTarget(rawArgs[0])
			if err != nil {
				return err
			}

			if tgt.Service == "" {
				return deckerrors.Usagef("must specify an app.service target")
			}

			app, err := m.App(tgt.App)
			if err != nil {
				return err
			}

			d, err := sess.Deployer(m)
			if err != nil {
				return err
			}

			out, err := d.Logs(ctx, app, tgt.Service)
			if err != nil {
				return err
			}

			cc.Println(out)

			return nil
		},
		SilenceUsage: true,
	}
}

// NewStatusCmd returns the status command.
func NewStatusCmd(args *RootArgs) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show container status on the host",
		Args:  cobra.NoArgs,
		RunE: func(cc *cobra.Command, _ []string) error {
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

			d, err := sess.Deployer(m)
			if err != nil {
				return err
			}

			res, err := d.Status(ctx)
			if err != nil {
				return err
			}

			cc.Println(res.Stdout)

			return nil
		},
		SilenceUsage: true,
	}
}
