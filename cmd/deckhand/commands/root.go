package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/deckhand-sh/deckhand/pkg/log"
)

var ErrLogHandlerFailed = errors.New("log handler failed")

func NewRootCmd(name, shortDesc, longDesc string) *cobra.Command {
	args := NewRootArgs()

	cmd := &cobra.Command{
		Use:           name,
		Short:         shortDesc,
		Long:          longDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       GetVersionString(),
	}

	cmd.PersistentFlags().StringVar(args.logLevel, "log_level", "warn", "Set the log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(args.logFormat, "log_format", "", "Set the log format (text, logfmt, json)")
	cmd.PersistentFlags().StringVar(args.configDir, "config_dir", "", "Directory holding the deckhand config file")
	cmd.PersistentFlags().StringVarP(args.manifest, "manifest", "m", "", "Path or alias of the deployment manifest")
	cmd.PersistentFlags().StringVar(args.lockfile, "lockfile", "", "Path to the lockfile")
	cmd.PersistentFlags().StringVar(args.cachePath, "cache_path", "", "Path to the cache dir")
	cmd.PersistentFlags().IntVar(args.cacheAge, "cache_age", 0, "Maximum cache age, in seconds")
	cmd.PersistentFlags().BoolVar(args.cacheEnabled, "cache_enabled", false, "Enable caching of remote manifests")
	cmd.PersistentFlags().BoolVarP(args.debug, "debug", "d", false, "Show debug messages")

	err := cmd.MarkPersistentFlagFilename("manifest")
	if err != nil {
		panic(err)
	}

	err = cmd.MarkPersistentFlagFilename("lockfile")
	if err != nil {
		panic(err)
	}

	err = cmd.MarkPersistentFlagDirname("cache_path")
	if err != nil {
		panic(err)
	}

	cmd.PersistentPreRunE = func(cc *cobra.Command, _ []string) error {
		level := args.GetLogLevel()
		if args.GetDebug() {
			level = "debug"
		}

		h, err := log.CreateHandlerWithStrings(cc.ErrOrStderr(), level, args.GetLogFormat())
		if err != nil {
			return fmt.Errorf("%w: %w", ErrLogHandlerFailed, err)
		}

		slog.SetDefault(slog.New(h))

		return nil
	}

	cmd.AddCommand(NewDeployCmd(args))
	cmd.AddCommand(NewUpCmd(args))
	cmd.AddCommand(NewDownCmd(args))
	cmd.AddCommand(NewRestartCmd(args))
	cmd.AddCommand(NewExecCmd(args))
	cmd.AddCommand(NewLogsCmd(args))
	cmd.AddCommand(NewStatusCmd(args))
	cmd.AddCommand(NewLsCmd(args))
	cmd.AddCommand(NewLockCmd(args))
	cmd.AddCommand(NewUseCmd(args))
	cmd.AddCommand(NewConfigCmd(args))
	cmd.AddCommand(NewCacheCmd(args))
	cmd.AddCommand(NewVersionCmd())

	return cmd
}
