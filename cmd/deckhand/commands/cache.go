package commands

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// NewCacheCmd returns the cache command.
func NewCacheCmd(args *RootArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the manifest cache",
	}

	cmd.AddCommand(NewCacheShowCmd(args))
	cmd.AddCommand(NewCacheClearCmd(args))

	return cmd
}

// NewCacheShowCmd returns the cache show command.
func NewCacheShowCmd(args *RootArgs) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show a summary of the cache",
		Args:  cobra.NoArgs,
		RunE: func(cc *cobra.Command, _ []string) error {
			sess, err := newSession(cc, args)
			if err != nil {
				return err
			}
			defer sess.Close()

			enabled := "disabled"
			if sess.settings.CacheEnabled() {
				enabled = "enabled"
			}

			cc.Println("Caching:", enabled)
			cc.Println("Cache path:", sess.settings.CachePath())
			cc.Println("Max age:", sess.settings.CacheAge())

			size, err := dirSize(sess.settings.CachePath())
			if err == nil {
				cc.Printf("Disk used: %d bytes\n", size)
			}

			return nil
		},
		SilenceUsage: true,
	}
}

// NewCacheClearCmd returns the cache clear command.
func NewCacheClearCmd(args *RootArgs) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the cache for all manifests",
		Args:  cobra.NoArgs,
		RunE: func(cc *cobra.Command, _ []string) error {
			sess, err := newSession(cc, args)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.cache.Clear(); err != nil {
				return err
			}

			cc.Println("Cache cleared")

			return nil
		},
		SilenceUsage: true,
	}
}

func dirSize(root string) (int64, error) {
	var size int64

	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}

			size += info.Size()
		}

		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}

		return 0, err
	}

	return size, nil
}
