package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/deckhand-sh/deckhand/pkg/cachestore"
	"github.com/deckhand-sh/deckhand/pkg/config"
	"github.com/deckhand-sh/deckhand/pkg/deckerrors"
	"github.com/deckhand-sh/deckhand/pkg/deploy"
	"github.com/deckhand-sh/deckhand/pkg/gitsource"
	"github.com/deckhand-sh/deckhand/pkg/lockfile"
	"github.com/deckhand-sh/deckhand/pkg/manifest"
	"github.com/deckhand-sh/deckhand/pkg/remote"
)

// session wires settings, the cache, and the manifest loader for one command
// invocation.
type session struct {
	settings *config.Settings
	cache    *cachestore.Store
	fetcher  *gitsource.Source
	loader   *manifest.Loader
}

func newSession(cc *cobra.Command, args *RootArgs) (*session, error) {
	settings, err := config.Load(args.GetConfigDir())
	if err != nil {
		return nil, err
	}

	if err := settings.BindFlags(cc.Root().PersistentFlags()); err != nil {
		return nil, err
	}

	store, err := cachestore.Load(settings.CachePath(), settings.CacheEnabled(), settings.CacheAge())
	if err != nil {
		return nil, err
	}

	fetcher := gitsource.New(store)

	return &session{
		settings: settings,
		cache:    store,
		fetcher:  fetcher,
		loader:   manifest.NewLoader(fetcher),
	}, nil
}

func (s *session) Close() {
	s.cache.Close()
}

// Manifest loads the manifest selected by flags, environment, or config.
func (s *session) Manifest(ctx context.Context) (*manifest.Manifest, error) {
	path, err := s.settings.Manifest("")
	if err != nil {
		return nil, err
	}

	return s.loader.Load(ctx, path)
}

// Lockfile loads the lockfile paired with the given manifest.
func (s *session) Lockfile(m *manifest.Manifest) (*lockfile.Lockfile, error) {
	return lockfile.Load(s.settings.Lockfile(m.Path))
}

// Deployer builds a deployer bound to the manifest's host.
func (s *session) Deployer(m *manifest.Manifest) (*deploy.Deployer, error) {
	if m.Host == nil {
		return nil, deckerrors.Usagef("no host found in manifest %s", m.Path)
	}

	lock, err := s.Lockfile(m)
	if err != nil {
		return nil, err
	}

	return deploy.New(s.fetcher, remote.New(m.Host), lock), nil
}
