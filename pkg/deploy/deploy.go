// Package deploy pushes apps to their host and drives compose operations.
//
// Deploying an app materializes its effective definition: the merged
// environment is written to the host, the compose file and assets are
// pushed, and repository-backed apps are cloned or updated in place. Compose
// operations then run against the pushed files.
package deploy

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/deckhand-sh/deckhand/pkg/deckerrors"
	"github.com/deckhand-sh/deckhand/pkg/envfile"
	"github.com/deckhand-sh/deckhand/pkg/lockfile"
	"github.com/deckhand-sh/deckhand/pkg/manifest"
	"github.com/deckhand-sh/deckhand/pkg/paths"
	"github.com/deckhand-sh/deckhand/pkg/remote"
)

// Deployer executes app operations against one host.
type Deployer struct {
	fetcher paths.Fetcher
	host    *remote.Host
	lock    *lockfile.Lockfile
}

// New builds a Deployer. The lockfile may be nil when lock verification is
// not wanted.
func New(fetcher paths.Fetcher, host *remote.Host, lock *lockfile.Lockfile) *Deployer {
	return &Deployer{
		fetcher: fetcher,
		host:    host,
		lock:    lock,
	}
}

// Host returns the deployer's host.
func (d *Deployer) Host() *remote.Host {
	return d.host
}

// Deploy pushes everything an app needs onto the host: its merged env file,
// its compose file, its assets, and its repository clone where the kind
// requires one.
func (d *Deployer) Deploy(ctx context.Context, app *manifest.App) error {
	if err := d.verifyLock(app); err != nil {
		return err
	}

	appDir := d.host.AppDir(app)

	if needsClone(app.Kind) {
		if err := d.cloneRepo(ctx, app, appDir); err != nil {
			return err
		}
	}

	env, err := app.EnvData(ctx, d.fetcher)
	if err != nil {
		return err
	}

	// The app's services can locate their own deployment through these.
	env["ENV_FILE"] = RemoteEnvPath(d.host, app)
	env["ASSETS_PATH"] = appDir + "/" + remote.AssetsDirname

	if err := d.host.Write(ctx, RemoteEnvPath(d.host, app), envfile.Dump(env)); err != nil {
		return err
	}

	if err := d.pushCompose(ctx, app); err != nil {
		return err
	}

	return d.pushAssets(ctx, app, appDir)
}

func needsClone(kind manifest.Kind) bool {
	return kind == manifest.KindRepoApp || kind == manifest.KindMountedApp
}

// cloneRepo clones or updates the app's repository in the conventional
// remote location.
func (d *Deployer) cloneRepo(ctx context.Context, app *manifest.App, appDir string) error {
	raw := app.EffectiveRepo()
	if !paths.IsGitURL(raw) {
		return deckerrors.Definitionf(
			"app %s must set a git URL in repo, got %q", app.Name, raw,
		)
	}

	u, err := paths.ParseGitURL(raw)
	if err != nil {
		return err
	}

	if u.Subpath != "" || u.Name != "" {
		return deckerrors.Definitionf(
			"app %s: cannot clone a repository with a path or name: %s", app.Name, raw,
		)
	}

	return d.host.FetchRepo(ctx, appDir+"/"+remote.RepoDirname, u.Repo, u.Ref)
}

func (d *Deployer) pushCompose(ctx context.Context, app *manifest.App) error {
	if app.Kind == manifest.KindRepoApp && !app.PushComposeEnabled() {
		// The clone's own compose file is used as is.
		return nil
	}

	composePath, err := app.ComposePath(ctx, d.fetcher)
	if err != nil {
		return err
	}

	local, err := composePath.LocalPath(ctx, d.fetcher)
	if err != nil {
		return err
	}

	return d.host.Push(ctx, local, RemoteComposePath(d.host, app))
}

func (d *Deployer) pushAssets(ctx context.Context, app *manifest.App, appDir string) error {
	assets, err := app.AssetPaths(ctx, d.fetcher)
	if err != nil {
		return err
	}

	for _, asset := range assets {
		dest := appDir + "/" + remote.AssetsDirname + "/" + path.Base(asset)
		if err := d.host.Push(ctx, asset, dest); err != nil {
			return err
		}
	}

	return nil
}

// RemoteEnvPath returns where an app's merged env file lives on the host.
func RemoteEnvPath(host *remote.Host, app *manifest.App) string {
	return host.AppDir(app) + "/" + remote.EnvFilename
}

// RemoteComposePath returns where an app's compose file lives on the host.
// Repository-backed apps run compose from within their clone.
func RemoteComposePath(host *remote.Host, app *manifest.App) string {
	appDir := host.AppDir(app)

	if app.Kind == manifest.KindRepoApp {
		return appDir + "/" + remote.RepoDirname + "/" + app.EffectiveRepoCompose()
	}

	return appDir + "/" + remote.ComposeFilename
}

var commitPattern = regexp.MustCompile(`^[0-9a-f]{7,40}$`)

// verifyLock checks a locked app still resolves through its locked origin.
// The ref is only compared when the manifest pins a commit; branch and tag
// refs float and are pinned by the lock instead.
func (d *Deployer) verifyLock(app *manifest.App) error {
	if d.lock == nil {
		return nil
	}

	entry, ok := d.lock.App(app.Name)
	if !ok {
		return nil
	}

	u := GitExtends(app)
	if u == nil {
		return fmt.Errorf(
			"%w: app %s is locked but does not extend a git manifest",
			deckerrors.ErrLock, app.Name,
		)
	}

	ref := u.Ref
	if !commitPattern.MatchString(ref) {
		ref = ""
	}

	return entry.AssertOK(u.Repo, ref)
}

// GitExtends returns the parsed git URL of the app's extends, if it has one.
func GitExtends(app *manifest.App) *paths.GitURL {
	if !paths.IsGitURL(app.Extends) {
		return nil
	}

	u, err := paths.ParseGitURL(app.Extends)
	if err != nil {
		return nil
	}

	return u
}

// DeployAll deploys apps concurrently. All apps are attempted; failures are
// combined per app.
func (d *Deployer) DeployAll(ctx context.Context, apps []*manifest.App) error {
	var (
		mu   sync.Mutex
		merr *multierror.Error
	)

	g, ctx := errgroup.WithContext(ctx)

	for _, app := range apps {
		g.Go(func() error {
			if err := d.Deploy(ctx, app); err != nil {
				mu.Lock()
				merr = multierror.Append(merr, fmt.Errorf("deploying %s: %w", app.Name, err))
				mu.Unlock()
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	return merr.ErrorOrNil()
}
