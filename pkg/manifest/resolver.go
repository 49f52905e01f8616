package manifest

import (
	"context"
	"path/filepath"

	"github.com/deckhand-sh/deckhand/pkg/deckerrors"
	"github.com/deckhand-sh/deckhand/pkg/paths"
)

// resolveApp splices the app's base definition into its ancestor chain,
// loading the base manifest if needed. Resolution is idempotent: once an
// app's base is spliced, resolving again is a no-op.
func (l *Loader) resolveApp(ctx context.Context, app *App, history []string) error {
	if app.resolved {
		return nil
	}

	ext, err := l.extendsFor(ctx, app)
	if err != nil {
		return err
	}

	if ext == nil {
		app.resolved = true

		return nil
	}

	local, err := ext.Manifest(ctx, l.fetcher)
	if err != nil {
		return err
	}

	// An app whose root holds its own defining manifest would otherwise
	// extend itself through the default probe.
	if filepath.Clean(local) == filepath.Clean(app.OriginFile) {
		app.resolved = true

		return nil
	}

	baseManifest, err := l.load(ctx, local, history)
	if err != nil {
		return err
	}

	if baseManifest.Host != nil {
		return deckerrors.Definitionf(
			"manifest %s is extended by app %s and must not define a host",
			baseManifest.Path, app.Name,
		)
	}

	target := ext.Name
	if target == "" {
		target = app.Name
	}

	base, err := baseManifest.App(target)
	if err != nil {
		return deckerrors.Definitionf(
			"app %s extends %s: %v", app.Name, ext.Original, err,
		)
	}

	app.base = base
	app.resolved = true

	return nil
}

// DefaultExtends is probed when an app declares no extends: an app's own
// directory (or repository) may carry a base manifest alongside its compose
// file. First match wins; no match means no base.
var DefaultExtends = []string{
	"app://deckhand-app.yml",
	"app://deckhand-app.yaml",
	"app://deckhand-app.toml",
}

// extendsFor parses the app's extends reference, falling back to the
// [DefaultExtends] probe.
func (l *Loader) extendsFor(ctx context.Context, app *App) (*paths.ExtendsPath, error) {
	if app.Extends != "" {
		return paths.ParseExtends(app.Extends, app.OriginDir(), app)
	}

	for _, raw := range DefaultExtends {
		ext, err := paths.ParseExtends(raw, app.OriginDir(), app)
		if err != nil {
			return nil, err
		}

		exists, err := ext.Path.Exists(ctx, l.fetcher)
		if err != nil {
			return nil, err
		}

		if exists {
			return ext, nil
		}
	}

	return nil, nil
}
