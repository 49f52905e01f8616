// Package paths classifies and resolves manifest path references.
//
// A path in a manifest lives in one of three address spaces: the local
// filesystem, the app's own root (`app://`), or a remote git repository
// (`git+ssh://` / `git+https://`). All three normalize into the same
// exists/read/materialize operations, deferring to a [Fetcher] for the
// remote kind.
package paths

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/deckhand-sh/deckhand/pkg/deckerrors"
)

// Kind is the address space of a [Path].
type Kind int

const (
	// KindLocal is a path on the local filesystem, relative to the manifest
	// which wrote it unless absolute.
	KindLocal Kind = iota

	// KindApp is an `app://` path, relative to the app's own root.
	KindApp

	// KindGit is a reference into a remote git repository.
	KindGit
)

const appScheme = "app://"

// Fetcher materializes git repositories locally.
// See gitsource.Source for an implementation.
type Fetcher interface {
	// FetchRepo fetches a repository at the given ref and returns the local
	// clone directory.
	FetchRepo(ctx context.Context, url, ref string) (string, error)

	// FetchFile fetches a repository and resolves subpath within it,
	// returning the local file path.
	FetchFile(ctx context.Context, url, ref, subpath string) (string, error)
}

// AppContext supplies the app root for resolving `app://` paths.
type AppContext interface {
	// RootPath returns the app's own `path` attribute as a resolved [Path].
	RootPath() (*Path, error)
}

// Path is a classified manifest path reference. Construct with [New] or
// [NewAppPath]; existence is always checked lazily at the call site, so
// construction succeeds for paths that do not exist.
type Path struct {
	app      AppContext
	git      *GitURL
	original string
	local    string
	rel      string
	kind     Kind
}

// New classifies a raw path string against the directory of the manifest
// which wrote it. `app://` paths require [NewAppPath].
func New(raw, manifestDir string) (*Path, error) {
	p := &Path{original: raw}

	switch {
	case IsGitURL(raw):
		u, err := ParseGitURL(raw)
		if err != nil {
			return nil, err
		}

		p.kind = KindGit
		p.git = u

	case strings.HasPrefix(raw, appScheme):
		return nil, deckerrors.Definitionf("app path %q requires an app context", raw)

	default:
		p.kind = KindLocal
		if filepath.IsAbs(raw) {
			p.local = filepath.Clean(raw)
		} else {
			p.local = filepath.Join(manifestDir, raw)
		}
	}

	return p, nil
}

// NewAppPath classifies a raw path string which may additionally use the
// `app://` scheme, resolved against the owning app's root.
//
// An `app://` path whose relative component would escape the app root is a
// definition error, detected at construction time.
func NewAppPath(raw, manifestDir string, app AppContext) (*Path, error) {
	if !strings.HasPrefix(raw, appScheme) {
		return New(raw, manifestDir)
	}

	rel := strings.TrimPrefix(raw, appScheme)
	if err := checkAppRelative(rel); err != nil {
		return nil, err
	}

	return &Path{
		original: raw,
		kind:     KindApp,
		rel:      rel,
		app:      app,
	}, nil
}

// checkAppRelative rejects app-relative components which are absolute or
// escape the app root. This catches mistakes and bad practice, not security
// issues.
func checkAppRelative(rel string) error {
	if strings.HasPrefix(rel, "/") {
		return deckerrors.Definitionf("app path must be within the app root: app://%s", rel)
	}

	cleaned := path.Clean(rel)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return deckerrors.Definitionf("app path must be within the app root: app://%s", rel)
	}

	return nil
}

// Original returns the raw path string as written in the manifest.
func (p *Path) Original() string {
	return p.original
}

// Kind returns the path's address space.
func (p *Path) Kind() Kind {
	return p.kind
}

// Git returns the parsed git URL for [KindGit] paths, or nil.
func (p *Path) Git() *GitURL {
	return p.git
}

// IsApp reports whether the path uses the `app://` scheme.
func (p *Path) IsApp() bool {
	return p.kind == KindApp
}

// String returns the fully resolved reference: an absolute path for local
// paths, a git+ URL for git paths, and the underlying combined reference for
// app paths once resolved (falling back to the original string if the app
// root cannot be resolved).
func (p *Path) String() string {
	switch p.kind {
	case KindGit:
		return p.git.String()
	case KindApp:
		resolved, err := p.resolveApp()
		if err != nil {
			return p.original
		}

		return resolved.String()
	default:
		return p.local
	}
}

// resolveApp resolves an app-relative path to its underlying local or git
// path by joining the app root with the relative component.
func (p *Path) resolveApp() (*Path, error) {
	if p.app == nil {
		return nil, deckerrors.Definitionf("app path %q has no app context", p.original)
	}

	root, err := p.app.RootPath()
	if err != nil {
		return nil, err
	}

	switch root.kind {
	case KindGit:
		return &Path{
			original: p.original,
			kind:     KindGit,
			git:      root.git.Join(p.rel),
		}, nil
	case KindLocal:
		return &Path{
			original: p.original,
			kind:     KindLocal,
			local:    filepath.Join(root.local, p.rel),
		}, nil
	default:
		return nil, deckerrors.Definitionf("app path %q resolves through another app path", p.original)
	}
}

// Underlying returns the path with any app-relative indirection resolved.
func (p *Path) Underlying() (*Path, error) {
	if p.kind == KindApp {
		return p.resolveApp()
	}

	return p, nil
}

// LocalPath materializes the path on the local filesystem, fetching git
// references through the [Fetcher]. It does not require the target to exist.
func (p *Path) LocalPath(ctx context.Context, f Fetcher) (string, error) {
	target, err := p.Underlying()
	if err != nil {
		return "", err
	}

	if target.kind == KindLocal {
		return target.local, nil
	}

	u := target.git
	if u.Subpath == "" {
		return f.FetchRepo(ctx, u.Repo, u.Ref)
	}

	return f.FetchFile(ctx, u.Repo, u.Ref, u.Subpath)
}

// Exists reports whether the path exists on disk, materializing remote paths
// first. A missing remote repository propagates as an error; a missing file
// within a fetched repository reports false.
func (p *Path) Exists(ctx context.Context, f Fetcher) (bool, error) {
	local, err := p.LocalPath(ctx, f)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(local)

	switch {
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stat %s: %w", local, err)
	}

	return true, nil
}

// ReadText returns the file content. A missing file is a definition error at
// the call site, not at construction.
func (p *Path) ReadText(ctx context.Context, f Fetcher) (string, error) {
	local, err := p.LocalPath(ctx, f)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(local)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", deckerrors.Definitionf("file not found: %s (%s)", local, p.original)
		}

		return "", fmt.Errorf("read %s: %w", local, err)
	}

	return string(data), nil
}
