// Package manifest loads deckhand manifests and resolves their inheritance
// chains into effective app and host definitions.
//
// A manifest file declares apps (and at most one host) in YAML or TOML. An
// app may extend a base definition in another manifest, locally or in a
// remote git repository; the resolver splices those bases into an explicit
// ancestor chain which attribute and environment lookups walk.
package manifest

import (
	"path/filepath"

	"github.com/deckhand-sh/deckhand/pkg/names"
	"github.com/deckhand-sh/deckhand/pkg/paths"
)

// App is a single app definition. Its zero-value attributes mean "not set at
// this level"; effective values come from walking the resolved ancestor
// chain.
type App struct {
	// SetProjectName controls COMPOSE_PROJECT_NAME injection. Nil means not
	// set at this level (default true).
	SetProjectName *bool

	// PushCompose controls whether a RepoApp pushes its compose file over the
	// one in the cloned repository. Nil means not set at this level (default
	// true).
	PushCompose *bool

	// Env is the inline environment for this level.
	Env map[string]any

	// Name is the canonical PascalCase identifier.
	Name string

	// Kind selects the registered definition kind ("App", "RepoApp",
	// "MountedApp").
	Kind Kind

	// OriginFile is the local path of the manifest file which textually
	// defined this app. Set at creation, immutable.
	OriginFile string

	// Extends optionally references a base manifest as
	// `<path>[::<name>]`.
	Extends string

	// Path is the app's root directory: a local path or a git URL.
	Path string

	// Compose is the path to the compose file for this level.
	Compose string

	// Repo is the git URL cloned on the host for RepoApp kinds.
	Repo string

	// RepoCompose is the compose file path within the cloned repository.
	RepoCompose string

	// EnvFiles are env file paths, each relative to this level's directory.
	EnvFiles []string

	// Assets are file paths pushed alongside the compose file.
	Assets []string

	// Abstract definitions are never deployed; they only serve as
	// inheritance bases.
	Abstract bool

	base     *App
	resolved bool
}

// OriginDir returns the directory of the manifest which defined this app.
// Relative attributes written at this level resolve against it.
func (a *App) OriginDir() string {
	return filepath.Dir(a.OriginFile)
}

// SnakeName returns the app name in snake_case, as used for container
// project names and remote directories.
func (a *App) SnakeName() string {
	return names.PascalToSnake(a.Name)
}

// Base returns the resolved nearest base definition, or nil.
func (a *App) Base() *App {
	return a.base
}

// Resolved reports whether inheritance resolution has run for this app.
func (a *App) Resolved() bool {
	return a.resolved
}

// Ancestors returns the resolved ancestor chain excluding the app itself:
// nearest base first, terminated by the built-in root definition for the
// app's kind.
func (a *App) Ancestors() []*App {
	var ancestors []*App

	for base := a.base; base != nil; base = base.base {
		ancestors = append(ancestors, base)
	}

	return append(ancestors, kindRoot(a.Kind))
}

// Chain returns the full lookup chain: the app itself, then its ancestors.
func (a *App) Chain() []*App {
	return append([]*App{a}, a.Ancestors()...)
}

// RootPath resolves the app's own root: the effective `path` attribute
// interpreted relative to the directory of the level which set it, or the
// app's manifest directory when unset. It implements [paths.AppContext].
func (a *App) RootPath() (*paths.Path, error) {
	for _, av := range a.Collect(AttrPath) {
		raw, ok := av.Value.(string)
		if !ok || raw == "" {
			continue
		}

		return paths.New(raw, av.Level.OriginDir())
	}

	return paths.New(".", a.OriginDir())
}

// AppPath builds a [paths.Path] owned by this app, supporting the `app://`
// scheme against the app's root.
func (a *App) AppPath(raw string, level *App) (*paths.Path, error) {
	return paths.NewAppPath(raw, level.OriginDir(), a)
}

// Host is a host definition. A manifest used as an inheritance base must not
// define one.
type Host struct {
	// Name is the server hostname.
	Name string

	// User is the login username.
	User string

	// RootPath is the deckhand working directory on the server, relative to
	// the connecting user's home directory unless absolute.
	RootPath string

	// ComposeCommand invokes docker compose on the server.
	ComposeCommand string

	// OriginFile is the local path of the manifest which defined this host.
	OriginFile string

	// Port is the SSH port.
	Port int
}

// DefaultHostRootPath is the remote working directory used when a host does
// not set one.
const DefaultHostRootPath = "apps"

// DefaultComposeCommand invokes compose on hosts which do not set one.
const DefaultComposeCommand = "docker compose"

// AppRemoteDir returns the remote directory for an app, in POSIX form.
func (h *Host) AppRemoteDir(app *App) string {
	root := h.RootPath
	if root == "" {
		root = DefaultHostRootPath
	}

	return root + "/" + app.SnakeName()
}
