package manifest

import (
	"sort"

	"github.com/deckhand-sh/deckhand/pkg/deckerrors"
)

// Kind names a registered app definition kind.
type Kind string

// Built-in app kinds.
const (
	// KindApp is a plain compose app: the compose file and assets come from
	// the manifest side and are pushed to the host.
	KindApp Kind = "App"

	// KindRepoApp clones a git repository on the host and runs compose from
	// within it.
	KindRepoApp Kind = "RepoApp"

	// KindMountedApp is an app whose compose file mounts a repository that
	// deckhand clones next to it on the host.
	KindMountedApp Kind = "MountedApp"
)

// roots holds the abstract built-in definition each kind's ancestor chain
// terminates at. Populated once at startup; kind names must be unique.
var roots = buildRoots()

func buildRoots() map[Kind]*App {
	m := make(map[Kind]*App)

	for _, kind := range []Kind{KindApp, KindRepoApp, KindMountedApp} {
		if _, exists := m[kind]; exists {
			panic("manifest: duplicate kind " + string(kind))
		}

		m[kind] = &App{
			Name:     string(kind),
			Kind:     kind,
			Abstract: true,
			resolved: true,
		}
	}

	return m
}

// LookupKind returns the registered kind for name.
func LookupKind(name string) (Kind, error) {
	kind := Kind(name)
	if _, ok := roots[kind]; !ok {
		return "", deckerrors.Definitionf("unknown app type %q (known: %v)", name, KindNames())
	}

	return kind, nil
}

// KindNames returns the registered kind names, sorted.
func KindNames() []string {
	kinds := make([]string, 0, len(roots))
	for kind := range roots {
		kinds = append(kinds, string(kind))
	}

	sort.Strings(kinds)

	return kinds
}

func kindRoot(kind Kind) *App {
	root, ok := roots[kind]
	if !ok {
		// Unreachable for apps built through the loader; fall back to the
		// plain kind so Chain always terminates.
		return roots[KindApp]
	}

	return root
}
