package manifest

import (
	"context"

	"github.com/deckhand-sh/deckhand/pkg/deckerrors"
	"github.com/deckhand-sh/deckhand/pkg/envfile"
	"github.com/deckhand-sh/deckhand/pkg/paths"
)

// Attr names a collectable app attribute.
type Attr string

// Collectable attributes.
const (
	AttrPath           Attr = "path"
	AttrCompose        Attr = "compose"
	AttrEnvFiles       Attr = "env_file"
	AttrEnv            Attr = "env"
	AttrAssets         Attr = "assets"
	AttrSetProjectName Attr = "set_project_name"
	AttrRepo           Attr = "repo"
	AttrRepoCompose    Attr = "repo_compose"
	AttrPushCompose    Attr = "push_compose"
)

// AttrValue is an attribute value together with the chain level that set it.
type AttrValue struct {
	Value any
	Level *App
}

// DefaultComposeFilenames is the ordered list of compose filenames probed
// when no chain level sets one. First match wins.
var DefaultComposeFilenames = []string{
	"docker-compose.deckhand.yml",
	"docker-compose.yml",
	"docker-compose.yaml",
}

// Collect walks the resolved chain from the app itself towards the root and
// returns the attribute values set directly at each concrete level, in that
// order. Abstract levels never contribute values.
func (a *App) Collect(attr Attr) []AttrValue {
	var values []AttrValue

	for _, level := range a.Chain() {
		if level.Abstract {
			continue
		}

		if value, ok := attrAt(level, attr); ok {
			values = append(values, AttrValue{Value: value, Level: level})
		}
	}

	return values
}

// First returns the most-derived value for attr, or false if no level sets
// one.
func (a *App) First(attr Attr) (AttrValue, bool) {
	values := a.Collect(attr)
	if len(values) == 0 {
		return AttrValue{}, false
	}

	return values[0], true
}

func attrAt(level *App, attr Attr) (any, bool) {
	switch attr {
	case AttrPath:
		return level.Path, level.Path != ""
	case AttrCompose:
		return level.Compose, level.Compose != ""
	case AttrEnvFiles:
		return level.EnvFiles, len(level.EnvFiles) > 0
	case AttrEnv:
		return level.Env, len(level.Env) > 0
	case AttrAssets:
		return level.Assets, len(level.Assets) > 0
	case AttrSetProjectName:
		if level.SetProjectName == nil {
			return nil, false
		}

		return *level.SetProjectName, true
	case AttrRepo:
		return level.Repo, level.Repo != ""
	case AttrRepoCompose:
		return level.RepoCompose, level.RepoCompose != ""
	case AttrPushCompose:
		if level.PushCompose == nil {
			return nil, false
		}

		return *level.PushCompose, true
	}

	return nil, false
}

// ComposePath resolves the effective compose file. An explicitly set compose
// attribute wins, interpreted relative to the directory of the level that
// set it. Otherwise the app root is probed for the conventional default
// filenames.
func (a *App) ComposePath(ctx context.Context, f paths.Fetcher) (*paths.Path, error) {
	if av, ok := a.First(AttrCompose); ok {
		return a.AppPath(av.Value.(string), av.Level)
	}

	for _, filename := range DefaultComposeFilenames {
		p, err := a.AppPath("app://"+filename, a)
		if err != nil {
			return nil, err
		}

		exists, err := p.Exists(ctx, f)
		if err != nil {
			return nil, err
		}

		if exists {
			return p, nil
		}
	}

	return nil, deckerrors.Definitionf("no compose file found for app %s", a.Name)
}

// ProjectNameEnabled reports whether COMPOSE_PROJECT_NAME injection is on
// for this app. The most-derived explicit setting wins; the default is on.
func (a *App) ProjectNameEnabled() bool {
	if av, ok := a.First(AttrSetProjectName); ok {
		return av.Value.(bool)
	}

	return true
}

// PushComposeEnabled reports whether a repository-backed app pushes its
// manifest-side compose file over the one in the clone. Defaults to on.
func (a *App) PushComposeEnabled() bool {
	if av, ok := a.First(AttrPushCompose); ok {
		return av.Value.(bool)
	}

	return true
}

// EffectiveRepo returns the most-derived repo attribute, or "".
func (a *App) EffectiveRepo() string {
	if av, ok := a.First(AttrRepo); ok {
		return av.Value.(string)
	}

	return ""
}

// EffectiveRepoCompose returns the compose path within a cloned repository.
func (a *App) EffectiveRepoCompose() string {
	if av, ok := a.First(AttrRepoCompose); ok {
		return av.Value.(string)
	}

	return "docker-compose.deckhand.yml"
}

// EnvData merges the app's environment across the chain: base levels first,
// the app's own level last, so derived values win. Within a level, env files
// apply in declaration order followed by inline values. When project name
// injection is on and no level set COMPOSE_PROJECT_NAME itself, it is set to
// the app's snake_case name as the final step.
func (a *App) EnvData(ctx context.Context, f paths.Fetcher) (envfile.Env, error) {
	env := envfile.Env{}

	chain := a.Chain()
	for i := len(chain) - 1; i >= 0; i-- {
		level := chain[i]
		if level.Abstract {
			continue
		}

		files := make([]string, 0, len(level.EnvFiles))

		for _, raw := range level.EnvFiles {
			p, err := a.AppPath(raw, level)
			if err != nil {
				return nil, err
			}

			local, err := p.LocalPath(ctx, f)
			if err != nil {
				return nil, err
			}

			files = append(files, local)
		}

		levelEnv, err := envfile.Read(files, level.Env)
		if err != nil {
			return nil, err
		}

		env.Merge(levelEnv)
	}

	if _, ok := env["COMPOSE_PROJECT_NAME"]; !ok && a.ProjectNameEnabled() {
		env["COMPOSE_PROJECT_NAME"] = a.SnakeName()
	}

	return env, nil
}

// AssetPaths resolves every asset declared across the chain, base levels
// first. Each asset is interpreted relative to the level that declared it.
func (a *App) AssetPaths(ctx context.Context, f paths.Fetcher) ([]string, error) {
	var assets []string

	chain := a.Chain()
	for i := len(chain) - 1; i >= 0; i-- {
		level := chain[i]
		if level.Abstract {
			continue
		}

		for _, raw := range level.Assets {
			p, err := a.AppPath(raw, level)
			if err != nil {
				return nil, err
			}

			local, err := p.LocalPath(ctx, f)
			if err != nil {
				return nil, err
			}

			assets = append(assets, local)
		}
	}

	return assets, nil
}
