package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/deckhand-sh/deckhand/pkg/deckerrors"
	"github.com/deckhand-sh/deckhand/pkg/names"
	"github.com/deckhand-sh/deckhand/pkg/paths"
)

// Manifest is a parsed and resolved manifest file.
type Manifest struct {
	// Path is the local path of the manifest file.
	Path string

	// Host is the target host, if the manifest defines one.
	Host *Host

	apps map[string]*App
}

// Apps returns the manifest's concrete app definitions sorted by name.
// Abstract definitions are inheritance bases only and are excluded.
func (m *Manifest) Apps() []*App {
	apps := make([]*App, 0, len(m.apps))

	for _, app := range m.apps {
		if !app.Abstract {
			apps = append(apps, app)
		}
	}

	sort.Slice(apps, func(i, j int) bool { return apps[i].Name < apps[j].Name })

	return apps
}

// App returns the definition for name, which may be given in any of the
// recognised case styles.
func (m *Manifest) App(name string) (*App, error) {
	canonical, err := names.Normalise(name)
	if err != nil {
		return nil, err
	}

	app, ok := m.apps[canonical]
	if !ok {
		return nil, deckerrors.Definitionf("app %s not defined in %s", canonical, m.Path)
	}

	return app, nil
}

// Loader parses manifest files and resolves app inheritance through a
// [paths.Fetcher]. Loaded manifests are cached for the lifetime of the
// loader, so a base manifest referenced by several apps is parsed once.
type Loader struct {
	fetcher   paths.Fetcher
	manifests map[string]*Manifest
}

// NewLoader returns a Loader fetching remote manifests through f.
func NewLoader(f paths.Fetcher) *Loader {
	return &Loader{
		fetcher:   f,
		manifests: make(map[string]*Manifest),
	}
}

// Load parses the manifest at path and resolves the inheritance chain of
// every app it defines.
func (l *Loader) Load(ctx context.Context, path string) (*Manifest, error) {
	return l.load(ctx, path, nil)
}

// history carries the chain of manifest paths currently being resolved, used
// to reject true extends cycles while still allowing diamonds.
func (l *Loader) load(ctx context.Context, path string, history []string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving manifest path: %w", err)
	}

	for _, seen := range history {
		if seen == abs {
			return nil, deckerrors.Definitionf(
				"circular extends: %s", strings.Join(append(history, abs), " -> "),
			)
		}
	}

	if m, ok := l.manifests[abs]; ok {
		return m, nil
	}

	m, err := parseFile(abs)
	if err != nil {
		return nil, err
	}

	history = append(history, abs)
	for _, name := range sortedAppNames(m.apps) {
		if err := l.resolveApp(ctx, m.apps[name], history); err != nil {
			return nil, err
		}
	}

	l.manifests[abs] = m

	return m, nil
}

func sortedAppNames(apps map[string]*App) []string {
	keys := make([]string, 0, len(apps))
	for name := range apps {
		keys = append(keys, name)
	}

	sort.Strings(keys)

	return keys
}

func parseFile(path string) (*Manifest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, deckerrors.Definitionf("reading manifest %s: %v", path, err)
	}

	var (
		raw map[string]any
		ext = strings.ToLower(filepath.Ext(path))
	)

	switch ext {
	case ".yml", ".yaml":
		err = yaml.Unmarshal(content, &raw)
	case ".toml":
		err = toml.Unmarshal(content, &raw)
	default:
		return nil, deckerrors.Definitionf("unsupported manifest format %q in %s", ext, path)
	}

	if err != nil {
		return nil, deckerrors.Definitionf("parsing manifest %s: %v", path, err)
	}

	return buildManifest(path, raw)
}

func buildManifest(path string, raw map[string]any) (*Manifest, error) {
	m := &Manifest{
		Path: path,
		apps: make(map[string]*App),
	}

	for key, value := range raw {
		switch key {
		case "apps":
			apps, err := asStringMap(value)
			if err != nil {
				return nil, deckerrors.Definitionf("manifest %s: apps: %v", path, err)
			}

			for name, data := range apps {
				if err := m.addApp(name, data); err != nil {
					return nil, err
				}
			}
		case "host":
			data, err := asStringMap(value)
			if err != nil {
				return nil, deckerrors.Definitionf("manifest %s: host: %v", path, err)
			}

			host, err := buildHost(path, data)
			if err != nil {
				return nil, err
			}

			m.Host = host
		default:
			return nil, deckerrors.Definitionf("manifest %s: unknown section %q", path, key)
		}
	}

	return m, nil
}

func (m *Manifest) addApp(name string, value any) error {
	canonical, err := names.Normalise(name)
	if err != nil {
		return deckerrors.Definitionf("manifest %s: app %q: %v", m.Path, name, err)
	}

	if _, ok := m.apps[canonical]; ok {
		return deckerrors.Definitionf(
			"manifest %s: app name %q collides with an existing definition %s",
			m.Path, name, canonical,
		)
	}

	data, err := asStringMap(value)
	if err != nil {
		return deckerrors.Definitionf("manifest %s: app %s: %v", m.Path, canonical, err)
	}

	app, err := buildApp(m.Path, canonical, data)
	if err != nil {
		return err
	}

	m.apps[canonical] = app

	return nil
}

// buildApp validates data against the fixed attribute schema for the app's
// kind and produces the definition. YAML and TOML manifests pass through the
// same builder, so equivalent documents yield equivalent definitions.
func buildApp(manifestPath, name string, data map[string]any) (*App, error) {
	app := &App{
		Name:       name,
		Kind:       KindApp,
		OriginFile: manifestPath,
	}

	attrErr := func(attr string, format string, args ...any) error {
		msg := fmt.Sprintf(format, args...)

		return deckerrors.Definitionf("manifest %s: app %s: %s: %s", manifestPath, name, attr, msg)
	}

	if typeName, ok := data["type"]; ok {
		s, isString := typeName.(string)
		if !isString {
			return nil, attrErr("type", "expected a string, got %T", typeName)
		}

		kind, err := LookupKind(s)
		if err != nil {
			return nil, attrErr("type", "%v", err)
		}

		app.Kind = kind
	}

	for attr, value := range data {
		var err error

		switch attr {
		case "type":
			// Consumed above.
		case "abstract":
			app.Abstract, err = asBool(value)
		case "extends":
			app.Extends, err = asString(value)
		case "path":
			app.Path, err = asString(value)
		case "compose":
			app.Compose, err = asString(value)
		case "env_file":
			app.EnvFiles, err = asStringList(value)
		case "env":
			app.Env, err = asEnvMap(value)
		case "assets":
			app.Assets, err = asStringList(value)
		case "set_project_name":
			var b bool
			if b, err = asBool(value); err == nil {
				app.SetProjectName = &b
			}
		case "repo", "repo_compose", "push_compose":
			if app.Kind != KindRepoApp && app.Kind != KindMountedApp {
				return nil, attrErr(attr, "only valid for %s and %s apps", KindRepoApp, KindMountedApp)
			}

			switch attr {
			case "repo":
				app.Repo, err = asString(value)
			case "repo_compose":
				app.RepoCompose, err = asString(value)
			case "push_compose":
				var b bool
				if b, err = asBool(value); err == nil {
					app.PushCompose = &b
				}
			}
		default:
			return nil, attrErr(attr, "unknown attribute")
		}

		if err != nil {
			return nil, attrErr(attr, "%v", err)
		}
	}

	return app, nil
}

func buildHost(manifestPath string, data map[string]any) (*Host, error) {
	host := &Host{OriginFile: manifestPath}

	for attr, value := range data {
		var err error

		switch attr {
		case "name":
			host.Name, err = asString(value)
		case "port":
			host.Port, err = asInt(value)
		case "user":
			host.User, err = asString(value)
		case "root_path":
			host.RootPath, err = asString(value)
		case "compose_command":
			host.ComposeCommand, err = asString(value)
		default:
			return nil, deckerrors.Definitionf("manifest %s: host: unknown attribute %q", manifestPath, attr)
		}

		if err != nil {
			return nil, deckerrors.Definitionf("manifest %s: host: %s: %v", manifestPath, attr, err)
		}
	}

	if host.Name == "" {
		return nil, deckerrors.Definitionf("manifest %s: host: name is required", manifestPath)
	}

	return host, nil
}

// asStringMap accepts the map shapes the YAML and TOML decoders produce.
func asStringMap(value any) (map[string]any, error) {
	switch m := value.(type) {
	case map[string]any:
		return m, nil
	case map[any]any:
		out := make(map[string]any, len(m))

		for k, v := range m {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("expected string key, got %T", k)
			}

			out[key] = v
		}

		return out, nil
	case nil:
		return map[string]any{}, nil
	default:
		return nil, fmt.Errorf("expected a mapping, got %T", value)
	}
}

func asString(value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("expected a string, got %T", value)
	}

	return s, nil
}

func asBool(value any) (bool, error) {
	b, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("expected a boolean, got %T", value)
	}

	return b, nil
}

func asInt(value any) (int, error) {
	switch n := value.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", value)
	}
}

// asStringList accepts a single string as a one-element list.
func asStringList(value any) ([]string, error) {
	if s, ok := value.(string); ok {
		return []string{s}, nil
	}

	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a string or a list of strings, got %T", value)
	}

	out := make([]string, 0, len(items))

	for _, item := range items {
		s, err := asString(item)
		if err != nil {
			return nil, err
		}

		out = append(out, s)
	}

	return out, nil
}

// asEnvMap keeps string, integer and null values, matching what env files
// can express.
func asEnvMap(value any) (map[string]any, error) {
	raw, err := asStringMap(value)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(raw))

	for k, v := range raw {
		switch typed := v.(type) {
		case nil:
			out[k] = nil
		case string:
			out[k] = typed
		case int:
			out[k] = typed
		case int64:
			out[k] = int(typed)
		case uint64:
			out[k] = int(typed)
		case bool:
			// Compose env values are strings on the wire; keep the YAML/TOML
			// literal spelling.
			out[k] = fmt.Sprintf("%t", typed)
		default:
			return nil, fmt.Errorf("env value for %s: expected string, integer or null, got %T", k, v)
		}
	}

	return out, nil
}
