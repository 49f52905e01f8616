package paths

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/deckhand-sh/deckhand/pkg/deckerrors"
)

// ManifestFilenames is the ordered list of conventional manifest filenames
// searched when a path resolves to a directory. First match wins.
var ManifestFilenames = []string{
	"deckhand.yml",
	"deckhand.yaml",
	"deckhand.toml",
}

// FindManifest looks within dir for a conventionally named manifest file.
// It returns the full path, or "" if none was found.
func FindManifest(dir string) string {
	for _, filename := range ManifestFilenames {
		filePath := filepath.Join(dir, filename)
		if _, err := os.Stat(filePath); err == nil {
			return filePath
		}
	}

	return ""
}

// ExtendsPath is a reference to a base manifest, in the form
// `<path>[::<name>]` where path may be local, app-relative or a git URL.
type ExtendsPath struct {
	// Path locates the base manifest file, or a directory containing one.
	Path *Path

	// Original is the extends value as written.
	Original string

	// Name optionally overrides the definition name looked up in the base
	// manifest.
	Name string
}

// ParseExtends splits an extends reference into its path and optional target
// definition name, resolving the path in the owning manifest's directory and
// app context.
func ParseExtends(raw, manifestDir string, app AppContext) (*ExtendsPath, error) {
	e := &ExtendsPath{Original: raw}

	pathPart := raw

	if !IsGitURL(raw) {
		if before, name, found := strings.Cut(raw, "::"); found {
			pathPart, e.Name = before, name
		}
	}

	p, err := NewAppPath(pathPart, manifestDir, app)
	if err != nil {
		return nil, err
	}

	if p.Kind() == KindGit {
		e.Name = p.Git().Name
	}

	e.Path = p

	return e, nil
}

// Manifest materializes the reference and returns the local path of the base
// manifest file. If the reference is a directory, it is searched for a
// conventionally named manifest.
func (e *ExtendsPath) Manifest(ctx context.Context, f Fetcher) (string, error) {
	local, err := e.Path.LocalPath(ctx, f)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(local)
	if err != nil {
		return "", deckerrors.Definitionf("manifest not found at %s (%s)", local, e.Original)
	}

	if !info.IsDir() {
		return local, nil
	}

	manifestPath := FindManifest(local)
	if manifestPath == "" {
		return "", deckerrors.Definitionf("manifest not found in %s (%s)", local, e.Original)
	}

	return manifestPath, nil
}
