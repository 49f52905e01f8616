package manifest_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhand-sh/deckhand/pkg/deckerrors"
	"github.com/deckhand-sh/deckhand/pkg/manifest"
)

func TestResolveNoBase(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, t.TempDir(), "deckhand.yml", `
apps:
  website:
    env:
      A: b
`)

	app, err := loadManifest(t, path).App("website")
	require.NoError(t, err)
	require.True(t, app.Resolved())
	assert.Nil(t, app.Base())

	// The chain terminates at the built-in root for the app's kind.
	ancestors := app.Ancestors()
	require.Len(t, ancestors, 1)
	assert.Equal(t, "App", ancestors[0].Name)
	assert.True(t, ancestors[0].Abstract)
}

func TestResolveChainLength(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	// website extends mid extends root: two hops, three ancestors with the
	// built-in root included.
	for name, content := range map[string]string{
		"root.yml": "apps:\n  website:\n    env:\n      LEVEL: root\n",
		"mid.yml":  "apps:\n  website:\n    extends: root.yml\n    env:\n      LEVEL: mid\n",
		"deckhand.yml": "apps:\n  website:\n" +
			"    extends: mid.yml\n    env:\n      LEVEL: top\n",
	} {
		writeManifest(t, dir, name, content)
	}

	app, err := loadManifest(t, filepath.Join(dir, "deckhand.yml")).App("website")
	require.NoError(t, err)

	ancestors := app.Ancestors()
	require.Len(t, ancestors, 3)
	assert.Equal(t, filepath.Join(dir, "mid.yml"), ancestors[0].OriginFile)
	assert.Equal(t, filepath.Join(dir, "root.yml"), ancestors[1].OriginFile)
	assert.True(t, ancestors[2].Abstract)
}

func TestResolveTargetsNamedDefinition(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeManifest(t, dir, "shared.yml", `
apps:
  generic_site:
    env:
      SHARED: yes
`)
	path := writeManifest(t, dir, "deckhand.yml", `
apps:
  website:
    extends: shared.yml::generic_site
`)

	app, err := loadManifest(t, path).App("website")
	require.NoError(t, err)
	require.NotNil(t, app.Base())
	assert.Equal(t, "GenericSite", app.Base().Name)
}

func TestResolveExtendsDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	baseDir := filepath.Join(dir, "shared")
	require.NoError(t, os.MkdirAll(baseDir, 0o755))
	writeManifest(t, baseDir, "deckhand.yml", `
apps:
  website:
    env:
      SHARED: yes
`)
	path := writeManifest(t, dir, "deckhand.yml", `
apps:
  website:
    extends: shared
`)

	app, err := loadManifest(t, path).App("website")
	require.NoError(t, err)
	require.NotNil(t, app.Base())
	assert.Equal(t, filepath.Join(baseDir, "deckhand.yml"), app.Base().OriginFile)
}

func TestResolveDiamond(t *testing.T) {
	t.Parallel()

	// Both apps extend definitions from the same base manifest. Revisiting a
	// manifest outside the active extends path is not a cycle.
	dir := t.TempDir()
	writeManifest(t, dir, "shared.yml", `
apps:
  website:
    env:
      A: base
  worker:
    env:
      B: base
`)
	path := writeManifest(t, dir, "deckhand.yml", `
apps:
  website:
    extends: shared.yml
  worker:
    extends: shared.yml
`)

	m := loadManifest(t, path)

	website, err := m.App("website")
	require.NoError(t, err)
	worker, err := m.App("worker")
	require.NoError(t, err)

	require.NotNil(t, website.Base())
	require.NotNil(t, worker.Base())
	assert.Equal(t, website.Base().OriginFile, worker.Base().OriginFile)
}

func TestResolveCycle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeManifest(t, dir, "a.yml", "apps:\n  website:\n    extends: b.yml\n")
	writeManifest(t, dir, "b.yml", "apps:\n  website:\n    extends: a.yml\n")

	_, err := manifest.NewLoader(nil).Load(t.Context(), filepath.Join(dir, "a.yml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, deckerrors.ErrDefinition)
	assert.ErrorContains(t, err, "circular extends")
}

func TestResolveLongCycle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for i := range 3 {
		next := (i + 1) % 3
		writeManifest(t, dir, fmt.Sprintf("m%d.yml", i),
			fmt.Sprintf("apps:\n  website:\n    extends: m%d.yml\n", next))
	}

	_, err := manifest.NewLoader(nil).Load(t.Context(), filepath.Join(dir, "m0.yml"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "circular extends")
}

func TestResolveHostInBase(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeManifest(t, dir, "base.yml", `
apps:
  website:
    env:
      A: b
host:
  name: example.com
`)
	path := writeManifest(t, dir, "deckhand.yml", `
apps:
  website:
    extends: base.yml
`)

	_, err := manifest.NewLoader(nil).Load(t.Context(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, deckerrors.ErrDefinition)
	assert.ErrorContains(t, err, "must not define a host")
}

func TestResolveMissingBaseManifest(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, t.TempDir(), "deckhand.yml", `
apps:
  website:
    extends: nowhere.yml
`)

	_, err := manifest.NewLoader(nil).Load(t.Context(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, deckerrors.ErrDefinition)
	assert.ErrorContains(t, err, "manifest not found")
}

func TestResolveMissingBaseApp(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeManifest(t, dir, "base.yml", "apps:\n  other:\n    env:\n      A: b\n")
	path := writeManifest(t, dir, "deckhand.yml", `
apps:
  website:
    extends: base.yml
`)

	_, err := manifest.NewLoader(nil).Load(t.Context(), path)
	require.Error(t, err)
	assert.ErrorContains(t, err, "not defined in")
}

func TestResolveDefaultProbeFindsAppManifest(t *testing.T) {
	t.Parallel()

	// An app rooted in a directory carrying a base manifest picks it up
	// without an explicit extends.
	dir := t.TempDir()
	appDir := filepath.Join(dir, "website")
	require.NoError(t, os.MkdirAll(appDir, 0o755))
	writeManifest(t, appDir, "deckhand-app.yml", `
apps:
  website:
    env:
      FROM_APP_DIR: yes
`)
	path := writeManifest(t, dir, "deckhand.yml", `
apps:
  website:
    path: website
`)

	app, err := loadManifest(t, path).App("website")
	require.NoError(t, err)
	require.NotNil(t, app.Base())
	assert.Equal(t, filepath.Join(appDir, "deckhand-app.yml"), app.Base().OriginFile)
}

func TestResolveDefaultProbeSkipsOwnManifest(t *testing.T) {
	t.Parallel()

	// A base manifest loaded from an app directory probes its own root and
	// finds itself; that is not a base.
	path := writeManifest(t, t.TempDir(), "deckhand-app.yml", `
apps:
  website:
    env:
      A: b
`)

	app, err := loadManifest(t, path).App("website")
	require.NoError(t, err)
	assert.Nil(t, app.Base())
}
