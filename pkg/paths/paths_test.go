package paths_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhand-sh/deckhand/pkg/deckerrors"
	"github.com/deckhand-sh/deckhand/pkg/paths"
)

const manifestDir = "/else/where"

type fakeApp struct {
	root string
}

func (a *fakeApp) RootPath() (*paths.Path, error) {
	return paths.New(a.root, "/foo/bar")
}

type fakeFetcher struct {
	repoDir string
	calls   int
}

func (f *fakeFetcher) FetchRepo(_ context.Context, _, _ string) (string, error) {
	f.calls++

	return f.repoDir, nil
}

func (f *fakeFetcher) FetchFile(_ context.Context, _, _, subpath string) (string, error) {
	f.calls++

	return filepath.Join(f.repoDir, subpath), nil
}

func TestNewLocal(t *testing.T) {
	t.Parallel()

	t.Run("relative resolves against manifest dir", func(t *testing.T) {
		t.Parallel()

		p, err := paths.New("sub/file.yml", manifestDir)
		require.NoError(t, err)
		assert.Equal(t, paths.KindLocal, p.Kind())
		assert.Equal(t, "/else/where/sub/file.yml", p.String())
	})

	t.Run("absolute kept", func(t *testing.T) {
		t.Parallel()

		p, err := paths.New("/abs/file.yml", manifestDir)
		require.NoError(t, err)
		assert.Equal(t, "/abs/file.yml", p.String())
	})

	t.Run("app scheme requires app context", func(t *testing.T) {
		t.Parallel()

		_, err := paths.New("app://file.yml", manifestDir)
		require.ErrorIs(t, err, deckerrors.ErrDefinition)
	})
}

func TestNewAppPath(t *testing.T) {
	t.Parallel()

	t.Run("invalid app paths rejected", func(t *testing.T) {
		t.Parallel()

		for _, raw := range []string{"app://../invalid", "app:///also/invalid", "app://a/../../b"} {
			_, err := paths.NewAppPath(raw, manifestDir, &fakeApp{root: "/foo/bar"})
			require.ErrorIs(t, err, deckerrors.ErrDefinition, "path %q", raw)
		}
	})

	t.Run("sub path accepted", func(t *testing.T) {
		t.Parallel()

		p, err := paths.NewAppPath("app://sub/dir/file.yml", manifestDir, &fakeApp{root: "/foo/bar"})
		require.NoError(t, err)
		assert.True(t, p.IsApp())
	})

	t.Run("non app path falls through", func(t *testing.T) {
		t.Parallel()

		p, err := paths.NewAppPath("test", manifestDir, &fakeApp{root: "/foo/bar"})
		require.NoError(t, err)
		assert.False(t, p.IsApp())
		assert.Equal(t, "/else/where/test", p.String())
	})
}

func TestAppPathResolution(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		appRoot string
		raw     string
		want    string
	}{
		"absolute local root": {
			appRoot: "/foo/bar",
			raw:     "app://this/that",
			want:    "/foo/bar/this/that",
		},
		"relative local root": {
			appRoot: "sub/dir",
			raw:     "app://this/that",
			want:    "/foo/bar/sub/dir/this/that",
		},
		"git root": {
			appRoot: "git+ssh://git@github.com:acme/apps@main",
			raw:     "app://manifest.yml",
			want:    "git+ssh://git@github.com:acme/apps@main#manifest.yml",
		},
		"git root with subpath": {
			appRoot: "git+ssh://git@github.com:acme/apps@main#apps/traefik",
			raw:     "app://manifest.yml",
			want:    "git+ssh://git@github.com:acme/apps@main#apps/traefik/manifest.yml",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			p, err := paths.NewAppPath(tc.raw, manifestDir, &fakeApp{root: tc.appRoot})
			require.NoError(t, err)
			assert.Equal(t, tc.want, p.String())
		})
	}
}

func TestLocalPathMaterializesGit(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{repoDir: "/cache/abc123"}

	p, err := paths.New("git+ssh://git@github.com:acme/apps@main#sub/manifest.yml", manifestDir)
	require.NoError(t, err)

	local, err := p.LocalPath(t.Context(), fetcher)
	require.NoError(t, err)
	assert.Equal(t, "/cache/abc123/sub/manifest.yml", local)
	assert.Equal(t, 1, fetcher.calls)
}

func TestExistsAndReadText(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("content"), 0o600))

	t.Run("existing file", func(t *testing.T) {
		t.Parallel()

		p, err := paths.New("file.txt", dir)
		require.NoError(t, err)

		ok, err := p.Exists(t.Context(), nil)
		require.NoError(t, err)
		assert.True(t, ok)

		text, err := p.ReadText(t.Context(), nil)
		require.NoError(t, err)
		assert.Equal(t, "content", text)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		p, err := paths.New("absent.txt", dir)
		require.NoError(t, err)

		ok, err := p.Exists(t.Context(), nil)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = p.ReadText(t.Context(), nil)
		require.ErrorIs(t, err, deckerrors.ErrDefinition)
	})
}
