package cachestore_test

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhand-sh/deckhand/pkg/cachestore"
)

func TestGetOrCreate(t *testing.T) {
	t.Parallel()

	s, err := cachestore.Load(t.TempDir(), true, time.Minute)
	require.NoError(t, err)

	defer s.Close()

	e := s.GetOrCreate("git@example.com:a/b")
	assert.Equal(t, "git@example.com:a/b", e.URL)
	assert.Zero(t, e.Timestamp)
	assert.False(t, s.IsFresh(e), "zero timestamp placeholder must not be fresh")
}

func TestUpdatePersistsAcrossLoads(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	s, err := cachestore.Load(root, true, time.Minute)
	require.NoError(t, err)

	s.Update("git@example.com:a/b")
	s.Close()

	require.FileExists(t, filepath.Join(root, cachestore.StateFile))

	s2, err := cachestore.Load(root, true, time.Minute)
	require.NoError(t, err)

	defer s2.Close()

	e := s2.GetOrCreate("git@example.com:a/b")
	assert.NotZero(t, e.Timestamp)
	assert.True(t, s2.IsFresh(e))
}

func TestIsFresh(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		maxAge  time.Duration
		age     time.Duration
		enabled bool
		want    bool
	}{
		"fresh":             {enabled: true, maxAge: time.Hour, age: time.Minute, want: true},
		"stale":             {enabled: true, maxAge: time.Minute, age: time.Hour, want: false},
		"caching disabled":  {enabled: false, maxAge: time.Hour, age: time.Minute, want: false},
		"zero max age":      {enabled: true, maxAge: 0, age: time.Minute, want: false},
		"negative max age":  {enabled: true, maxAge: -time.Minute, age: time.Minute, want: false},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s, err := cachestore.Load(t.TempDir(), tc.enabled, tc.maxAge)
			require.NoError(t, err)

			defer s.Close()

			e := &cachestore.Entry{
				URL:       "git@example.com:a/b",
				Timestamp: time.Now().Add(-tc.age).Unix(),
			}
			assert.Equal(t, tc.want, s.IsFresh(e))
		})
	}
}

func TestConcurrentUpdates(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	s, err := cachestore.Load(root, true, time.Minute)
	require.NoError(t, err)

	var wg sync.WaitGroup

	for i := range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			s.Update([]string{"a", "b", "c", "d"}[i%4])
		}()
	}

	wg.Wait()
	s.Close()

	s2, err := cachestore.Load(root, true, time.Minute)
	require.NoError(t, err)

	defer s2.Close()

	for _, url := range []string{"a", "b", "c", "d"} {
		assert.NotZero(t, s2.GetOrCreate(url).Timestamp, "url %q", url)
	}
}

func TestClear(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	s, err := cachestore.Load(root, true, time.Minute)
	require.NoError(t, err)

	s.Update("git@example.com:a/b")
	s.Close()

	s2, err := cachestore.Load(root, true, time.Minute)
	require.NoError(t, err)

	defer s2.Close()

	require.NoError(t, s2.Clear())
	assert.NoFileExists(t, filepath.Join(root, cachestore.StateFile))
	assert.Zero(t, s2.GetOrCreate("git@example.com:a/b").Timestamp)
}

func TestEntryDirNameStable(t *testing.T) {
	t.Parallel()

	a := &cachestore.Entry{URL: "git@example.com:a/b"}
	b := &cachestore.Entry{URL: "git@example.com:a/b"}
	c := &cachestore.Entry{URL: "git@example.com:other/repo"}

	assert.Equal(t, a.DirName(), b.DirName())
	assert.NotEqual(t, a.DirName(), c.DirName())
}
