package envfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhand-sh/deckhand/pkg/envfile"
)

const (
	file1 = `# File 1
ONE=1
TWO="two"
`
	file2 = `# File 2
ONE="one"
THREE="three"
FOUR=4
`
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("quoted and literal values", func(t *testing.T) {
		t.Parallel()

		env, err := envfile.Parse("A=\"a \\\" quote\"\nB=literal\n")
		require.NoError(t, err)
		assert.Equal(t, envfile.Env{"A": `a " quote`, "B": "literal"}, env)
	})

	t.Run("bare key maps to nil", func(t *testing.T) {
		t.Parallel()

		env, err := envfile.Parse("PRESENT\nOTHER=set\n")
		require.NoError(t, err)
		require.Contains(t, env, "PRESENT")
		assert.Nil(t, env["PRESENT"])
		assert.Equal(t, "set", env["OTHER"])
	})
}

func TestRead(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path1 := writeFile(t, dir, "file1.env", file1)
	path2 := writeFile(t, dir, "file2.env", file2)

	env, err := envfile.Read([]string{path1, path2}, map[string]any{"FOUR": "four"})
	require.NoError(t, err)
	assert.Equal(t, envfile.Env{
		"ONE":   "one",
		"TWO":   "two",
		"THREE": "three",
		"FOUR":  "four",
	}, env)
}

func TestReadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := envfile.Read([]string{filepath.Join(t.TempDir(), "absent.env")}, nil)
	require.Error(t, err)
}

func TestDump(t *testing.T) {
	t.Parallel()

	dumped := envfile.Dump(envfile.Env{
		"ONE":   "one",
		"TWO":   2,
		"THREE": "three\nis\nmultiline",
		"FOUR":  nil,
		"FIVE":  "five",
	})
	assert.Equal(t, `FIVE="five"
FOUR
ONE="one"
THREE="three
is
multiline"
TWO=2`, dumped)
}

func TestDumpRoundTrip(t *testing.T) {
	t.Parallel()

	env := envfile.Env{"BARE": nil, "NUM": 2, "STR": "s"}

	parsed, err := envfile.Parse(envfile.Dump(env))
	require.NoError(t, err)

	assert.Nil(t, parsed["BARE"])
	assert.Equal(t, "2", parsed["NUM"])
	assert.Equal(t, "s", parsed["STR"])
}
