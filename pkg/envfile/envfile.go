// Package envfile reads and writes dotenv-style environment files.
//
// Values are string, int or nil. A key present without a value parses to nil,
// and is written back as a bare key with no `=` suffix.
package envfile

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/subosito/gotenv"
)

// Env is a flat environment mapping. Values are string, int or nil.
type Env map[string]any

var bareKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Parse reads dotenv-style key=value content. Quoted values are unescaped,
// unquoted values are taken literally, and a bare key with no value maps to
// nil.
func Parse(content string) (Env, error) {
	env := Env{}

	var kept []string

	for _, line := range strings.Split(content, "\n") {
		if key := strings.TrimSpace(line); bareKeyPattern.MatchString(key) {
			env[key] = nil

			continue
		}

		kept = append(kept, line)
	}

	values, err := gotenv.StrictParse(strings.NewReader(strings.Join(kept, "\n")))
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	for key, value := range values {
		env[key] = value
	}

	return env, nil
}

// ReadFiles loads one or more env files in order. On key conflicts the later
// file wins.
func ReadFiles(paths ...string) (Env, error) {
	env := Env{}

	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read env file: %w", err)
		}

		fileEnv, err := Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("env file %s: %w", path, err)
		}

		for key, value := range fileEnv {
			env[key] = value
		}
	}

	return env, nil
}

// Read loads env files in order (on key conflicts the last wins), then merges
// in the values dict, which always wins over files.
func Read(paths []string, values map[string]any) (Env, error) {
	env, err := ReadFiles(paths...)
	if err != nil {
		return nil, err
	}

	for key, value := range values {
		env[key] = value
	}

	return env, nil
}

// Merge overlays other onto env key-by-key.
func (e Env) Merge(other Env) {
	for key, value := range other {
		e[key] = value
	}
}

// Keys returns the keys of the environment in sorted order.
func (e Env) Keys() []string {
	keys := make([]string, 0, len(e))
	for key := range e {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// Dump converts the environment into multi-line dotenv content. Keys are
// written in sorted order so that output is deterministic.
func Dump(env Env) string {
	lines := make([]string, 0, len(env))

	for _, key := range env.Keys() {
		switch value := env[key].(type) {
		case nil:
			lines = append(lines, key)
		case int:
			lines = append(lines, fmt.Sprintf("%s=%d", key, value))
		default:
			escaped := strings.ReplaceAll(fmt.Sprintf("%v", value), `"`, `\"`)
			lines = append(lines, fmt.Sprintf(`%s="%s"`, key, escaped))
		}
	}

	return strings.Join(lines, "\n")
}
