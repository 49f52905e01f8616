// Package lockfile pins the git origins a manifest's apps resolve through.
//
// A lockfile sits next to its manifest and records, per app, the origin URL
// and commit hash that were current when the app was locked. Deploys verify
// the manifest still resolves through the locked origins, so an upstream
// base cannot change silently between deploys.
package lockfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/deckhand-sh/deckhand/pkg/deckerrors"
)

// CurrentVersion is the lockfile format version this build reads and writes.
const CurrentVersion = 1

// DefaultFilename is the lockfile name next to a manifest.
const DefaultFilename = "deckhand.lock"

// AppLock pins one app's upstream origin.
type AppLock struct {
	// Origin is the git URL the app's base or repository resolved through
	// when locked.
	Origin string `json:"origin"`

	// Hash is the commit hash at lock time.
	Hash string `json:"hash"`

	// Date is the lock timestamp in RFC 3339.
	Date string `json:"date"`
}

// AssertOK verifies that repo and ref still match the lock. An empty ref
// means the manifest floats on the default branch, which the locked hash
// pins instead.
func (l AppLock) AssertOK(repo, ref string) error {
	if repo == "" {
		return fmt.Errorf("%w: locked app has no repository origin", deckerrors.ErrLock)
	}

	if repo != l.Origin {
		return fmt.Errorf(
			"%w: origin changed since locking: %s is locked to %s",
			deckerrors.ErrLock, repo, l.Origin,
		)
	}

	if ref != "" && ref != l.Hash {
		return fmt.Errorf(
			"%w: reference %s does not match locked hash %s",
			deckerrors.ErrLock, ref, l.Hash,
		)
	}

	return nil
}

// Lockfile is the on-disk lock table for one manifest, keyed by app name.
type Lockfile struct {
	apps map[string]AppLock

	// Path is where the lockfile is read from and written to.
	Path string
}

type fileFormat struct {
	Apps    map[string]AppLock `json:"apps"`
	Version int                `json:"version"`
}

// Load reads the lockfile at path. A missing file is an empty lockfile, not
// an error.
func Load(path string) (*Lockfile, error) {
	lf := &Lockfile{
		Path: path,
		apps: make(map[string]AppLock),
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return lf, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading lockfile %s: %w", path, err)
	}

	var raw fileFormat
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, deckerrors.Definitionf("invalid lockfile %s: %v", path, err)
	}

	if raw.Version != CurrentVersion {
		return nil, deckerrors.Definitionf(
			"invalid lockfile %s: version %d not supported", path, raw.Version,
		)
	}

	if raw.Apps == nil {
		return nil, deckerrors.Definitionf("invalid lockfile %s: apps section missing", path)
	}

	lf.apps = raw.Apps

	return lf, nil
}

// App returns the lock for an app name, if one is recorded.
func (lf *Lockfile) App(name string) (AppLock, bool) {
	lock, ok := lf.apps[name]

	return lock, ok
}

// Lock records or replaces the lock for an app, stamped with the current
// time.
func (lf *Lockfile) Lock(name, origin, hash string) {
	lf.apps[name] = AppLock{
		Origin: origin,
		Hash:   hash,
		Date:   time.Now().UTC().Format(time.RFC3339),
	}
}

// Unlock removes the lock for an app.
func (lf *Lockfile) Unlock(name string) {
	delete(lf.apps, name)
}

// Names returns the locked app names, sorted.
func (lf *Lockfile) Names() []string {
	names := make([]string, 0, len(lf.apps))
	for name := range lf.apps {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Len returns the number of locked apps.
func (lf *Lockfile) Len() int {
	return len(lf.apps)
}

// Save writes the lockfile to its path.
func (lf *Lockfile) Save() error {
	data, err := json.MarshalIndent(fileFormat{
		Version: CurrentVersion,
		Apps:    lf.apps,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding lockfile: %w", err)
	}

	if err := os.WriteFile(lf.Path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing lockfile %s: %w", lf.Path, err)
	}

	return nil
}
