// Package gitsource fetches git repositories into the local cache.
//
// Repositories are cloned by shelling out to the git binary, which lets git
// use the system's ssh agent and credential helpers. Repeated fetches of the
// same (url, ref) pair within one process are memoized, and the cachestore
// TTL avoids re-fetching repositories that were updated recently.
package gitsource

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/deckhand-sh/deckhand/pkg/cachestore"
	"github.com/deckhand-sh/deckhand/pkg/deckerrors"
	"github.com/deckhand-sh/deckhand/pkg/execs"
	"github.com/deckhand-sh/deckhand/pkg/syncs"
)

var remoteHeadPattern = regexp.MustCompile(`HEAD branch: (\S+)`)

// Source fetches git repositories and files within them to local cache
// directories. Create instances with [New].
type Source struct {
	store   *cachestore.Store
	locks   *syncs.KeyLock
	fetched map[string]string
	mu      sync.Mutex
}

// New creates a new [Source] backed by the given cache store.
func New(store *cachestore.Store) *Source {
	return &Source{
		store:   store,
		locks:   syncs.NewKeyLock(),
		fetched: make(map[string]string),
	}
}

// FetchRepo fetches the repository at url, checked out at ref, and returns
// the local clone directory.
//
// If ref is empty the remote's default branch is queried and used. When ref
// is a remote-tracking branch the clone is hard-reset to the remote tip;
// fixed commits and tags are immutable and left as checked out. Calls with
// the same (url, ref) pair are memoized for the process lifetime.
func (s *Source) FetchRepo(ctx context.Context, url, ref string) (string, error) {
	memoKey := url + "\x00" + ref

	var (
		repoPath string
		err      error
	)

	lockErr := s.locks.Do(memoKey, func() error {
		s.mu.Lock()
		cached, ok := s.fetched[memoKey]
		s.mu.Unlock()

		if ok {
			repoPath = cached

			return nil
		}

		repoPath, err = s.fetchRepo(ctx, url, ref)
		if err != nil {
			return err
		}

		s.mu.Lock()
		s.fetched[memoKey] = repoPath
		s.mu.Unlock()

		return nil
	})
	if lockErr != nil {
		return "", lockErr
	}

	return repoPath, nil
}

func (s *Source) fetchRepo(ctx context.Context, url, ref string) (string, error) {
	entry := s.store.GetOrCreate(url)
	repoPath := s.store.EntryPath(entry)

	// The cache entry is keyed by url alone, so a fresh clone may still be
	// checked out at a different ref. Skip the fetch only when the requested
	// ref is the one on disk.
	if s.store.IsFresh(entry) && ref != "" {
		if _, err := os.Stat(repoPath); err == nil && s.isCheckedOut(ctx, repoPath, ref) {
			slog.Debug("using cached repository", "url", url, "ref", ref, "path", repoPath)

			return repoPath, nil
		}
	}

	// Initialize an empty repository with the url as its sole remote on the
	// first fetch. Fetching into an existing clone reuses its objects.
	if _, err := os.Stat(repoPath); err != nil {
		if err := os.MkdirAll(repoPath, 0o700); err != nil {
			return "", fmt.Errorf("create repo cache dir: %w", err)
		}

		if _, err := execs.Run(ctx, execs.Opts{Dir: repoPath}, "git", "init"); err != nil {
			return "", err
		}

		if _, err := execs.Run(ctx, execs.Opts{Dir: repoPath}, "git", "remote", "add", "origin", url); err != nil {
			return "", err
		}
	}

	if ref == "" {
		head, err := s.remoteHead(ctx, repoPath)
		if err != nil {
			return "", err
		}

		ref = head
	}

	if _, err := execs.Run(ctx, execs.Opts{Dir: repoPath}, "git", "fetch", "origin", ref, "--depth=1"); err != nil {
		return "", err
	}

	if _, err := execs.Run(ctx, execs.Opts{Dir: repoPath}, "git", "checkout", ref); err != nil {
		return "", err
	}

	// A remote-tracking branch may have moved since an earlier fetch; reset
	// to the remote tip. A fixed commit or tag has no upstream and is left
	// alone.
	res, err := execs.Run(ctx, execs.Opts{Dir: repoPath, AllowFailure: true},
		"git", "rev-parse", "--abbrev-ref", "--verify", ref+"@{u}")
	if err != nil {
		return "", err
	}

	if res.OK() {
		if _, err := execs.Run(ctx, execs.Opts{Dir: repoPath}, "git", "reset", "--hard", "origin/"+ref); err != nil {
			return "", err
		}
	}

	s.store.Update(url)

	return repoPath, nil
}

// isCheckedOut reports whether the clone's HEAD resolves to the same commit
// as ref. An unknown ref resolves false, forcing a fetch.
func (s *Source) isCheckedOut(ctx context.Context, repoPath, ref string) bool {
	head, err := execs.Run(ctx, execs.Opts{Dir: repoPath, AllowFailure: true},
		"git", "rev-parse", "--verify", "HEAD^{commit}")
	if err != nil || !head.OK() {
		return false
	}

	want, err := execs.Run(ctx, execs.Opts{Dir: repoPath, AllowFailure: true},
		"git", "rev-parse", "--verify", ref+"^{commit}")
	if err != nil || !want.OK() {
		return false
	}

	return strings.TrimSpace(head.Stdout) == strings.TrimSpace(want.Stdout)
}

// remoteHead queries the remote for its default branch.
func (s *Source) remoteHead(ctx context.Context, repoPath string) (string, error) {
	res, err := execs.Run(ctx, execs.Opts{Dir: repoPath, Expected: "HEAD branch:"},
		"git", "remote", "show", "origin")
	if err != nil {
		return "", err
	}

	return ParseRemoteHead(res.Stdout)
}

// ParseRemoteHead extracts the default branch from `git remote show origin`
// output.
func ParseRemoteHead(output string) (string, error) {
	matches := remoteHeadPattern.FindStringSubmatch(output)
	if matches == nil {
		return "", deckerrors.Executionf("`git remote show origin` did not return a HEAD branch")
	}

	return matches[1], nil
}

// HeadCommit fetches the repository at ref and returns the commit hash it
// resolves to.
func (s *Source) HeadCommit(ctx context.Context, url, ref string) (string, error) {
	repoPath, err := s.FetchRepo(ctx, url, ref)
	if err != nil {
		return "", err
	}

	res, err := execs.Run(ctx, execs.Opts{Dir: repoPath}, "git", "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(res.Stdout), nil
}

// FetchFile fetches the repository and resolves subpath within it, returning
// the local file path. A subpath that escapes the repository directory is
// rejected regardless of whether the file exists.
func (s *Source) FetchFile(ctx context.Context, url, ref, subpath string) (string, error) {
	repoPath, err := s.FetchRepo(ctx, url, ref)
	if err != nil {
		return "", err
	}

	resolved := filepath.Join(repoPath, subpath)
	if resolved != repoPath && !strings.HasPrefix(resolved, repoPath+string(os.PathSeparator)) {
		return "", deckerrors.Definitionf("path %q is not a sub-path of the repository", subpath)
	}

	return resolved, nil
}
