// Package cachestore persists fetch timestamps for cached git repositories.
//
// The on-disk state is a single JSON table mapping source URLs to cache
// entries. All updates are funneled through one background writer goroutine,
// so at most one writer ever touches the state file within a process.
package cachestore

import (
	"crypto/md5" //nolint:gosec // Cache keys are not security sensitive.
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// StateFile is the filename of the cache state table within the cache root.
const StateFile = "state.json"

// Entry records when a source URL was last fetched into the cache.
type Entry struct {
	URL       string `json:"url"`
	Timestamp int64  `json:"timestamp"`
}

// DirName returns the cache directory name for the entry, derived from a
// stable hash of the source URL.
func (e *Entry) DirName() string {
	sum := md5.Sum([]byte(e.URL)) //nolint:gosec // Stable key, not a credential.

	return hex.EncodeToString(sum[:])
}

// Age returns the time elapsed since the entry was last fetched.
func (e *Entry) Age() time.Duration {
	return time.Since(time.Unix(e.Timestamp, 0))
}

// Store is a persisted url -> [Entry] table with a TTL freshness check.
// Create instances with [Load]; the background writer starts immediately, so
// Load must be called before any concurrent fetches begin.
type Store struct {
	entries map[string]*Entry
	updates chan string
	done    chan struct{}
	root    string
	maxAge  time.Duration
	enabled bool
	mu      sync.RWMutex
}

// Load reads the cache state from root and starts the background writer.
// A missing state file is not an error; the store starts empty.
func Load(root string, enabled bool, maxAge time.Duration) (*Store, error) {
	statePath := filepath.Join(root, StateFile)

	entries := map[string]*Entry{}

	data, err := os.ReadFile(statePath)

	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Debug("no cache state found", "path", statePath)
	case err != nil:
		return nil, fmt.Errorf("read cache state: %w", err)
	default:
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parse cache state %s: %w", statePath, err)
		}
	}

	s := &Store{
		root:    root,
		enabled: enabled,
		maxAge:  maxAge,
		entries: entries,
		updates: make(chan string, 16),
		done:    make(chan struct{}),
	}

	go s.handleUpdates()

	return s, nil
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

// EntryPath returns the cache directory for the given entry.
func (s *Store) EntryPath(e *Entry) string {
	return filepath.Join(s.root, e.DirName())
}

// GetOrCreate returns the existing entry for the URL, or a zero-timestamp
// placeholder. The placeholder is not persisted until [Store.Update] is
// called for the same URL.
func (s *Store) GetOrCreate(url string) *Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.entries[url]; ok {
		return e
	}

	return &Entry{URL: url}
}

// IsFresh reports whether the entry can be used without re-fetching:
// caching must be enabled, the max age positive, and the entry younger than
// the max age.
func (s *Store) IsFresh(e *Entry) bool {
	fresh := s.enabled &&
		s.maxAge > 0 &&
		e.Timestamp != 0 &&
		e.Age() < s.maxAge

	slog.Debug("cache check",
		"enabled", s.enabled,
		"url", e.URL,
		"path", s.EntryPath(e),
		"age", e.Age(),
		"hit", fresh,
	)

	return fresh
}

// Update enqueues a timestamp refresh for the URL. The background writer
// applies updates in FIFO order, persisting the full table after each one.
func (s *Store) Update(url string) {
	s.updates <- url
}

// Close stops the background writer after draining pending updates.
func (s *Store) Close() {
	close(s.updates)
	<-s.done
}

// Clear removes all cached repositories and the state table.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for url, e := range s.entries {
		if err := os.RemoveAll(filepath.Join(s.root, e.DirName())); err != nil {
			return fmt.Errorf("clear cache for %s: %w", url, err)
		}
	}

	s.entries = map[string]*Entry{}

	if err := os.Remove(filepath.Join(s.root, StateFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove cache state: %w", err)
	}

	return nil
}

func (s *Store) handleUpdates() {
	defer close(s.done)

	for url := range s.updates {
		s.mu.Lock()

		e, ok := s.entries[url]
		if !ok {
			e = &Entry{URL: url}
			s.entries[url] = e
		}

		e.Timestamp = time.Now().Unix()

		err := s.save()

		s.mu.Unlock()

		if err != nil {
			slog.Error("failed to save cache state", "err", err)
		}
	}
}

// save must be called with s.mu held.
func (s *Store) save() error {
	if err := os.MkdirAll(s.root, 0o700); err != nil {
		return fmt.Errorf("create cache root: %w", err)
	}

	data, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("marshal cache state: %w", err)
	}

	if err := os.WriteFile(filepath.Join(s.root, StateFile), data, 0o600); err != nil {
		return fmt.Errorf("write cache state: %w", err)
	}

	slog.Debug("cache state saved")

	return nil
}
