// Package config manages deckhand settings.
//
// Settings resolve through layered sources: explicit overrides, command line
// flags, `DECKHAND_*` environment variables, the user config file, then
// built-in defaults. The config file also carries manifest aliases, so a
// deployment can be addressed by a short name instead of a path.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/deckhand-sh/deckhand/pkg/deckerrors"
	"github.com/deckhand-sh/deckhand/pkg/lockfile"
)

// Setting keys.
const (
	KeyManifest     = "manifest"
	KeyLockfile     = "lockfile"
	KeyCachePath    = "cache_path"
	KeyCacheEnabled = "cache_enabled"
	KeyCacheAge     = "cache_age"
	KeyDebug        = "debug"
)

// aliasSection is the config file section mapping short names to manifest
// paths. It is not a setting and cannot be set from the environment.
const aliasSection = "manifest_alias"

const (
	envPrefix      = "DECKHAND"
	configFileName = "config"
	configFileType = "yaml"
)

// Keys returns the known setting keys, sorted.
func Keys() []string {
	keys := []string{
		KeyManifest,
		KeyLockfile,
		KeyCachePath,
		KeyCacheEnabled,
		KeyCacheAge,
		KeyDebug,
	}

	sort.Strings(keys)

	return keys
}

func knownKey(key string) bool {
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}

	return false
}

// Settings resolves deckhand settings across their sources.
type Settings struct {
	v         *viper.Viper
	configDir string
}

// Load builds Settings from the environment and the config file in dir. An
// empty dir selects the user config directory. A missing config file is
// fine; invalid content is not.
func Load(dir string) (*Settings, error) {
	if dir == "" {
		userDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("locating user config dir: %w", err)
		}

		dir = filepath.Join(userDir, "deckhand")
	}

	v := viper.New()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(dir)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault(KeyCachePath, defaultCachePath())
	v.SetDefault(KeyCacheEnabled, false)
	v.SetDefault(KeyCacheAge, 60)
	v.SetDefault(KeyDebug, false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, deckerrors.Definitionf("reading config in %s: %v", dir, err)
		}
	}

	return &Settings{v: v, configDir: dir}, nil
}

func defaultCachePath() string {
	userDir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "deckhand-cache")
	}

	return filepath.Join(userDir, "deckhand")
}

// BindFlags layers command line flags over the environment and config file.
// Flag names must match setting keys.
func (s *Settings) BindFlags(flags *pflag.FlagSet) error {
	var err error

	flags.VisitAll(func(flag *pflag.Flag) {
		if !knownKey(flag.Name) {
			return
		}

		if bindErr := s.v.BindPFlag(flag.Name, flag); bindErr != nil && err == nil {
			err = bindErr
		}
	})

	return err
}

// Manifest returns the manifest path, resolving aliases recorded in the
// config file. The deploy argument wins over the configured setting.
func (s *Settings) Manifest(arg string) (string, error) {
	raw := arg
	if raw == "" {
		raw = s.v.GetString(KeyManifest)
	}

	if raw == "" {
		return "", deckerrors.Usagef(
			"no manifest: pass one, set %s, or set %s_MANIFEST", KeyManifest, envPrefix,
		)
	}

	if target := s.v.GetString(aliasSection + "." + raw); target != "" {
		return target, nil
	}

	return raw, nil
}

// Lockfile returns the lockfile path for a manifest, defaulting to the
// conventional filename next to it.
func (s *Settings) Lockfile(manifestPath string) string {
	if path := s.v.GetString(KeyLockfile); path != "" {
		return path
	}

	return filepath.Join(filepath.Dir(manifestPath), lockfile.DefaultFilename)
}

// CachePath returns the git cache directory.
func (s *Settings) CachePath() string {
	return s.v.GetString(KeyCachePath)
}

// CacheEnabled reports whether fetched repositories may be reused without
// checking the remote.
func (s *Settings) CacheEnabled() bool {
	return s.v.GetBool(KeyCacheEnabled)
}

// CacheAge returns how long a cached repository stays fresh.
func (s *Settings) CacheAge() time.Duration {
	return time.Duration(s.v.GetInt(KeyCacheAge)) * time.Second
}

// Debug reports whether debug logging is on.
func (s *Settings) Debug() bool {
	return s.v.GetBool(KeyDebug)
}

// Get returns the resolved value for a setting key.
func (s *Settings) Get(key string) (string, error) {
	if !knownKey(key) {
		return "", deckerrors.Usagef("unknown setting %q (known: %v)", key, Keys())
	}

	return s.v.GetString(key), nil
}

// Set persists a setting to the config file, creating it if needed. An empty
// value removes the setting.
func (s *Settings) Set(key, value string) error {
	if !knownKey(key) {
		return deckerrors.Usagef("unknown setting %q (known: %v)", key, Keys())
	}

	return s.writeConfigEntry(key, value)
}

// SetAlias persists a manifest alias to the config file. An empty target
// removes the alias.
func (s *Settings) SetAlias(name, target string) error {
	return s.writeConfigEntry(aliasSection+"."+name, target)
}

// Aliases returns the configured manifest aliases.
func (s *Settings) Aliases() map[string]string {
	return s.v.GetStringMapString(aliasSection)
}

// writeConfigEntry rewrites the config file with the entry changed, touching
// only values that came from the file itself.
func (s *Settings) writeConfigEntry(key, value string) error {
	stored := viper.New()
	stored.SetConfigName(configFileName)
	stored.SetConfigType(configFileType)
	stored.AddConfigPath(s.configDir)

	if err := stored.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return deckerrors.Definitionf("reading config in %s: %v", s.configDir, err)
		}
	}

	stored.Set(key, value)

	if err := os.MkdirAll(s.configDir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	path := filepath.Join(s.configDir, configFileName+"."+configFileType)
	if err := stored.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Reflect the change in the live settings too.
	s.v.Set(key, value)

	return nil
}
