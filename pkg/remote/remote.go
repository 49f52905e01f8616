// Package remote executes deployment operations on a host over SSH.
//
// A [Host] wraps a manifest host definition with command execution, file
// transfer and the conventional remote directory layout. Commands are
// rendered from templates with shell-escaped arguments, so remote paths and
// values never need manual quoting at call sites.
package remote

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"al.essio.dev/pkg/shellescape"

	"github.com/deckhand-sh/deckhand/pkg/deckerrors"
	"github.com/deckhand-sh/deckhand/pkg/execs"
	"github.com/deckhand-sh/deckhand/pkg/manifest"
	"github.com/deckhand-sh/deckhand/pkg/syncs"
)

// Conventional filenames within an app's remote directory.
const (
	// EnvFilename holds the app's merged environment.
	EnvFilename = "env"

	// ComposeFilename is where the app's compose file is pushed.
	ComposeFilename = "docker-compose.yml"

	// AssetsDirname holds pushed asset files.
	AssetsDirname = "assets"

	// RepoDirname holds the clone for repository-backed apps.
	RepoDirname = "repo"
)

// Runner executes a local command. The default runs through [execs.Run];
// tests substitute their own.
type Runner func(ctx context.Context, opts execs.Opts, name string, args ...string) (execs.Result, error)

// Host executes operations on one server.
type Host struct {
	def   *manifest.Host
	run   Runner
	locks *syncs.KeyLock

	mu   sync.Mutex
	made map[string]bool
}

// New wraps a host definition for execution over SSH.
func New(def *manifest.Host) *Host {
	return NewWithRunner(def, execs.Run)
}

// NewWithRunner wraps a host definition with a custom command runner.
func NewWithRunner(def *manifest.Host, run Runner) *Host {
	return &Host{
		def:   def,
		run:   run,
		locks: syncs.NewKeyLock(),
		made:  make(map[string]bool),
	}
}

// Def returns the underlying host definition.
func (h *Host) Def() *manifest.Host {
	return h.def
}

// String renders the host as [user@]name[:port].
func (h *Host) String() string {
	s := h.def.Name
	if h.def.User != "" {
		s = h.def.User + "@" + s
	}

	if h.def.Port != 0 {
		s = s + ":" + strconv.Itoa(h.def.Port)
	}

	return s
}

func (h *Host) target() string {
	if h.def.User != "" {
		return h.def.User + "@" + h.def.Name
	}

	return h.def.Name
}

func (h *Host) sshArgs(extra ...string) []string {
	args := []string{}
	if h.def.Port != 0 {
		args = append(args, "-p", strconv.Itoa(h.def.Port))
	}

	return append(args, extra...)
}

// ComposeCommand returns the command which invokes docker compose on this
// host.
func (h *Host) ComposeCommand() string {
	if h.def.ComposeCommand != "" {
		return h.def.ComposeCommand
	}

	return manifest.DefaultComposeCommand
}

// AppDir returns the remote directory for an app. Relative paths land in the
// connecting user's home directory.
func (h *Host) AppDir(app *manifest.App) string {
	return h.def.AppRemoteDir(app)
}

// ExecOpts adjusts a remote command invocation.
type ExecOpts struct {
	// Cwd changes into the given remote directory first.
	Cwd string

	// Expected is a substring which must appear in stdout.
	Expected string

	// AllowFailure suppresses the error for non-zero exit codes.
	AllowFailure bool
}

var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

// Format renders a command template, substituting `{name}` placeholders with
// shell-escaped argument values. Literal braces are written `{{` and `}}`.
func Format(tmpl string, args map[string]any) (string, error) {
	var missing []string

	escaped := strings.NewReplacer("{{", "\x00", "}}", "\x01").Replace(tmpl)

	rendered := placeholderPattern.ReplaceAllStringFunc(escaped, func(match string) string {
		key := strings.Trim(match, "{}")

		value, ok := args[key]
		if !ok {
			missing = append(missing, key)

			return match
		}

		return shellescape.Quote(fmt.Sprint(value))
	})

	if len(missing) > 0 {
		return "", deckerrors.Executionf(
			"command template %q is missing arguments: %s", tmpl, strings.Join(missing, ", "),
		)
	}

	return strings.NewReplacer("\x00", "{", "\x01", "}").Replace(rendered), nil
}

// Exec runs a command template on the host.
func (h *Host) Exec(
	ctx context.Context, tmpl string, args map[string]any, opts ExecOpts,
) (execs.Result, error) {
	cmd, err := Format(tmpl, args)
	if err != nil {
		return execs.Result{}, err
	}

	if opts.Cwd != "" {
		cmd = "cd " + shellescape.Quote(opts.Cwd) + " && " + cmd
	}

	return h.run(ctx, execs.Opts{
		Expected:     opts.Expected,
		AllowFailure: opts.AllowFailure,
	}, "ssh", h.sshArgs(h.target(), cmd)...)
}

// Exists reports whether a path exists on the host.
func (h *Host) Exists(ctx context.Context, path string) (bool, error) {
	res, err := h.Exec(ctx, "test -e {path}", map[string]any{"path": path}, ExecOpts{
		AllowFailure: true,
	})
	if err != nil {
		return false, err
	}

	return res.OK(), nil
}

// MkDir creates a directory and its parents on the host. Each directory is
// only ever created once per Host, concurrent calls included.
func (h *Host) MkDir(ctx context.Context, dir string) error {
	return h.locks.Do(dir, func() error {
		h.mu.Lock()
		done := h.made[dir]
		h.mu.Unlock()

		if done {
			return nil
		}

		_, err := h.Exec(ctx, "mkdir -p {dir}", map[string]any{"dir": dir}, ExecOpts{})
		if err != nil {
			return err
		}

		h.mu.Lock()
		h.made[dir] = true
		h.mu.Unlock()

		return nil
	})
}

// EnsureParent creates the parent directory of a remote file path.
func (h *Host) EnsureParent(ctx context.Context, path string) error {
	parent := parentDir(path)
	if parent == "" {
		return nil
	}

	return h.MkDir(ctx, parent)
}

func parentDir(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return ""
	}

	return path[:idx]
}

// Push copies a local file to the host.
func (h *Host) Push(ctx context.Context, local, dest string) error {
	if err := h.EnsureParent(ctx, dest); err != nil {
		return err
	}

	_, err := h.run(ctx, execs.Opts{},
		"scp", h.scpArgs(local, h.target()+":"+dest)...)

	return err
}

func (h *Host) scpArgs(extra ...string) []string {
	args := []string{}
	if h.def.Port != 0 {
		args = append(args, "-P", strconv.Itoa(h.def.Port))
	}

	return append(args, extra...)
}

// Write streams content into a remote file.
func (h *Host) Write(ctx context.Context, dest, content string) error {
	if err := h.EnsureParent(ctx, dest); err != nil {
		return err
	}

	cmd := "cat > " + shellescape.Quote(dest)

	_, err := h.run(ctx, execs.Opts{
		Stdin: strings.NewReader(content),
	}, "ssh", h.sshArgs(h.target(), cmd)...)

	return err
}

// CallCompose runs a docker compose command against an app's pushed compose
// and env files.
func (h *Host) CallCompose(
	ctx context.Context, composePath, envPath, cmd string,
) (execs.Result, error) {
	prefix, err := Format(
		h.ComposeCommand()+" --file {compose} --env-file {env} ",
		map[string]any{"compose": composePath, "env": envPath},
	)
	if err != nil {
		return execs.Result{}, err
	}

	// The compose subcommand is passed through unescaped: its arguments were
	// escaped by the caller where they came from outside.
	return h.run(ctx, execs.Opts{}, "ssh", h.sshArgs(h.target(), prefix+cmd)...)
}
