// Package execs runs external commands and captures their output.
//
// It wraps os/exec with logging and error translation, so that callers get a
// [deckerrors.CommandError] carrying the command, working directory and
// captured output whenever an invocation fails.
package execs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deckhand-sh/deckhand/pkg/deckerrors"
)

// Opts configures a single command invocation.
type Opts struct {
	// Stdin is fed to the command's standard input when set.
	Stdin io.Reader

	// Dir is the working directory for the command.
	Dir string

	// Expected is a substring which must appear in stdout. If it is absent the
	// invocation fails even when the exit code is zero.
	Expected string

	// AllowFailure suppresses the error for non-zero exit codes. The caller
	// inspects [Result.ExitCode] instead.
	AllowFailure bool
}

// Result holds the captured output of a completed command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// OK returns true if the command exited with code zero.
func (r Result) OK() bool {
	return r.ExitCode == 0
}

// Run executes the named command and returns its captured output.
//
// On a non-zero exit code (unless [Opts.AllowFailure] is set), or when
// [Opts.Expected] is missing from stdout, it returns a
// [deckerrors.CommandError].
func Run(ctx context.Context, opts Opts, name string, args ...string) (Result, error) {
	execID := uuid.NewString()[:8]
	logCtx := slog.With("execID", execID)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = opts.Dir
	cmd.Stdin = opts.Stdin

	// Log in a way we can copy-and-paste into a terminal.
	argStr := strings.Join(cmd.Args, " ")
	logCtx.Debug(argStr, "dir", opts.Dir)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	res := Result{
		Stdout: strings.TrimSuffix(stdout.String(), "\n"),
		Stderr: stderr.String(),
	}

	logCtx.Debug("command complete", "duration", time.Since(start))

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			if opts.AllowFailure {
				return res, nil
			}
		}

		cmdErr := deckerrors.NewCommandError(argStr, opts.Dir, res.Stdout, res.Stderr, err)
		logCtx.Error(cmdErr.Error())

		return res, cmdErr
	}

	if opts.Expected != "" && !strings.Contains(res.Stdout, opts.Expected) {
		cmdErr := deckerrors.NewCommandError(argStr, opts.Dir, res.Stdout, res.Stderr,
			errors.New("command returned unexpected output"))
		logCtx.Error(cmdErr.Error())

		return res, cmdErr
	}

	return res, nil
}
