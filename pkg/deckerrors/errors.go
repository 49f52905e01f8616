package deckerrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDefinition indicates the manifest or its base chain is structurally
	// invalid. Never retried; surfaced to the user.
	ErrDefinition = errors.New("definition error")

	// ErrUsage indicates the invocation is invalid given the current state.
	ErrUsage = errors.New("usage error")

	// ErrExecution indicates a runtime action failed outside of definition or
	// usage validity.
	ErrExecution = errors.New("execution error")

	// ErrLock indicates a lockfile violation.
	ErrLock = fmt.Errorf("%w: lock violation", ErrExecution)
)

// Definitionf returns an error wrapping [ErrDefinition] with a formatted
// message. Match with errors.Is(err, deckerrors.ErrDefinition).
func Definitionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDefinition, fmt.Sprintf(format, args...))
}

// Usagef returns an error wrapping [ErrUsage] with a formatted message.
func Usagef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

// Executionf returns an error wrapping [ErrExecution] with a formatted
// message.
func Executionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrExecution, fmt.Sprintf(format, args...))
}

// CommandError reports a failed shell invocation. It carries the command, the
// working directory, and the captured output for diagnostics. Commands are
// never retried automatically.
type CommandError struct {
	Cause  error
	Args   string
	Dir    string
	Stdout string
	Stderr string
}

// NewCommandError creates a new [CommandError].
func NewCommandError(args, dir, stdout, stderr string, cause error) *CommandError {
	return &CommandError{
		Args:   args,
		Dir:    dir,
		Stdout: stdout,
		Stderr: stderr,
		Cause:  cause,
	}
}

func (ce *CommandError) Error() string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "`%s` failed", ce.Args)

	if ce.Cause != nil {
		fmt.Fprintf(sb, ": %v", ce.Cause)
	}

	if ce.Dir != "" {
		fmt.Fprintf(sb, "\n  dir=%s", ce.Dir)
	}

	if stderr := strings.TrimSpace(ce.Stderr); stderr != "" {
		fmt.Fprintf(sb, "\n  stderr=%s", stderr)
	}

	return sb.String()
}

func (ce *CommandError) Unwrap() error {
	return ce.Cause
}
