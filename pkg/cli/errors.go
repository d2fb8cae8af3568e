package cli

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument marks errors caused by bad command-line input.
var ErrInvalidArgument = errors.New("invalid argument")

// InvalidArgument returns an error wrapping ErrInvalidArgument.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Invalid marks err as caused by bad input. The original error stays
// reachable through errors.Is and errors.As.
func Invalid(err error) error {
	if err == nil || errors.Is(err, ErrInvalidArgument) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
}

// Exit codes.
const (
	ExitOK              = 0
	ExitFailure         = 1
	ExitInvalidArgument = 2
)

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrInvalidArgument):
		return ExitInvalidArgument
	default:
		return ExitFailure
	}
}
