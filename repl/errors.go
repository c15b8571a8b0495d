package repl

import "errors"

var (
	// ErrNotConnected indicates an operation attempted before Connect or
	// after Disconnect.
	ErrNotConnected = errors.New("repl: session not connected")

	// ErrAlreadyConnected indicates Connect on a session that is not in the
	// Disconnected state.
	ErrAlreadyConnected = errors.New("repl: session already connected")

	// ErrBusy indicates that a command is already in flight. The engine does
	// not queue requests; callers serialize higher-level operations.
	ErrBusy = errors.New("repl: command already in flight")

	// ErrCommandTimeout indicates that the idle prompt was not observed
	// before the command deadline. The session is Faulted afterwards and
	// requires Reset before it accepts further commands.
	ErrCommandTimeout = errors.New("repl: command timeout waiting for prompt")

	// ErrChannel indicates a transport-level failure. It is always fatal to
	// the session.
	ErrChannel = errors.New("repl: channel failure")

	// ErrFaulted indicates an operation on a session that timed out or lost
	// synchronization and has not been Reset yet.
	ErrFaulted = errors.New("repl: session faulted, reset required")

	// ErrAborted indicates a pending command that was discarded by Reset or
	// Disconnect before it completed.
	ErrAborted = errors.New("repl: command aborted")
)
