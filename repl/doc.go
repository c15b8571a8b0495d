// Package repl implements the session engine that turns a raw duplex byte
// stream ending in an interactive MicroPython prompt into a request/response
// API with correlation, timeouts, and recovery.
//
// The underlying console protocol offers no framing, no error codes, and no
// concurrency control: the only completion signal is the literal idle-prompt
// string the interpreter prints when it is ready for input. The engine infers
// command boundaries from that marker, serializes all traffic into a strict
// one-at-a-time request/response cycle, and resynchronizes with a device that
// is out of sync by sending interrupt bytes until the prompt returns.
//
// # Session lifecycle
//
// Connect brings a session to Ready. Each command moves it to Busy and back
// to Ready on completion, until Disconnect. At most one command is ever in
// flight; issuing a second command while one is pending fails fast with
// ErrBusy instead of queuing. A command that never sees the prompt before its
// deadline fails with ErrCommandTimeout and faults the session; Reset
// restores it to Ready. Transport failures are always fatal to the session.
//
// # Wire protocol
//
// Three facts of the wire are the entire protocol: a single interrupt byte
// (0x03) aborts running code, a line terminator ("\r\n") submits a command,
// and the idle prompt (">>> ") marks completion.
package repl
