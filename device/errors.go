package device

import "errors"

var (
	// ErrFileNotFound indicates the remote path does not exist.
	ErrFileNotFound = errors.New("device: file not found")

	// ErrRemote indicates executed code raised on the device.
	ErrRemote = errors.New("device: remote execution failed")
)
