package repl

import (
	"bytes"
	"strings"
)

// responseBuffer accumulates raw incoming bytes between command issue and
// prompt detection.
//
// It is not safe for concurrent use; the session mutex guards every access.
// The invariant is that the buffer is cleared exactly when a new command is
// sent and when the prompt marker is matched and consumed, so stale output
// can never resolve a later command.
type responseBuffer struct {
	buf bytes.Buffer
}

func (rb *responseBuffer) write(p []byte) {
	rb.buf.Write(p)
}

func (rb *responseBuffer) len() int {
	return rb.buf.Len()
}

func (rb *responseBuffer) reset() {
	rb.buf.Reset()
}

// splitAtMarker looks for the first occurrence of marker in the accumulated
// bytes. On a match it returns the text preceding the marker and the number
// of bytes that follow it (output fenced off after the prompt, belonging to
// no command), and reports ok.
//
// The buffer itself is left untouched; the caller resets it after consuming
// the front.
func (rb *responseBuffer) splitAtMarker(marker string) (front string, trailing int, ok bool) {
	idx := strings.Index(rb.buf.String(), marker)
	if idx < 0 {
		return "", 0, false
	}

	data := rb.buf.String()
	front = data[:idx]
	trailing = len(data) - idx - len(marker)

	return front, trailing, true
}
