package repl

import "strings"

// EncodeCommand builds the single-line wire form of a command.
//
// A single-line command is sent verbatim. A multi-line command is never sent
// as raw multi-line text: the interpreter would enter its continuation mode,
// which is indistinguishable from normal execution to the prompt detector.
// Instead the text is escaped and wrapped in a one-line exec("...") statement
// so the response still completes with exactly one idle prompt.
func EncodeCommand(text string) string {
	if !strings.ContainsAny(text, "\r\n") {
		return text
	}

	return `exec("` + escapePyString(text) + `")`
}

// escapePyString escapes text for embedding in a double-quoted Python string
// literal on a single line.
func escapePyString(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)

	for i := 0; i < len(text); i++ {
		switch c := text[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

// CleanOutput extracts the device's printed output from the raw capture
// between command issue and the idle prompt.
//
// It drops the echo of the issued command and residual prompt fragments,
// joins the remaining lines, and trims surrounding whitespace.
//
// Known limitation: the echo check is textual, so a legitimate output line
// that happens to equal the issued command text is dropped as well.
func CleanOutput(raw, command, marker string) string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	wireCommand := strings.TrimSpace(command)
	bareMarker := strings.TrimSpace(marker)

	lines := strings.Split(normalized, "\n")
	kept := lines[:0]

	for _, line := range lines {
		// Strip interior prompt fragments; a slow device can interleave
		// them with output when commands are issued back to back.
		for strings.HasPrefix(line, marker) {
			line = line[len(marker):]
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == bareMarker {
			continue
		}
		if trimmed == wireCommand && wireCommand != "" {
			continue
		}

		kept = append(kept, line)
	}

	return strings.TrimSpace(strings.Join(kept, "\n"))
}
