package device

import (
	"regexp"
	"strings"
)

// unameFieldRe matches key='value' pairs inside an os.uname() descriptor.
var unameFieldRe = regexp.MustCompile(`(\w+)='([^']*)'`)

// parsePyList extracts the string elements of a printed Python list such as
// ['main.py', 'lib']. Quoting is respected so names containing commas or
// brackets survive. Non-string elements are ignored.
func parsePyList(text string) []string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "[") || !strings.HasSuffix(text, "]") {
		return nil
	}

	body := text[1 : len(text)-1]
	var (
		items   []string
		sb      strings.Builder
		quote   byte
		inQuote bool
	)

	for i := 0; i < len(body); i++ {
		ch := body[i]
		switch {
		case inQuote:
			if ch == '\\' && i+1 < len(body) {
				i++
				sb.WriteByte(body[i])
				continue
			}
			if ch == quote {
				inQuote = false
				items = append(items, sb.String())
				sb.Reset()
				continue
			}
			sb.WriteByte(ch)
		case ch == '\'' || ch == '"':
			inQuote = true
			quote = ch
		}
	}

	return items
}

// parseUname pulls named fields out of an os.uname() line, e.g.
//
//	(sysname='esp32', nodename='esp32', release='1.22.0', version='v1.22.0 on 2023-12-27', machine='ESP32 module with ESP32')
func parseUname(text string) map[string]string {
	fields := make(map[string]string)
	for _, m := range unameFieldRe.FindAllStringSubmatch(text, -1) {
		fields[m[1]] = m[2]
	}

	return fields
}

// formatMAC renders a bare hex MAC as colon-separated octet pairs.
// Inputs that are not an even-length hex string pass through unchanged.
func formatMAC(raw string) string {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if len(raw) == 0 || len(raw)%2 != 0 {
		return raw
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return raw
		}
	}

	pairs := make([]string, 0, len(raw)/2)
	for i := 0; i < len(raw); i += 2 {
		pairs = append(pairs, raw[i:i+2])
	}

	return strings.Join(pairs, ":")
}
