package console

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// EscapeForDisplay neutralizes everything a terminal would treat as
// structure rather than text. C0 controls and DEL become their Unicode
// control pictures, C1 controls and bidirectional overrides become \uXXXX,
// and invalid UTF-8 becomes U+FFFD. Printable text passes through unchanged.
func EscapeForDisplay(s string) string {
	if utf8.ValidString(s) && !strings.ContainsFunc(s, needsEscape) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch {
		case r == utf8.RuneError && size == 1:
			b.WriteRune(utf8.RuneError)
		case r < 0x20:
			b.WriteRune(0x2400 + r)
		case r == 0x7f:
			b.WriteRune('\u2421')
		case needsEscape(r):
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func needsEscape(r rune) bool {
	switch {
	case r < 0x20, r == 0x7f:
		return true
	case r >= 0x80 && r <= 0x9f:
		return true
	case r >= 0x202a && r <= 0x202e, r >= 0x2066 && r <= 0x2069:
		return true
	case r == 0x2028, r == 0x2029:
		return true
	}
	return false
}

// EscapeForTrigger returns s as the body of a double-quoted literal, with
// quotes, backslashes, newlines and other non-printables escaped, so it can
// be embedded in a command such as load "<body>".
func EscapeForTrigger(s string) string {
	q := strconv.Quote(s)
	return q[1 : len(q)-1]
}

// UnescapeTrigger reverses EscapeForTrigger.
func UnescapeTrigger(body string) (string, error) {
	s, err := strconv.Unquote(`"` + body + `"`)
	if err != nil {
		return "", fmt.Errorf("invalid quoted text: %w", err)
	}
	return s, nil
}

// LoadTrigger builds the command that loads query into the editor.
func LoadTrigger(query string) string {
	return `load "` + EscapeForTrigger(query) + `"`
}

// ParseLoadTrigger extracts the query from a command built by LoadTrigger.
func ParseLoadTrigger(cmd string) (string, bool) {
	cmd = strings.TrimSpace(cmd)
	rest, ok := strings.CutPrefix(cmd, "load ")
	if !ok {
		return "", false
	}
	rest = strings.TrimSpace(rest)
	if len(rest) < 2 || rest[0] != '"' || rest[len(rest)-1] != '"' {
		return "", false
	}
	query, err := UnescapeTrigger(rest[1 : len(rest)-1])
	if err != nil {
		return "", false
	}
	return query, true
}
