package sparql

import (
	"regexp"
	"strings"
)

var (
	keywordRe   = regexp.MustCompile(`(?i)\b(SELECT|WHERE|PREFIX|OPTIONAL|FILTER|ORDER BY|GROUP BY)\b`)
	semicolonRe = regexp.MustCompile(`;\s+`)
	periodRe    = regexp.MustCompile(`\.\s+`)
	blankLineRe = regexp.MustCompile(`\n\s+\n`)
)

// Format applies a cosmetic layout to a query: keywords start a new line,
// braces open and close indented blocks, and triple separators end lines.
// It is purely textual and does not parse the query.
func Format(query string) string {
	s := keywordRe.ReplaceAllString(query, "\n$1")
	s = strings.ReplaceAll(s, "{", " {\n    ")
	s = strings.ReplaceAll(s, "}", "\n}")
	s = semicolonRe.ReplaceAllString(s, ";\n    ")
	s = periodRe.ReplaceAllString(s, ".\n    ")
	s = blankLineRe.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
