// Package formatter turns generated summary text into display paragraphs.
package formatter

import (
	"regexp"
	"strings"

	"github.com/thoas/go-funk"
)

// blankLines matches a paragraph break: a newline followed by at least one
// line that holds nothing but whitespace.
var blankLines = regexp.MustCompile(`\r?\n[ \t]*(?:\r?\n[ \t]*)+`)

// Paragraphs splits text on blank-line boundaries. Paragraphs are trimmed
// and empty ones are dropped, so leading or trailing blank lines never
// produce empty entries. The result is nil for blank input.
func Paragraphs(text string) []string {
	parts := blankLines.Split(text, -1)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	result := funk.FilterString(parts, func(paragraph string) bool {
		return paragraph != ""
	})
	if len(result) == 0 {
		return nil
	}

	return result
}
