package domain

import (
	"strings"
	"unicode"
)

func isEmptyLine(s string) bool {
	return strings.TrimSpace(s) == ""
}

func isCommentLine(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "#")
}

func isConditionalLine(s string) bool {
	t := strings.TrimSpace(s)
	return strings.HasSuffix(t, ":") && (strings.HasPrefix(t, "if") || strings.HasPrefix(t, "else"))
}

func isLoopLine(s string) bool {
	t := strings.TrimSpace(s)
	return strings.HasSuffix(t, ":") && (strings.HasPrefix(t, "for") || strings.HasPrefix(t, "while"))
}

func isBreakLine(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "break")
}

func isReturnLine(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "return")
}

// indentOf counts leading whitespace characters.
func indentOf(s string) int {
	return len(s) - len(strings.TrimLeftFunc(s, unicode.IsSpace))
}

// firstNonWhitespaceCol is the 1-based column of the first non-blank
// character, 0 for blank lines.
func firstNonWhitespaceCol(s string) int {
	i := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) })
	if i < 0 {
		return 0
	}

	return i + 1
}

// lastNonWhitespaceCol is one past the 1-based column of the last
// non-blank character, 0 for blank lines.
func lastNonWhitespaceCol(s string) int {
	i := strings.LastIndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) })
	if i < 0 {
		return 0
	}

	return i + 2
}
