package domain

import (
	"regexp"
	"strconv"
	"strings"

	m "github.com/mouse-blink/pbox/internal/model"
)

var tracebackLine = regexp.MustCompile(`line ([0-9]*)`)

// caretIndent is the extra indentation Python puts before the code line
// and caret of a syntax error.
const caretIndent = 4

// ErrorDecoration turns the tail of a Python traceback into an error
// decoration. Runtime errors mark the whole statement; syntax errors mark
// the caret position widened by one column on each side. It reports false
// when the traceback does not have either shape.
//
//	File "<string>", line 4, in mean_average
//	TypeError: list indices must be integers or slices, not float
//
//	File "<unknown>", line 4
//	    median = a[int(mid ]
//	                       ^
//	SyntaxError: invalid syntax
func ErrorDecoration(stderr string, lines []string) (m.Decoration, bool) {
	errLines := strings.Split(strings.TrimSuffix(stderr, "\n"), "\n")

	pop := func() (string, bool) {
		if len(errLines) == 0 {
			return "", false
		}

		last := errLines[len(errLines)-1]
		errLines = errLines[:len(errLines)-1]

		return last, true
	}

	description, ok := pop()
	if !ok || description == "" {
		return m.Decoration{}, false
	}

	marker, ok := pop()
	if !ok {
		return m.Decoration{}, false
	}

	lineText := func(n int) (string, bool) {
		if n < 1 || n > len(lines) {
			return "", false
		}

		return lines[n-1], true
	}

	var line, colStart, colEnd int

	if match := tracebackLine.FindStringSubmatch(marker); match != nil {
		line, _ = strconv.Atoi(match[1])

		text, ok := lineText(line)
		if !ok {
			return m.Decoration{}, false
		}

		colStart = firstNonWhitespaceCol(text)
		colEnd = lastNonWhitespaceCol(text)
	} else {
		caret := strings.IndexByte(marker, '^')
		if caret < 0 {
			return m.Decoration{}, false
		}

		caret -= caretIndent

		// the code line above the caret
		pop()

		marker, ok = pop()
		if !ok {
			return m.Decoration{}, false
		}

		match := tracebackLine.FindStringSubmatch(marker)
		if match == nil {
			return m.Decoration{}, false
		}

		line, _ = strconv.Atoi(match[1])

		text, ok := lineText(line)
		if !ok {
			return m.Decoration{}, false
		}

		colStart = max(firstNonWhitespaceCol(text)+caret, 1)
		colEnd = colStart + 1
		colStart--
		colEnd++
	}

	return m.Decoration{
		Range: m.Range{
			Start: m.Position{Line: line, Column: colStart},
			End:   m.Position{Line: line, Column: colEnd},
		},
		ClassName: m.DecorationError,
		Message:   description,
	}, true
}
