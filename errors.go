package chapterdeck

import (
	"bytes"
	"fmt"
	"strings"
)

// contextRadius is how many source lines are shown on each side of the
// failing line.
const contextRadius = 2

// ParseError reports why an article could not be split into chapters.
// Error returns a single "file:line: message" line; Format renders the
// multi-line report printed by the validate command.
type ParseError struct {
	File    string
	Line    int // 1-indexed, counted in the original file
	Message string
	Hint    string
	Related string // e.g. "first declared at line 5"
	Err     error  // underlying cause, if any

	source [][]byte
}

// NewParseError creates a ParseError at line of file.
func NewParseError(file string, line int, message string) *ParseError {
	return &ParseError{File: file, Line: line, Message: message}
}

// WithHint sets the suggestion shown below the source excerpt.
func (e *ParseError) WithHint(hint string) *ParseError {
	e.Hint = hint
	return e
}

// WithRelated points at another location involved in the failure.
func (e *ParseError) WithRelated(related string) *ParseError {
	e.Related = related
	return e
}

// WithCause records the error that triggered this one.
func (e *ParseError) WithCause(err error) *ParseError {
	e.Err = err
	return e
}

// WithSource keeps the article text so Format can quote it.
func (e *ParseError) WithSource(content []byte) *ParseError {
	content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	e.source = bytes.Split(content, []byte("\n"))
	return e
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Format renders the full report: location, message, quoted source, hint
// and related location.
func (e *ParseError) Format() string {
	var b strings.Builder

	fmt.Fprintf(&b, "❌ Error in %s\n\n", e.File)
	fmt.Fprintf(&b, "Line %d: %s\n", e.Line, e.Message)

	if excerpt := e.excerpt(); excerpt != "" {
		b.WriteString("\n")
		b.WriteString(excerpt)
	}
	if e.Hint != "" {
		fmt.Fprintf(&b, "\n💡 Tip: %s\n", e.Hint)
	}
	if e.Related != "" {
		fmt.Fprintf(&b, "\n🔗 %s\n", e.Related)
	}

	return b.String()
}

func (e *ParseError) excerpt() string {
	if e.Line < 1 || e.Line > len(e.source) {
		return ""
	}

	var b strings.Builder
	from := max(1, e.Line-contextRadius)
	to := min(len(e.source), e.Line+contextRadius)
	for n := from; n <= to; n++ {
		marker := "  "
		if n == e.Line {
			marker = "> "
		}
		fmt.Fprintf(&b, "%s%2d | %s\n", marker, n, e.source[n-1])
	}
	return b.String()
}
