package diagnostics

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const errorPrefix = "error:"

// ErrMalformedLine reports an `error:` line that does not follow
// `error:<file>|<line>-<col>|<message>`.
var ErrMalformedLine = errors.New("malformed compiler error line")

// ParseStreamLine parses one line of persistent-compiler stderr. ok is false
// for informational lines, which carry no diagnostic. A line that starts with
// the error prefix but cannot be split returns ErrMalformedLine.
func ParseStreamLine(line string) (ce CompilerError, ok bool, err error) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, errorPrefix) {
		return CompilerError{}, false, nil
	}
	rest := line[len(errorPrefix):]

	sep1 := strings.IndexByte(rest, '|')
	if sep1 < 0 {
		return CompilerError{}, false, malformed(line, "missing file separator")
	}
	// The line number may carry a sign, so the dash search starts one byte
	// past its first character.
	numStart := sep1 + 1
	if numStart+1 > len(rest) {
		return CompilerError{}, false, malformed(line, "missing position")
	}
	dash := strings.IndexByte(rest[numStart+1:], '-')
	if dash < 0 {
		return CompilerError{}, false, malformed(line, "missing column separator")
	}
	dash += numStart + 1
	sep2 := strings.IndexByte(rest[dash:], '|')
	if sep2 < 0 {
		return CompilerError{}, false, malformed(line, "missing message separator")
	}
	sep2 += dash

	lineNo, convErr := strconv.Atoi(strings.TrimSpace(rest[numStart:dash]))
	if convErr != nil {
		return CompilerError{}, false, malformed(line, "bad line number")
	}
	col, convErr := strconv.Atoi(strings.TrimSpace(rest[dash+1 : sep2]))
	if convErr != nil {
		return CompilerError{}, false, malformed(line, "bad column number")
	}
	file := rest[:sep1]
	if file == "" {
		return CompilerError{}, false, malformed(line, "empty file")
	}
	return CompilerError{
		File:    file,
		Line:    lineNo,
		Column:  col,
		Message: rest[sep2+1:],
	}, true, nil
}

func malformed(line, reason string) error {
	return fmt.Errorf("%w: %s: %q", ErrMalformedLine, reason, line)
}
