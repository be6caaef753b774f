package progress

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// maxLineSize bounds a single protocol line.
const maxLineSize = 1 << 20

// ParseLine decodes one protocol line. The space after each prefix's colon
// is optional and values are trimmed. Lines that carry none of the three
// prefixes, or a progress value that is not an integer, return false.
func ParseLine(line string) (Event, bool) {
	line = strings.TrimRight(line, "\r\n")

	if value, ok := field(line, ProgressPrefix); ok {
		percent, err := strconv.Atoi(value)
		if err != nil {
			return Event{}, false
		}
		return Progress(percent), true
	}
	if value, ok := field(line, ErrorPrefix); ok {
		return Failure(value), true
	}
	if value, ok := field(line, TimestampPrefix); ok {
		return BuildTimestamp(value), true
	}
	return Event{}, false
}

// field matches prefix up to and including its colon.
func field(line, prefix string) (string, bool) {
	value, ok := strings.CutPrefix(line, strings.TrimRight(prefix, " "))
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

// Scan reads r line by line and reports every protocol event as soon as its
// line is complete. Other lines are passed to other when it is non-nil.
// Scan returns when r is exhausted.
func Scan(r io.Reader, reporter Reporter, other func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Text()
		if ev, ok := ParseLine(line); ok {
			reporter.Report(ev)
		} else if other != nil {
			other(line)
		}
	}
	return scanner.Err()
}
