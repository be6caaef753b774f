package progress

import (
	"fmt"
	"strings"
)

// Wire prefixes of the line protocol.
const (
	ProgressPrefix  = "Progress: "
	ErrorPrefix     = "Error: "
	TimestampPrefix = "Index build timestamp: "
)

// Kind identifies what an Event carries.
type Kind int

const (
	KindProgress Kind = iota
	KindError
	KindBuildTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindProgress:
		return "progress"
	case KindError:
		return "error"
	case KindBuildTimestamp:
		return "build-timestamp"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is a single progress notification.
type Event struct {
	Kind      Kind
	Percent   int    // KindProgress: 0-100
	Message   string // KindError
	Timestamp string // KindBuildTimestamp
}

// Progress returns a progress event clamped to 0-100.
func Progress(percent int) Event {
	return Event{Kind: KindProgress, Percent: clamp(percent)}
}

// Failure returns an error event.
func Failure(message string) Event {
	return Event{Kind: KindError, Message: message}
}

// BuildTimestamp returns an event announcing a completed index build.
func BuildTimestamp(timestamp string) Event {
	return Event{Kind: KindBuildTimestamp, Timestamp: timestamp}
}

// String renders the event as a protocol line without the trailing newline.
// Newlines inside messages are flattened so one event is always one line.
func (e Event) String() string {
	switch e.Kind {
	case KindProgress:
		return fmt.Sprintf("%s%d", ProgressPrefix, e.Percent)
	case KindError:
		return ErrorPrefix + flatten(e.Message)
	case KindBuildTimestamp:
		return TimestampPrefix + flatten(e.Timestamp)
	default:
		return ""
	}
}

// Reporter receives progress events.
// Implementations must be safe for concurrent use.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(Event)

// Report calls f(e).
func (f ReporterFunc) Report(e Event) {
	f(e)
}

// Discard is a Reporter that drops every event.
var Discard Reporter = ReporterFunc(func(Event) {})

func clamp(percent int) int {
	return max(0, min(100, percent))
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
