package watcher

import (
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventType classifies a filesystem change.
type EventType string

const (
	Created  EventType = "created"
	Modified EventType = "modified"
	Deleted  EventType = "deleted"
	Moved    EventType = "moved"
)

// Event is a single filesystem change below the watched root.
type Event struct {
	Type EventType
	Path string // absolute
	Time time.Time
}

// opTypes lists fsnotify operations in the order their events are emitted.
// Attribute changes are reported as modifications.
var opTypes = []struct {
	op  fsnotify.Op
	typ EventType
}{
	{fsnotify.Create, Created},
	{fsnotify.Write, Modified},
	{fsnotify.Chmod, Modified},
	{fsnotify.Remove, Deleted},
	{fsnotify.Rename, Moved},
}

// translate turns one raw notification into events, one per operation bit.
func translate(ev fsnotify.Event, now time.Time) []Event {
	var events []Event
	seen := make(map[EventType]bool)
	for _, ot := range opTypes {
		if !ev.Has(ot.op) || seen[ot.typ] {
			continue
		}
		seen[ot.typ] = true
		events = append(events, Event{Type: ot.typ, Path: ev.Name, Time: now})
	}
	return events
}
