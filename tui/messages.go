package tui

import (
	"context"

	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/progress"
	"github.com/poiesic/docqa/qa"
	"github.com/poiesic/docqa/task"

	tea "github.com/charmbracelet/bubbletea"
)

type taskKind int

const (
	ingestTask taskKind = iota
	watchTask
)

func (k taskKind) String() string {
	if k == watchTask {
		return "tracking"
	}
	return "indexing"
}

type taskStartedMsg struct {
	kind   taskKind
	handle *task.Handle
	dir    string
}

type taskStartFailedMsg struct {
	kind taskKind
	err  error
}

type taskEventMsg struct {
	kind   taskKind
	handle *task.Handle
	event  progress.Event
}

type taskExitedMsg struct {
	kind   taskKind
	handle *task.Handle
	status task.Status
	err    error
}

type answerMsg struct {
	query    string
	answer   *qa.Answer
	manifest *core.Manifest
	err      error
}

func startIngest(ctx context.Context, start func(context.Context) (*task.Handle, error)) tea.Cmd {
	return func() tea.Msg {
		h, err := start(ctx)
		if err != nil {
			return taskStartFailedMsg{kind: ingestTask, err: err}
		}
		return taskStartedMsg{kind: ingestTask, handle: h}
	}
}

func startWatch(ctx context.Context, start func(context.Context, string) (*task.Handle, error), dir string) tea.Cmd {
	return func() tea.Msg {
		h, err := start(ctx, dir)
		if err != nil {
			return taskStartFailedMsg{kind: watchTask, err: err}
		}
		return taskStartedMsg{kind: watchTask, handle: h, dir: dir}
	}
}

// waitForTask delivers the next event of h, or its exit once the event
// stream is closed. It is reissued after every event so the child's
// stdout is always drained.
func waitForTask(kind taskKind, h *task.Handle) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-h.Events()
		if ok {
			return taskEventMsg{kind: kind, handle: h, event: ev}
		}
		<-h.Done()
		return taskExitedMsg{kind: kind, handle: h, status: h.Status(), err: h.Err()}
	}
}

func ask(ctx context.Context, fn AskFunc, query string) tea.Cmd {
	return func() tea.Msg {
		answer, manifest, err := fn(ctx, query)
		return answerMsg{query: query, answer: answer, manifest: manifest, err: err}
	}
}
