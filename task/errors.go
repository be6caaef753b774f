package task

import "errors"

var (
	// ErrEmptyCommand is returned when Start is given no command.
	ErrEmptyCommand = errors.New("command required")

	// ErrNotRunning is returned when canceling a task that already finished.
	ErrNotRunning = errors.New("task is not running")
)
