package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/docqa/progress"
)

const (
	// DefaultWaitDelay bounds how long a canceled child may take to exit
	// after SIGINT before it is killed.
	DefaultWaitDelay = 5 * time.Second

	eventBuffer = 64
)

// Handle controls a child process started by Start.
//
// Progress protocol lines on the child's stdout are delivered on Events as
// soon as each line is complete. Callers must drain Events; the child blocks
// on its stdout once the buffer is full.
type Handle struct {
	id      uuid.UUID
	name    string
	cmd     *exec.Cmd
	ctx     context.Context
	cancel  context.CancelFunc
	events  chan progress.Event
	done    chan struct{}
	started time.Time
	logger  *slog.Logger

	mu       sync.Mutex
	status   Status
	err      error
	canceled bool
	ended    time.Time
}

type config struct {
	dir       string
	env       []string
	stderr    io.Writer
	output    func(string)
	waitDelay time.Duration
	logger    *slog.Logger
}

// Option configures Start.
type Option func(*config)

// WithDir sets the child's working directory.
func WithDir(dir string) Option {
	return func(c *config) { c.dir = dir }
}

// WithEnv appends variables to the child's environment.
func WithEnv(env ...string) Option {
	return func(c *config) { c.env = append(c.env, env...) }
}

// WithStderr sends the child's stderr to w. Default is discarded.
func WithStderr(w io.Writer) Option {
	return func(c *config) { c.stderr = w }
}

// WithOutput receives stdout lines that are not protocol lines.
func WithOutput(fn func(string)) Option {
	return func(c *config) { c.output = fn }
}

// WithWaitDelay overrides DefaultWaitDelay.
func WithWaitDelay(d time.Duration) Option {
	return func(c *config) { c.waitDelay = d }
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Start launches command as a child process. Canceling ctx or calling
// Handle.Cancel interrupts the child with SIGINT.
func Start(ctx context.Context, name, command string, args []string, opts ...Option) (*Handle, error) {
	if command == "" {
		return nil, ErrEmptyCommand
	}

	cfg := &config{
		stderr:    io.Discard,
		waitDelay: DefaultWaitDelay,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = cfg.dir
	if len(cfg.env) > 0 {
		cmd.Env = append(os.Environ(), cfg.env...)
	}
	cmd.Stderr = cfg.stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = cfg.waitDelay

	// Stdout goes through an io.Pipe rather than StdoutPipe so that
	// WaitDelay also bounds grandchildren holding the pipe open.
	stdout, stdoutWriter := io.Pipe()
	cmd.Stdout = stdoutWriter

	id := uuid.New()
	h := &Handle{
		id:     id,
		name:   name,
		cmd:    cmd,
		ctx:    ctx,
		cancel: cancel,
		events: make(chan progress.Event, eventBuffer),
		done:   make(chan struct{}),
		status: StatusRunning,
		logger: cfg.logger.With("component", "task", "task", name, "id", id.String()),
	}

	if err := cmd.Start(); err != nil {
		cancel()
		stdoutWriter.Close()
		return nil, err
	}
	h.started = time.Now()
	h.logger.Info("task started", "command", command, "args", args, "pid", cmd.Process.Pid)

	go h.run(stdout, stdoutWriter, cfg.output)
	return h, nil
}

func (h *Handle) run(stdout *io.PipeReader, stdoutWriter *io.PipeWriter, output func(string)) {
	reporter := progress.ReporterFunc(func(ev progress.Event) {
		h.events <- ev
	})
	if output == nil {
		output = func(line string) {
			h.logger.Debug("task output", "line", line)
		}
	}

	scanned := make(chan error, 1)
	go func() {
		err := progress.Scan(stdout, reporter, output)
		// Keep the copy goroutine from blocking if the scanner stopped early.
		_, _ = io.Copy(io.Discard, stdout)
		scanned <- err
	}()

	waitErr := h.cmd.Wait()
	stdoutWriter.Close()
	scanErr := <-scanned
	interrupted := h.ctx.Err() != nil
	h.cancel()

	h.mu.Lock()
	h.ended = time.Now()
	switch {
	case h.canceled || interrupted:
		h.status = StatusCanceled
		h.err = context.Canceled
	case waitErr != nil:
		h.status = StatusFailed
		h.err = waitErr
	case scanErr != nil && !errors.Is(scanErr, io.ErrClosedPipe):
		h.status = StatusFailed
		h.err = scanErr
	default:
		h.status = StatusSucceeded
	}
	status, err := h.status, h.err
	h.mu.Unlock()

	h.logger.Info("task finished", "status", status.String(), "err", err, "elapsed", h.ended.Sub(h.started))
	close(h.events)
	close(h.done)
}

// ID returns the task's unique identifier.
func (h *Handle) ID() string {
	return h.id.String()
}

// Name returns the name given to Start.
func (h *Handle) Name() string {
	return h.name
}

// Pid returns the child's process ID.
func (h *Handle) Pid() int {
	return h.cmd.Process.Pid
}

// Events delivers parsed progress events. It is closed when the task ends.
func (h *Handle) Events() <-chan progress.Event {
	return h.events
}

// Done is closed when the task ends.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Status returns the current lifecycle state.
func (h *Handle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Err returns why the task failed, context.Canceled if it was canceled, or nil.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Cancel interrupts the child. It does not wait for it to exit.
func (h *Handle) Cancel() error {
	h.mu.Lock()
	if h.status.Finished() {
		h.mu.Unlock()
		return ErrNotRunning
	}
	h.canceled = true
	h.mu.Unlock()

	h.logger.Info("canceling task")
	h.cancel()
	return nil
}

// Wait blocks until the task ends or ctx is done and returns Err.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Elapsed returns how long the task ran, or has been running.
func (h *Handle) Elapsed() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ended.IsZero() {
		return time.Since(h.started)
	}
	return h.ended.Sub(h.started)
}
