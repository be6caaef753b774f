package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/poiesic/docqa/core"
	events "github.com/poiesic/docqa/progress"
	"github.com/poiesic/docqa/qa"
	"github.com/poiesic/docqa/task"
)

// AskFunc answers a question. The manifest, when non-nil, describes the
// index the answer was drawn from.
type AskFunc func(ctx context.Context, query string) (*qa.Answer, *core.Manifest, error)

// Config wires the shell to the processes and services it drives.
type Config struct {
	// StartIngest launches an index build.
	StartIngest func(ctx context.Context) (*task.Handle, error)
	// StartWatch launches tracking of dir.
	StartWatch func(ctx context.Context, dir string) (*task.Handle, error)
	// Ask answers queries.
	Ask AskFunc
	// TrackDir pre-fills the tracking input.
	TrackDir string
	// BuildTimestamp is the last known build, if any.
	BuildTimestamp string
	Logger         *slog.Logger
}

type focus int

const (
	focusQuery focus = iota
	focusTrack
)

const (
	headerLines = 4
	footerLines = 8
)

// Model is the Bubble Tea model for the shell.
type Model struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	query    textinput.Model
	track    textinput.Model
	focus    focus
	bar      progress.Model
	spinner  spinner.Model
	viewport viewport.Model

	ingest     *task.Handle
	starting   bool // ingest start issued, handle not yet received
	watch      *task.Handle
	trackedDir string
	percent    int
	asking     bool

	lastBuild  string
	banner     string
	notice     string
	transcript []string
	width      int
	ready      bool
}

// New creates a shell model. Child processes are bound to ctx; canceling
// it or quitting the shell interrupts them.
func New(ctx context.Context, cfg Config) Model {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)

	q := textinput.New()
	q.Prompt = "You: "
	q.Placeholder = "Ask a question and press Enter"
	q.CharLimit = 0
	q.Focus()

	tr := textinput.New()
	tr.Prompt = "Track: "
	tr.Placeholder = "Directory to track"
	tr.CharLimit = 0
	tr.SetValue(cfg.TrackDir)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
		logger:    cfg.Logger.With("component", "shell"),
		query:     q,
		track:     tr,
		bar:       progress.New(progress.WithDefaultGradient()),
		spinner:   sp,
		viewport:  viewport.New(0, 0),
		lastBuild: cfg.BuildTimestamp,
	}
}

// Init starts the cursor blink and spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Update handles key, window, task and answer messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		_, th := transcriptStyle.GetFrameSize()
		m.viewport.Width = max(20, msg.Width-4)
		m.viewport.Height = max(3, msg.Height-headerLines-footerLines-th)
		m.bar.Width = max(10, min(60, msg.Width-10))
		m.query.Width = max(10, msg.Width-12)
		m.track.Width = max(10, msg.Width-14)
		m.refreshTranscript()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case taskStartedMsg:
		return m.handleStarted(msg)

	case taskStartFailedMsg:
		if msg.kind == ingestTask {
			m.starting = false
		}
		m.logger.Error("failed to start task", "task", msg.kind, "err", msg.err)
		m.banner = fmt.Sprintf("Could not start %s: %v", msg.kind, msg.err)
		return m, nil

	case taskEventMsg:
		m.handleEvent(msg)
		return m, waitForTask(msg.kind, msg.handle)

	case taskExitedMsg:
		m.handleExited(msg)
		return m, nil

	case answerMsg:
		m.handleAnswer(msg)
		return m, nil
	}

	return m.updateFocused(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyCtrlD:
		m.cancel()
		return m, tea.Quit
	case tea.KeyTab, tea.KeyShiftTab:
		m.toggleFocus()
		return m, nil
	case tea.KeyCtrlB:
		if m.starting || m.building() {
			m.notice = "Index build already running."
			return m, nil
		}
		m.banner, m.notice = "", "Index creation started."
		m.percent = 0
		m.starting = true
		return m, startIngest(m.ctx, m.cfg.StartIngest)
	case tea.KeyCtrlX:
		if !m.building() {
			return m, nil
		}
		if err := m.ingest.Cancel(); err != nil && !errors.Is(err, task.ErrNotRunning) {
			m.banner = fmt.Sprintf("Could not cancel index build: %v", err)
		}
		return m, nil
	case tea.KeyEnter:
		if m.focus == focusTrack {
			return m.submitTrack()
		}
		return m.submitQuery()
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m.updateFocused(msg)
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.focus == focusTrack {
		m.track, cmd = m.track.Update(msg)
	} else {
		m.query, cmd = m.query.Update(msg)
	}
	return m, cmd
}

func (m *Model) toggleFocus() {
	if m.focus == focusQuery {
		m.focus = focusTrack
		m.query.Blur()
		m.track.Focus()
		return
	}
	m.focus = focusQuery
	m.track.Blur()
	m.query.Focus()
}

func (m Model) submitQuery() (tea.Model, tea.Cmd) {
	q := strings.TrimSpace(m.query.Value())
	if q == "" || m.asking {
		return m, nil
	}
	m.asking = true
	m.banner = ""
	m.query.SetValue("")
	m.appendTranscript("You: " + q)
	return m, ask(m.ctx, m.cfg.Ask, q)
}

func (m Model) submitTrack() (tea.Model, tea.Cmd) {
	dir := strings.TrimSpace(m.track.Value())
	if dir == "" {
		m.banner = "Enter a directory to track."
		return m, nil
	}
	if m.watch != nil && !m.watch.Status().Finished() {
		if err := m.watch.Cancel(); err != nil && !errors.Is(err, task.ErrNotRunning) {
			m.logger.Warn("failed to stop tracking", "dir", m.trackedDir, "err", err)
		}
	}
	m.banner = ""
	return m, startWatch(m.ctx, m.cfg.StartWatch, dir)
}

func (m Model) handleStarted(msg taskStartedMsg) (tea.Model, tea.Cmd) {
	m.logger.Info("task started", "task", msg.kind, "id", msg.handle.ID(), "pid", msg.handle.Pid())
	switch msg.kind {
	case ingestTask:
		m.ingest = msg.handle
		m.starting = false
	case watchTask:
		m.watch = msg.handle
		m.trackedDir = msg.dir
		m.notice = "Tracking " + msg.dir
	}
	return m, waitForTask(msg.kind, msg.handle)
}

func (m *Model) handleEvent(msg taskEventMsg) {
	ev := msg.event
	switch ev.Kind {
	case events.KindProgress:
		if msg.kind == ingestTask && msg.handle == m.ingest {
			m.percent = ev.Percent
		}
	case events.KindBuildTimestamp:
		m.lastBuild = ev.Timestamp
	case events.KindError:
		m.logger.Error("task reported error", "task", msg.kind, "message", ev.Message)
		m.banner = ev.Message
	}
}

func (m *Model) handleExited(msg taskExitedMsg) {
	m.logger.Info("task finished", "task", msg.kind, "id", msg.handle.ID(),
		"status", msg.status, "elapsed", msg.handle.Elapsed().Round(time.Millisecond))

	switch msg.kind {
	case ingestTask:
		if msg.handle != m.ingest {
			return
		}
		switch msg.status {
		case task.StatusSucceeded:
			m.notice = "Index created successfully."
		case task.StatusCanceled:
			m.notice = "Index build canceled."
		default:
			if m.banner == "" {
				m.banner = fmt.Sprintf("Error occurred during index creation: %v", msg.err)
			}
			m.notice = ""
		}
	case watchTask:
		if msg.handle != m.watch {
			return
		}
		if msg.status == task.StatusFailed {
			m.banner = fmt.Sprintf("Tracking %s stopped: %v", m.trackedDir, msg.err)
		}
		m.notice = ""
		m.trackedDir = ""
	}
}

func (m *Model) handleAnswer(msg answerMsg) {
	m.asking = false
	if msg.manifest != nil {
		if ts := msg.manifest.BuildTimestamp(); ts != "" {
			m.lastBuild = ts
		}
	}
	if msg.err != nil {
		m.logger.Error("query failed", "query", msg.query, "err", msg.err)
		m.banner = msg.err.Error()
		m.appendTranscript("Error: " + msg.err.Error() + "\n")
		return
	}

	var b strings.Builder
	b.WriteString("Result:\n")
	b.WriteString(strings.TrimSpace(msg.answer.Result))
	b.WriteString("\n\nSources:\n")
	for _, source := range msg.answer.Sources {
		b.WriteString("  " + source + "\n")
	}
	m.appendTranscript(b.String())
}

func (m *Model) appendTranscript(entry string) {
	m.transcript = append(m.transcript, entry)
	m.refreshTranscript()
}

func (m *Model) refreshTranscript() {
	if len(m.transcript) == 0 {
		m.viewport.SetContent(subtleStyle.Render("No questions yet."))
		return
	}
	m.viewport.SetContent(lipgloss.NewStyle().Width(m.viewport.Width).Render(strings.Join(m.transcript, "\n")))
	m.viewport.GotoBottom()
}

func (m Model) building() bool {
	return m.ingest != nil && !m.ingest.Status().Finished()
}

// Percent is the last progress value reported by the running build.
func (m Model) Percent() int {
	return m.percent
}

// LastBuild is the timestamp of the most recent completed build.
func (m Model) LastBuild() string {
	return m.lastBuild
}

// Shutdown interrupts running children and waits up to timeout for them
// to exit.
func (m Model) Shutdown(timeout time.Duration) {
	m.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for _, h := range []*task.Handle{m.ingest, m.watch} {
		if h == nil {
			continue
		}
		if err := h.Wait(ctx); err != nil && ctx.Err() != nil {
			m.logger.Warn("task did not exit in time", "id", h.ID(), "name", h.Name())
		}
	}
}

// View renders the shell.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Document Search and Indexing Tool"))
	b.WriteString("\n")
	if m.lastBuild != "" {
		b.WriteString(subtleStyle.Render("Index build timestamp: " + m.lastBuild))
	} else {
		b.WriteString(subtleStyle.Render("Index build timestamp: unknown"))
	}
	if m.trackedDir != "" {
		b.WriteString(subtleStyle.Render("   Tracking: " + m.trackedDir))
	}
	b.WriteString("\n")

	if m.building() {
		b.WriteString(m.spinner.View() + " Building index... ")
		b.WriteString(m.bar.ViewAs(float64(m.percent) / 100))
	} else if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice))
	}
	b.WriteString("\n")
	if m.banner != "" {
		b.WriteString(bannerStyle.Render(m.banner))
	}
	b.WriteString("\n")

	b.WriteString(transcriptStyle.Render(m.viewport.View()))
	b.WriteString("\n")

	queryBox, trackBox := inputStyle, inputStyle
	if m.focus == focusQuery {
		queryBox = focusedStyle
	} else {
		trackBox = focusedStyle
	}
	if m.asking {
		b.WriteString(queryBox.Render(m.spinner.View() + " " + labelStyle.Render("Thinking...")))
	} else {
		b.WriteString(queryBox.Render(m.query.View()))
	}
	b.WriteString("\n")
	b.WriteString(trackBox.Render(m.track.View()))
	b.WriteString("\n")
	b.WriteString(subtleStyle.Render("enter send • tab switch field • ctrl+b build index • ctrl+x cancel build • ctrl+c quit"))
	return b.String()
}
