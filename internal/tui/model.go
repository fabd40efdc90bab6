// Package tui is the terminal timer client. It drives the service timer over
// HTTP and redraws the elapsed time from the snapshot anchors on every frame.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2beens/edgetrack/internal/analytics"
	"github.com/2beens/edgetrack/internal/clock"
	"github.com/2beens/edgetrack/internal/timer"
)

const (
	frameInterval  = 100 * time.Millisecond
	requestTimeout = 5 * time.Second
	maxNotices     = 5
)

type timerClient interface {
	Snapshot(ctx context.Context) (*timer.Snapshot, error)
	StartSession(ctx context.Context) (*timer.TransitionResult, error)
	StartEdge(ctx context.Context) (*timer.TransitionResult, error)
	EndEdge(ctx context.Context) (*timer.TransitionResult, error)
	FinishSession(ctx context.Context) (*timer.TransitionResult, error)
	Reset(ctx context.Context) (*timer.TransitionResult, error)
	Abort(ctx context.Context) (*timer.TransitionResult, error)
}

// FrameMsg triggers a redraw.
type FrameMsg time.Time

// AnalyticsMsg carries one analytics refresh result.
type AnalyticsMsg analytics.Versioned[*analytics.Analytics]

type snapshotMsg struct {
	snapshot   *timer.Snapshot
	err        error
	receivedAt time.Time
}

type transitionMsg struct {
	result     *timer.TransitionResult
	err        error
	receivedAt time.Time
}

type Model struct {
	client  timerClient
	refresh func(ctx context.Context)
	clock   clock.Clock

	snapshot timer.Snapshot
	// skew is server time minus local time, so elapsed values match the
	// server's anchors even when the clocks disagree
	skew time.Duration

	stats    *analytics.Analytics
	statsSeq uint64
	statsErr error

	notices  []string
	warnings []string
	err      error
	busy     bool
	width    int
}

// NewModel creates the model. refresh (optional) asks for new analytics; its
// results are expected back as AnalyticsMsg.
func NewModel(client timerClient, refresh func(ctx context.Context), clk clock.Clock) *Model {
	if clk == nil {
		clk = clock.System{}
	}
	return &Model{
		client:   client,
		refresh:  refresh,
		clock:    clk,
		snapshot: timer.Snapshot{Phase: timer.PhaseIdle},
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchSnapshot(), frameTick())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case FrameMsg:
		return m, frameTick()
	case snapshotMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.setSnapshot(*msg.snapshot, msg.receivedAt)
		return m, nil
	case transitionMsg:
		return m, m.handleTransition(msg)
	case AnalyticsMsg:
		m.handleAnalytics(msg)
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c":
		return tea.Quit
	}
	if m.busy {
		return nil
	}

	var op func(context.Context) (*timer.TransitionResult, error)
	switch msg.String() {
	case "s":
		op = m.client.StartSession
	case "e", " ":
		switch m.snapshot.Phase {
		case timer.PhaseActive:
			op = m.client.StartEdge
		case timer.PhaseEdging:
			op = m.client.EndEdge
		}
	case "f":
		op = m.client.FinishSession
	case "r":
		op = m.client.Reset
	case "a":
		op = m.client.Abort
	}
	if op == nil {
		return nil
	}

	m.busy = true
	return m.transition(op)
}

func (m *Model) handleTransition(msg transitionMsg) tea.Cmd {
	m.busy = false
	if msg.err != nil {
		m.err = msg.err
		// the server may know better, e.g. after a 409
		return m.fetchSnapshot()
	}

	m.err = nil
	m.setSnapshot(msg.result.Snapshot, msg.receivedAt)
	m.warnings = msg.result.Warnings
	m.notices = append(m.notices, msg.result.Notices...)
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}

	if msg.result.Snapshot.Phase == timer.PhaseFinished && m.refresh != nil {
		return m.refreshAnalytics()
	}
	return nil
}

func (m *Model) handleAnalytics(msg AnalyticsMsg) {
	if msg.Seq < m.statsSeq {
		return
	}
	m.statsSeq = msg.Seq
	if msg.Err != nil {
		m.statsErr = msg.Err
		return
	}
	m.statsErr = nil
	m.stats = msg.Value
}

func (m *Model) setSnapshot(snapshot timer.Snapshot, receivedAt time.Time) {
	m.snapshot = snapshot
	if !snapshot.ServerTime.IsZero() && !receivedAt.IsZero() {
		m.skew = snapshot.ServerTime.Sub(receivedAt)
	}
}

// Elapsed is the display value for the current frame.
func (m *Model) Elapsed() timer.Elapsed {
	return m.snapshot.Elapsed(m.clock.Now().Add(m.skew))
}

func (m *Model) fetchSnapshot() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		snapshot, err := m.client.Snapshot(ctx)
		return snapshotMsg{snapshot: snapshot, err: err, receivedAt: m.clock.Now()}
	}
}

func (m *Model) transition(op func(context.Context) (*timer.TransitionResult, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		result, err := op(ctx)
		return transitionMsg{result: result, err: err, receivedAt: m.clock.Now()}
	}
}

func (m *Model) refreshAnalytics() tea.Cmd {
	refresh := m.refresh
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		refresh(ctx)
		return nil
	}
}

func frameTick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return FrameMsg(t)
	})
}
