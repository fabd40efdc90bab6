package timer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/edgetrack/internal/checkpoint"
	"github.com/2beens/edgetrack/internal/clock"
	"github.com/2beens/edgetrack/internal/sessions"
	"github.com/2beens/edgetrack/internal/telemetry/metrics"
	"github.com/2beens/edgetrack/internal/telemetry/tracing"
	"github.com/2beens/edgetrack/pkg"
)

const (
	opCreateEdge      = "create_edge_event"
	opCloseEdge       = "close_edge_event"
	opFinishSession   = "finish_session"
	opSaveCheckpoint  = "save_checkpoint"
	opClearCheckpoint = "clear_checkpoint"
	opWakeLock        = "wake_lock"
	opFinishHook      = "finish_hook"
)

type Params struct {
	UserID     string
	Store      sessionStore
	Checkpoint Checkpoint
	WakeLock   WakeLock
	Notifier   Notifier
	Clock      clock.Clock
	Metrics    *metrics.Manager
	OnFinished FinishHook
	// OnChange is called after the user's session history was written to.
	OnChange func(userID string)
}

// Timer is the session state machine of a single user:
//
//	idle -> active <-> edging -> finished -> idle
//
// Local state is authoritative. Writes to the store happen at phase
// transitions only, and a failed write is reported as a warning without
// undoing the transition. All methods are safe for concurrent use.
type Timer struct {
	mu sync.Mutex

	userID     string
	store      sessionStore
	checkpoint Checkpoint
	wakeLock   WakeLock
	notifier   Notifier
	clock      clock.Clock
	metrics    *metrics.Manager
	onFinished FinishHook
	onChange   func(userID string)

	phase              Phase
	sessionID          string
	sessionStart       time.Time
	activeTime         time.Duration
	edgeTime           time.Duration
	activeAnchor       time.Time
	edgeAnchor         time.Time
	finishedDuringEdge bool
	laps               []Lap
	wakeHeld           bool
}

func New(params Params) *Timer {
	t := &Timer{
		userID:     params.UserID,
		store:      params.Store,
		checkpoint: params.Checkpoint,
		wakeLock:   params.WakeLock,
		notifier:   params.Notifier,
		clock:      params.Clock,
		metrics:    params.Metrics,
		onFinished: params.OnFinished,
		onChange:   params.OnChange,
		phase:      PhaseIdle,
	}
	if t.checkpoint == nil {
		t.checkpoint = noopCheckpoint{}
	}
	if t.wakeLock == nil {
		t.wakeLock = noopWakeLock{}
	}
	if t.notifier == nil {
		t.notifier = NewLogNotifier(params.Metrics)
	}
	if t.clock == nil {
		t.clock = clock.System{}
	}
	return t
}

// transition collects the warnings of one operation.
type transition struct {
	ctx      context.Context
	warnings []string
	notices  []string
}

func (t *Timer) warn(tr *transition, operation string, err error) {
	t.notifier.Warn(tr.ctx, t.userID, operation, err)
	tr.warnings = append(tr.warnings, fmt.Sprintf("%s failed: %s", operation, err))
}

func (t *Timer) invalid(action string) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, action, t.phase)
}

// StartSession creates the session record and starts the active clock.
// If the record cannot be created the timer stays idle.
func (t *Timer) StartSession(ctx context.Context) (_ *TransitionResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "timer.start_session")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", t.userID))

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != PhaseIdle {
		return nil, t.invalid("start a session")
	}

	now := t.clock.Now()
	created, err := t.store.CreateSession(ctx, sessions.Session{
		UserID:         t.userID,
		StartTime:      now,
		ActiveDuration: pkg.Int64Ptr(0),
		EdgeDuration:   pkg.Int64Ptr(0),
		TotalDuration:  pkg.Int64Ptr(0),
		CreatedAt:      now,
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	t.clearState()
	t.sessionID = created.ID
	t.sessionStart = now
	t.activeAnchor = now
	t.phase = PhaseActive

	tr := &transition{ctx: ctx}
	t.acquireWakeLock(tr)
	t.saveCheckpoint(tr, now)
	t.changed()
	t.countTransition()
	span.SetAttributes(attribute.String("session.id", t.sessionID))

	return t.result(tr, now), nil
}

func (t *Timer) StartEdge(ctx context.Context) (_ *TransitionResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "timer.start_edge")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != PhaseActive {
		return nil, t.invalid("start an edge")
	}

	now := t.clock.Now()
	t.activeTime += nonNegative(now.Sub(t.activeAnchor))
	t.activeAnchor = time.Time{}
	t.edgeAnchor = now
	t.laps = append(t.laps, Lap{Start: now})
	t.phase = PhaseEdging

	tr := &transition{ctx: ctx}
	if _, err := t.store.CreateEdgeEvent(ctx, t.sessionID, now); err != nil {
		t.warn(tr, opCreateEdge, err)
	}
	t.saveCheckpoint(tr, now)
	t.changed()
	t.countTransition()

	return t.result(tr, now), nil
}

func (t *Timer) EndEdge(ctx context.Context) (_ *TransitionResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "timer.end_edge")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != PhaseEdging {
		return nil, t.invalid("end an edge")
	}

	now := t.clock.Now()
	edgeMillis := t.closeEdge(now)
	t.activeAnchor = now
	t.phase = PhaseActive

	tr := &transition{ctx: ctx}
	if err := t.store.CloseOpenEdgeEvent(ctx, t.sessionID, now, edgeMillis); err != nil {
		t.warn(tr, opCloseEdge, err)
	}
	t.saveCheckpoint(tr, now)
	t.changed()
	t.countTransition()

	return t.result(tr, now), nil
}

// FinishSession flushes the running bucket and writes the final durations.
// Finishing while edging marks the session as finished during an edge.
func (t *Timer) FinishSession(ctx context.Context) (_ *TransitionResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "timer.finish_session")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.phase.Running() {
		return nil, t.invalid("finish a session")
	}

	now := t.clock.Now()
	tr := &transition{ctx: ctx}

	if t.phase == PhaseEdging {
		edgeMillis := t.closeEdge(now)
		t.finishedDuringEdge = true
		if err := t.store.CloseOpenEdgeEvent(ctx, t.sessionID, now, edgeMillis); err != nil {
			t.warn(tr, opCloseEdge, err)
		}
	} else {
		t.activeTime += nonNegative(now.Sub(t.activeAnchor))
		t.activeAnchor = time.Time{}
		t.finishedDuringEdge = false
	}
	t.phase = PhaseFinished

	activeMillis := t.activeTime.Milliseconds()
	edgeMillis := t.edgeTime.Milliseconds()
	totalMillis := activeMillis + edgeMillis
	finishedDuringEdge := t.finishedDuringEdge
	span.SetAttributes(
		attribute.String("session.id", t.sessionID),
		attribute.Int64("session.total_ms", totalMillis),
		attribute.Bool("session.finished_during_edge", finishedDuringEdge),
	)

	if err := t.store.UpdateSession(ctx, t.sessionID, sessions.SessionUpdate{
		EndTime:            &now,
		ActiveDuration:     &activeMillis,
		EdgeDuration:       &edgeMillis,
		TotalDuration:      &totalMillis,
		FinishedDuringEdge: &finishedDuringEdge,
	}); err != nil {
		t.warn(tr, opFinishSession, err)
	}

	t.releaseWakeLock()
	t.saveCheckpoint(tr, now)
	t.countTransition()
	if t.metrics != nil {
		t.metrics.HistSessionDuration.Observe(float64(totalMillis) / 1000)
	}

	if t.onFinished != nil {
		notices, err := t.onFinished(ctx, t.userID, t.finishedSession(now, activeMillis, edgeMillis, totalMillis))
		if err != nil {
			t.warn(tr, opFinishHook, err)
		}
		tr.notices = append(tr.notices, notices...)
	}
	// after the hook, so derived values also see the new achievements
	t.changed()

	return t.result(tr, now), nil
}

// Reset returns a finished timer to idle and forgets the checkpoint.
func (t *Timer) Reset(ctx context.Context) (_ *TransitionResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "timer.reset")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != PhaseFinished {
		return nil, t.invalid("reset")
	}
	return t.toIdle(ctx), nil
}

// Abort returns to idle from any phase. The session record, if any, is left
// as last written.
func (t *Timer) Abort(ctx context.Context) (_ *TransitionResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "timer.abort")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != PhaseIdle && t.sessionID != "" {
		log.Infof("timer [%s] aborted session [%s] while %s", t.userID, t.sessionID, t.phase)
	}
	return t.toIdle(ctx), nil
}

func (t *Timer) toIdle(ctx context.Context) *TransitionResult {
	tr := &transition{ctx: ctx}
	t.clearState()
	t.phase = PhaseIdle
	t.releaseWakeLock()
	if err := t.checkpoint.Clear(ctx); err != nil {
		t.warn(tr, opClearCheckpoint, err)
	}
	t.countTransition()
	return t.result(tr, t.clock.Now())
}

// Resume rebuilds the timer from its checkpoint. Time that passed while the
// process was down keeps counting in the running bucket.
func (t *Timer) Resume(ctx context.Context) (resumed bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "timer.resume")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	t.mu.Lock()
	defer t.mu.Unlock()

	record, err := t.checkpoint.Load(ctx)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return false, nil
		}
		if errors.Is(err, checkpoint.ErrCorrupt) {
			return false, fmt.Errorf("%w: %w", ErrBrokenCheckpoint, err)
		}
		return false, fmt.Errorf("load checkpoint: %w", err)
	}

	if err := t.restore(record); err != nil {
		return false, fmt.Errorf("%w: %w", ErrBrokenCheckpoint, err)
	}
	if t.phase.Running() {
		tr := &transition{ctx: ctx}
		t.acquireWakeLock(tr)
	}
	log.Infof("timer [%s] resumed session [%s] in phase %s", t.userID, t.sessionID, t.phase)
	span.SetAttributes(attribute.String("phase", string(t.phase)))
	return true, nil
}

// Close releases the wake lock. State and checkpoint are kept for Resume.
func (t *Timer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.releaseWakeLock()
}

func (t *Timer) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

func (t *Timer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot(t.clock.Now())
}

func (t *Timer) Elapsed(now time.Time) Elapsed {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot(now).Elapsed(now)
}

// closeEdge flushes the open edge into edgeTime and closes its lap. Edge time
// accrues in whole milliseconds so the stored laps add up to the session's
// edge duration.
func (t *Timer) closeEdge(now time.Time) int64 {
	d := nonNegative(now.Sub(t.edgeAnchor)).Truncate(time.Millisecond)
	t.edgeTime += d
	t.edgeAnchor = time.Time{}

	millis := d.Milliseconds()
	if n := len(t.laps); n > 0 && t.laps[n-1].End == nil {
		end := now
		t.laps[n-1].End = &end
		t.laps[n-1].Duration = pkg.Int64Ptr(millis)
	}
	return millis
}

func (t *Timer) clearState() {
	t.sessionID = ""
	t.sessionStart = time.Time{}
	t.activeTime = 0
	t.edgeTime = 0
	t.activeAnchor = time.Time{}
	t.edgeAnchor = time.Time{}
	t.finishedDuringEdge = false
	t.laps = nil
}

func (t *Timer) acquireWakeLock(tr *transition) {
	if t.wakeHeld {
		return
	}
	if err := t.wakeLock.Acquire(); err != nil {
		t.warn(tr, opWakeLock, err)
		return
	}
	t.wakeHeld = true
}

func (t *Timer) releaseWakeLock() {
	if !t.wakeHeld {
		return
	}
	t.wakeLock.Release()
	t.wakeHeld = false
}

func (t *Timer) saveCheckpoint(tr *transition, now time.Time) {
	if err := t.checkpoint.Save(tr.ctx, t.record(now)); err != nil {
		t.warn(tr, opSaveCheckpoint, err)
	}
}

func (t *Timer) changed() {
	if t.onChange != nil {
		t.onChange(t.userID)
	}
}

func (t *Timer) countTransition() {
	if t.metrics != nil {
		t.metrics.CounterTimerTransitions.WithLabelValues(string(t.phase)).Inc()
	}
}

func (t *Timer) result(tr *transition, now time.Time) *TransitionResult {
	warnings := tr.warnings
	if warnings == nil {
		warnings = []string{}
	}
	notices := tr.notices
	if notices == nil {
		notices = []string{}
	}
	return &TransitionResult{
		Snapshot: t.snapshot(now),
		Warnings: warnings,
		Notices:  notices,
	}
}

func (t *Timer) snapshot(now time.Time) Snapshot {
	laps := make([]Lap, len(t.laps))
	copy(laps, t.laps)
	return Snapshot{
		Phase:              t.phase,
		SessionID:          t.sessionID,
		SessionStart:       timePtr(t.sessionStart),
		ActiveTime:         t.activeTime.Milliseconds(),
		EdgeTime:           t.edgeTime.Milliseconds(),
		ActiveAnchor:       timePtr(t.activeAnchor),
		EdgeAnchor:         timePtr(t.edgeAnchor),
		FinishedDuringEdge: t.finishedDuringEdge,
		Laps:               laps,
		ServerTime:         now,
	}
}

func (t *Timer) finishedSession(end time.Time, active, edge, total int64) sessions.Session {
	edges := make([]sessions.EdgeEvent, 0, len(t.laps))
	for _, lap := range t.laps {
		edges = append(edges, sessions.EdgeEvent{
			SessionID: t.sessionID,
			StartTime: lap.Start,
			EndTime:   lap.End,
			Duration:  lap.Duration,
		})
	}
	return sessions.Session{
		ID:                 t.sessionID,
		UserID:             t.userID,
		StartTime:          t.sessionStart,
		EndTime:            &end,
		ActiveDuration:     &active,
		EdgeDuration:       &edge,
		TotalDuration:      &total,
		FinishedDuringEdge: t.finishedDuringEdge,
		CreatedAt:          t.sessionStart,
		EdgeEvents:         edges,
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
