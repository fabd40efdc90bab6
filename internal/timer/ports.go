package timer

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/edgetrack/internal/checkpoint"
	"github.com/2beens/edgetrack/internal/sessions"
	"github.com/2beens/edgetrack/internal/telemetry/metrics"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=timer_test

// sessionStore is the session half of the persistence gateway.
type sessionStore interface {
	CreateSession(ctx context.Context, session sessions.Session) (*sessions.Session, error)
	UpdateSession(ctx context.Context, id string, update sessions.SessionUpdate) error
	CreateEdgeEvent(ctx context.Context, sessionID string, startTime time.Time) (*sessions.EdgeEvent, error)
	CloseOpenEdgeEvent(ctx context.Context, sessionID string, endTime time.Time, duration int64) error
}

// Checkpoint is the durable copy of one user's in-progress timer.
type Checkpoint interface {
	Save(ctx context.Context, record checkpoint.Record) error
	Load(ctx context.Context) (*checkpoint.Record, error)
	Clear(ctx context.Context) error
}

// WakeLock keeps whatever hosts the timer from idling while a session runs.
type WakeLock interface {
	Acquire() error
	Release()
}

// Notifier reports failures that must not block a transition.
type Notifier interface {
	Warn(ctx context.Context, userID, operation string, err error)
}

// FinishHook runs after a session is finished. Returned notices are passed on
// to the user once.
type FinishHook func(ctx context.Context, userID string, finished sessions.Session) ([]string, error)

// LogNotifier logs the failure and counts it per operation.
type LogNotifier struct {
	metrics *metrics.Manager
}

func NewLogNotifier(metricsManager *metrics.Manager) *LogNotifier {
	return &LogNotifier{
		metrics: metricsManager,
	}
}

func (n *LogNotifier) Warn(_ context.Context, userID, operation string, err error) {
	log.Warnf("timer [%s] %s: %s", userID, operation, err)
	if n.metrics != nil {
		n.metrics.CounterPersistenceFailures.WithLabelValues(operation).Inc()
	}
}

// GaugeWakeLock is the server side wake lock: it keeps the active timers gauge
// up to date. Acquire and Release are idempotent.
type GaugeWakeLock struct {
	gauge prometheus.Gauge
	held  bool
}

func NewGaugeWakeLock(gauge prometheus.Gauge) *GaugeWakeLock {
	return &GaugeWakeLock{
		gauge: gauge,
	}
}

func (w *GaugeWakeLock) Acquire() error {
	if w.held {
		return nil
	}
	w.held = true
	w.gauge.Inc()
	return nil
}

func (w *GaugeWakeLock) Release() {
	if !w.held {
		return
	}
	w.held = false
	w.gauge.Dec()
}

type noopWakeLock struct{}

func (noopWakeLock) Acquire() error { return nil }
func (noopWakeLock) Release()       {}

type noopCheckpoint struct{}

func (noopCheckpoint) Save(context.Context, checkpoint.Record) error { return nil }
func (noopCheckpoint) Load(context.Context) (*checkpoint.Record, error) {
	return nil, checkpoint.ErrNotFound
}
func (noopCheckpoint) Clear(context.Context) error { return nil }
