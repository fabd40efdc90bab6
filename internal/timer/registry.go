package timer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/2beens/edgetrack/internal/clock"
	"github.com/2beens/edgetrack/internal/telemetry/metrics"
)

const resumeTimeout = 5 * time.Second

type RegistryParams struct {
	Store         sessionStore
	CheckpointFor func(userID string) Checkpoint
	Clock         clock.Clock
	Metrics       *metrics.Manager
	OnFinished    FinishHook
	OnChange      func(userID string)
}

// Registry holds one Timer per user. Timers are created on first use and
// resumed from their checkpoint.
type Registry struct {
	mu     sync.Mutex
	timers map[string]*Timer
	params RegistryParams

	// one resume in flight per user, other users are not blocked by it
	resumes singleflight.Group
}

func NewRegistry(params RegistryParams) *Registry {
	return &Registry{
		timers: make(map[string]*Timer),
		params: params,
	}
}

// Get returns the user's timer, resuming it from the checkpoint on first use.
// A checkpoint that cannot be read right now is an error and nothing is
// cached, so the next call tries again. A checkpoint that can never be
// resumed is logged and the timer starts idle.
func (r *Registry) Get(ctx context.Context, userID string) (*Timer, error) {
	if t, ok := r.lookup(userID); ok {
		return t, nil
	}

	v, err, _ := r.resumes.Do(userID, func() (any, error) {
		if t, ok := r.lookup(userID); ok {
			return t, nil
		}

		t := r.newTimer(userID)

		// the resume outlives a cancelled request, it serves later ones too
		resumeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resumeTimeout)
		defer cancel()
		if _, err := t.Resume(resumeCtx); err != nil {
			if !errors.Is(err, ErrBrokenCheckpoint) {
				t.Close()
				return nil, fmt.Errorf("resume timer for user [%s]: %w", userID, err)
			}
			log.Errorf("resume timer for user [%s], starting idle: %s", userID, err)
		}

		r.mu.Lock()
		r.timers[userID] = t
		r.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Timer), nil
}

func (r *Registry) lookup(userID string) (*Timer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.timers[userID]
	return t, ok
}

func (r *Registry) newTimer(userID string) *Timer {
	var cp Checkpoint
	if r.params.CheckpointFor != nil {
		cp = r.params.CheckpointFor(userID)
	}
	var wakeLock WakeLock
	if r.params.Metrics != nil {
		wakeLock = NewGaugeWakeLock(r.params.Metrics.GaugeActiveTimers)
	}

	return New(Params{
		UserID:     userID,
		Store:      r.params.Store,
		Checkpoint: cp,
		WakeLock:   wakeLock,
		Notifier:   NewLogNotifier(r.params.Metrics),
		Clock:      r.params.Clock,
		Metrics:    r.params.Metrics,
		OnFinished: r.params.OnFinished,
		OnChange:   r.params.OnChange,
	})
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Close releases the wake locks of all timers. Checkpoints are kept so the
// timers resume after a restart.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.timers {
		t.Close()
	}
}
