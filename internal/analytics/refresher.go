package analytics

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// Versioned is one refresh result tagged with the sequence number it was
// requested under.
type Versioned[T any] struct {
	Seq   uint64
	Value T
	Err   error
	At    time.Time
}

// Refresher re-runs fetch on demand or on an interval. Refreshes are never
// cancelled by newer ones; each result is tagged with a request sequence number
// and Latest only ever moves forward, so a slow, older response cannot
// overwrite a newer one.
type Refresher[T any] struct {
	fetch    func(ctx context.Context) (T, error)
	interval time.Duration
	onUpdate func(Versioned[T])

	seq    atomic.Uint64
	mu     sync.Mutex
	latest *Versioned[T]
	wg     sync.WaitGroup
}

// NewRefresher creates a refresher. onUpdate (optional) is called for every
// result that became the latest one.
func NewRefresher[T any](
	fetch func(ctx context.Context) (T, error),
	interval time.Duration,
	onUpdate func(Versioned[T]),
) *Refresher[T] {
	return &Refresher[T]{
		fetch:    fetch,
		interval: interval,
		onUpdate: onUpdate,
	}
}

// Refresh runs one fetch and offers its result. It reports whether the result
// was accepted as the latest.
func (r *Refresher[T]) Refresh(ctx context.Context) (Versioned[T], bool) {
	seq := r.seq.Add(1)
	value, err := r.fetch(ctx)
	result := Versioned[T]{
		Seq:   seq,
		Value: value,
		Err:   err,
		At:    time.Now(),
	}
	return result, r.offer(result)
}

func (r *Refresher[T]) offer(result Versioned[T]) bool {
	r.mu.Lock()
	if r.latest != nil && r.latest.Seq > result.Seq {
		r.mu.Unlock()
		log.Tracef("dropping out of order refresh %d, latest is %d", result.Seq, r.latest.Seq)
		return false
	}
	r.latest = &result
	r.mu.Unlock()

	if r.onUpdate != nil {
		r.onUpdate(result)
	}
	return true
}

func (r *Refresher[T]) Latest() (Versioned[T], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latest == nil {
		return Versioned[T]{}, false
	}
	return *r.latest, true
}

// Run refreshes immediately and then on every interval tick until ctx is done.
// A non positive interval means a single refresh. Run waits for in-flight
// refreshes before returning.
func (r *Refresher[T]) Run(ctx context.Context) {
	defer r.wg.Wait()

	r.spawn(ctx)
	if r.interval <= 0 {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.spawn(ctx)
		}
	}
}

func (r *Refresher[T]) spawn(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.Refresh(ctx)
	}()
}
