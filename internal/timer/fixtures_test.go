package timer_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/2beens/edgetrack/internal/checkpoint"
)

var t0 = time.Date(2024, 5, 4, 22, 15, 0, 0, time.UTC)

// memCheckpoint keeps the last saved record in memory.
type memCheckpoint struct {
	mu     sync.Mutex
	record *checkpoint.Record
	saves  int
}

func (m *memCheckpoint) Save(_ context.Context, record checkpoint.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = &record
	m.saves++
	return nil
}

func (m *memCheckpoint) Load(_ context.Context) (*checkpoint.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.record == nil {
		return nil, checkpoint.ErrNotFound
	}
	rec := *m.record
	return &rec, nil
}

func (m *memCheckpoint) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = nil
	return nil
}

func (m *memCheckpoint) current() *checkpoint.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record
}

// flakyCheckpoint fails the first failures loads like an unreachable redis.
type flakyCheckpoint struct {
	memCheckpoint
	failures int
	loads    int
}

func (f *flakyCheckpoint) Load(ctx context.Context) (*checkpoint.Record, error) {
	f.mu.Lock()
	f.loads++
	fail := f.loads <= f.failures
	f.mu.Unlock()
	if fail {
		return nil, errors.New("redis get checkpoint: i/o timeout")
	}
	return f.memCheckpoint.Load(ctx)
}

func (f *flakyCheckpoint) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

// activeRecord is a session that has been active since t0.
func activeRecord() *checkpoint.Record {
	start := t0.UnixMilli()
	return &checkpoint.Record{
		State:           "active",
		SessionID:       testSessionID,
		SessionStart:    start,
		LastActiveStart: &start,
	}
}

// ctxCheckpoint fails loads on a done context, like a redis client does.
type ctxCheckpoint struct {
	record *checkpoint.Record
}

func (c *ctxCheckpoint) Save(ctx context.Context, _ checkpoint.Record) error { return ctx.Err() }
func (c *ctxCheckpoint) Clear(ctx context.Context) error                     { return ctx.Err() }

func (c *ctxCheckpoint) Load(ctx context.Context) (*checkpoint.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec := *c.record
	return &rec, nil
}
