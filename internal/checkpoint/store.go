package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/edgetrack/internal/telemetry/tracing"
)

var (
	ErrNotFound = errors.New("checkpoint not found")
	ErrCorrupt  = errors.New("corrupt checkpoint")
)

const keyPrefix = "edgetrack::checkpoint::"

// Store keeps one checkpoint per user in redis. Entries expire after ttl so an
// abandoned session does not linger forever.
type Store struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func NewStore(redisClient *redis.Client, ttl time.Duration) *Store {
	return &Store{
		redisClient: redisClient,
		ttl:         ttl,
	}
}

func Key(userID string) string {
	return keyPrefix + userID
}

func (s *Store) Save(ctx context.Context, userID string, record Record) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "checkpoint.save")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("state", record.State),
	)

	recordBytes, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	if err := s.redisClient.Set(ctx, Key(userID), recordBytes, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set checkpoint: %w", err)
	}

	log.Tracef("checkpoint saved for [%s]: %s", userID, recordBytes)
	return nil
}

func (s *Store) Load(ctx context.Context, userID string) (_ *Record, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "checkpoint.load")
	defer func() {
		if errors.Is(err, ErrNotFound) {
			span.End()
			return
		}
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	recordBytes, err := s.redisClient.Get(ctx, Key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get checkpoint: %w", err)
	}

	record := &Record{}
	if err := json.Unmarshal(recordBytes, record); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %w", ErrCorrupt, err)
	}

	return record, nil
}

func (s *Store) Clear(ctx context.Context, userID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "checkpoint.clear")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	if err := s.redisClient.Del(ctx, Key(userID)).Err(); err != nil {
		return fmt.Errorf("redis del checkpoint: %w", err)
	}
	return nil
}

// ForUser binds the store to a single user.
func (s *Store) ForUser(userID string) *UserCheckpoint {
	return &UserCheckpoint{
		store:  s,
		userID: userID,
	}
}

type UserCheckpoint struct {
	store  *Store
	userID string
}

func (u *UserCheckpoint) Save(ctx context.Context, record Record) error {
	return u.store.Save(ctx, u.userID, record)
}

func (u *UserCheckpoint) Load(ctx context.Context) (*Record, error) {
	return u.store.Load(ctx, u.userID)
}

func (u *UserCheckpoint) Clear(ctx context.Context) error {
	return u.store.Clear(ctx, u.userID)
}
