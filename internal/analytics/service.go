package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/edgetrack/internal/achievements"
	"github.com/2beens/edgetrack/internal/clock"
	"github.com/2beens/edgetrack/internal/sessions"
	"github.com/2beens/edgetrack/internal/telemetry/metrics"
	"github.com/2beens/edgetrack/internal/telemetry/tracing"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=analytics_test

const (
	megabyte            = 1024 * 1024
	defaultHistoryLimit = 500
)

var cacheKinds = []string{"analytics", "coaching", "streak", "level"}

type sessionsLister interface {
	ListSessions(ctx context.Context, params sessions.ListParams) ([]sessions.Session, error)
}

type achievementsLister interface {
	ListAchievements(ctx context.Context) ([]achievements.Achievement, error)
	ListUserAchievements(ctx context.Context, userID string) ([]achievements.UserAchievement, error)
}

type Streak struct {
	// Days is the calendar day streak.
	Days int `json:"days"`
	// Sessions is the consecutive clean sessions streak, newest first.
	Sessions int `json:"sessions"`
}

type ServiceParams struct {
	Sessions     sessionsLister
	Achievements achievementsLister
	Clock        clock.Clock
	Metrics      *metrics.Manager
	CacheSizeMB  int
	CacheTTL     time.Duration
	HistoryLimit int
	Location     *time.Location
}

// Service answers read-side queries on demand. Results are cached per user
// for CacheTTL and dropped by Invalidate whenever the user's history changes.
type Service struct {
	sessions     sessionsLister
	achievements achievementsLister
	clock        clock.Clock
	metrics      *metrics.Manager
	cache        *freecache.Cache
	cacheExpire  int
	historyLimit int
	location     *time.Location
}

func NewService(params ServiceParams) *Service {
	cacheSize := params.CacheSizeMB * megabyte
	if cacheSize <= 0 {
		cacheSize = 10 * megabyte
	}
	cacheExpire := int(params.CacheTTL.Seconds())
	if cacheExpire < 1 {
		cacheExpire = 1
	}
	historyLimit := params.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	location := params.Location
	if location == nil {
		location = time.Local
	}
	clk := params.Clock
	if clk == nil {
		clk = clock.System{}
	}

	return &Service{
		sessions:     params.Sessions,
		achievements: params.Achievements,
		clock:        clk,
		metrics:      params.Metrics,
		cache:        freecache.NewCache(cacheSize),
		cacheExpire:  cacheExpire,
		historyLimit: historyLimit,
		location:     location,
	}
}

func (s *Service) Analytics(ctx context.Context, userID string) (_ *Analytics, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analytics.service.analytics")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	return cached(s, "analytics", userID, func() (Analytics, error) {
		history, err := s.history(ctx, userID)
		if err != nil {
			return Analytics{}, err
		}
		return Compute(history), nil
	})
}

func (s *Service) Coaching(ctx context.Context, userID string) (_ *CoachingContext, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analytics.service.coaching")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	return cached(s, "coaching", userID, func() (CoachingContext, error) {
		history, err := s.history(ctx, userID)
		if err != nil {
			return CoachingContext{}, err
		}
		return Coaching(history, s.clock.Now()), nil
	})
}

func (s *Service) Streak(ctx context.Context, userID string) (_ *Streak, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analytics.service.streak")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	return cached(s, "streak", userID, func() (Streak, error) {
		history, err := s.history(ctx, userID)
		if err != nil {
			return Streak{}, err
		}
		return Streak{
			Days:     DailyStreak(history, s.location),
			Sessions: sessions.SuccessStreak(history),
		}, nil
	})
}

func (s *Service) Level(ctx context.Context, userID string) (_ *Level, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analytics.service.level")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	return cached(s, "level", userID, func() (Level, error) {
		catalog, err := s.achievements.ListAchievements(ctx)
		if err != nil {
			return Level{}, fmt.Errorf("list achievements: %w", err)
		}
		userAchievements, err := s.achievements.ListUserAchievements(ctx, userID)
		if err != nil {
			return Level{}, fmt.Errorf("list user achievements: %w", err)
		}
		return LevelFor(userAchievements, catalog), nil
	})
}

// Invalidate drops every cached result of the user.
func (s *Service) Invalidate(userID string) {
	for _, kind := range cacheKinds {
		s.cache.Del(cacheKey(kind, userID))
	}
	log.Tracef("analytics cache invalidated for [%s]", userID)
}

func (s *Service) history(ctx context.Context, userID string) ([]sessions.Session, error) {
	history, err := s.sessions.ListSessions(ctx, sessions.ListParams{
		UserID: userID,
		Limit:  s.historyLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return history, nil
}

func cached[T any](s *Service, kind, userID string, compute func() (T, error)) (*T, error) {
	key := cacheKey(kind, userID)
	if valueBytes, err := s.cache.Get(key); err == nil {
		var value T
		if err := json.Unmarshal(valueBytes, &value); err == nil {
			s.countCache(true)
			return &value, nil
		} else {
			log.Errorf("unmarshal cached %s for [%s]: %s", kind, userID, err)
		}
	}
	s.countCache(false)

	value, err := compute()
	if err != nil {
		return nil, err
	}

	if valueBytes, err := json.Marshal(value); err != nil {
		log.Errorf("marshal %s for cache: %s", kind, err)
	} else if err := s.cache.Set(key, valueBytes, s.cacheExpire); err != nil {
		log.Errorf("set %s cache for [%s]: %s", kind, userID, err)
	}

	return &value, nil
}

func (s *Service) countCache(hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.CounterAnalyticsCacheHits.Inc()
	} else {
		s.metrics.CounterAnalyticsCacheMisses.Inc()
	}
}

func cacheKey(kind, userID string) []byte {
	return []byte(kind + "::" + userID)
}
