package achievements

import (
	"context"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/edgetrack/internal/clock"
	"github.com/2beens/edgetrack/internal/sessions"
	"github.com/2beens/edgetrack/internal/telemetry/metrics"
	"github.com/2beens/edgetrack/internal/telemetry/tracing"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=achievements_test

const (
	streakWindow          = 10
	minimalPauseRatio     = 0.10
	straightThroughMillis = 15 * 60 * 1000
	gettingStrongerPct    = 25.0
)

type evaluatorRepo interface {
	ListAchievements(ctx context.Context) ([]Achievement, error)
	ListUserAchievements(ctx context.Context, userID string) ([]UserAchievement, error)
	UpsertUserAchievement(ctx context.Context, ua UserAchievement) error
}

type sessionsLister interface {
	ListSessions(ctx context.Context, params sessions.ListParams) ([]sessions.Session, error)
}

// Result of one evaluation pass. Unlocked holds only achievements unlocked by
// this pass, so callers can notify the user exactly once.
type Result struct {
	Evaluated int               `json:"evaluated"`
	Updated   []UserAchievement `json:"updated"`
	Unlocked  []Achievement     `json:"unlocked"`
	Failed    int               `json:"failed"`
}

type Evaluator struct {
	repo     evaluatorRepo
	sessions sessionsLister
	clock    clock.Clock
	metrics  *metrics.Manager
}

func NewEvaluator(
	repo evaluatorRepo,
	sessions sessionsLister,
	clk clock.Clock,
	metricsManager *metrics.Manager,
) *Evaluator {
	return &Evaluator{
		repo:     repo,
		sessions: sessions,
		clock:    clk,
		metrics:  metricsManager,
	}
}

// OnSessionFinished loads the user's recent history and evaluates the finished
// session against it. Used as the timer's finish hook.
func (e *Evaluator) OnSessionFinished(ctx context.Context, userID string, finished sessions.Session) (*Result, error) {
	recent, err := e.sessions.ListSessions(ctx, sessions.ListParams{
		UserID: userID,
		Limit:  streakWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("list recent sessions: %w", err)
	}
	return e.Evaluate(ctx, userID, finished, recent)
}

// Notices evaluates a finished session and renders each newly unlocked
// achievement as a one-off message for the user.
func (e *Evaluator) Notices(ctx context.Context, userID string, finished sessions.Session) ([]string, error) {
	result, err := e.OnSessionFinished(ctx, userID, finished)
	if err != nil {
		return nil, err
	}
	notices := make([]string, 0, len(result.Unlocked))
	for _, a := range result.Unlocked {
		notices = append(notices, fmt.Sprintf("Achievement unlocked: %s (+%d XP)", a.Name, a.Points))
	}
	return notices, nil
}

// Evaluate scores finished (and recent, newest first) against every achievement
// the user has not unlocked yet. A failed upsert only skips that achievement.
func (e *Evaluator) Evaluate(
	ctx context.Context,
	userID string,
	finished sessions.Session,
	recent []sessions.Session,
) (_ *Result, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "achievements.evaluate")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("session.id", finished.ID),
	)

	catalog, err := e.repo.ListAchievements(ctx)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	userAchievements, err := e.repo.ListUserAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user achievements: %w", err)
	}

	unlocked := make(map[string]bool, len(userAchievements))
	for _, ua := range userAchievements {
		if ua.IsUnlocked() {
			unlocked[ua.AchievementID] = true
		}
	}

	history := withFinishedFirst(finished, recent)
	result := &Result{
		Updated:  []UserAchievement{},
		Unlocked: []Achievement{},
	}

	for _, achievement := range catalog {
		if unlocked[achievement.ID] {
			continue
		}

		progress, isUnlocked, ok := e.score(achievement, finished, history)
		if !ok {
			continue
		}
		result.Evaluated++

		if progress == 0 && !isUnlocked {
			continue
		}

		ua := UserAchievement{
			UserID:        userID,
			AchievementID: achievement.ID,
			Progress:      progress,
		}
		if isUnlocked {
			now := e.clock.Now()
			ua.Progress = 100
			ua.UnlockedAt = &now
		}

		if err := e.repo.UpsertUserAchievement(ctx, ua); err != nil {
			// re-evaluated after the next finished session
			log.Errorf("upsert achievement [%s] for user [%s]: %s", achievement.ID, userID, err)
			result.Failed++
			continue
		}

		result.Updated = append(result.Updated, ua)
		if isUnlocked {
			result.Unlocked = append(result.Unlocked, achievement)
			log.Infof("user [%s] unlocked achievement [%s]", userID, achievement.Name)
		}
	}

	if len(result.Unlocked) > 0 && e.metrics != nil {
		e.metrics.CounterAchievementsUnlocked.Add(float64(len(result.Unlocked)))
	}
	span.SetAttributes(
		attribute.Int("achievements.evaluated", result.Evaluated),
		attribute.Int("achievements.unlocked", len(result.Unlocked)),
		attribute.Int("achievements.failed", result.Failed),
	)

	return result, nil
}

// score returns progress (0-100) and the unlock state. ok is false when the
// achievement cannot be judged at all (e.g. an unknown custom key).
func (e *Evaluator) score(a Achievement, finished sessions.Session, history []sessions.Session) (progress int, unlocked bool, ok bool) {
	cv := a.ConditionValue

	switch a.ConditionType {
	case ConditionDuration:
		total := finished.Total()
		unlocked = compare(total, cv, a.ConditionComparison)
		progress = ratioProgress(float64(total), float64(cv))
	case ConditionEdgeCount:
		n := int64(len(finished.EdgeEvents))
		if cv == 0 {
			if n == 0 {
				return 100, true, true
			}
			return 0, false, true
		}
		unlocked = n == cv
		progress = ratioProgress(float64(n), float64(cv))
	case ConditionEdgeDuration:
		m := finished.MaxEdgeDuration()
		if m == 0 {
			// no closed edge, nothing to measure
			return 0, false, true
		}
		unlocked = compare(m, cv, a.ConditionComparison)
		progress = ratioProgress(float64(cv), float64(m))
	case ConditionStreak:
		window := history
		if len(window) > streakWindow {
			window = window[:streakWindow]
		}
		streak := int64(sessions.SuccessStreak(window))
		unlocked = streak >= cv
		progress = ratioProgress(float64(streak), float64(cv))
	case ConditionCustom:
		return e.scoreCustom(a, finished, history)
	default:
		log.Warnf("achievement [%s]: unknown condition type [%s]", a.ID, a.ConditionType)
		return 0, false, false
	}

	if !unlocked && progress >= 100 {
		// 100 is reserved for unlocked entries
		progress = 99
	}
	return progress, unlocked, true
}

func (e *Evaluator) scoreCustom(a Achievement, finished sessions.Session, history []sessions.Session) (int, bool, bool) {
	total := finished.Total()
	switch key := a.CustomKey(); key {
	case KeyMinimalPause:
		if total <= 0 {
			return 0, false, true
		}
		if float64(finished.Edge()) <= float64(total)*minimalPauseRatio {
			return 100, true, true
		}
		return 0, false, true
	case KeyStraightThrough:
		if len(finished.EdgeEvents) > 0 {
			return 0, false, true
		}
		if total >= straightThroughMillis {
			return 100, true, true
		}
		return clampProgress(ratioProgress(float64(total), straightThroughMillis)), false, true
	case KeyGettingStronger:
		prior := history
		if len(prior) > 0 {
			prior = prior[1:]
		}
		if len(prior) > streakWindow-1 {
			prior = prior[:streakWindow-1]
		}
		if len(prior) == 0 {
			return 0, false, true
		}
		var sum float64
		for _, s := range prior {
			sum += float64(s.Active())
		}
		avg := sum / float64(len(prior))
		if avg <= 0 {
			return 0, false, true
		}
		improvement := (float64(finished.Active()) - avg) / avg * 100
		if improvement >= gettingStrongerPct {
			return 100, true, true
		}
		return clampProgress(ratioProgress(improvement, gettingStrongerPct)), false, true
	default:
		log.Debugf("achievement [%s]: no rule for custom key [%s]", a.ID, key)
		return 0, false, false
	}
}

func compare(value, target int64, comparison Comparison) bool {
	switch comparison {
	case ComparisonLess:
		return value <= target
	case ComparisonEqual:
		return value == target
	default:
		return value >= target
	}
}

// ratioProgress is min(100, round(num/den*100)), 0 for a non positive denominator.
func ratioProgress(num, den float64) int {
	if den <= 0 {
		return 0
	}
	p := math.Round(num / den * 100)
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return int(p)
}

func clampProgress(p int) int {
	if p >= 100 {
		return 99
	}
	return p
}

// withFinishedFirst puts the finished session at the head of the newest-first
// history, dropping any stale copy of it from recent.
func withFinishedFirst(finished sessions.Session, recent []sessions.Session) []sessions.Session {
	history := make([]sessions.Session, 0, len(recent)+1)
	history = append(history, finished)
	for _, s := range recent {
		if finished.ID != "" && s.ID == finished.ID {
			continue
		}
		history = append(history, s)
	}
	return history
}
