package sessions

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoOpenEdge      = errors.New("no open edge event")
	ErrEdgeAlreadyOpen = errors.New("edge event already open")
	ErrValidation      = errors.New("validation failed")
)

// Session is one timed practice attempt. Durations are milliseconds; a nil
// duration means the value is unknown (e.g. a record that was never finished).
type Session struct {
	ID                 string      `json:"id"`
	UserID             string      `json:"userId"`
	StartTime          time.Time   `json:"startTime"`
	EndTime            *time.Time  `json:"endTime"`
	ActiveDuration     *int64      `json:"activeDuration"`
	EdgeDuration       *int64      `json:"edgeDuration"`
	TotalDuration      *int64      `json:"totalDuration"`
	FinishedDuringEdge bool        `json:"finishedDuringEdge"`
	CreatedAt          time.Time   `json:"createdAt"`
	EdgeEvents         []EdgeEvent `json:"edgeEvents"`
}

// EdgeEvent is a single edge within a session. EndTime and Duration stay nil
// while the edge is open.
type EdgeEvent struct {
	ID        int        `json:"id"`
	SessionID string     `json:"sessionId"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
	Duration  *int64     `json:"duration"`
}

func (e EdgeEvent) IsOpen() bool {
	return e.EndTime == nil
}

// HasNumericDurations reports whether both total and edge durations are known.
func (s Session) HasNumericDurations() bool {
	return s.TotalDuration != nil && s.EdgeDuration != nil
}

func (s Session) IsFinished() bool {
	return s.EndTime != nil
}

func (s Session) Total() int64 {
	return valueOrZero(s.TotalDuration)
}

func (s Session) Active() int64 {
	return valueOrZero(s.ActiveDuration)
}

func (s Session) Edge() int64 {
	return valueOrZero(s.EdgeDuration)
}

// SortedEdges returns the session's edge events ordered by start time.
func (s Session) SortedEdges() []EdgeEvent {
	edges := make([]EdgeEvent, len(s.EdgeEvents))
	copy(edges, s.EdgeEvents)
	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].StartTime.Before(edges[j].StartTime)
	})
	return edges
}

// MaxEdgeDuration is the longest closed edge in the session, 0 if none.
func (s Session) MaxEdgeDuration() int64 {
	var longest int64
	for _, e := range s.EdgeEvents {
		if e.Duration != nil && *e.Duration > longest {
			longest = *e.Duration
		}
	}
	return longest
}

func (s Session) Validate() error {
	if s.UserID == "" {
		return fmt.Errorf("%w: user id empty", ErrValidation)
	}
	if s.StartTime.IsZero() {
		return fmt.Errorf("%w: start time empty", ErrValidation)
	}
	for name, d := range map[string]*int64{
		"active duration": s.ActiveDuration,
		"edge duration":   s.EdgeDuration,
		"total duration":  s.TotalDuration,
	} {
		if d != nil && *d < 0 {
			return fmt.Errorf("%w: negative %s", ErrValidation, name)
		}
	}
	return nil
}

// SessionUpdate is a partial update; nil fields are left untouched.
type SessionUpdate struct {
	EndTime            *time.Time
	ActiveDuration     *int64
	EdgeDuration       *int64
	TotalDuration      *int64
	FinishedDuringEdge *bool
}

func (u SessionUpdate) Validate() error {
	for name, d := range map[string]*int64{
		"active duration": u.ActiveDuration,
		"edge duration":   u.EdgeDuration,
		"total duration":  u.TotalDuration,
	} {
		if d != nil && *d < 0 {
			return fmt.Errorf("%w: negative %s", ErrValidation, name)
		}
	}
	if u.TotalDuration != nil && u.ActiveDuration != nil && u.EdgeDuration != nil &&
		*u.TotalDuration != *u.ActiveDuration+*u.EdgeDuration {
		return fmt.Errorf(
			"%w: total duration %d != active %d + edge %d",
			ErrValidation, *u.TotalDuration, *u.ActiveDuration, *u.EdgeDuration,
		)
	}
	return nil
}

type ListParams struct {
	UserID string
	Limit  int
}

func valueOrZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

// SuccessStreak counts sessions from the start of a newest-first list that were
// not finished during an edge. The first failure ends the count.
func SuccessStreak(newestFirst []Session) int {
	streak := 0
	for _, s := range newestFirst {
		if s.FinishedDuringEdge {
			break
		}
		streak++
	}
	return streak
}
