package timer

import (
	"errors"
	"time"
)

type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseActive   Phase = "active"
	PhaseEdging   Phase = "edging"
	PhaseFinished Phase = "finished"
)

func (p Phase) valid() bool {
	switch p {
	case PhaseIdle, PhaseActive, PhaseEdging, PhaseFinished:
		return true
	}
	return false
}

// Running reports whether time is accruing in this phase.
func (p Phase) Running() bool {
	return p == PhaseActive || p == PhaseEdging
}

var (
	ErrInvalidTransition = errors.New("invalid timer transition")
	// ErrBrokenCheckpoint means the stored checkpoint can never be resumed,
	// as opposed to one that could not be read right now.
	ErrBrokenCheckpoint = errors.New("broken checkpoint")
)

// Lap is one edge of the running session. End and Duration stay nil while the
// edge is open. Duration is milliseconds.
type Lap struct {
	Start    time.Time  `json:"start"`
	End      *time.Time `json:"end"`
	Duration *int64     `json:"duration"`
}

// Snapshot is a copy of the timer state. Elapsed values are derived from the
// anchors so a client can redraw at any rate without drift.
type Snapshot struct {
	Phase              Phase      `json:"phase"`
	SessionID          string     `json:"sessionId,omitempty"`
	SessionStart       *time.Time `json:"sessionStart"`
	ActiveTime         int64      `json:"activeTime"`
	EdgeTime           int64      `json:"edgeTime"`
	ActiveAnchor       *time.Time `json:"activeAnchor"`
	EdgeAnchor         *time.Time `json:"edgeAnchor"`
	FinishedDuringEdge bool       `json:"finishedDuringEdge"`
	Laps               []Lap      `json:"laps"`
	ServerTime         time.Time  `json:"serverTime"`
}

type Elapsed struct {
	Active time.Duration `json:"active"`
	Edge   time.Duration `json:"edge"`
	Total  time.Duration `json:"total"`
}

// Elapsed is accumulated time plus now minus the anchor of the running bucket.
func (s Snapshot) Elapsed(now time.Time) Elapsed {
	active := time.Duration(s.ActiveTime) * time.Millisecond
	edge := time.Duration(s.EdgeTime) * time.Millisecond
	if s.Phase == PhaseActive && s.ActiveAnchor != nil {
		active += nonNegative(now.Sub(*s.ActiveAnchor))
	}
	if s.Phase == PhaseEdging && s.EdgeAnchor != nil {
		edge += nonNegative(now.Sub(*s.EdgeAnchor))
	}
	return Elapsed{
		Active: active,
		Edge:   edge,
		Total:  active + edge,
	}
}

// CurrentLap returns the open lap, if any.
func (s Snapshot) CurrentLap() (Lap, bool) {
	if len(s.Laps) == 0 {
		return Lap{}, false
	}
	last := s.Laps[len(s.Laps)-1]
	return last, last.End == nil
}

// TransitionResult is returned by every successful transition. Warnings carry
// persistence problems that did not stop the transition. Notices carry one-off
// messages for the user, such as unlocked achievements.
type TransitionResult struct {
	Snapshot Snapshot `json:"snapshot"`
	Warnings []string `json:"warnings"`
	Notices  []string `json:"notices"`
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
