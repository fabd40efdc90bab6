package timer

import (
	"fmt"
	"time"

	"github.com/2beens/edgetrack/internal/checkpoint"
	"github.com/2beens/edgetrack/pkg"
)

// record converts the timer state into its checkpoint form.
func (t *Timer) record(now time.Time) checkpoint.Record {
	rec := checkpoint.Record{
		State:              string(t.phase),
		SessionStart:       pkg.Millis(t.sessionStart),
		ActiveTime:         t.activeTime.Milliseconds(),
		EdgeTime:           t.edgeTime.Milliseconds(),
		SessionID:          t.sessionID,
		FinishedDuringEdge: t.finishedDuringEdge,
		EdgeLaps:           make([]checkpoint.Lap, 0, len(t.laps)),
		SavedAt:            pkg.Millis(now),
	}
	if !t.edgeAnchor.IsZero() {
		rec.CurrentEdgeStart = pkg.Int64Ptr(pkg.Millis(t.edgeAnchor))
	}
	if !t.activeAnchor.IsZero() {
		rec.LastActiveStart = pkg.Int64Ptr(pkg.Millis(t.activeAnchor))
	}
	for _, lap := range t.laps {
		cpLap := checkpoint.Lap{
			Start:    pkg.Millis(lap.Start),
			Duration: lap.Duration,
		}
		if lap.End != nil {
			cpLap.End = pkg.Int64Ptr(pkg.Millis(*lap.End))
		}
		rec.EdgeLaps = append(rec.EdgeLaps, cpLap)
	}
	return rec
}

// restore replaces the timer state with the checkpoint. An inconsistent
// record is rejected and leaves the timer untouched.
func (t *Timer) restore(rec *checkpoint.Record) error {
	phase := Phase(rec.State)
	if !phase.valid() {
		return fmt.Errorf("checkpoint has unknown state %q", rec.State)
	}
	if phase != PhaseIdle && rec.SessionID == "" {
		return fmt.Errorf("checkpoint in state %s has no session id", phase)
	}
	if phase == PhaseActive && rec.LastActiveStart == nil {
		return fmt.Errorf("active checkpoint has no active anchor")
	}
	if phase == PhaseEdging && rec.CurrentEdgeStart == nil {
		return fmt.Errorf("edging checkpoint has no edge anchor")
	}

	t.clearState()
	t.phase = phase
	t.sessionID = rec.SessionID
	if rec.SessionStart > 0 {
		t.sessionStart = pkg.FromMillis(rec.SessionStart)
	}
	t.activeTime = time.Duration(rec.ActiveTime) * time.Millisecond
	t.edgeTime = time.Duration(rec.EdgeTime) * time.Millisecond
	t.finishedDuringEdge = rec.FinishedDuringEdge
	if phase == PhaseActive {
		t.activeAnchor = pkg.FromMillis(*rec.LastActiveStart)
	}
	if phase == PhaseEdging {
		t.edgeAnchor = pkg.FromMillis(*rec.CurrentEdgeStart)
	}
	for _, cpLap := range rec.EdgeLaps {
		lap := Lap{
			Start:    pkg.FromMillis(cpLap.Start),
			Duration: cpLap.Duration,
		}
		if cpLap.End != nil {
			end := pkg.FromMillis(*cpLap.End)
			lap.End = &end
		}
		t.laps = append(t.laps, lap)
	}
	return nil
}
