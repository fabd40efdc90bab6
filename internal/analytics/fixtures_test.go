package analytics_test

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/2beens/edgetrack/internal/sessions"
	"github.com/2beens/edgetrack/pkg"
)

var baseTime = time.Date(2024, 4, 15, 21, 0, 0, 0, time.UTC)

func session(createdAt time.Time, total int64, finishedDuringEdge bool) sessions.Session {
	return sessions.Session{
		ID:                 gofakeit.UUID(),
		UserID:             "user-1",
		StartTime:          createdAt,
		CreatedAt:          createdAt,
		TotalDuration:      pkg.Int64Ptr(total),
		ActiveDuration:     pkg.Int64Ptr(total),
		EdgeDuration:       pkg.Int64Ptr(0),
		FinishedDuringEdge: finishedDuringEdge,
		EdgeEvents:         []sessions.EdgeEvent{},
	}
}

// newestFirst builds sessions one hour apart, newest first, with the given totals.
func newestFirst(totals ...int64) []sessions.Session {
	list := make([]sessions.Session, 0, len(totals))
	for i, total := range totals {
		list = append(list, session(baseTime.Add(-time.Duration(i)*time.Hour), total, false))
	}
	return list
}

func closedEdge(start time.Time, d time.Duration) sessions.EdgeEvent {
	end := start.Add(d)
	return sessions.EdgeEvent{
		StartTime: start,
		EndTime:   &end,
		Duration:  pkg.Int64Ptr(d.Milliseconds()),
	}
}

func randomHistory(n int) []sessions.Session {
	list := make([]sessions.Session, 0, n)
	for i := 0; i < n; i++ {
		active := int64(gofakeit.IntRange(60_000, 3_600_000))
		edge := int64(gofakeit.IntRange(0, 300_000))
		s := session(baseTime.Add(-time.Duration(i)*24*time.Hour), active+edge, gofakeit.Bool())
		s.ActiveDuration = pkg.Int64Ptr(active)
		s.EdgeDuration = pkg.Int64Ptr(edge)
		for e := 0; e < gofakeit.IntRange(0, 4); e++ {
			s.EdgeEvents = append(s.EdgeEvents, closedEdge(s.StartTime.Add(time.Duration(e+1)*time.Minute), 20*time.Second))
		}
		if gofakeit.Number(0, 9) == 0 {
			s.TotalDuration = nil
		}
		list = append(list, s)
	}
	return list
}
