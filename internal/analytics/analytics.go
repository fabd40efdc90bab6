// Package analytics derives summary statistics, coaching context, streaks and
// levels from a user's session history. Everything here is recomputed on
// demand and never persisted.
package analytics

import (
	"github.com/montanaflynn/stats"

	"github.com/2beens/edgetrack/internal/sessions"
)

const improvementWindow = 3

// Analytics durations are milliseconds, rates are percentages.
type Analytics struct {
	AverageSessionDuration  float64 `json:"averageSessionDuration"`
	AverageEdgeDuration     float64 `json:"averageEdgeDuration"`
	AverageTimeBetweenEdges float64 `json:"averageTimeBetweenEdges"`
	AverageEdgesPerSession  float64 `json:"averageEdgesPerSession"`
	LongestSession          int64   `json:"longestSession"`
	ShortestSession         int64   `json:"shortestSession"`
	SuccessRate             float64 `json:"successRate"`
	TotalSessions           int     `json:"totalSessions"`
	TotalEdges              int     `json:"totalEdges"`
	ImprovementRate         float64 `json:"improvementRate"`
	StreakCount             int     `json:"streakCount"`
}

// Compute aggregates a newest-first session list. Missing or non numeric
// durations never cause an error; the affected sessions are left out of the
// duration based figures.
func Compute(newestFirst []sessions.Session) Analytics {
	if len(newestFirst) == 0 {
		return Analytics{}
	}

	result := Analytics{
		TotalSessions: len(newestFirst),
	}
	for _, s := range newestFirst {
		result.TotalEdges += len(s.EdgeEvents)
	}

	valid := make([]sessions.Session, 0, len(newestFirst))
	for _, s := range newestFirst {
		if s.HasNumericDurations() {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return result
	}

	totals := make(stats.Float64Data, 0, len(valid))
	var edgeSum float64
	for _, s := range valid {
		totals = append(totals, float64(s.Total()))
		edgeSum += float64(s.Edge())
	}

	result.AverageSessionDuration = mean(totals)
	longest, _ := totals.Max()
	shortest, _ := totals.Min()
	result.LongestSession = int64(longest)
	result.ShortestSession = int64(shortest)

	if result.TotalEdges > 0 {
		result.AverageEdgeDuration = edgeSum / float64(result.TotalEdges)
	}
	result.AverageEdgesPerSession = float64(result.TotalEdges) / float64(len(valid))
	result.AverageTimeBetweenEdges = averageTimeBetweenEdges(valid)

	result.SuccessRate = successRate(newestFirst)
	result.ImprovementRate = ImprovementRate(valid)
	result.StreakCount = sessions.SuccessStreak(newestFirst)

	return result
}

// ImprovementRate compares the mean total duration of the newest 3 sessions
// with the 3 before them, as a percentage rounded to one decimal.
// Fewer than 6 sessions, or an older mean of 0, yield 0.
func ImprovementRate(newestFirst []sessions.Session) float64 {
	if len(newestFirst) < 2*improvementWindow {
		return 0
	}

	recent := make(stats.Float64Data, 0, improvementWindow)
	older := make(stats.Float64Data, 0, improvementWindow)
	for i := 0; i < improvementWindow; i++ {
		recent = append(recent, float64(newestFirst[i].Total()))
		older = append(older, float64(newestFirst[i+improvementWindow].Total()))
	}

	olderAvg := mean(older)
	if olderAvg == 0 {
		return 0
	}

	rate, err := stats.Round((mean(recent)-olderAvg)/olderAvg*100, 1)
	if err != nil {
		return 0
	}
	return rate
}

func averageTimeBetweenEdges(list []sessions.Session) float64 {
	var sum float64
	pairs := 0
	for _, s := range list {
		edges := s.SortedEdges()
		for i := 1; i < len(edges); i++ {
			prev := edges[i-1]
			if prev.EndTime == nil || edges[i].StartTime.IsZero() {
				continue
			}
			sum += float64(edges[i].StartTime.Sub(*prev.EndTime).Milliseconds())
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return sum / float64(pairs)
}

func successRate(list []sessions.Session) float64 {
	if len(list) == 0 {
		return 0
	}
	successful := 0
	for _, s := range list {
		if !s.FinishedDuringEdge {
			successful++
		}
	}
	return float64(successful) / float64(len(list)) * 100
}

func mean(data stats.Float64Data) float64 {
	m, err := data.Mean()
	if err != nil {
		return 0
	}
	return m
}
