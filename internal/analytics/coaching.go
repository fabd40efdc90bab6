package analytics

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/2beens/edgetrack/internal/sessions"
)

type Trend string

const (
	TrendImproving Trend = "Improving"
	TrendDeclining Trend = "Declining"
	TrendStable    Trend = "Stable"
)

type EdgeManagement string

const (
	EdgeManagementExcellent EdgeManagement = "Excellent"
	EdgeManagementGood      EdgeManagement = "Good"
	EdgeManagementFair      EdgeManagement = "Fair"
	EdgeManagementNeedsWork EdgeManagement = "Needs work"
)

const (
	edgeExcellentMillis = 30_000
	edgeGoodMillis      = 60_000
	edgeFairMillis      = 120_000
)

// CoachingContext layers presentation heuristics over Analytics. It is the
// input for the text-completion coaching service.
type CoachingContext struct {
	Analytics            Analytics      `json:"analytics"`
	Trend                Trend          `json:"trend"`
	EdgeManagement       EdgeManagement `json:"edgeManagement"`
	ConsistencyScore     int            `json:"consistencyScore"`
	AverageGapDays       float64        `json:"averageGapDays"`
	DaysSinceLastSession float64        `json:"daysSinceLastSession"`
	Patterns             []string       `json:"patterns"`
}

func Coaching(newestFirst []sessions.Session, now time.Time) CoachingContext {
	c := CoachingContext{
		Analytics: Compute(newestFirst),
		Trend:     trend(newestFirst),
		Patterns:  []string{},
	}
	c.EdgeManagement = edgeManagement(c.Analytics.AverageEdgeDuration)
	c.AverageGapDays = averageGapDays(newestFirst)
	c.ConsistencyScore = consistencyScore(c.AverageGapDays, len(newestFirst))
	if len(newestFirst) > 0 {
		c.DaysSinceLastSession = roundTo(now.Sub(newestFirst[0].CreatedAt).Hours()/24, 1)
	}
	c.Patterns = patterns(c)
	return c
}

func trend(newestFirst []sessions.Session) Trend {
	if len(newestFirst) < 2*improvementWindow {
		return TrendStable
	}
	recent := successCount(newestFirst[:improvementWindow])
	older := successCount(newestFirst[improvementWindow : 2*improvementWindow])
	switch {
	case recent > older:
		return TrendImproving
	case recent < older:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func edgeManagement(avgEdgeMillis float64) EdgeManagement {
	switch {
	case avgEdgeMillis < edgeExcellentMillis:
		return EdgeManagementExcellent
	case avgEdgeMillis < edgeGoodMillis:
		return EdgeManagementGood
	case avgEdgeMillis < edgeFairMillis:
		return EdgeManagementFair
	default:
		return EdgeManagementNeedsWork
	}
}

// averageGapDays is the mean distance in days between consecutive sessions.
func averageGapDays(newestFirst []sessions.Session) float64 {
	if len(newestFirst) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(newestFirst); i++ {
		gap := newestFirst[i-1].CreatedAt.Sub(newestFirst[i].CreatedAt)
		sum += math.Abs(gap.Hours() / 24)
	}
	return roundTo(sum/float64(len(newestFirst)-1), 2)
}

// consistencyScore is 0 when there is no gap to measure yet.
func consistencyScore(avgGapDays float64, sessionsCount int) int {
	if sessionsCount < 2 {
		return 0
	}
	switch {
	case avgGapDays > 7:
		return 25
	case avgGapDays > 3:
		return 50
	case avgGapDays > 1:
		return 75
	default:
		return 100
	}
}

func patterns(c CoachingContext) []string {
	var p []string
	a := c.Analytics
	if a.TotalSessions == 0 {
		return []string{"No sessions recorded yet."}
	}

	switch c.EdgeManagement {
	case EdgeManagementExcellent:
		if a.TotalEdges > 0 {
			p = append(p, "Edges are short and well controlled.")
		}
	case EdgeManagementFair:
		p = append(p, "Edges last over a minute on average; aim to recover faster.")
	case EdgeManagementNeedsWork:
		p = append(p, "Edges run past two minutes on average; recovery is the main thing to work on.")
	}

	if a.TotalSessions >= 2 {
		switch {
		case c.AverageGapDays > 7:
			p = append(p, "Sessions are more than a week apart.")
		case c.AverageGapDays > 3:
			p = append(p, "Sessions happen a couple of times a week.")
		case c.AverageGapDays <= 1:
			p = append(p, "Practicing daily or close to it.")
		}
	}

	switch c.Trend {
	case TrendImproving:
		p = append(p, "Recent sessions end during an edge less often than before.")
	case TrendDeclining:
		p = append(p, "Recent sessions end during an edge more often than before.")
	}

	if a.ImprovementRate >= 10 {
		p = append(p, fmt.Sprintf("Sessions got %.1f%% longer recently.", a.ImprovementRate))
	} else if a.ImprovementRate <= -10 {
		p = append(p, fmt.Sprintf("Sessions got %.1f%% shorter recently.", -a.ImprovementRate))
	}

	if p == nil {
		p = []string{}
	}
	return p
}

// Prompt renders the context as plain text for a completion model.
func (c CoachingContext) Prompt() string {
	a := c.Analytics
	var b strings.Builder
	b.WriteString("Training summary\n")
	fmt.Fprintf(&b, "- Sessions: %d (success rate %.0f%%, current streak %d)\n", a.TotalSessions, a.SuccessRate, a.StreakCount)
	fmt.Fprintf(&b, "- Average session: %s, longest %s, shortest %s\n",
		formatMillis(a.AverageSessionDuration), formatMillis(float64(a.LongestSession)), formatMillis(float64(a.ShortestSession)))
	fmt.Fprintf(&b, "- Edges: %d total, %.1f per session, average %s, %s apart\n",
		a.TotalEdges, a.AverageEdgesPerSession, formatMillis(a.AverageEdgeDuration), formatMillis(a.AverageTimeBetweenEdges))
	fmt.Fprintf(&b, "- Improvement rate: %.1f%%\n", a.ImprovementRate)
	fmt.Fprintf(&b, "- Trend: %s\n", c.Trend)
	fmt.Fprintf(&b, "- Edge management: %s\n", c.EdgeManagement)
	fmt.Fprintf(&b, "- Consistency: %d/100 (%.1f days between sessions, last one %.1f days ago)\n",
		c.ConsistencyScore, c.AverageGapDays, c.DaysSinceLastSession)
	if len(c.Patterns) > 0 {
		b.WriteString("Observations\n")
		for _, p := range c.Patterns {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	return b.String()
}

func successCount(list []sessions.Session) int {
	n := 0
	for _, s := range list {
		if !s.FinishedDuringEdge {
			n++
		}
	}
	return n
}

func formatMillis(ms float64) string {
	return (time.Duration(ms) * time.Millisecond).Round(time.Second).String()
}

func roundTo(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
