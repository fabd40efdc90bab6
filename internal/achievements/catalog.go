package achievements

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

type catalogStore interface {
	ListAchievements(ctx context.Context) ([]Achievement, error)
	AddAchievement(ctx context.Context, a Achievement) error
}

// EnsureCatalog seeds DefaultCatalog when the store has no achievements yet.
// It returns the number of inserted entries.
func EnsureCatalog(ctx context.Context, store catalogStore) (int, error) {
	existing, err := store.ListAchievements(ctx)
	if err != nil {
		return 0, fmt.Errorf("list achievements: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	added := 0
	for _, a := range DefaultCatalog() {
		if err := store.AddAchievement(ctx, a); err != nil {
			return added, fmt.Errorf("add achievement %s: %w", a.ID, err)
		}
		added++
	}
	log.Infof("achievement catalog seeded with %d entries", added)
	return added, nil
}

const (
	KeyMinimalPause    = "minimal_pause"
	KeyStraightThrough = "straight_through"
	KeyGettingStronger = "getting_stronger"
)

// DefaultCatalog is seeded into an empty database on start-up.
func DefaultCatalog() []Achievement {
	return []Achievement{
		{
			ID: "ten-minute-mark", Name: "Ten Minute Mark",
			Description: "Finish a session lasting at least 10 minutes",
			Category:    CategoryEndurance, ConditionType: ConditionDuration,
			ConditionValue: 10 * 60 * 1000, ConditionComparison: ComparisonGreater, Points: 10,
		},
		{
			ID: "half-hour-hold", Name: "Half Hour Hold",
			Description: "Finish a session lasting at least 30 minutes",
			Category:    CategoryEndurance, ConditionType: ConditionDuration,
			ConditionValue: 30 * 60 * 1000, ConditionComparison: ComparisonGreater, Points: 25,
		},
		{
			ID: "hour-of-power", Name: "Hour of Power",
			Description: "Finish a session lasting at least an hour",
			Category:    CategoryEndurance, ConditionType: ConditionDuration,
			ConditionValue: 60 * 60 * 1000, ConditionComparison: ComparisonGreater, Points: 50,
		},
		{
			ID: "no-edges-needed", Name: "No Edges Needed",
			Description: "Finish a session without a single edge",
			Category:    CategoryControl, ConditionType: ConditionEdgeCount,
			ConditionValue: 0, ConditionComparison: ComparisonEqual, Points: 15,
		},
		{
			ID: "three-edges", Name: "Three Edges",
			Description: "Finish a session with exactly three edges",
			Category:    CategoryControl, ConditionType: ConditionEdgeCount,
			ConditionValue: 3, ConditionComparison: ComparisonEqual, Points: 10,
		},
		{
			ID: "quick-recovery", Name: "Quick Recovery",
			Description: "Keep every edge of a session under 30 seconds",
			Category:    CategoryControl, ConditionType: ConditionEdgeDuration,
			ConditionValue: 30 * 1000, ConditionComparison: ComparisonLess, Points: 15,
		},
		{
			ID: "streak-of-three", Name: "Streak of Three",
			Description: "Three sessions in a row not finished during an edge",
			Category:    CategoryProgress, ConditionType: ConditionStreak,
			ConditionValue: 3, ConditionComparison: ComparisonGreater, Points: 20,
		},
		{
			ID: "streak-of-ten", Name: "Streak of Ten",
			Description: "Ten sessions in a row not finished during an edge",
			Category:    CategoryProgress, ConditionType: ConditionStreak,
			ConditionValue: 10, ConditionComparison: ComparisonGreater, Points: 50,
		},
		{
			ID: "minimal-pause", Name: "Minimal Pause", Key: KeyMinimalPause,
			Description: "Edge time at most 10% of the whole session",
			Category:    CategorySpecial, ConditionType: ConditionCustom, Points: 25,
		},
		{
			ID: "straight-through", Name: "Straight Through", Key: KeyStraightThrough,
			Description: "15 minutes or more without an edge",
			Category:    CategorySpecial, ConditionType: ConditionCustom, Points: 25,
		},
		{
			ID: "getting-stronger", Name: "Getting Stronger", Key: KeyGettingStronger,
			Description: "Active time 25% above the average of your previous 9 sessions",
			Category:    CategorySpecial, ConditionType: ConditionCustom, Points: 25,
		},
	}
}
