package analytics

import (
	"github.com/2beens/edgetrack/internal/achievements"
)

const xpPerLevel = 100

type Level struct {
	Level          int `json:"level"`
	CurrentLevelXP int `json:"currentLevelXp"`
	ProgressPct    int `json:"progressPct"`
	TotalXP        int `json:"totalXp"`
}

// LevelFor sums the points of every completed achievement. The level curve is
// flat, so the progress percentage equals the XP into the current level.
func LevelFor(userAchievements []achievements.UserAchievement, catalog []achievements.Achievement) Level {
	points := make(map[string]int, len(catalog))
	for _, a := range catalog {
		points[a.ID] = a.Points
	}

	xp := 0
	for _, ua := range userAchievements {
		if ua.Progress == 100 {
			xp += points[ua.AchievementID]
		}
	}

	return Level{
		Level:          xp/xpPerLevel + 1,
		CurrentLevelXP: xp % xpPerLevel,
		ProgressPct:    xp % xpPerLevel,
		TotalXP:        xp,
	}
}
