package achievements

import (
	"strings"
	"time"
	"unicode"
)

type Category string

const (
	CategoryEndurance Category = "endurance"
	CategoryControl   Category = "control"
	CategoryProgress  Category = "progress"
	CategorySpecial   Category = "special"
)

type ConditionType string

const (
	ConditionDuration     ConditionType = "duration"
	ConditionEdgeCount    ConditionType = "edge_count"
	ConditionEdgeDuration ConditionType = "edge_duration"
	ConditionStreak       ConditionType = "streak"
	ConditionCustom       ConditionType = "custom"
)

type Comparison string

const (
	ComparisonGreater Comparison = "greater"
	ComparisonLess    Comparison = "less"
	ComparisonEqual   Comparison = "equal"
)

// Achievement is an immutable catalog entry.
type Achievement struct {
	ID                  string        `json:"id"`
	Name                string        `json:"name"`
	Key                 string        `json:"key,omitempty"`
	Description         string        `json:"description"`
	Category            Category      `json:"category"`
	ConditionType       ConditionType `json:"conditionType"`
	ConditionValue      int64         `json:"conditionValue"`
	ConditionComparison Comparison    `json:"conditionComparison"`
	Points              int           `json:"points"`
}

// CustomKey identifies the rule behind a custom condition. The stable Key wins;
// the normalized display name is the fallback for catalog rows without one.
func (a Achievement) CustomKey() string {
	if a.Key != "" {
		return a.Key
	}
	return NormalizeName(a.Name)
}

// UserAchievement is per-user progress toward one achievement.
type UserAchievement struct {
	UserID        string     `json:"userId"`
	AchievementID string     `json:"achievementId"`
	Progress      int        `json:"progress"`
	UnlockedAt    *time.Time `json:"unlockedAt"`
}

func (ua UserAchievement) IsUnlocked() bool {
	return ua.UnlockedAt != nil || ua.Progress >= 100
}

// NormalizeName lower-cases name and turns every run of non alphanumerics
// into a single underscore: "Minimal Pause!" -> "minimal_pause".
func NormalizeName(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}
