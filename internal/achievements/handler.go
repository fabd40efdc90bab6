package achievements

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/edgetrack/internal/auth"
	"github.com/2beens/edgetrack/internal/telemetry/tracing"
	"github.com/2beens/edgetrack/pkg"
)

type achievementsRepo interface {
	ListAchievements(ctx context.Context) ([]Achievement, error)
	ListUserAchievements(ctx context.Context, userID string) ([]UserAchievement, error)
}

type AchievementProgress struct {
	Achievement
	Progress   int        `json:"progress"`
	UnlockedAt *time.Time `json:"unlockedAt"`
}

type ListResponse struct {
	Achievements []AchievementProgress `json:"achievements"`
	Unlocked     int                   `json:"unlocked"`
}

type Handler struct {
	repo achievementsRepo
}

func NewHandler(repo achievementsRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.achievements.list")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "error, user id missing", http.StatusUnauthorized)
		return
	}

	catalog, err := handler.repo.ListAchievements(ctx)
	if err != nil {
		log.Errorf("list achievements: %s", err)
		http.Error(w, "error, failed to list achievements", http.StatusInternalServerError)
		return
	}
	userAchievements, err := handler.repo.ListUserAchievements(ctx, userID)
	if err != nil {
		log.Errorf("list achievements of user [%s]: %s", userID, err)
		http.Error(w, "error, failed to list achievements", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, Merge(catalog, userAchievements), http.StatusOK)
}

// Merge joins the catalog with the user's progress, keeping catalog order.
func Merge(catalog []Achievement, userAchievements []UserAchievement) ListResponse {
	byID := make(map[string]UserAchievement, len(userAchievements))
	for _, ua := range userAchievements {
		byID[ua.AchievementID] = ua
	}

	resp := ListResponse{
		Achievements: make([]AchievementProgress, 0, len(catalog)),
	}
	for _, a := range catalog {
		entry := AchievementProgress{Achievement: a}
		if ua, ok := byID[a.ID]; ok {
			entry.Progress = ua.Progress
			entry.UnlockedAt = ua.UnlockedAt
			if ua.IsUnlocked() {
				resp.Unlocked++
			}
		}
		resp.Achievements = append(resp.Achievements, entry)
	}
	return resp
}
