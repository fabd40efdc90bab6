package analytics

import (
	"context"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/edgetrack/internal/auth"
	"github.com/2beens/edgetrack/internal/telemetry/tracing"
	"github.com/2beens/edgetrack/pkg"
)

type analyticsService interface {
	Analytics(ctx context.Context, userID string) (*Analytics, error)
	Coaching(ctx context.Context, userID string) (*CoachingContext, error)
	Streak(ctx context.Context, userID string) (*Streak, error)
	Level(ctx context.Context, userID string) (*Level, error)
}

type Handler struct {
	service analyticsService
}

func NewHandler(service analyticsService) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.analytics.get")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "error, user id missing", http.StatusUnauthorized)
		return
	}

	result, err := handler.service.Analytics(ctx, userID)
	if err != nil {
		log.Errorf("analytics for user [%s]: %s", userID, err)
		http.Error(w, "error, failed to compute analytics", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, result, http.StatusOK)
}

// HandleCoaching returns the coaching context as JSON, or as prompt text
// with ?format=prompt.
func (handler *Handler) HandleCoaching(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.analytics.coaching")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "error, user id missing", http.StatusUnauthorized)
		return
	}

	coaching, err := handler.service.Coaching(ctx, userID)
	if err != nil {
		log.Errorf("coaching context for user [%s]: %s", userID, err)
		http.Error(w, "error, failed to compute coaching context", http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("format") == "prompt" {
		pkg.WriteTextResponseOK(w, coaching.Prompt())
		return
	}
	pkg.WriteJSON(w, coaching, http.StatusOK)
}

func (handler *Handler) HandleStreak(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.analytics.streak")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "error, user id missing", http.StatusUnauthorized)
		return
	}

	streak, err := handler.service.Streak(ctx, userID)
	if err != nil {
		log.Errorf("streak for user [%s]: %s", userID, err)
		http.Error(w, "error, failed to compute streak", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, streak, http.StatusOK)
}

func (handler *Handler) HandleLevel(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.analytics.level")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "error, user id missing", http.StatusUnauthorized)
		return
	}

	level, err := handler.service.Level(ctx, userID)
	if err != nil {
		log.Errorf("level for user [%s]: %s", userID, err)
		http.Error(w, "error, failed to compute level", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, level, http.StatusOK)
}
