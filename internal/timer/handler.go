package timer

import (
	"context"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/edgetrack/internal/auth"
	"github.com/2beens/edgetrack/internal/telemetry/tracing"
	"github.com/2beens/edgetrack/pkg"
)

type timerRegistry interface {
	Get(ctx context.Context, userID string) (*Timer, error)
}

type transitionFunc func(t *Timer, ctx context.Context) (*TransitionResult, error)

type Handler struct {
	registry timerRegistry
}

func NewHandler(registry timerRegistry) *Handler {
	return &Handler{
		registry: registry,
	}
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.timer.get")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "error, user id missing", http.StatusUnauthorized)
		return
	}

	t, err := handler.registry.Get(ctx, userID)
	if err != nil {
		log.Errorf("get timer for user [%s]: %s", userID, err)
		http.Error(w, "error, timer unavailable", http.StatusServiceUnavailable)
		return
	}

	pkg.WriteJSON(w, t.Snapshot(), http.StatusOK)
}

func (handler *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	handler.handleTransition(w, r, "handler.timer.start", (*Timer).StartSession)
}

func (handler *Handler) HandleEdgeStart(w http.ResponseWriter, r *http.Request) {
	handler.handleTransition(w, r, "handler.timer.edge_start", (*Timer).StartEdge)
}

func (handler *Handler) HandleEdgeEnd(w http.ResponseWriter, r *http.Request) {
	handler.handleTransition(w, r, "handler.timer.edge_end", (*Timer).EndEdge)
}

func (handler *Handler) HandleFinish(w http.ResponseWriter, r *http.Request) {
	handler.handleTransition(w, r, "handler.timer.finish", (*Timer).FinishSession)
}

func (handler *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	handler.handleTransition(w, r, "handler.timer.reset", (*Timer).Reset)
}

func (handler *Handler) HandleAbort(w http.ResponseWriter, r *http.Request) {
	handler.handleTransition(w, r, "handler.timer.abort", (*Timer).Abort)
}

func (handler *Handler) handleTransition(w http.ResponseWriter, r *http.Request, spanName string, transition transitionFunc) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), spanName)
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "error, user id missing", http.StatusUnauthorized)
		return
	}

	t, err := handler.registry.Get(ctx, userID)
	if err != nil {
		log.Errorf("%s, get timer for user [%s]: %s", spanName, userID, err)
		http.Error(w, "error, timer unavailable", http.StatusServiceUnavailable)
		return
	}

	result, err := transition(t, ctx)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		log.Errorf("%s for user [%s]: %s", spanName, userID, err)
		http.Error(w, "error, timer transition failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, result, http.StatusOK)
}
