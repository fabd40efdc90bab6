package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/edgetrack/internal/auth"
	"github.com/2beens/edgetrack/internal/telemetry/tracing"
	"github.com/2beens/edgetrack/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=sessions_test

type sessionsRepo interface {
	ListSessions(ctx context.Context, params ListParams) ([]Session, error)
	DeleteSession(ctx context.Context, userID, id string) error
}

// invalidator drops cached derived values after the user's history changes.
type invalidator interface {
	Invalidate(userID string)
}

type ListResponse struct {
	Sessions []Session `json:"sessions"`
	Total    int       `json:"total"`
}

type DeleteSessionResponse struct {
	DeletedID string `json:"deletedId"`
}

type Handler struct {
	repo         sessionsRepo
	invalidator  invalidator
	historyLimit int
}

func NewHandler(repo sessionsRepo, invalidator invalidator, historyLimit int) *Handler {
	if historyLimit <= 0 {
		historyLimit = defaultListLimit
	}
	return &Handler{
		repo:         repo,
		invalidator:  invalidator,
		historyLimit: historyLimit,
	}
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.list")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "error, user id missing", http.StatusUnauthorized)
		return
	}

	limitStr := mux.Vars(r)["limit"]
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		http.Error(w, "error, limit invalid", http.StatusBadRequest)
		return
	}
	if limit > handler.historyLimit {
		limit = handler.historyLimit
	}

	sessions, err := handler.repo.ListSessions(ctx, ListParams{
		UserID: userID,
		Limit:  limit,
	})
	if err != nil {
		log.Errorf("list sessions for user [%s]: %s", userID, err)
		http.Error(w, "error, failed to list sessions", http.StatusInternalServerError)
		return
	}

	resp := ListResponse{
		Sessions: sessions,
		Total:    len(sessions),
	}
	respJson, err := json.Marshal(resp)
	if err != nil {
		log.Errorf("marshal sessions list: %s", err)
		http.Error(w, "error, failed to list sessions", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.delete")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "error, user id missing", http.StatusUnauthorized)
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	if err := handler.repo.DeleteSession(ctx, userID, id); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "error, session not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete session [%s] for user [%s]: %s", id, userID, err)
		http.Error(w, "error, failed to delete session", http.StatusInternalServerError)
		return
	}

	handler.invalidator.Invalidate(userID)
	log.Debugf("session [%s] deleted by user [%s]", id, userID)

	pkg.WriteJSON(w, DeleteSessionResponse{DeletedID: id}, http.StatusOK)
}
