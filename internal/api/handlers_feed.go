package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mycelian/mycelian-feed/internal/api/respond"
	"github.com/mycelian/mycelian-feed/internal/api/validate"
	"github.com/mycelian/mycelian-feed/internal/model"
)

type FeedHandler struct {
	svc FeedService
}

func NewFeedHandler(svc FeedService) *FeedHandler { return &FeedHandler{svc: svc} }

// GetFeed GET /api/users/{userId}/feed?page=&pageSize=
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if err := validate.UserID(userID); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	q := r.URL.Query()
	page, err := validate.OptionalPositiveInt("page", q.Get("page"))
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	pageSize, err := validate.OptionalPositiveInt("pageSize", q.Get("pageSize"))
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	feed, err := h.svc.GetFeed(r.Context(), userID, page, pageSize, r.Header.Get(SessionHeader))
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, feed)
}

// RecordInteraction POST /api/users/{userId}/interactions
func (h *FeedHandler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if err := validate.UserID(userID); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	var req struct {
		ContentID string `json:"contentId"`
		Kind      string `json:"kind"`
		SessionID string `json:"sessionId,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.ContentID(req.ContentID); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	kind, err := model.ParseInteractionKind(req.Kind)
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if req.SessionID == "" {
		req.SessionID = r.Header.Get(SessionHeader)
	}

	h.svc.RecordInteraction(r.Context(), userID, req.ContentID, kind, req.SessionID)
	respond.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
