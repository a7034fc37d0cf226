package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"contract-collab-service/internal/http/middleware"
	"contract-collab-service/internal/http/response"
	"contract-collab-service/internal/observability"
	"contract-collab-service/internal/repository"
	"contract-collab-service/internal/service"
)

type CollabHandler struct {
	coordinator service.CoordinatorInterface
	sessions    repository.SessionRepository
}

func NewCollabHandler(coordinator service.CoordinatorInterface, sessions repository.SessionRepository) *CollabHandler {
	return &CollabHandler{coordinator: coordinator, sessions: sessions}
}

type startOrJoinRequest struct {
	DocumentRef   string `json:"document_ref"`
	EnterpriseRef string `json:"enterprise_ref"`
}

func (h *CollabHandler) StartOrJoin(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	var req startOrJoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DocumentRef == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "document_ref is required", nil)
		return
	}
	session, created, err := h.coordinator.StartOrJoin(r.Context(), req.DocumentRef, req.EnterpriseRef, claims.Subject)
	if err != nil {
		writeCollabError(w, r, err)
		return
	}
	observability.Audit(r, "collab.session.start_or_join", "session_id", session.ID, "created", created)
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.JSON(w, r, status, map[string]any{"session": session, "created": created})
}

func (h *CollabHandler) Describe(w http.ResponseWriter, r *http.Request) {
	detail, err := h.coordinator.Describe(r.Context(), chi.URLParam(r, "session_id"))
	if err != nil {
		writeCollabError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, detail)
}

func (h *CollabHandler) ListDocumentSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.ListByDocument(chi.URLParam(r, "document_ref"))
	if err != nil {
		writeCollabError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"sessions": sessions})
}

func (h *CollabHandler) Invite(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	var target service.InviteTarget
	if err := json.NewDecoder(r.Body).Decode(&target); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid invite target", nil)
		return
	}
	result, err := h.coordinator.Invite(r.Context(), chi.URLParam(r, "session_id"), claims.Subject, target)
	if err != nil {
		writeCollabError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

func (h *CollabHandler) Remove(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	var target service.InviteTarget
	if err := json.NewDecoder(r.Body).Decode(&target); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid removal target", nil)
		return
	}
	session, err := h.coordinator.Remove(r.Context(), chi.URLParam(r, "session_id"), claims.Subject, target)
	if err != nil {
		writeCollabError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"session": session})
}

func (h *CollabHandler) End(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	session, err := h.coordinator.End(r.Context(), chi.URLParam(r, "session_id"), claims.Subject)
	if err != nil {
		writeCollabError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"session": session})
}

type presenceRequest struct {
	Anchor int64 `json:"anchor"`
	Head   int64 `json:"head"`
}

func (h *CollabHandler) ReportPresence(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	var req presenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid presence payload", nil)
		return
	}
	displayName := claims.DisplayName
	if displayName == "" {
		displayName = claims.Subject
	}
	err := h.coordinator.ReportPresence(r.Context(), chi.URLParam(r, "session_id"), service.PresenceReport{
		ParticipantKey: claims.Subject,
		DisplayName:    displayName,
		Anchor:         req.Anchor,
		Head:           req.Head,
	})
	if err != nil {
		writeCollabError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusAccepted, map[string]string{"status": "recorded"})
}

func writeCollabError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		response.Error(w, r, http.StatusNotFound, "SESSION_NOT_FOUND", "session not found", nil)
	case errors.Is(err, repository.ErrSessionEnded):
		response.Error(w, r, http.StatusConflict, "SESSION_ENDED", "session is no longer active", nil)
	case errors.Is(err, service.ErrIssuance):
		response.Error(w, r, http.StatusConflict, "ISSUANCE_REFUSED", "cannot issue token for this session", nil)
	case errors.Is(err, service.ErrInvalidInviteTarget):
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
