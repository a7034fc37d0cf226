package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"contract-collab-service/internal/domain"
	"contract-collab-service/internal/http/response"
	"contract-collab-service/internal/observability"
	"contract-collab-service/internal/service"
)

// PortalHandler is the external guest entry point. Every portal request
// presents the full opaque token; there is no guest cookie or JWT, so each
// open re-validates expiry, session status and membership.
type PortalHandler struct {
	issuer      *service.TokenIssuer
	coordinator service.CoordinatorInterface
}

func NewPortalHandler(issuer *service.TokenIssuer, coordinator service.CoordinatorInterface) *PortalHandler {
	return &PortalHandler{issuer: issuer, coordinator: coordinator}
}

// Open redeems a token and returns the handle the portal front-end needs to
// attach to the session.
func (h *PortalHandler) Open(w http.ResponseWriter, r *http.Request) {
	session, token, err := h.issuer.Redeem(chi.URLParam(r, "token"))
	if err != nil {
		h.writeRedeemError(w, r, err)
		return
	}
	observability.RecordTokenRedemption(r.Context(), "success")
	observability.Audit(r, "collab.portal.open", "session_id", session.ID, "party", token.PartyEmail)
	response.JSON(w, r, http.StatusOK, map[string]any{
		"session_id":      session.ID,
		"document_ref":    session.DocumentRef,
		"status":          session.Status,
		"participant_key": domain.ExternalParticipantKey(token.PartyEmail),
		"display_name":    token.PartyName,
		"expires_at":      token.ExpiresAt,
	})
}

type portalPresenceRequest struct {
	Anchor int64 `json:"anchor"`
	Head   int64 `json:"head"`
}

// ReportPresence lets an admitted guest publish cursor position. The token
// is re-validated on every report.
func (h *PortalHandler) ReportPresence(w http.ResponseWriter, r *http.Request) {
	session, token, err := h.issuer.Redeem(chi.URLParam(r, "token"))
	if err != nil {
		h.writeRedeemError(w, r, err)
		return
	}
	var req portalPresenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid presence payload", nil)
		return
	}
	displayName := token.PartyName
	if displayName == "" {
		displayName = token.PartyEmail
	}
	err = h.coordinator.ReportPresence(r.Context(), session.ID, service.PresenceReport{
		ParticipantKey: domain.ExternalParticipantKey(token.PartyEmail),
		DisplayName:    displayName,
		Anchor:         req.Anchor,
		Head:           req.Head,
	})
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	response.JSON(w, r, http.StatusAccepted, map[string]string{"status": "recorded"})
}

func (h *PortalHandler) writeRedeemError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrInvalidToken) {
		observability.RecordTokenRedemption(r.Context(), "rejected")
		// one code for expired, unknown and revoked-by-session-end alike
		response.Error(w, r, http.StatusUnauthorized, "INVALID_TOKEN", "token is not valid", nil)
		return
	}
	observability.RecordTokenRedemption(r.Context(), "error")
	response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
