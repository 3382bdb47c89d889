/**
 * @description
 * HTTP handlers for the student directory. Profile creation serves both
 * self-service students and class reps through one endpoint: the initiator
 * is resolved here, once, from the optional bearer token.
 */
package api

import (
	"net/http"

	"github.com/Ibuchukwu/bine-web/internal/app"
	"github.com/Ibuchukwu/bine-web/internal/domain"
)

// GetProfileHandler returns a student's directory entry plus any pending
// payment the portal can offer to resume.
func (h *Handlers) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UniversityID string `json:"universityId"`
		Regno        string `json:"regno"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UniversityID == "" || req.Regno == "" {
		h.writeError(w, http.StatusBadRequest, "universityId and regno are required")
		return
	}

	overview, err := h.service.GetProfile(r.Context(), req.UniversityID, req.Regno)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"profile":        overview.Profile,
		"pendingPayment": overview.PendingPayment,
	})
}

// CreateProfileHandler registers a student. A valid rep token makes the
// creation admin-initiated; otherwise it is self-service.
func (h *Handlers) CreateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var input app.CreateProfileInput
	if !decodeBody(w, r, &input) {
		return
	}

	initiator := domain.Initiator{Kind: domain.SelfService}
	if uid, ok := RepUIDFromContext(r.Context()); ok {
		initiator = domain.Initiator{Kind: domain.AdminInitiated, UID: uid}
	}

	profile, err := h.service.CreateProfile(r.Context(), initiator, input)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "profile": profile})
}
