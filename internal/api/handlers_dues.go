/**
 * @description
 * HTTP handlers for dues management (class-rep dashboard) and the
 * payer-facing portal views. Rep endpoints resolve the acting rep from the
 * authenticated uid before touching any class data.
 */
package api

import (
	"net/http"

	"github.com/Ibuchukwu/bine-web/internal/app"
	"github.com/Ibuchukwu/bine-web/internal/domain"
)

// rep resolves the authenticated rep or writes the error response.
func (h *Handlers) rep(w http.ResponseWriter, r *http.Request) (*domain.RepProfile, bool) {
	uid, ok := RepUIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	rep, err := h.service.GetRep(r.Context(), uid)
	if err != nil {
		h.writeServiceError(w, err)
		return nil, false
	}
	return rep, true
}

// CreateDueHandler registers a new due under the rep's class.
func (h *Handlers) CreateDueHandler(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.rep(w, r)
	if !ok {
		return
	}
	var input app.CreateDueInput
	if !decodeBody(w, r, &input) {
		return
	}

	due, err := h.service.CreateDue(r.Context(), rep, input)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "due": due})
}

// FetchDuesHandler returns the rep's class dues.
func (h *Handlers) FetchDuesHandler(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.rep(w, r)
	if !ok {
		return
	}
	dues, err := h.service.FetchDues(r.Context(), rep)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "dues": dues})
}

// EditDueHandler applies edits to a due.
func (h *Handlers) EditDueHandler(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.rep(w, r)
	if !ok {
		return
	}
	var req struct {
		DueID string `json:"dueId"`
		app.EditDueInput
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.DueID == "" {
		h.writeError(w, http.StatusBadRequest, "due id is required")
		return
	}

	if err := h.service.EditDue(r.Context(), rep, req.DueID, req.EditDueInput); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "due updated"})
}

// DeleteDueHandler removes a due that has no payments yet.
func (h *Handlers) DeleteDueHandler(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.rep(w, r)
	if !ok {
		return
	}
	var req struct {
		DueID string `json:"dueId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.DueID == "" {
		h.writeError(w, http.StatusBadRequest, "due id is required")
		return
	}

	if err := h.service.DeleteDue(r.Context(), rep, req.DueID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "due deleted"})
}

// DueRecordsHandler returns a due's payment records.
func (h *Handlers) DueRecordsHandler(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.rep(w, r)
	if !ok {
		return
	}
	var req struct {
		DueID string `json:"dueId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	records, err := h.service.DueRecords(r.Context(), rep, req.DueID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "records": records})
}

// ConfirmDueReceiptHandler marks a payer's record as receipted.
func (h *Handlers) ConfirmDueReceiptHandler(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.rep(w, r)
	if !ok {
		return
	}
	var req struct {
		DueID string `json:"dueId"`
		Regno string `json:"regno"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.DueID == "" || req.Regno == "" {
		h.writeError(w, http.StatusBadRequest, "due id and regno are required")
		return
	}

	if err := h.service.ConfirmDueReceipt(r.Context(), rep, req.DueID, req.Regno); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "receipt confirmed"})
}

// GetClassDuesHandler is the payer-facing dues view.
func (h *Handlers) GetClassDuesHandler(w http.ResponseWriter, r *http.Request) {
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

	dues, err := h.service.GetClassDues(r.Context(), req.UniversityID, req.Regno)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "dues": dues})
}
