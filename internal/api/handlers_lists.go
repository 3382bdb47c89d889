/**
 * @description
 * HTTP handlers for lists: rep-side roster management and the payer-facing
 * join/browse endpoints.
 */
package api

import (
	"net/http"

	"github.com/Ibuchukwu/bine-web/internal/app"
)

// CreateListHandler registers a new list under the rep's class.
func (h *Handlers) CreateListHandler(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.rep(w, r)
	if !ok {
		return
	}
	var input app.CreateListInput
	if !decodeBody(w, r, &input) {
		return
	}

	list, err := h.service.CreateList(r.Context(), rep, input)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "list": list})
}

// FetchListsHandler returns the rep's class lists.
func (h *Handlers) FetchListsHandler(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.rep(w, r)
	if !ok {
		return
	}
	lists, err := h.service.FetchLists(r.Context(), rep)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "lists": lists})
}

// EditListHandler applies edits to a list.
func (h *Handlers) EditListHandler(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.rep(w, r)
	if !ok {
		return
	}
	var req struct {
		ListID string `json:"listId"`
		app.EditListInput
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ListID == "" {
		h.writeError(w, http.StatusBadRequest, "list id is required")
		return
	}

	if err := h.service.EditList(r.Context(), rep, req.ListID, req.EditListInput); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "list updated"})
}

// DeleteListHandler removes a list nobody has joined yet.
func (h *Handlers) DeleteListHandler(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.rep(w, r)
	if !ok {
		return
	}
	var req struct {
		ListID string `json:"listId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ListID == "" {
		h.writeError(w, http.StatusBadRequest, "list id is required")
		return
	}

	if err := h.service.DeleteList(r.Context(), rep, req.ListID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "list deleted"})
}

// GetClassListsHandler is the payer-facing lists view.
func (h *Handlers) GetClassListsHandler(w http.ResponseWriter, r *http.Request) {
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

	lists, err := h.service.GetClassLists(r.Context(), req.UniversityID, req.Regno)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "lists": lists})
}

// JoinListHandler records the student on a list.
func (h *Handlers) JoinListHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UniversityID string `json:"universityId"`
		Regno        string `json:"regno"`
		ListID       string `json:"listId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UniversityID == "" || req.Regno == "" || req.ListID == "" {
		h.writeError(w, http.StatusBadRequest, "universityId, regno and listId are required")
		return
	}

	if err := h.service.JoinList(r.Context(), req.UniversityID, req.Regno, req.ListID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "joined list"})
}

// ListRecordsHandler returns a list's roster.
func (h *Handlers) ListRecordsHandler(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.rep(w, r)
	if !ok {
		return
	}
	var req struct {
		ListID string `json:"listId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	records, err := h.service.ListRecords(r.Context(), rep, req.ListID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "records": records})
}
