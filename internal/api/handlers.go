/**
 * @description
 * This file contains the HTTP handlers for the payment endpoints of the
 * collections service. Handlers are responsible for parsing incoming
 * requests, calling the appropriate methods on the application service, and
 * writing the HTTP response. They act as the bridge between the web layer
 * and the business logic layer.
 *
 * @dependencies
 * - encoding/json, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Ibuchukwu/bine-web/internal/app"
	"github.com/Ibuchukwu/bine-web/internal/domain"
	"github.com/Ibuchukwu/bine-web/internal/store"
)

// Handlers holds the application service that handlers will use.
type Handlers struct {
	service *app.Service
	jobs    *app.Jobs
	logger  *slog.Logger
}

// NewHandlers creates a new instance of Handlers.
func NewHandlers(service *app.Service, jobs *app.Jobs, logger *slog.Logger) *Handlers {
	return &Handlers{service: service, jobs: jobs, logger: logger}
}

// writeJSON is a helper for writing JSON responses.
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{"success": false, "message": message})
}

// writeServiceError maps service and store errors onto HTTP statuses.
func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidAmount),
		errors.Is(err, app.ErrInvalidRegno),
		errors.Is(err, app.ErrEmptyCart),
		errors.Is(err, app.ErrInvalidCart),
		errors.Is(err, app.ErrInvalidNUBAN),
		errors.Is(err, app.ErrInvalidDueName),
		errors.Is(err, app.ErrInvalidDueType),
		errors.Is(err, app.ErrInvalidDueAmount),
		errors.Is(err, app.ErrInvalidListName),
		errors.Is(err, app.ErrInvalidProfileName):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrPendingPaymentNotFound),
		errors.Is(err, store.ErrProfileNotFound),
		errors.Is(err, store.ErrRepNotFound),
		errors.Is(err, store.ErrDueNotFound),
		errors.Is(err, store.ErrListNotFound),
		errors.Is(err, store.ErrRecordNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrNUBANExists),
		errors.Is(err, store.ErrProfileExists),
		errors.Is(err, store.ErrDueExists),
		errors.Is(err, store.ErrListExists),
		errors.Is(err, store.ErrDueHasPayments),
		errors.Is(err, store.ErrListHasRecords),
		errors.Is(err, store.ErrAlreadyProcessed):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrPoolExhausted):
		h.writeError(w, http.StatusServiceUnavailable, "no payment account available, try again shortly")
	default:
		h.logger.Error("internal error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "something went wrong")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// GetPortalPaymentHandler allocates a payment intent for a checkout.
func (h *Handlers) GetPortalPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req app.CreatePaymentIntentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	intent, err := h.service.CreatePaymentIntent(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"TxId":    intent.TxID,
		"accountDetails": map[string]interface{}{
			"accountNumber": intent.AccountNumber,
			"accountName":   intent.AccountName,
			"bankName":      intent.BankName,
			"amount":        intent.Amount,
			"expiresIn":     intent.ExpiresIn,
			"delay":         intent.Delay,
		},
	})
}

// CheckPaymentStatusHandler is polled by the portal while waiting for funds.
func (h *Handlers) CheckPaymentStatusHandler(w http.ResponseWriter, r *http.Request) {
	accountNumber := chi.URLParam(r, "accountNumber")
	if accountNumber == "" {
		h.writeError(w, http.StatusBadRequest, "account number is required")
		return
	}

	status, err := h.service.CheckPaymentStatus(r.Context(), accountNumber)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"status":  status.Status,
		"TxId":    status.TxID,
		"amount":  status.Amount,
	})
}

// CancelPaymentHandler is the payer-initiated reclaim.
func (h *Handlers) CancelPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountNumber string `json:"accountNumber"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.AccountNumber == "" {
		h.writeError(w, http.StatusBadRequest, "account number is required")
		return
	}

	cancelled, err := h.service.CancelPayment(r.Context(), req.AccountNumber)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "payment cancelled",
		"TxId":    cancelled.TxID,
	})
}

// CheckOrphanedHandler reports whether a NUBAN+amount pair belongs to an
// abandoned payment within the recovery window.
func (h *Handlers) CheckOrphanedHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountNumber string  `json:"accountNumber"`
		Amount        float64 `json:"amount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.AccountNumber == "" {
		h.writeError(w, http.StatusBadRequest, "account number is required")
		return
	}

	result, err := h.service.CheckOrphaned(r.Context(), req.AccountNumber, req.Amount)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"orphaned": result.Orphaned,
		"record":   result.Record,
	})
}

// CheckPaymentTimeoutHandler runs a sweep immediately. Internal callers only.
func (h *Handlers) CheckPaymentTimeoutHandler(w http.ResponseWriter, r *http.Request) {
	timedOut := h.jobs.SweepExpiredPayments()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "timedOut": timedOut})
}

// AddNUBANHandler registers an operator-supplied NUBAN into the pool.
func (h *Handlers) AddNUBANHandler(w http.ResponseWriter, r *http.Request) {
	var nuban domain.NUBAN
	if !decodeBody(w, r, &nuban) {
		return
	}

	if err := h.service.AddNUBAN(r.Context(), nuban); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "message": "nuban added"})
}
