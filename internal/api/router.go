/**
 * @description
 * This file sets up the HTTP router for the collections service. It defines
 * the API endpoints, associates them with their corresponding handlers, and
 * applies any necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS for the browser portal.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Ibuchukwu/bine-web/internal/config"
)

// Routes creates and returns the service router.
func Routes(h *Handlers, webhook *WebhookHandler, cfg config.Config) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Gateway webhook; source-IP checked inside the handler.
	r.Post("/paymentWebhook", webhook.ServeHTTP)

	// Public portal endpoints.
	r.Post("/getPortalPayment", h.GetPortalPaymentHandler)
	r.Get("/checkPaymentStatus/{accountNumber}", h.CheckPaymentStatusHandler)
	r.Post("/cancelPayment", h.CancelPaymentHandler)
	r.Post("/getProfile", h.GetProfileHandler)
	r.Post("/getClassDues", h.GetClassDuesHandler)
	r.Post("/getClassLists", h.GetClassListsHandler)
	r.Post("/joinList", h.JoinListHandler)

	// Profile creation serves both anonymous students and authenticated reps.
	r.Group(func(r chi.Router) {
		r.Use(OptionalRepAuthMiddleware(cfg.JWTSecret))
		r.Post("/createProfile", h.CreateProfileHandler)
	})

	// Class-rep dashboard endpoints.
	r.Group(func(r chi.Router) {
		r.Use(RepAuthMiddleware(cfg.JWTSecret))

		r.Post("/createDue", h.CreateDueHandler)
		r.Get("/fetchDues", h.FetchDuesHandler)
		r.Post("/editDue", h.EditDueHandler)
		r.Post("/deleteDue", h.DeleteDueHandler)
		r.Post("/dueRecords", h.DueRecordsHandler)
		r.Post("/confirmDueReciept", h.ConfirmDueReceiptHandler)

		r.Post("/createlist", h.CreateListHandler)
		r.Get("/fetchlists", h.FetchListsHandler)
		r.Post("/editlist", h.EditListHandler)
		r.Post("/deletelist", h.DeleteListHandler)
		r.Post("/listRecords", h.ListRecordsHandler)
	})

	// Internal endpoints for the scheduler and operators. The orphan check
	// sits here too: it is a recovery tool, not a portal surface, and an
	// open probe would let anyone fish for NUBAN/amount pairs.
	r.Group(func(r chi.Router) {
		r.Use(InternalAuthMiddleware(cfg.InternalAPIKey))

		r.Post("/checkPaymentTimeout", h.CheckPaymentTimeoutHandler)
		r.Post("/checkOrphanedPayments", h.CheckOrphanedHandler)
		r.Post("/addnuban", h.AddNUBANHandler)
	})

	return r
}
