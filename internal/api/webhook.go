/**
 * @description
 * Inbound Billstack webhook. The source IP is checked against the two
 * allow-listed gateway addresses before any parsing work; an under/over
 * payment is answered 401 so the gateway's retry loop keeps the notification
 * alive while the mismatch is resolved manually.
 */
package api

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/Ibuchukwu/bine-web/internal/app"
	"github.com/Ibuchukwu/bine-web/internal/domain"
)

// WebhookHandler verifies and reconciles gateway credit notifications.
type WebhookHandler struct {
	service    *app.Service
	allowedIPs []string
}

// NewWebhookHandler creates a webhook handler restricted to the given
// gateway source IPs. Empty entries are dropped.
func NewWebhookHandler(service *app.Service, allowedIPs ...string) *WebhookHandler {
	ips := make([]string, 0, len(allowedIPs))
	for _, ip := range allowedIPs {
		if trimmed := strings.TrimSpace(ip); trimmed != "" {
			ips = append(ips, trimmed)
		}
	}
	return &WebhookHandler{service: service, allowedIPs: ips}
}

// sourceIP resolves the caller's address, preferring the first entry of
// X-Forwarded-For set by the edge proxy.
func sourceIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (wh *WebhookHandler) allowed(ip string) bool {
	for _, allowed := range wh.allowedIPs {
		if ip == allowed {
			return true
		}
	}
	return false
}

// ServeHTTP handles POST /paymentWebhook.
func (wh *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ip := sourceIP(r)
	if !wh.allowed(ip) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var notification domain.GatewayNotification
	if !decodeBody(w, r, &notification) {
		return
	}
	if notification.Data.Account.AccountNumber == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := wh.service.Reconcile(r.Context(), notification)
	if err != nil {
		if errors.Is(err, app.ErrAmountMismatch) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	message := "payment settled"
	if result.Outcome == app.OutcomeIgnored {
		message = "no matching pending payment"
	}
	w.Write([]byte(`{"success":true,"message":"` + message + `"}`))
}
