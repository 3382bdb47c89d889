package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Ibuchukwu/bine-web/internal/app"
	"github.com/Ibuchukwu/bine-web/internal/domain"
	"github.com/Ibuchukwu/bine-web/internal/store"
)

// reconcileRepoStub covers the read-plan-settle path the webhook exercises.
// The embedded interface panics on anything else, which is the point.
type reconcileRepoStub struct {
	store.Repository
	pending   map[string]*domain.PendingPayment
	settleErr error
	settled   []string
}

func (r *reconcileRepoStub) GetPendingPayment(ctx context.Context, accountNumber string) (*domain.PendingPayment, error) {
	if p, ok := r.pending[accountNumber]; ok {
		return p, nil
	}
	return nil, store.ErrPendingPaymentNotFound
}

func (r *reconcileRepoStub) GetClassDetailsByRegno(ctx context.Context, regno, universityID string) (*domain.ClassDetails, error) {
	return &domain.ClassDetails{
		ClassScope: domain.ClassScope{
			UniversityID: universityID,
			FacultyID:    "engineering",
			DepartmentID: "computer-engineering",
			ClassID:      "2019",
		},
	}, nil
}

func (r *reconcileRepoStub) SettlePayment(ctx context.Context, accountNumber string, amount float64, class domain.ClassDetails, gateway domain.GatewayMeta, now time.Time) (*store.SettlementResult, error) {
	if r.settleErr != nil {
		return nil, r.settleErr
	}
	r.settled = append(r.settled, accountNumber)
	return &store.SettlementResult{
		TxID:          "23456abc",
		Amount:        amount,
		Charge:        domain.GetUnCharge(amount),
		SettledAmount: domain.Round2(amount - domain.GetUnCharge(amount)),
	}, nil
}

type noopPublisher struct{}

func (noopPublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	return nil
}

func (noopPublisher) PublishPaymentEvent(ctx context.Context, routingKey string, body interface{}) error {
	return nil
}

func (noopPublisher) Close() {}

func newWebhookHandler(repo store.Repository) *WebhookHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := app.NewService(repo, nil, noopPublisher{}, logger, 5, 5)
	return NewWebhookHandler(service, "52.214.14.220", "34.245.153.116")
}

func webhookRequest(body, forwardedFor string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/paymentWebhook", strings.NewReader(body))
	req.RemoteAddr = "10.0.0.7:44218"
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	return req
}

const creditBody = `{"event":"PAYMENT_NOTIFICATION","data":{"amount":5000,"account":{"account_number":"9000000001"}}}`

func pendingFixture() map[string]*domain.PendingPayment {
	now := time.Now().UTC()
	return map[string]*domain.PendingPayment{
		"9000000001": {
			AccountNumber: "9000000001",
			TxID:          "23456abc",
			Amount:        5000,
			Regno:         "2019123456",
			UniversityID:  "esut",
			Status:        domain.PaymentStatusPending,
			CreatedAt:     now,
			ExpiresAt:     now.Add(domain.PaymentExpiryWindow),
		},
	}
}

func TestWebhookRejectsUnknownSourceIP(t *testing.T) {
	handler := newWebhookHandler(&reconcileRepoStub{pending: pendingFixture()})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, webhookRequest(creditBody, "203.0.113.50"))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestWebhookUsesFirstForwardedEntry(t *testing.T) {
	repo := &reconcileRepoStub{pending: pendingFixture()}
	handler := newWebhookHandler(repo)

	// A spoofed allow-listed address appended by the client must not win.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, webhookRequest(creditBody, "203.0.113.50, 52.214.14.220"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for spoofed chain", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, webhookRequest(creditBody, "52.214.14.220, 10.0.0.7"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for gateway-first chain", rec.Code)
	}
	if len(repo.settled) != 1 {
		t.Fatalf("settled %v, want one settlement", repo.settled)
	}
}

func TestWebhookRejectsMalformedBody(t *testing.T) {
	handler := newWebhookHandler(&reconcileRepoStub{pending: pendingFixture()})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, webhookRequest(`{"event":`, "52.214.14.220"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, webhookRequest(`{"event":"PAYMENT_NOTIFICATION","data":{"amount":5000}}`, "52.214.14.220"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 when account number is missing", rec.Code)
	}
}

func TestWebhookAmountMismatchAnswers401(t *testing.T) {
	repo := &reconcileRepoStub{pending: pendingFixture()}
	handler := newWebhookHandler(repo)

	underpaid := `{"event":"PAYMENT_NOTIFICATION","data":{"amount":4500,"account":{"account_number":"9000000001"}}}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, webhookRequest(underpaid, "52.214.14.220"))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if len(repo.settled) != 0 {
		t.Fatal("a mismatched notification must not settle")
	}
}

func TestWebhookSettlesMatchingNotification(t *testing.T) {
	repo := &reconcileRepoStub{pending: pendingFixture()}
	handler := newWebhookHandler(repo)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, webhookRequest(creditBody, "52.214.14.220"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "payment settled") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestWebhookIgnoresUnknownAccount(t *testing.T) {
	handler := newWebhookHandler(&reconcileRepoStub{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, webhookRequest(creditBody, "52.214.14.220"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no matching pending payment") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestWebhookReplayIsIdempotent(t *testing.T) {
	repo := &reconcileRepoStub{pending: pendingFixture(), settleErr: store.ErrAlreadyProcessed}
	handler := newWebhookHandler(repo)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, webhookRequest(creditBody, "52.214.14.220"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no matching pending payment") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
