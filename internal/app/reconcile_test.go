package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ibuchukwu/bine-web/internal/domain"
	"github.com/Ibuchukwu/bine-web/internal/store"
)

func creditNotification(accountNumber string, amount float64) domain.GatewayNotification {
	n := domain.GatewayNotification{Event: "PAYMENT_NOTIFICATION"}
	n.Data.Amount = amount
	n.Data.Account.AccountNumber = accountNumber
	return n
}

func pendingFixture(accountNumber string, amount float64) *domain.PendingPayment {
	now := time.Now().UTC()
	return &domain.PendingPayment{
		AccountNumber: accountNumber,
		TxID:          "23456abc",
		Amount:        amount,
		Regno:         "2019123456",
		StudentName:   "Ngozi Okafor",
		UniversityID:  "esut",
		Status:        domain.PaymentStatusPending,
		CreatedAt:     now,
		ExpiresAt:     now.Add(domain.PaymentExpiryWindow),
	}
}

func classFixture() *domain.ClassDetails {
	return &domain.ClassDetails{
		ClassScope: domain.ClassScope{
			UniversityID: "esut",
			FacultyID:    "engineering",
			DepartmentID: "computer-engineering",
			ClassID:      "2019",
		},
		DepartmentName: "Computer Engineering",
	}
}

func TestReconcileIgnoresUnknownAccount(t *testing.T) {
	svc := newTestService(&repoStub{}, &gatewayStub{}, &publisherStub{})

	result, err := svc.Reconcile(context.Background(), creditNotification("9999999999", 5000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeIgnored {
		t.Fatalf("outcome = %q, want ignored", result.Outcome)
	}
}

func TestReconcileIgnoresProcessedPayment(t *testing.T) {
	settleCalled := false
	repo := &repoStub{
		getPendingPaymentFn: func(ctx context.Context, accountNumber string) (*domain.PendingPayment, error) {
			pending := pendingFixture(accountNumber, 5000)
			pending.Status = domain.PaymentStatusSuccess
			return pending, nil
		},
		settlePaymentFn: func(ctx context.Context, accountNumber string, amount float64, class domain.ClassDetails, gateway domain.GatewayMeta, now time.Time) (*store.SettlementResult, error) {
			settleCalled = true
			return nil, store.ErrAlreadyProcessed
		},
	}
	svc := newTestService(repo, &gatewayStub{}, &publisherStub{})

	result, err := svc.Reconcile(context.Background(), creditNotification("9000000001", 5000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeIgnored {
		t.Fatalf("outcome = %q, want ignored", result.Outcome)
	}
	if settleCalled {
		t.Fatal("a replay must not reach the settlement transaction")
	}
}

func TestReconcileAmountMismatch(t *testing.T) {
	cases := []struct {
		name      string
		reported  float64
		direction string
		delta     float64
	}{
		{"underpayment", 4500, "underpay", 500},
		{"overpayment", 5200, "overpay", 200},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			settleCalled := false
			repo := &repoStub{
				getPendingPaymentFn: func(ctx context.Context, accountNumber string) (*domain.PendingPayment, error) {
					return pendingFixture(accountNumber, 5000), nil
				},
				getClassDetailsFn: func(ctx context.Context, regno, universityID string) (*domain.ClassDetails, error) {
					return classFixture(), nil
				},
				settlePaymentFn: func(ctx context.Context, accountNumber string, amount float64, class domain.ClassDetails, gateway domain.GatewayMeta, now time.Time) (*store.SettlementResult, error) {
					settleCalled = true
					return nil, errors.New("should not be called")
				},
			}
			events := &publisherStub{}
			svc := newTestService(repo, &gatewayStub{}, events)

			_, err := svc.Reconcile(context.Background(), creditNotification("9000000001", c.reported))
			if !errors.Is(err, ErrAmountMismatch) {
				t.Fatalf("got %v, want ErrAmountMismatch", err)
			}
			if settleCalled {
				t.Fatal("a mismatch must not reach the settlement transaction")
			}

			published := events.published()
			if len(published) != 1 || published[0].routingKey != domain.EventPaymentMismatch {
				t.Fatalf("published = %+v, want one %s event", published, domain.EventPaymentMismatch)
			}
			event, ok := published[0].body.(domain.PaymentMismatchEvent)
			if !ok {
				t.Fatalf("event body has type %T", published[0].body)
			}
			if event.Direction != c.direction || event.Delta != c.delta {
				t.Fatalf("event direction/delta = %s/%v, want %s/%v", event.Direction, event.Delta, c.direction, c.delta)
			}
			if event.Expected != 5000 || event.Reported != c.reported {
				t.Fatalf("event expected/reported = %v/%v", event.Expected, event.Reported)
			}
		})
	}
}

func TestReconcileSettlesExactMatch(t *testing.T) {
	var settledAccount string
	var settledAmount float64
	repo := &repoStub{
		getPendingPaymentFn: func(ctx context.Context, accountNumber string) (*domain.PendingPayment, error) {
			return pendingFixture(accountNumber, 5000), nil
		},
		getClassDetailsFn: func(ctx context.Context, regno, universityID string) (*domain.ClassDetails, error) {
			return classFixture(), nil
		},
		settlePaymentFn: func(ctx context.Context, accountNumber string, amount float64, class domain.ClassDetails, gateway domain.GatewayMeta, now time.Time) (*store.SettlementResult, error) {
			settledAccount = accountNumber
			settledAmount = amount
			if len(gateway) == 0 {
				t.Error("settlement should carry the raw gateway payload")
			}
			return &store.SettlementResult{
				TxID:          "23456abc",
				Amount:        amount,
				Charge:        domain.GetUnCharge(amount),
				SettledAmount: domain.Round2(amount - domain.GetUnCharge(amount)),
			}, nil
		},
	}
	events := &publisherStub{}
	svc := newTestService(repo, &gatewayStub{}, events)

	result, err := svc.Reconcile(context.Background(), creditNotification("9000000001", 5000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeSettled {
		t.Fatalf("outcome = %q, want settled", result.Outcome)
	}
	if settledAccount != "9000000001" || settledAmount != 5000 {
		t.Fatalf("settled %s/%v, want 9000000001/5000", settledAccount, settledAmount)
	}
	if result.Settlement.SettledAmount != 4940.71 {
		t.Fatalf("settled amount = %v, want 4940.71", result.Settlement.SettledAmount)
	}

	published := events.published()
	if len(published) != 1 || published[0].routingKey != domain.EventPaymentSettled {
		t.Fatalf("published = %+v, want one %s event", published, domain.EventPaymentSettled)
	}
}

func TestReconcileLosesSettlementRace(t *testing.T) {
	repo := &repoStub{
		getPendingPaymentFn: func(ctx context.Context, accountNumber string) (*domain.PendingPayment, error) {
			return pendingFixture(accountNumber, 5000), nil
		},
		getClassDetailsFn: func(ctx context.Context, regno, universityID string) (*domain.ClassDetails, error) {
			return classFixture(), nil
		},
		settlePaymentFn: func(ctx context.Context, accountNumber string, amount float64, class domain.ClassDetails, gateway domain.GatewayMeta, now time.Time) (*store.SettlementResult, error) {
			return nil, store.ErrAlreadyProcessed
		},
	}
	events := &publisherStub{}
	svc := newTestService(repo, &gatewayStub{}, events)

	result, err := svc.Reconcile(context.Background(), creditNotification("9000000001", 5000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeIgnored {
		t.Fatalf("outcome = %q, want ignored", result.Outcome)
	}
	if len(events.published()) != 0 {
		t.Fatal("losing the settlement race must not publish a settled event")
	}
}
