package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Ibuchukwu/bine-web/internal/domain"
	"github.com/Ibuchukwu/bine-web/internal/store"
)

func TestSweepExpiredPaymentsReclaimsAndRecords(t *testing.T) {
	var cutoff time.Time
	var timedOutAccounts []string
	recordedCount := -1

	repo := &repoStub{
		listExpiredFn: func(ctx context.Context, createdBefore time.Time) ([]domain.PendingPayment, error) {
			cutoff = createdBefore
			return []domain.PendingPayment{
				{AccountNumber: "9000000001", TxID: "23456aaa", Regno: "2019123456", Amount: 5000},
				{AccountNumber: "9000000002", TxID: "23456bbb", Regno: "2019123457", Amount: 3000},
				{AccountNumber: "9000000003", TxID: "23456ccc", Regno: "2019123458", Amount: 1500},
			}, nil
		},
		timeoutPendingPaymentFn: func(ctx context.Context, accountNumber string, now time.Time) (*domain.PendingPayment, error) {
			// The second record settled between listing and locking.
			if accountNumber == "9000000002" {
				return nil, store.ErrAlreadyProcessed
			}
			timedOutAccounts = append(timedOutAccounts, accountNumber)
			return &domain.PendingPayment{AccountNumber: accountNumber, Status: domain.PaymentStatusTimeout}, nil
		},
		recordSweepRunFn: func(ctx context.Context, timedOut int, at time.Time) error {
			recordedCount = timedOut
			return nil
		},
	}
	events := &publisherStub{}
	jobs := NewJobs(repo, events, slog.New(slog.NewTextHandler(io.Discard, nil)))

	timedOut := jobs.SweepExpiredPayments()

	if time.Since(cutoff) < domain.PaymentExpiryWindow {
		t.Fatalf("cutoff %v is inside the expiry window", cutoff)
	}
	if timedOut != 2 {
		t.Fatalf("sweep returned %d, want 2", timedOut)
	}
	if len(timedOutAccounts) != 2 {
		t.Fatalf("timed out %v, want the two still-pending records", timedOutAccounts)
	}
	if recordedCount != 2 {
		t.Fatalf("recorded sweep count = %d, want 2", recordedCount)
	}

	published := events.published()
	if len(published) != 2 {
		t.Fatalf("published %d events, want 2", len(published))
	}
	for _, p := range published {
		if p.routingKey != domain.EventPaymentTimeout {
			t.Fatalf("routing key = %q, want %q", p.routingKey, domain.EventPaymentTimeout)
		}
		event, ok := p.body.(domain.PaymentReclaimedEvent)
		if !ok {
			t.Fatalf("event body has type %T", p.body)
		}
		if event.Reason != domain.PaymentStatusTimeout {
			t.Fatalf("event reason = %q", event.Reason)
		}
	}
}

func TestSweepWithNothingExpired(t *testing.T) {
	recorded := false
	repo := &repoStub{
		recordSweepRunFn: func(ctx context.Context, timedOut int, at time.Time) error {
			recorded = true
			return nil
		},
	}
	events := &publisherStub{}
	jobs := NewJobs(repo, events, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if timedOut := jobs.SweepExpiredPayments(); timedOut != 0 {
		t.Fatalf("sweep returned %d, want 0", timedOut)
	}

	if recorded {
		t.Fatal("an empty sweep should not write a sweep run")
	}
	if len(events.published()) != 0 {
		t.Fatal("an empty sweep should publish nothing")
	}
}
