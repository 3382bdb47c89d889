/**
 * @description
 * Scheduled job implementations for the collections service: the timeout
 * sweeper that reclaims NUBANs from expired pending payments.
 */
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Ibuchukwu/bine-web/internal/domain"
	"github.com/Ibuchukwu/bine-web/internal/store"
	"github.com/Ibuchukwu/bine-web/pkg/rabbitmq"
)

// SweeperRepository defines database operations needed by the sweep job.
type SweeperRepository interface {
	ListExpiredPendingPayments(ctx context.Context, createdBefore time.Time) ([]domain.PendingPayment, error)
	TimeoutPendingPayment(ctx context.Context, accountNumber string, now time.Time) (*domain.PendingPayment, error)
	RecordSweepRun(ctx context.Context, timedOut int, at time.Time) error
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	repo   SweeperRepository
	events rabbitmq.Publisher
	logger *slog.Logger
}

// NewJobs creates a new Jobs runner.
func NewJobs(repo SweeperRepository, events rabbitmq.Publisher, logger *slog.Logger) *Jobs {
	return &Jobs{
		repo:   repo,
		events: events,
		logger: logger,
	}
}

// SweepExpiredPayments times out every pending payment past its window and
// returns how many were reclaimed. Each record is reclaimed in its own
// transaction so one bad record never stalls the rest of the sweep; a record
// that settles mid-sweep loses the race cleanly to the settlement.
func (j *Jobs) SweepExpiredPayments() int {
	j.logger.Info("starting payment timeout sweep")
	ctx := context.Background()
	now := time.Now().UTC()

	expired, err := j.repo.ListExpiredPendingPayments(ctx, now.Add(-domain.PaymentExpiryWindow))
	if err != nil {
		j.logger.Error("failed to list expired payments", "error", err)
		return 0
	}
	if len(expired) == 0 {
		j.logger.Info("no expired payments to sweep")
		return 0
	}

	j.logger.Info("found expired payments", "count", len(expired))

	timedOut := 0
	for _, pending := range expired {
		reclaimed, err := j.repo.TimeoutPendingPayment(ctx, pending.AccountNumber, now)
		if err != nil {
			if errors.Is(err, store.ErrAlreadyProcessed) || errors.Is(err, store.ErrPendingPaymentNotFound) {
				j.logger.Info("payment resolved before sweep reached it", "account_number", pending.AccountNumber)
				continue
			}
			j.logger.Error("failed to time out payment", "account_number", pending.AccountNumber, "error", err)
			continue
		}
		timedOut++

		event := domain.PaymentReclaimedEvent{
			EventID:       uuid.NewString(),
			TxID:          reclaimed.TxID,
			AccountNumber: reclaimed.AccountNumber,
			Regno:         reclaimed.Regno,
			Amount:        reclaimed.Amount,
			Reason:        domain.PaymentStatusTimeout,
			OccurredAt:    now,
		}
		if err := j.events.PublishPaymentEvent(ctx, domain.EventPaymentTimeout, event); err != nil {
			j.logger.Warn("failed to publish timeout event", "account_number", reclaimed.AccountNumber, "error", err)
		}
	}

	if err := j.repo.RecordSweepRun(ctx, timedOut, now); err != nil {
		j.logger.Error("failed to record sweep run", "error", err)
	}
	j.logger.Info("payment timeout sweep finished", "timed_out", timedOut)
	return timedOut
}
