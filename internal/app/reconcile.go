/**
 * @description
 * Webhook reconciliation: decides what a gateway credit notification means
 * for the ledger and commits the settlement. The decision phase only reads;
 * the settlement transaction in the store re-validates everything it
 * depends on under row locks, so a duplicate or raced notification degrades
 * to a no-op instead of a double credit.
 */

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Ibuchukwu/bine-web/internal/domain"
	"github.com/Ibuchukwu/bine-web/internal/store"
)

// ErrAmountMismatch marks an under- or over-payment. The pending record is
// left untouched for manual resolution.
var ErrAmountMismatch = errors.New("reported amount does not match the expected amount")

// ReconcileOutcome describes what a notification did to the ledger.
type ReconcileOutcome string

const (
	// OutcomeSettled: the payment was settled by this notification.
	OutcomeSettled ReconcileOutcome = "settled"
	// OutcomeIgnored: no matching pending payment, or already processed.
	OutcomeIgnored ReconcileOutcome = "ignored"
)

// ReconcileResult is returned to the webhook handler.
type ReconcileResult struct {
	Outcome    ReconcileOutcome
	Settlement *store.SettlementResult
}

// Reconcile processes one gateway credit notification.
func (s *Service) Reconcile(ctx context.Context, notification domain.GatewayNotification) (*ReconcileResult, error) {
	accountNumber := notification.Data.Account.AccountNumber
	reported := domain.Round2(notification.Data.Amount)

	pending, err := s.repo.GetPendingPayment(ctx, accountNumber)
	if errors.Is(err, store.ErrPendingPaymentNotFound) {
		s.logger.Info("notification for unknown account; ignoring", "account_number", accountNumber)
		return &ReconcileResult{Outcome: OutcomeIgnored}, nil
	}
	if err != nil {
		return nil, err
	}
	if pending.Status != domain.PaymentStatusPending {
		s.logger.Info("notification replay for processed payment; ignoring",
			"account_number", accountNumber, "status", pending.Status)
		return &ReconcileResult{Outcome: OutcomeIgnored}, nil
	}

	class, err := s.repo.GetClassDetailsByRegno(ctx, pending.Regno, pending.UniversityID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve payer class: %w", err)
	}

	if reported != pending.Amount {
		direction := "underpay"
		delta := pending.Amount - reported
		if reported > pending.Amount {
			direction = "overpay"
			delta = reported - pending.Amount
		}
		event := domain.PaymentMismatchEvent{
			EventID:       uuid.NewString(),
			AccountNumber: accountNumber,
			Regno:         pending.Regno,
			Direction:     direction,
			Delta:         domain.Round2(delta),
			Expected:      pending.Amount,
			Reported:      reported,
			Class:         *class,
			OccurredAt:    time.Now().UTC(),
		}
		if pubErr := s.events.PublishPaymentEvent(ctx, domain.EventPaymentMismatch, event); pubErr != nil {
			s.logger.Error("failed to publish mismatch event", "account_number", accountNumber, "error", pubErr)
		}
		s.logger.Warn("payment amount mismatch",
			"account_number", accountNumber, "direction", direction,
			"expected", pending.Amount, "reported", reported)
		return nil, ErrAmountMismatch
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gateway payload: %w", err)
	}

	now := time.Now().UTC()
	settlement, err := s.repo.SettlePayment(ctx, accountNumber, reported, *class, payload, now)
	if errors.Is(err, store.ErrAlreadyProcessed) || errors.Is(err, store.ErrPendingPaymentNotFound) {
		// Lost the race against a concurrent webhook delivery; the first
		// delivery owns the settlement.
		return &ReconcileResult{Outcome: OutcomeIgnored}, nil
	}
	if err != nil {
		return nil, err
	}

	event := domain.PaymentSettledEvent{
		EventID:       uuid.NewString(),
		TxID:          settlement.TxID,
		AccountNumber: accountNumber,
		Regno:         pending.Regno,
		Amount:        settlement.Amount,
		SettledAmount: settlement.SettledAmount,
		UniversityID:  pending.UniversityID,
		SettledAt:     now,
	}
	if pubErr := s.events.PublishPaymentEvent(ctx, domain.EventPaymentSettled, event); pubErr != nil {
		s.logger.Warn("failed to publish settlement event", "tx_id", settlement.TxID, "error", pubErr)
	}

	s.logger.Info("payment settled",
		"tx_id", settlement.TxID, "account_number", accountNumber,
		"amount", settlement.Amount, "settled_amount", settlement.SettledAmount)
	return &ReconcileResult{Outcome: OutcomeSettled, Settlement: settlement}, nil
}
