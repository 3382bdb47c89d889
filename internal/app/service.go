/**
 * @description
 * This file contains the core business logic for the collections service. The
 * `Service` struct orchestrates payment intent allocation, cancellation,
 * status checks, orphan detection and NUBAN pool replenishment, coordinating
 * between the database repository, the Billstack gateway client and the
 * message broker.
 *
 * Key features:
 * - Validates and allocates payment intents against the NUBAN pool.
 * - Replenishes the pool from the gateway when it runs low or dry.
 * - Publishes payment lifecycle events to RabbitMQ for out-of-band handling.
 *
 * @dependencies
 * - context, errors, fmt, time: Standard Go libraries.
 * - github.com/google/uuid: For event and gateway reference ids.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/billstackclient, pkg/rabbitmq: For external service communication.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Ibuchukwu/bine-web/internal/domain"
	"github.com/Ibuchukwu/bine-web/internal/store"
	"github.com/Ibuchukwu/bine-web/pkg/billstackclient"
	"github.com/Ibuchukwu/bine-web/pkg/rabbitmq"
)

// MinimumPaymentAmount is the smallest accepted intent amount in naira.
const MinimumPaymentAmount = 10.0

// Validation errors surfaced to the API layer as 400s.
var (
	ErrInvalidAmount = errors.New("amount must be at least 10 naira")
	ErrInvalidRegno  = errors.New("regno must be non-empty uppercase alphanumeric")
	ErrEmptyCart     = errors.New("cart must contain at least one due")
	ErrInvalidCart   = errors.New("every cart item needs a due id")
	ErrInvalidNUBAN  = errors.New("nuban needs an account number, name and bank")
)

var regnoPattern = regexp.MustCompile(`^[A-Z0-9]+$`)

// GatewayClient mints virtual accounts. Satisfied by billstackclient.Client.
type GatewayClient interface {
	GenerateVirtualAccount(ctx context.Context, req billstackclient.GenerateVirtualAccountRequest) (*domain.NUBAN, error)
}

// Service provides the core business logic for collections.
type Service struct {
	repo      store.Repository
	gateway   GatewayClient
	events    rabbitmq.Publisher
	logger    *slog.Logger
	lowWater  int
	batchSize int

	replenishing atomic.Bool
}

// NewService creates a new collections service instance.
func NewService(repo store.Repository, gateway GatewayClient, events rabbitmq.Publisher, logger *slog.Logger, lowWater, batchSize int) *Service {
	return &Service{
		repo:      repo,
		gateway:   gateway,
		events:    events,
		logger:    logger,
		lowWater:  lowWater,
		batchSize: batchSize,
	}
}

// CreatePaymentIntentRequest is the portal's checkout payload.
type CreatePaymentIntentRequest struct {
	Regno        string            `json:"regno"`
	StudentName  string            `json:"studentName"`
	Email        string            `json:"email"`
	Phone        string            `json:"phone"`
	UniversityID string            `json:"universityId"`
	Amount       float64           `json:"amount"`
	Cart         []domain.CartItem `json:"cart"`
}

func (r CreatePaymentIntentRequest) validate() error {
	if r.Amount < MinimumPaymentAmount {
		return ErrInvalidAmount
	}
	if r.Regno == "" || !regnoPattern.MatchString(r.Regno) {
		return ErrInvalidRegno
	}
	if len(r.Cart) == 0 {
		return ErrEmptyCart
	}
	for _, item := range r.Cart {
		if item.DueID == "" {
			return ErrInvalidCart
		}
	}
	return nil
}

// CreatePaymentIntent allocates a NUBAN from the pool and binds a pending
// payment to it. When the pool is dry it replenishes from the gateway once
// and retries; a low pool triggers replenishment in the background.
func (s *Service) CreatePaymentIntent(ctx context.Context, req CreatePaymentIntentRequest) (*domain.PaymentIntent, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	pending := &domain.PendingPayment{
		TxID:         domain.NewTransactionID(req.Regno, now),
		Amount:       domain.Round2(req.Amount),
		Cart:         req.Cart,
		Regno:        req.Regno,
		StudentName:  req.StudentName,
		UniversityID: req.UniversityID,
		CreatedAt:    now,
		ExpiresAt:    now.Add(domain.PaymentExpiryWindow),
	}

	err := s.repo.CreatePaymentIntent(ctx, pending)
	if errors.Is(err, store.ErrPoolExhausted) {
		s.logger.Warn("nuban pool exhausted; replenishing inline", "regno", req.Regno)
		if repErr := s.Replenish(ctx); repErr != nil {
			return nil, fmt.Errorf("pool exhausted and replenishment failed: %w", repErr)
		}
		err = s.repo.CreatePaymentIntent(ctx, pending)
	}
	if err != nil {
		return nil, err
	}

	go s.replenishIfLow(context.WithoutCancel(ctx))

	return &domain.PaymentIntent{
		AccountNumber: pending.AccountDetails.AccountNumber,
		AccountName:   pending.AccountDetails.AccountName,
		BankName:      pending.AccountDetails.BankName,
		Amount:        pending.Amount,
		ExpiresIn:     pending.ExpiresAt,
		Delay:         int(domain.PaymentExpiryWindow.Seconds()),
		TxID:          pending.TxID,
	}, nil
}

// CancelPayment is the payer-initiated reclaim of a pending payment.
func (s *Service) CancelPayment(ctx context.Context, accountNumber string) (*domain.PendingPayment, error) {
	cancelled, err := s.repo.CancelPendingPayment(ctx, accountNumber, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	event := domain.PaymentReclaimedEvent{
		EventID:       uuid.NewString(),
		TxID:          cancelled.TxID,
		AccountNumber: cancelled.AccountNumber,
		Regno:         cancelled.Regno,
		Amount:        cancelled.Amount,
		Reason:        domain.PaymentStatusCancelled,
		OccurredAt:    time.Now().UTC(),
	}
	if err := s.events.PublishPaymentEvent(ctx, domain.EventPaymentCancelled, event); err != nil {
		s.logger.Warn("failed to publish cancellation event", "account_number", accountNumber, "error", err)
	}
	return cancelled, nil
}

// PaymentStatus is what the portal polls while waiting for funds.
type PaymentStatus struct {
	Status string  `json:"status"`
	TxID   string  `json:"TxId"`
	Amount float64 `json:"amount"`
}

// CheckPaymentStatus reports a pending payment's current state. Observing a
// settled payment triggers the lazy cleanup that frees its NUBAN.
func (s *Service) CheckPaymentStatus(ctx context.Context, accountNumber string) (*PaymentStatus, error) {
	pending, err := s.repo.GetPendingPayment(ctx, accountNumber)
	if errors.Is(err, store.ErrPendingPaymentNotFound) {
		archived, archErr := s.repo.GetArchivedPayment(ctx, accountNumber)
		if archErr != nil {
			return nil, err
		}
		return &PaymentStatus{Status: archived.Status, TxID: archived.TxID, Amount: archived.Amount}, nil
	}
	if err != nil {
		return nil, err
	}

	if pending.Status == domain.PaymentStatusSuccess {
		if finErr := s.repo.FinalizeSuccessfulPayment(ctx, accountNumber); finErr != nil && !errors.Is(finErr, store.ErrAlreadyProcessed) {
			s.logger.Warn("failed to finalize settled payment", "account_number", accountNumber, "error", finErr)
		}
	}
	return &PaymentStatus{Status: pending.Status, TxID: pending.TxID, Amount: pending.Amount}, nil
}

// CheckOrphaned reports whether a NUBAN+amount pair matches a payment the
// main flow abandoned: archived under failed_payments first, then a record
// still sitting pending. Matches outside the recovery window are ignored.
func (s *Service) CheckOrphaned(ctx context.Context, accountNumber string, amount float64) (*domain.OrphanCheckResult, error) {
	cutoff := time.Now().UTC().Add(-domain.OrphanRecoveryWindow)

	archived, err := s.repo.GetArchivedPayment(ctx, accountNumber)
	if err == nil {
		if archived.CreatedAt.After(cutoff) && archived.Amount == amount {
			return &domain.OrphanCheckResult{Orphaned: true, Record: archived}, nil
		}
		return &domain.OrphanCheckResult{}, nil
	}
	if !errors.Is(err, store.ErrPendingPaymentNotFound) {
		return nil, err
	}

	pending, err := s.repo.GetPendingPayment(ctx, accountNumber)
	if errors.Is(err, store.ErrPendingPaymentNotFound) {
		return &domain.OrphanCheckResult{}, nil
	}
	if err != nil {
		return nil, err
	}
	if pending.Status == domain.PaymentStatusPending && pending.CreatedAt.After(cutoff) && pending.Amount == amount {
		return &domain.OrphanCheckResult{Orphaned: true, Record: pending}, nil
	}
	return &domain.OrphanCheckResult{}, nil
}

// AddNUBAN registers an operator-supplied NUBAN into the pool.
func (s *Service) AddNUBAN(ctx context.Context, nuban domain.NUBAN) error {
	if nuban.AccountNumber == "" || nuban.AccountName == "" || nuban.BankName == "" {
		return ErrInvalidNUBAN
	}
	return s.repo.AddNUBAN(ctx, nuban)
}

// Replenish mints one batch of NUBANs from the gateway and appends them to
// the pool. Gateway calls happen outside any database transaction; failed
// mints are skipped so a partial batch still lands.
func (s *Service) Replenish(ctx context.Context) error {
	minted := make([]domain.NUBAN, 0, s.batchSize)
	for i := 0; i < s.batchSize; i++ {
		ref := uuid.NewString()
		nuban, err := s.gateway.GenerateVirtualAccount(ctx, billstackclient.GenerateVirtualAccountRequest{
			Email:     fmt.Sprintf("pool+%s@bine.africa", ref),
			Reference: ref,
			FirstName: "Bine",
			LastName:  "Collections",
			Phone:     "08000000000",
			Bank:      "9PSB",
		})
		if err != nil {
			s.logger.Warn("nuban mint failed; skipping", "reference", ref, "error", err)
			continue
		}
		minted = append(minted, *nuban)
	}
	if len(minted) == 0 {
		return errors.New("gateway produced no nubans")
	}

	seeded, err := s.repo.AppendNUBANs(ctx, minted)
	if err != nil {
		return fmt.Errorf("failed to append nubans: %w", err)
	}
	s.logger.Info("nuban pool replenished", "minted", len(minted), "seeded_available", seeded)
	return nil
}

// replenishIfLow tops the pool up in the background when the available set
// falls under the low-water mark. A single in-flight replenishment at a time.
func (s *Service) replenishIfLow(ctx context.Context) {
	if !s.replenishing.CompareAndSwap(false, true) {
		return
	}
	defer s.replenishing.Store(false)

	_, available, err := s.repo.CountNUBANs(ctx)
	if err != nil {
		s.logger.Warn("failed to count nuban pool", "error", err)
		return
	}
	if available >= s.lowWater {
		return
	}
	if err := s.Replenish(ctx); err != nil {
		s.logger.Error("background replenishment failed", "error", err)
	}
}
