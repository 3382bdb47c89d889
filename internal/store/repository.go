/**
 * @description
 * This file defines the `Repository` interface, the contract for all data
 * access the collections service needs. The application layer depends only
 * on this interface, keeping the reconciliation and pool logic testable
 * against in-memory stubs.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - internal/domain: The service's domain models.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/Ibuchukwu/bine-web/internal/domain"
)

var (
	ErrPoolExhausted          = errors.New("no available NUBAN in the pool")
	ErrNUBANExists            = errors.New("NUBAN already exists")
	ErrPendingPaymentNotFound = errors.New("pending payment not found")
	ErrAlreadyProcessed       = errors.New("payment already processed")
	ErrProfileNotFound        = errors.New("student profile not found")
	ErrProfileExists          = errors.New("student profile already exists")
	ErrRepNotFound            = errors.New("rep profile not found")
	ErrDueExists              = errors.New("due already exists")
	ErrDueNotFound            = errors.New("due not found")
	ErrDueHasPayments         = errors.New("due has existing payment records")
	ErrListExists             = errors.New("list already exists")
	ErrListNotFound           = errors.New("list not found")
	ErrListHasRecords         = errors.New("list already has members")
	ErrRecordNotFound         = errors.New("record not found")
)

// SettlementResult summarizes what a committed settlement wrote.
type SettlementResult struct {
	TxID          string
	Amount        float64
	Charge        float64
	SettledAmount float64
	// Serials maps each due in the cart to the serial number assigned.
	Serials map[string]int64
}

// DueUpdate carries optional field updates for a due. Nil fields are left
// untouched.
type DueUpdate struct {
	Name         *string
	Type         *string
	Amount       *float64
	Charge       *float64
	Description  *string
	DueBatch     *string
	IsCompulsory *bool
	IsOneTime    *bool
	PassCharge   *bool
	Status       *string
	UpdatedBy    string
}

// ListUpdate carries optional field updates for a list. Nil fields are left
// unchanged.
type ListUpdate struct {
	Name         *string
	Description  *string
	ListBatch    *string
	IsCompulsory *bool
	Status       *string
	UpdatedBy    string
}

// Repository defines the set of methods for interacting with the ledger store.
type Repository interface {
	// NUBAN pool
	// CreatePaymentIntent atomically pulls one available NUBAN and persists
	// the pending payment bound to it, filling in AccountNumber and
	// AccountDetails on the passed record. Returns ErrPoolExhausted when the
	// available set is empty.
	CreatePaymentIntent(ctx context.Context, pending *domain.PendingPayment) error
	// ReleaseNUBAN returns a NUBAN to the available set. Releasing an
	// already-available NUBAN is a no-op.
	ReleaseNUBAN(ctx context.Context, accountNumber string) error
	// AppendNUBANs adds freshly minted NUBANs to the pool, seeding the
	// available set only when it was empty at commit time. Reports whether
	// the batch was seeded available.
	AppendNUBANs(ctx context.Context, nubans []domain.NUBAN) (bool, error)
	// AddNUBAN registers a single NUBAN as available. Returns ErrNUBANExists
	// on a duplicate account number.
	AddNUBAN(ctx context.Context, nuban domain.NUBAN) error
	CountNUBANs(ctx context.Context) (all int, available int, err error)

	// Pending payments
	GetPendingPayment(ctx context.Context, accountNumber string) (*domain.PendingPayment, error)
	FindPendingPaymentByRegno(ctx context.Context, regno string, createdBefore time.Time) (*domain.PendingPayment, error)
	ListExpiredPendingPayments(ctx context.Context, createdBefore time.Time) ([]domain.PendingPayment, error)

	// SettlePayment performs the atomic settlement of a pending payment:
	// marks it successful, credits the class balance, writes one payment
	// record per cart line with the next per-due serial, appends history,
	// records class-scoped and global transaction rows and bumps company
	// metrics. Returns ErrAlreadyProcessed when the payment is no longer
	// pending at commit time.
	SettlePayment(ctx context.Context, accountNumber string, reportedAmount float64, class domain.ClassDetails, gateway domain.GatewayMeta, now time.Time) (*SettlementResult, error)

	// TimeoutPendingPayment reclaims one expired pending payment: releases
	// its NUBAN, archives it with status timeout and deletes the pending
	// row. Returns ErrAlreadyProcessed when a settlement won the race.
	TimeoutPendingPayment(ctx context.Context, accountNumber string, now time.Time) (*domain.PendingPayment, error)
	// CancelPendingPayment is the synchronous counterpart, archiving to the
	// cancelled set instead.
	CancelPendingPayment(ctx context.Context, accountNumber string, now time.Time) (*domain.PendingPayment, error)
	// FinalizeSuccessfulPayment lazily releases the NUBAN and deletes the
	// pending row once a payment has already settled.
	FinalizeSuccessfulPayment(ctx context.Context, accountNumber string) error
	GetArchivedPayment(ctx context.Context, accountNumber string) (*domain.PendingPayment, error)
	RecordSweepRun(ctx context.Context, timedOut int, at time.Time) error

	// Profiles and class directory
	GetStudentProfile(ctx context.Context, universityID, regno string) (*domain.StudentProfile, error)
	CreateStudentProfile(ctx context.Context, profile *domain.StudentProfile, createdBy string) error
	GetClassDetailsByRegno(ctx context.Context, regno, universityID string) (*domain.ClassDetails, error)
	GetRepProfile(ctx context.Context, uid string) (*domain.RepProfile, error)

	// Dues
	CreateDue(ctx context.Context, due *domain.Due) error
	ListDues(ctx context.Context, scope domain.ClassScope) ([]domain.Due, error)
	UpdateDue(ctx context.Context, scope domain.ClassScope, dueID string, update DueUpdate) error
	DeleteDue(ctx context.Context, scope domain.ClassScope, dueID string) error
	ListDueRecords(ctx context.Context, scope domain.ClassScope, dueID string) ([]domain.PaymentRecord, error)
	ConfirmDueReceipt(ctx context.Context, scope domain.ClassScope, dueID, regno string) error
	ListPortalDues(ctx context.Context, scope domain.ClassScope, regno string) ([]domain.PortalDue, error)

	// Lists
	CreateList(ctx context.Context, list *domain.List) error
	ListLists(ctx context.Context, scope domain.ClassScope) ([]domain.List, error)
	UpdateList(ctx context.Context, scope domain.ClassScope, listID string, update ListUpdate) error
	DeleteList(ctx context.Context, scope domain.ClassScope, listID string) error
	JoinList(ctx context.Context, scope domain.ClassScope, listID string, record domain.ListRecord) error
	ListListRecords(ctx context.Context, scope domain.ClassScope, listID string) ([]domain.ListRecord, error)
	ListPortalLists(ctx context.Context, scope domain.ClassScope, regno string) ([]domain.PortalList, error)
}
