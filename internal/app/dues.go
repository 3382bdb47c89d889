/**
 * @description
 * Rep-side dues management and the payer-facing portal view. A due's id is a
 * slug of its name, unique within its class; the aggregate half of a due is
 * only ever mutated by settlement.
 */
package app

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/Ibuchukwu/bine-web/internal/domain"
	"github.com/Ibuchukwu/bine-web/internal/store"
)

var (
	ErrInvalidDueName   = errors.New("due name is required")
	ErrInvalidDueType   = errors.New("due type is not recognised")
	ErrInvalidDueAmount = errors.New("due amount must be greater than zero")
)

// slugify derives a stable id from a human-entered name.
func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// CreateDueInput is the rep's payload for a new due.
type CreateDueInput struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	Amount       float64 `json:"amount"`
	Description  string  `json:"description"`
	DueBatch     string  `json:"dueBatch"`
	IsCompulsory bool    `json:"isCompulsory"`
	IsOneTime    bool    `json:"isOneTime"`
	PassCharge   bool    `json:"passCharge"`
}

// CreateDue registers a new due under the rep's class. The platform fee for
// the amount is computed here so the portal can quote it without re-deriving.
func (s *Service) CreateDue(ctx context.Context, rep *domain.RepProfile, input CreateDueInput) (*domain.Due, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrInvalidDueName
	}
	if !slices.Contains(domain.DueTypes, input.Type) {
		return nil, ErrInvalidDueType
	}
	if input.Amount <= 0 {
		return nil, ErrInvalidDueAmount
	}

	due := &domain.Due{
		ID:    slugify(input.Name),
		Class: rep.Class.ClassScope,
		Details: domain.DueDetails{
			Name:         input.Name,
			Type:         input.Type,
			Amount:       domain.Round2(input.Amount),
			Charge:       domain.GetCharge(input.Amount),
			Description:  input.Description,
			DueBatch:     input.DueBatch,
			IsCompulsory: input.IsCompulsory,
			IsOneTime:    input.IsOneTime,
			PassCharge:   input.PassCharge,
			Status:       "active",
			CreatedBy:    rep.UID,
			CreatedAt:    time.Now().UTC(),
		},
	}
	if err := s.repo.CreateDue(ctx, due); err != nil {
		return nil, err
	}
	return due, nil
}

// FetchDues returns the rep's class dues with their aggregates.
func (s *Service) FetchDues(ctx context.Context, rep *domain.RepProfile) ([]domain.Due, error) {
	return s.repo.ListDues(ctx, rep.Class.ClassScope)
}

// EditDueInput carries the optional edits to a due.
type EditDueInput struct {
	Name         *string  `json:"name"`
	Type         *string  `json:"type"`
	Amount       *float64 `json:"amount"`
	Description  *string  `json:"description"`
	DueBatch     *string  `json:"dueBatch"`
	IsCompulsory *bool    `json:"isCompulsory"`
	IsOneTime    *bool    `json:"isOneTime"`
	PassCharge   *bool    `json:"passCharge"`
	Status       *string  `json:"status"`
}

// EditDue applies the provided edits. Changing the amount recomputes the
// quoted charge.
func (s *Service) EditDue(ctx context.Context, rep *domain.RepProfile, dueID string, input EditDueInput) error {
	if input.Type != nil && !slices.Contains(domain.DueTypes, *input.Type) {
		return ErrInvalidDueType
	}
	update := store.DueUpdate{
		Name:         input.Name,
		Type:         input.Type,
		Description:  input.Description,
		DueBatch:     input.DueBatch,
		IsCompulsory: input.IsCompulsory,
		IsOneTime:    input.IsOneTime,
		PassCharge:   input.PassCharge,
		Status:       input.Status,
		UpdatedBy:    rep.UID,
	}
	if input.Amount != nil {
		if *input.Amount <= 0 {
			return ErrInvalidDueAmount
		}
		amount := domain.Round2(*input.Amount)
		charge := domain.GetCharge(amount)
		update.Amount = &amount
		update.Charge = &charge
	}
	return s.repo.UpdateDue(ctx, rep.Class.ClassScope, dueID, update)
}

// DeleteDue removes a due, refusing once any payment has landed on it.
func (s *Service) DeleteDue(ctx context.Context, rep *domain.RepProfile, dueID string) error {
	return s.repo.DeleteDue(ctx, rep.Class.ClassScope, dueID)
}

// DueRecords returns a due's payment records for the rep dashboard.
func (s *Service) DueRecords(ctx context.Context, rep *domain.RepProfile, dueID string) ([]domain.PaymentRecord, error) {
	return s.repo.ListDueRecords(ctx, rep.Class.ClassScope, dueID)
}

// ConfirmDueReceipt marks a payer's record as receipted.
func (s *Service) ConfirmDueReceipt(ctx context.Context, rep *domain.RepProfile, dueID, regno string) error {
	return s.repo.ConfirmDueReceipt(ctx, rep.Class.ClassScope, dueID, regno)
}

// GetClassDues resolves a student's class and returns its active dues with
// the student's own payment state folded in.
func (s *Service) GetClassDues(ctx context.Context, universityID, regno string) ([]domain.PortalDue, error) {
	class, err := s.repo.GetClassDetailsByRegno(ctx, regno, universityID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListPortalDues(ctx, class.ClassScope, regno)
}
