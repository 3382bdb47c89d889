/**
 * @description
 * Lists are the non-monetary counterpart of dues: membership rosters
 * students join without paying. Joining snapshots the student's directory
 * entry into the roster so the roster survives later profile edits.
 */
package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Ibuchukwu/bine-web/internal/domain"
	"github.com/Ibuchukwu/bine-web/internal/store"
)

var ErrInvalidListName = errors.New("list name is required")

// CreateListInput is the rep's payload for a new list.
type CreateListInput struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	ListBatch    string `json:"listBatch"`
	IsCompulsory bool   `json:"isCompulsory"`
}

// CreateList registers a new list under the rep's class.
func (s *Service) CreateList(ctx context.Context, rep *domain.RepProfile, input CreateListInput) (*domain.List, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrInvalidListName
	}
	list := &domain.List{
		ID:    slugify(input.Name),
		Class: rep.Class.ClassScope,
		Details: domain.ListDetails{
			Name:         input.Name,
			Description:  input.Description,
			ListBatch:    input.ListBatch,
			IsCompulsory: input.IsCompulsory,
			Status:       "active",
			CreatedBy:    rep.UID,
			CreatedAt:    time.Now().UTC(),
		},
	}
	if err := s.repo.CreateList(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// EditListInput carries the optional edits to a list.
type EditListInput struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	ListBatch    *string `json:"listBatch"`
	IsCompulsory *bool   `json:"isCompulsory"`
	Status       *string `json:"status"`
}

// EditList applies the provided edits.
func (s *Service) EditList(ctx context.Context, rep *domain.RepProfile, listID string, input EditListInput) error {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return ErrInvalidListName
	}
	update := store.ListUpdate{
		Name:         input.Name,
		Description:  input.Description,
		ListBatch:    input.ListBatch,
		IsCompulsory: input.IsCompulsory,
		Status:       input.Status,
		UpdatedBy:    rep.UID,
	}
	return s.repo.UpdateList(ctx, rep.Class.ClassScope, listID, update)
}

// DeleteList removes a list, refusing once anyone has joined it.
func (s *Service) DeleteList(ctx context.Context, rep *domain.RepProfile, listID string) error {
	return s.repo.DeleteList(ctx, rep.Class.ClassScope, listID)
}

// FetchLists returns the rep's class lists.
func (s *Service) FetchLists(ctx context.Context, rep *domain.RepProfile) ([]domain.List, error) {
	return s.repo.ListLists(ctx, rep.Class.ClassScope)
}

// GetClassLists resolves a student's class and returns its active lists
// with the student's membership state folded in.
func (s *Service) GetClassLists(ctx context.Context, universityID, regno string) ([]domain.PortalList, error) {
	class, err := s.repo.GetClassDetailsByRegno(ctx, regno, universityID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListPortalLists(ctx, class.ClassScope, regno)
}

// JoinList records the student on a list, snapshotting their directory
// entry. Joining a list twice refreshes the snapshot.
func (s *Service) JoinList(ctx context.Context, universityID, regno, listID string) error {
	profile, err := s.repo.GetStudentProfile(ctx, universityID, regno)
	if err != nil {
		return err
	}
	record := domain.ListRecord{
		Regno:     profile.Regno,
		Name:      profile.Name,
		Email:     profile.Email,
		Phone:     profile.Phone,
		CreatedAt: time.Now().UTC(),
	}
	return s.repo.JoinList(ctx, profile.Class, listID, record)
}

// ListRecords returns a list's roster for the rep dashboard.
func (s *Service) ListRecords(ctx context.Context, rep *domain.RepProfile, listID string) ([]domain.ListRecord, error) {
	return s.repo.ListListRecords(ctx, rep.Class.ClassScope, listID)
}
