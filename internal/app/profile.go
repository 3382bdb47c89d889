/**
 * @description
 * Student directory operations at the service layer. Profile creation takes
 * a resolved Initiator value instead of a role string: an admin-initiated
 * profile inherits the rep's class and comes pre-verified, a self-service
 * one starts unverified in the class the student claims.
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

var (
	ErrInvalidProfileName = errors.New("student name is required")
)

// StudentOverview is the portal's profile lookup response: the directory
// entry plus any checkout the student abandoned and can resume.
type StudentOverview struct {
	Profile        *domain.StudentProfile `json:"profile"`
	PendingPayment *domain.PendingPayment `json:"pendingPayment,omitempty"`
}

// GetProfile fetches a student's directory entry and any still-pending
// payment of theirs so the portal can offer to resume it.
func (s *Service) GetProfile(ctx context.Context, universityID, regno string) (*StudentOverview, error) {
	profile, err := s.repo.GetStudentProfile(ctx, universityID, regno)
	if err != nil {
		return nil, err
	}

	overview := &StudentOverview{Profile: profile}
	pending, err := s.repo.FindPendingPaymentByRegno(ctx, regno, time.Now().UTC())
	if err == nil {
		overview.PendingPayment = pending
	} else if !errors.Is(err, store.ErrPendingPaymentNotFound) {
		return nil, err
	}
	return overview, nil
}

// GetRep resolves the class rep bound to an authenticated uid.
func (s *Service) GetRep(ctx context.Context, uid string) (*domain.RepProfile, error) {
	return s.repo.GetRepProfile(ctx, uid)
}

// CreateProfileInput is the new-profile payload.
type CreateProfileInput struct {
	Regno          string            `json:"regno"`
	Name           string            `json:"name"`
	Email          string            `json:"email"`
	Phone          string            `json:"phone"`
	Class          domain.ClassScope `json:"class"`
	DepartmentName string            `json:"departmentName"`
}

// CreateProfile registers a student in the directory. The initiator decides
// the class scope and verification state.
func (s *Service) CreateProfile(ctx context.Context, initiator domain.Initiator, input CreateProfileInput) (*domain.StudentProfile, error) {
	if input.Regno == "" || !regnoPattern.MatchString(input.Regno) {
		return nil, ErrInvalidRegno
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrInvalidProfileName
	}

	profile := &domain.StudentProfile{
		Regno:          input.Regno,
		Name:           input.Name,
		Email:          input.Email,
		Phone:          input.Phone,
		Class:          input.Class,
		DepartmentName: input.DepartmentName,
	}

	createdBy := "self"
	switch initiator.Kind {
	case domain.AdminInitiated:
		rep, err := s.repo.GetRepProfile(ctx, initiator.UID)
		if err != nil {
			return nil, err
		}
		// An admin-created profile always lands in the rep's own class.
		profile.Class = rep.Class.ClassScope
		profile.DepartmentName = rep.Class.DepartmentName
		profile.ProfileVerified = true
		createdBy = rep.UID
	case domain.SelfService:
		profile.ProfileVerified = false
	}

	if err := s.repo.CreateStudentProfile(ctx, profile, createdBy); err != nil {
		return nil, err
	}
	return profile, nil
}
