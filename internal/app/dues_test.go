package app

import (
	"context"
	"errors"
	"testing"

	"github.com/Ibuchukwu/bine-web/internal/domain"
	"github.com/Ibuchukwu/bine-web/internal/store"
)

type duesRepoStub struct {
	repoStub
	created *domain.Due
	updates []store.DueUpdate
}

func (r *duesRepoStub) CreateDue(ctx context.Context, due *domain.Due) error {
	r.created = due
	return nil
}

func (r *duesRepoStub) UpdateDue(ctx context.Context, scope domain.ClassScope, dueID string, update store.DueUpdate) error {
	r.updates = append(r.updates, update)
	return nil
}

func repFixture() *domain.RepProfile {
	return &domain.RepProfile{
		UID:   "rep-1",
		Regno: "2019000001",
		Class: domain.ClassDetails{
			ClassScope: domain.ClassScope{
				UniversityID: "esut",
				FacultyID:    "engineering",
				DepartmentID: "computer-engineering",
				ClassID:      "2019",
			},
			DepartmentName: "Computer Engineering",
		},
		ProfileVerified: true,
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Departmental Dues", "departmental-dues"},
		{"  HANDOUT (CSC 401)  ", "handout-csc-401"},
		{"faculty_dues", "faculty-dues"},
		{"---", ""},
	}
	for _, c := range cases {
		if got := slugify(c.in); got != c.want {
			t.Errorf("slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCreateDue(t *testing.T) {
	repo := &duesRepoStub{}
	svc := newTestService(repo, &gatewayStub{}, &publisherStub{})

	due, err := svc.CreateDue(context.Background(), repFixture(), CreateDueInput{
		Name:       "Departmental Dues",
		Type:       "registration",
		Amount:     5000,
		PassCharge: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if due.ID != "departmental-dues" {
		t.Fatalf("due id = %q", due.ID)
	}
	if due.Details.Charge != 60 {
		t.Fatalf("charge = %v, want 60 (1.2%% of 5000)", due.Details.Charge)
	}
	if due.Details.Status != "active" || due.Details.CreatedBy != "rep-1" {
		t.Fatalf("details = %+v", due.Details)
	}
	if repo.created == nil || repo.created.Class.DepartmentID != "computer-engineering" {
		t.Fatalf("created = %+v, want the rep's class scope", repo.created)
	}
}

func TestCreateDueValidation(t *testing.T) {
	svc := newTestService(&duesRepoStub{}, &gatewayStub{}, &publisherStub{})
	rep := repFixture()

	if _, err := svc.CreateDue(context.Background(), rep, CreateDueInput{Name: " ", Type: "registration", Amount: 100}); !errors.Is(err, ErrInvalidDueName) {
		t.Errorf("blank name: got %v", err)
	}
	if _, err := svc.CreateDue(context.Background(), rep, CreateDueInput{Name: "Dues", Type: "mystery", Amount: 100}); !errors.Is(err, ErrInvalidDueType) {
		t.Errorf("unknown type: got %v", err)
	}
	if _, err := svc.CreateDue(context.Background(), rep, CreateDueInput{Name: "Dues", Type: "registration", Amount: 0}); !errors.Is(err, ErrInvalidDueAmount) {
		t.Errorf("zero amount: got %v", err)
	}
}

func TestEditDueRecomputesCharge(t *testing.T) {
	repo := &duesRepoStub{}
	svc := newTestService(repo, &gatewayStub{}, &publisherStub{})

	amount := 30000.0
	if err := svc.EditDue(context.Background(), repFixture(), "departmental-dues", EditDueInput{Amount: &amount}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(repo.updates))
	}
	update := repo.updates[0]
	if update.Charge == nil || *update.Charge != 250 {
		t.Fatalf("charge = %v, want the 250 cap", update.Charge)
	}
	if update.UpdatedBy != "rep-1" {
		t.Fatalf("updated by = %q", update.UpdatedBy)
	}
}

func TestEditDueRejectsBadAmount(t *testing.T) {
	repo := &duesRepoStub{}
	svc := newTestService(repo, &gatewayStub{}, &publisherStub{})

	amount := -5.0
	if err := svc.EditDue(context.Background(), repFixture(), "departmental-dues", EditDueInput{Amount: &amount}); !errors.Is(err, ErrInvalidDueAmount) {
		t.Fatalf("got %v, want ErrInvalidDueAmount", err)
	}
	if len(repo.updates) != 0 {
		t.Fatal("an invalid edit must not reach the store")
	}
}
