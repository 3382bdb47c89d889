package app

import (
	"context"
	"errors"
	"testing"

	"github.com/Ibuchukwu/bine-web/internal/domain"
	"github.com/Ibuchukwu/bine-web/internal/store"
)

type listsRepoStub struct {
	repoStub
	created   *domain.List
	updates   []store.ListUpdate
	deleted   []string
	deleteErr error
}

func (r *listsRepoStub) CreateList(ctx context.Context, list *domain.List) error {
	r.created = list
	return nil
}

func (r *listsRepoStub) UpdateList(ctx context.Context, scope domain.ClassScope, listID string, update store.ListUpdate) error {
	r.updates = append(r.updates, update)
	return nil
}

func (r *listsRepoStub) DeleteList(ctx context.Context, scope domain.ClassScope, listID string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.deleted = append(r.deleted, listID)
	return nil
}

func TestCreateList(t *testing.T) {
	repo := &listsRepoStub{}
	svc := newTestService(repo, &gatewayStub{}, &publisherStub{})

	list, err := svc.CreateList(context.Background(), repFixture(), CreateListInput{
		Name:         "Excursion Attendance",
		IsCompulsory: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list.ID != "excursion-attendance" {
		t.Fatalf("list id = %q", list.ID)
	}
	if list.Details.Status != "active" || list.Details.CreatedBy != "rep-1" {
		t.Fatalf("details = %+v", list.Details)
	}
	if repo.created == nil || repo.created.Class.DepartmentID != "computer-engineering" {
		t.Fatalf("created = %+v, want the rep's class scope", repo.created)
	}
}

func TestCreateListRequiresName(t *testing.T) {
	svc := newTestService(&listsRepoStub{}, &gatewayStub{}, &publisherStub{})

	if _, err := svc.CreateList(context.Background(), repFixture(), CreateListInput{Name: "  "}); !errors.Is(err, ErrInvalidListName) {
		t.Fatalf("got %v, want ErrInvalidListName", err)
	}
}

func TestEditList(t *testing.T) {
	repo := &listsRepoStub{}
	svc := newTestService(repo, &gatewayStub{}, &publisherStub{})

	name := "Excursion Attendance 2026"
	status := "closed"
	if err := svc.EditList(context.Background(), repFixture(), "excursion-attendance", EditListInput{Name: &name, Status: &status}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(repo.updates))
	}
	update := repo.updates[0]
	if update.Name == nil || *update.Name != name || update.Status == nil || *update.Status != status {
		t.Fatalf("update = %+v", update)
	}
	if update.UpdatedBy != "rep-1" {
		t.Fatalf("updated by = %q", update.UpdatedBy)
	}
}

func TestEditListRejectsBlankName(t *testing.T) {
	repo := &listsRepoStub{}
	svc := newTestService(repo, &gatewayStub{}, &publisherStub{})

	blank := "  "
	if err := svc.EditList(context.Background(), repFixture(), "excursion-attendance", EditListInput{Name: &blank}); !errors.Is(err, ErrInvalidListName) {
		t.Fatalf("got %v, want ErrInvalidListName", err)
	}
	if len(repo.updates) != 0 {
		t.Fatal("an invalid edit must not reach the store")
	}
}

func TestDeleteList(t *testing.T) {
	repo := &listsRepoStub{}
	svc := newTestService(repo, &gatewayStub{}, &publisherStub{})

	if err := svc.DeleteList(context.Background(), repFixture(), "excursion-attendance"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "excursion-attendance" {
		t.Fatalf("deleted = %v", repo.deleted)
	}
}

func TestDeleteListWithMembers(t *testing.T) {
	repo := &listsRepoStub{deleteErr: store.ErrListHasRecords}
	svc := newTestService(repo, &gatewayStub{}, &publisherStub{})

	if err := svc.DeleteList(context.Background(), repFixture(), "excursion-attendance"); !errors.Is(err, store.ErrListHasRecords) {
		t.Fatalf("got %v, want ErrListHasRecords", err)
	}
}
