package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fobos-app/ledger/internal/models"
	repo "github.com/fobos-app/ledger/internal/repository"
	"github.com/fobos-app/ledger/internal/status"
	"github.com/fobos-app/ledger/internal/validate"
)

type CategoryService struct {
	r      repo.Categories
	notify notifier
	now    func() time.Time
}

func NewCategoryService(r repo.Categories, relay status.Relay) *CategoryService {
	return &CategoryService{r: r, notify: newNotifier(relay, status.ScopeCategories), now: time.Now}
}

type CategoryInput struct {
	ID       string
	Name     string
	ColorHex *string
}

func (s *CategoryService) Upsert(ctx context.Context, in CategoryInput) (Result, error) {
	okMsg := "Category updated"
	if strings.TrimSpace(in.ID) == "" {
		okMsg = "Category created"
	}
	res, err := s.upsert(ctx, in)
	s.notify.done(ctx, status.ActionUpsert, okMsg, "Category save failed", err)
	return res, err
}

func (s *CategoryService) upsert(ctx context.Context, in CategoryInput) (Result, error) {
	var errs validate.Errs
	errs.Add(validate.Required("name", in.Name))
	if len(errs) > 0 {
		return Result{}, &ValidationError{Fields: errs}
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}
	now := s.now()
	c := models.Category{
		ID:        id,
		Name:      strings.TrimSpace(in.Name),
		ColorHex:  in.ColorHex,
		CreatedAt: now,
		UpdatedAt: now,
	}

	prev, err := s.r.Get(ctx, id)
	switch {
	case err == nil:
		c.CreatedAt = prev.CreatedAt
	case !errors.Is(err, repo.ErrNotFound):
		return Result{}, &StoreError{Op: "get category", Err: err}
	}

	if _, err := s.r.Save(ctx, c); err != nil {
		return Result{}, &StoreError{Op: "save category", Err: err}
	}
	return Result{OK: true, ID: id}, nil
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	out, err := s.r.List(ctx)
	if err != nil {
		err = &StoreError{Op: "list categories", Err: err}
	}
	s.notify.done(ctx, status.ActionList, "", "Categories listing failed", err)
	return out, err
}

func (s *CategoryService) Delete(ctx context.Context, id string) (Result, error) {
	err := s.r.Delete(ctx, id)
	if err != nil {
		err = &StoreError{Op: "delete category", Err: err}
	}
	s.notify.done(ctx, status.ActionDelete, "Category deleted", "Category deletion failed", err)
	if err != nil {
		return Result{}, err
	}
	return Result{OK: true, ID: id}, nil
}
