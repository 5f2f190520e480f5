package services

import (
	"context"
	"fmt"

	"contabile/internal/core"
	"contabile/internal/storage"
)

// CategoryService manages an owner's category taxonomy.
type CategoryService struct {
	store *storage.Store
}

func NewCategoryService(store *storage.Store) *CategoryService {
	return &CategoryService{store: store}
}

func (s *CategoryService) Create(ctx context.Context, ownerID int64, in core.CategoryInput) (core.Category, error) {
	existing, err := s.store.ListCategories(ctx, ownerID)
	if err != nil {
		return core.Category{}, fmt.Errorf("load categories: %w", err)
	}

	cat, err := core.ValidateCategory(in, core.NewCategoryIndex(existing))
	if err != nil {
		return core.Category{}, err
	}
	cat.OwnerID = ownerID

	return s.store.CreateCategory(ctx, cat)
}

func (s *CategoryService) Update(ctx context.Context, ownerID, id int64, in core.CategoryInput) (core.Category, error) {
	existing, err := s.store.ListCategories(ctx, ownerID)
	if err != nil {
		return core.Category{}, fmt.Errorf("load categories: %w", err)
	}

	// The record being renamed must not count as its own duplicate.
	others := existing[:0:0]
	for _, c := range existing {
		if c.ID != id {
			others = append(others, c)
		}
	}

	cat, err := core.ValidateCategory(in, core.NewCategoryIndex(others))
	if err != nil {
		return core.Category{}, err
	}
	cat.ID = id
	cat.OwnerID = ownerID

	if err := s.store.UpdateCategory(ctx, cat); err != nil {
		return core.Category{}, err
	}
	return cat, nil
}

func (s *CategoryService) Delete(ctx context.Context, ownerID, id int64) error {
	return s.store.DeleteCategory(ctx, ownerID, id)
}

func (s *CategoryService) List(ctx context.Context, ownerID int64) ([]core.Category, error) {
	return s.store.ListCategories(ctx, ownerID)
}
