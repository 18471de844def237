package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docuvault-io/docuvault-api/internal/models"
	appErrors "github.com/docuvault-io/docuvault-api/pkg/errors"
)

const (
	categoriesCacheKey = "categories:all"
	categoriesTTL      = time.Hour
)

type categoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	Create(ctx context.Context, category *models.Category) error
}

// CategoryService serves the global category list. The list changes rarely,
// so it is cached aggressively and every mutation is broadcast to all
// connected clients.
type CategoryService struct {
	repo        categoryRepository
	cache       *CacheService
	broadcaster Broadcaster
}

// NewCategoryService constructs the category service.
func NewCategoryService(repo categoryRepository, cache *CacheService, broadcaster Broadcaster) *CategoryService {
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	return &CategoryService{repo: repo, cache: cache, broadcaster: broadcaster}
}

// List returns all categories, cache-first.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	var cached []models.Category
	if s.cache.Get(ctx, categoriesCacheKey, &cached) {
		return cached, nil
	}

	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}

	s.cache.Set(ctx, categoriesCacheKey, categories, categoriesTTL)
	return categories, nil
}

// Create inserts a category and announces the change globally.
func (s *CategoryService) Create(ctx context.Context, name string, color *string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "category name is required")
	}

	category := &models.Category{
		ID:        uuid.NewString(),
		Name:      name,
		Color:     color,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create category")
	}

	s.cache.Delete(ctx, categoriesCacheKey)
	s.broadcaster.TryBroadcastAll(EventCategoryUpdated, category)

	return category, nil
}
