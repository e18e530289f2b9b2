package catalog

import (
	"context"
	"log/slog"

	"github.com/Caolboy/LABERS-HOST/internal/apperrors"
	"github.com/Caolboy/LABERS-HOST/internal/domain"
	"github.com/Caolboy/LABERS-HOST/internal/repository"
)

type CatalogUseCase interface {
	Categories(ctx context.Context) ([]domain.Category, error)
	Items(ctx context.Context, categoryID int64) ([]domain.CatalogItem, error)
}

// Cache holds catalog reads for a short TTL. Equipment quantities listed from
// it may lag bookings by up to that TTL; reservations always read storage.
type Cache interface {
	GetCategories(ctx context.Context) ([]domain.Category, error)
	SetCategories(ctx context.Context, categories []domain.Category) error
	GetItems(ctx context.Context, categoryID int64) ([]domain.CatalogItem, error)
	SetItems(ctx context.Context, categoryID int64, items []domain.CatalogItem) error
}

type CatalogService struct {
	repo   repository.CatalogRepository
	cache  Cache
	logger *slog.Logger
}

type Option func(*CatalogService)

func WithLogger(l *slog.Logger) Option {
	return func(s *CatalogService) {
		s.logger = l
	}
}

func NewCatalogService(repo repository.CatalogRepository, cache Cache, opts ...Option) *CatalogService {
	s := &CatalogService{repo: repo, cache: cache, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CatalogService) Categories(ctx context.Context) ([]domain.Category, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetCategories(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "list categories", "error", err)
		return nil, apperrors.Internal("Could not load categories.", err)
	}
	if s.cache != nil {
		if err := s.cache.SetCategories(ctx, categories); err != nil {
			s.logger.WarnContext(ctx, "cache categories", "error", err)
		}
	}
	return categories, nil
}

func (s *CatalogService) Items(ctx context.Context, categoryID int64) ([]domain.CatalogItem, error) {
	if categoryID <= 0 {
		return nil, apperrors.Validation("category_id", "The category_id field must be greater than 0.")
	}
	if s.cache != nil {
		if cached, err := s.cache.GetItems(ctx, categoryID); err == nil && cached != nil {
			return cached, nil
		}
	}

	items, err := s.repo.ListItems(ctx, categoryID)
	if err != nil {
		s.logger.ErrorContext(ctx, "list catalog items", "category_id", categoryID, "error", err)
		return nil, apperrors.Internal("Could not load items.", err)
	}
	if s.cache != nil {
		if err := s.cache.SetItems(ctx, categoryID, items); err != nil {
			s.logger.WarnContext(ctx, "cache catalog items", "category_id", categoryID, "error", err)
		}
	}
	return items, nil
}

var _ CatalogUseCase = (*CatalogService)(nil)
