package implementations

import (
	"context"
	"fmt"
	"strings"

	"product-service/internal/domain/catalog"
	"product-service/internal/observability"
)

// CategoryServiceImpl implements the catalog.CategoryService interface
type CategoryServiceImpl struct {
	categories catalog.CategoryRepository
	products   catalog.ProductService
	tx         catalog.Transactor
	logger     *observability.Logger
}

// NewCategoryService creates a new category service implementation. The
// product service answers whether a category still holds products.
func NewCategoryService(
	categories catalog.CategoryRepository,
	products catalog.ProductService,
	tx catalog.Transactor,
	logger *observability.Logger,
) catalog.CategoryService {
	return &CategoryServiceImpl{
		categories: categories,
		products:   products,
		tx:         tx,
		logger:     logger,
	}
}

func (s *CategoryServiceImpl) ListCategories(ctx context.Context) ([]*catalog.Category, error) {
	return s.categories.List(ctx)
}

func (s *CategoryServiceImpl) GetCategoryByName(ctx context.Context, name string) (*catalog.Category, error) {
	return s.categories.GetByName(ctx, strings.TrimSpace(name))
}

// AddCategory persists a category with a unique name
func (s *CategoryServiceImpl) AddCategory(ctx context.Context, category *catalog.Category) error {
	if category == nil {
		return fmt.Errorf("%w: category is required", catalog.ErrInvalidCategory)
	}

	category.Name = strings.TrimSpace(category.Name)
	if err := category.Validate(); err != nil {
		return err
	}

	exists, err := s.categories.ExistsByName(ctx, category.Name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", catalog.ErrCategoryExists, category.Name)
	}

	if err := s.categories.Create(ctx, category); err != nil {
		return err
	}

	s.logger.Info(ctx).Int64("category_id", category.ID).Str("category", category.Name).Msg("category created")
	return nil
}

// DeleteCategoryByName deletes an empty category
func (s *CategoryServiceImpl) DeleteCategoryByName(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		category, err := s.categories.GetByName(ctx, name)
		if err != nil {
			return err
		}

		count, err := s.products.CountProductsInCategory(ctx, category.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %s still has %d products", catalog.ErrCategoryNotEmpty, name, count)
		}

		return s.categories.Delete(ctx, category.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx).Str("category", name).Msg("category deleted")
	return nil
}
