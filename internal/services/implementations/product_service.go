package implementations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"product-service/internal/domain/catalog"
	"product-service/internal/observability"
)

// ProductServiceImpl implements the catalog.ProductService interface. It owns
// the product-tag associations and stock adjustment.
type ProductServiceImpl struct {
	products    catalog.ProductRepository
	categories  catalog.CategoryRepository
	tags        catalog.TagRepository
	productTags catalog.ProductTagRepository
	images      catalog.ImageRepository
	blobs       catalog.BlobStore
	tagService  catalog.TagService
	tx          catalog.Transactor
	logger      *observability.Logger
}

// NewProductService creates a new product service implementation
func NewProductService(
	repos *catalog.Repositories,
	blobs catalog.BlobStore,
	tagService catalog.TagService,
	logger *observability.Logger,
) catalog.ProductService {
	return &ProductServiceImpl{
		products:    repos.Products,
		categories:  repos.Categories,
		tags:        repos.Tags,
		productTags: repos.ProductTags,
		images:      repos.Images,
		blobs:       blobs,
		tagService:  tagService,
		tx:          repos.Tx,
		logger:      logger,
	}
}

// AddProduct creates a product in an existing category
func (s *ProductServiceImpl) AddProduct(ctx context.Context, product *catalog.Product) error {
	if product == nil {
		return fmt.Errorf("%w: product is required", catalog.ErrInvalidProduct)
	}

	product.Name = strings.TrimSpace(product.Name)
	if err := product.Validate(); err != nil {
		return err
	}
	if err := s.resolveCategory(ctx, product); err != nil {
		return err
	}

	exists, err := s.products.ExistsByName(ctx, product.Name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", catalog.ErrProductExists, product.Name)
	}

	if err := s.products.Create(ctx, product); err != nil {
		return err
	}
	product.Tags = []string{}

	s.logger.Info(ctx).
		Int64("product_id", product.ID).
		Str("product", product.Name).
		Str("category", product.CategoryName).
		Msg("product created")
	return nil
}

// AddProductWithTags creates the product and links it to the named tags,
// creating missing tags, in one transaction.
func (s *ProductServiceImpl) AddProductWithTags(ctx context.Context, product *catalog.Product, tagNames []string) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.AddProduct(ctx, product); err != nil {
			return err
		}
		return s.linkTags(ctx, product.ID, tagNames)
	})
	if err != nil {
		return err
	}

	return s.attachTags(ctx, product)
}

func (s *ProductServiceImpl) GetProductByID(ctx context.Context, id int64) (*catalog.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachTags(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *ProductServiceImpl) GetProductByName(ctx context.Context, name string) (*catalog.Product, error) {
	product, err := s.products.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	if err := s.attachTags(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *ProductServiceImpl) ListProducts(ctx context.Context) ([]*catalog.Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.withTags(ctx, products)
}

// ListProductsByCategory fails with ErrCategoryNotFound for an unknown category
func (s *ProductServiceImpl) ListProductsByCategory(ctx context.Context, categoryName string) ([]*catalog.Product, error) {
	category, err := s.categories.GetByName(ctx, strings.TrimSpace(categoryName))
	if err != nil {
		return nil, err
	}
	products, err := s.products.ListByCategory(ctx, category.Name)
	if err != nil {
		return nil, err
	}
	return s.withTags(ctx, products)
}

func (s *ProductServiceImpl) CountProductsInCategory(ctx context.Context, categoryID int64) (int, error) {
	return s.products.CountByCategory(ctx, categoryID)
}

// UpdateProduct replaces the stored product with product. Tags are not touched.
func (s *ProductServiceImpl) UpdateProduct(ctx context.Context, product *catalog.Product) error {
	if product == nil {
		return fmt.Errorf("%w: product is required", catalog.ErrInvalidProduct)
	}

	product.Name = strings.TrimSpace(product.Name)
	if err := product.Validate(); err != nil {
		return err
	}

	if _, err := s.products.GetByID(ctx, product.ID); err != nil {
		return err
	}
	if err := s.resolveCategory(ctx, product); err != nil {
		return err
	}

	other, err := s.products.GetByName(ctx, product.Name)
	switch {
	case err == nil && other.ID != product.ID:
		return fmt.Errorf("%w: %s", catalog.ErrProductExists, product.Name)
	case err != nil && !errors.Is(err, catalog.ErrNotFound):
		return err
	}

	if err := s.products.Update(ctx, product); err != nil {
		return err
	}

	s.logger.Info(ctx).Int64("product_id", product.ID).Str("product", product.Name).Msg("product updated")
	return s.attachTags(ctx, product)
}

// DeleteProduct removes the product with its tag links and image rows, then
// removes the stored files. Deleting an unknown product is a no-op.
func (s *ProductServiceImpl) DeleteProduct(ctx context.Context, id int64) error {
	var images []*catalog.ProductImage

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		images, err = s.images.ListByProduct(ctx, id)
		if err != nil {
			return err
		}
		if err := s.productTags.RemoveAllForProduct(ctx, id); err != nil {
			return err
		}
		return s.products.Delete(ctx, id)
	})
	if errors.Is(err, catalog.ErrProductNotFound) {
		s.logger.Warn(ctx).Int64("product_id", id).Msg("product to delete not found")
		return nil
	}
	if err != nil {
		return err
	}

	for _, img := range images {
		if err := s.blobs.Remove(ctx, img.StoredFileName); err != nil {
			s.logger.Warn(ctx).Err(err).
				Int64("product_id", id).
				Str("stored_file_name", img.StoredFileName).
				Msg("failed to remove product file")
		}
	}

	s.logger.Info(ctx).Int64("product_id", id).Int("images", len(images)).Msg("product deleted")
	return nil
}

// SearchByTags returns products carrying at least one of the named tags
func (s *ProductServiceImpl) SearchByTags(ctx context.Context, names []string) ([]*catalog.Product, error) {
	return s.searchByTags(ctx, catalog.TagFilter{Names: names})
}

// SearchByAllTags returns products carrying every named tag
func (s *ProductServiceImpl) SearchByAllTags(ctx context.Context, names []string) ([]*catalog.Product, error) {
	return s.searchByTags(ctx, catalog.TagFilter{Names: names, MatchAll: true})
}

func (s *ProductServiceImpl) SearchByTagPattern(ctx context.Context, pattern string) ([]*catalog.Product, error) {
	products, err := s.products.SearchByTagPattern(ctx, strings.TrimSpace(pattern))
	if err != nil {
		return nil, err
	}
	return s.withTags(ctx, products)
}

// Search applies the first criterion present, in this order: tags with a
// category, tags, search term, category. Without criteria it lists everything.
func (s *ProductServiceImpl) Search(ctx context.Context, req *catalog.SearchRequest) ([]*catalog.Product, error) {
	if req == nil {
		return s.ListProducts(ctx)
	}

	names := catalog.NormalizeNames(req.TagNames)
	category := strings.TrimSpace(req.CategoryName)
	term := strings.TrimSpace(req.SearchTerm)

	switch {
	case len(names) > 0:
		return s.searchByTags(ctx, catalog.TagFilter{
			Names:        names,
			MatchAll:     req.RequireAllTags,
			CategoryName: category,
		})
	case term != "":
		return s.SearchByTagPattern(ctx, term)
	case category != "":
		products, err := s.products.ListByCategory(ctx, category)
		if err != nil {
			return nil, err
		}
		return s.withTags(ctx, products)
	default:
		return s.ListProducts(ctx)
	}
}

func (s *ProductServiceImpl) searchByTags(ctx context.Context, filter catalog.TagFilter) ([]*catalog.Product, error) {
	filter.Names = catalog.NormalizeNames(filter.Names)
	if len(filter.Names) == 0 {
		return []*catalog.Product{}, nil
	}
	products, err := s.products.SearchByTags(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.withTags(ctx, products)
}

// AddTagsToProduct links the named tags, creating missing ones. Existing links are kept.
func (s *ProductServiceImpl) AddTagsToProduct(ctx context.Context, productID int64, names []string) (*catalog.Product, error) {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.products.GetByID(ctx, productID); err != nil {
			return err
		}
		return s.linkTags(ctx, productID, names)
	})
	if err != nil {
		return nil, err
	}

	return s.GetProductByID(ctx, productID)
}

// RemoveTagsFromProduct unlinks the named tags. Unknown names are ignored.
func (s *ProductServiceImpl) RemoveTagsFromProduct(ctx context.Context, productID int64, names []string) (*catalog.Product, error) {
	names = catalog.NormalizeNames(names)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.products.GetByID(ctx, productID); err != nil {
			return err
		}
		if len(names) == 0 {
			return nil
		}

		found, err := s.tags.GetByNames(ctx, names)
		if err != nil {
			return err
		}
		for _, name := range names {
			tag, ok := found[name]
			if !ok {
				continue
			}
			if err := s.productTags.Remove(ctx, productID, tag.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx).Int64("product_id", productID).Strs("tags", names).Msg("tags removed from product")
	return s.GetProductByID(ctx, productID)
}

// ApplyInventoryChanges adjusts stock for every change or for none
func (s *ProductServiceImpl) ApplyInventoryChanges(ctx context.Context, changes []catalog.InventoryChange) ([]*catalog.Product, error) {
	for _, change := range changes {
		if change.ProductID <= 0 {
			return nil, fmt.Errorf("%w: invalid product id %d", catalog.ErrInvalidProduct, change.ProductID)
		}
	}

	updated := make([]*catalog.Product, 0, len(changes))
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, change := range changes {
			product, err := s.products.AdjustStock(ctx, change.ProductID, change.Delta)
			if err != nil {
				return err
			}
			updated = append(updated, product)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx).Int("changes", len(changes)).Msg("inventory updated")
	return s.withTags(ctx, updated)
}

// linkTags resolves names through the tag service and adds the missing links
func (s *ProductServiceImpl) linkTags(ctx context.Context, productID int64, names []string) error {
	tags, err := s.tagService.GetOrCreateTags(ctx, names)
	if err != nil {
		return err
	}

	added := 0
	for _, tag := range tags {
		created, err := s.productTags.Add(ctx, productID, tag.ID)
		if err != nil {
			return err
		}
		if created {
			added++
		}
	}

	if added > 0 {
		s.logger.Info(ctx).Int64("product_id", productID).Int("added", added).Msg("tags added to product")
	}
	return nil
}

// resolveCategory fills CategoryID and CategoryName from whichever is set,
// preferring the id.
func (s *ProductServiceImpl) resolveCategory(ctx context.Context, product *catalog.Product) error {
	var (
		category *catalog.Category
		err      error
	)
	if product.CategoryID > 0 {
		category, err = s.categories.GetByID(ctx, product.CategoryID)
	} else {
		category, err = s.categories.GetByName(ctx, strings.TrimSpace(product.CategoryName))
	}
	if err != nil {
		return err
	}

	product.CategoryID = category.ID
	product.CategoryName = category.Name
	return nil
}

func (s *ProductServiceImpl) attachTags(ctx context.Context, product *catalog.Product) error {
	_, err := s.withTags(ctx, []*catalog.Product{product})
	return err
}

// withTags fills the sorted tag names of every product with one query
func (s *ProductServiceImpl) withTags(ctx context.Context, products []*catalog.Product) ([]*catalog.Product, error) {
	if len(products) == 0 {
		return []*catalog.Product{}, nil
	}

	ids := make([]int64, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}

	names, err := s.productTags.TagNames(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, p := range products {
		p.Tags = names[p.ID]
		if p.Tags == nil {
			p.Tags = []string{}
		}
		sort.Strings(p.Tags)
	}
	return products, nil
}
