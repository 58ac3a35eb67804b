package catalog

import (
	"context"
	"io"
)

// CategoryRepository defines category persistence
type CategoryRepository interface {
	Create(ctx context.Context, category *Category) error
	GetByID(ctx context.Context, id int64) (*Category, error)
	// GetByName returns ErrCategoryNotFound when no row matches
	GetByName(ctx context.Context, name string) (*Category, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]*Category, error)
	Delete(ctx context.Context, id int64) error
}

// ProductRepository defines product persistence. Returned products carry
// CategoryName but not Tags.
type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetByName(ctx context.Context, name string) (*Product, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]*Product, error)
	ListByCategory(ctx context.Context, categoryName string) ([]*Product, error)
	CountByCategory(ctx context.Context, categoryID int64) (int, error)
	Update(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id int64) error

	// AdjustStock adds delta to the product's stock unless the result would be
	// negative, in which case ErrInsufficientStock is returned and nothing changes.
	AdjustStock(ctx context.Context, id int64, delta int) (*Product, error)

	// SearchByTags returns products carrying any (or, with MatchAll, every)
	// named tag, optionally restricted to one category.
	SearchByTags(ctx context.Context, filter TagFilter) ([]*Product, error)

	// SearchByTagPattern matches tag names case-insensitively by substring
	SearchByTagPattern(ctx context.Context, pattern string) ([]*Product, error)
}

// TagRepository defines tag persistence
type TagRepository interface {
	Create(ctx context.Context, tag *Tag) error
	// CreateIfAbsent inserts tag unless one with the same name exists, in which
	// case tag is filled from the stored row. It reports whether a row was inserted.
	CreateIfAbsent(ctx context.Context, tag *Tag) (bool, error)
	GetByID(ctx context.Context, id int64) (*Tag, error)
	GetByName(ctx context.Context, name string) (*Tag, error)
	// GetByNames returns the tags that exist among names, keyed by name
	GetByNames(ctx context.Context, names []string) (map[string]*Tag, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	// List returns all tags with their product counts
	List(ctx context.Context) ([]*Tag, error)
	Search(ctx context.Context, term string) ([]*Tag, error)
	Delete(ctx context.Context, id int64) error
}

// ProductTagRepository manages product-tag association rows
type ProductTagRepository interface {
	// Add links a product and a tag; it reports false when the link already existed
	Add(ctx context.Context, productID, tagID int64) (bool, error)
	Remove(ctx context.Context, productID, tagID int64) error
	RemoveAllForProduct(ctx context.Context, productID int64) error
	// TagNames returns the tag names of each product, sorted by name
	TagNames(ctx context.Context, productIDs []int64) (map[int64][]string, error)
}

// ImageRepository manages product image metadata
type ImageRepository interface {
	Create(ctx context.Context, image *ProductImage) error
	GetByID(ctx context.Context, id int64) (*ProductImage, error)
	// GetByFileName returns the newest image uploaded under the original file name
	GetByFileName(ctx context.Context, productID int64, fileName string) (*ProductImage, error)
	ListByProduct(ctx context.Context, productID int64) ([]*ProductImage, error)
	Delete(ctx context.Context, id int64) error
}

// Transactor runs fn inside one storage transaction. Repository calls made
// with the ctx passed to fn join that transaction; nested calls reuse it.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Repositories is the set of repositories a service container is built from
type Repositories struct {
	Categories  CategoryRepository
	Products    ProductRepository
	Tags        TagRepository
	ProductTags ProductTagRepository
	Images      ImageRepository
	Tx          Transactor
}

// BlobStore keeps uploaded file contents by key
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error
	// Open returns ErrNotFound (wrapped) when the key is absent
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Remove deletes the blob; removing an absent key is not an error
	Remove(ctx context.Context, key string) error
}

// CategoryService defines category business logic
type CategoryService interface {
	ListCategories(ctx context.Context) ([]*Category, error)
	GetCategoryByName(ctx context.Context, name string) (*Category, error)
	AddCategory(ctx context.Context, category *Category) error
	DeleteCategoryByName(ctx context.Context, name string) error
}

// ProductService defines product business logic. Returned products carry their tag names.
type ProductService interface {
	AddProduct(ctx context.Context, product *Product) error
	AddProductWithTags(ctx context.Context, product *Product, tagNames []string) error
	GetProductByID(ctx context.Context, id int64) (*Product, error)
	GetProductByName(ctx context.Context, name string) (*Product, error)
	ListProducts(ctx context.Context) ([]*Product, error)
	ListProductsByCategory(ctx context.Context, categoryName string) ([]*Product, error)
	CountProductsInCategory(ctx context.Context, categoryID int64) (int, error)
	UpdateProduct(ctx context.Context, product *Product) error
	DeleteProduct(ctx context.Context, id int64) error

	SearchByTags(ctx context.Context, names []string) ([]*Product, error)
	SearchByAllTags(ctx context.Context, names []string) ([]*Product, error)
	SearchByTagPattern(ctx context.Context, pattern string) ([]*Product, error)
	Search(ctx context.Context, req *SearchRequest) ([]*Product, error)

	AddTagsToProduct(ctx context.Context, productID int64, names []string) (*Product, error)
	RemoveTagsFromProduct(ctx context.Context, productID int64, names []string) (*Product, error)

	ApplyInventoryChanges(ctx context.Context, changes []InventoryChange) ([]*Product, error)
}

// TagService defines tag business logic
type TagService interface {
	ListTags(ctx context.Context) ([]*Tag, error)
	GetTagByName(ctx context.Context, name string) (*Tag, error)
	CreateTag(ctx context.Context, name, description string) (*Tag, error)
	DeleteTag(ctx context.Context, id int64) error
	SearchTags(ctx context.Context, term string) ([]*Tag, error)
	GetOrCreateTags(ctx context.Context, names []string) ([]*Tag, error)
}

// FileStorageService stores product files and their metadata
type FileStorageService interface {
	Store(ctx context.Context, productID int64, upload *Upload) (*ProductImage, error)
	Load(ctx context.Context, productID int64, fileName string) (*ProductImage, io.ReadCloser, error)
	List(ctx context.Context, productID int64) ([]*ProductImage, error)
	Delete(ctx context.Context, productID, imageID int64) error
}
