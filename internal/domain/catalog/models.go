// Package catalog holds the product catalog domain: entities, error kinds and
// the repository and service contracts shared by the storage and web layers.
package catalog

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Category groups products. Names are unique.
type Category struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Product is a catalog entry. CategoryName and Tags are read-side projections
// filled from the joined category and product_tags rows.
type Product struct {
	ID            int64           `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Price         decimal.Decimal `json:"price" db:"price"`
	StockQuantity int             `json:"stockQuantity" db:"stock_quantity"`
	CategoryID    int64           `json:"categoryId" db:"category_id"`
	CategoryName  string          `json:"categoryName"`
	Tags          []string        `json:"tags"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
}

// Tag is a free-text label attachable to many products
type Tag struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Description  string    `json:"description" db:"description"`
	ProductCount int       `json:"productCount"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// ProductTag is one product-tag association row
type ProductTag struct {
	ID        int64     `json:"id" db:"id"`
	ProductID int64     `json:"productId" db:"product_id"`
	TagID     int64     `json:"tagId" db:"tag_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// ProductImage is the metadata row of an uploaded product file
type ProductImage struct {
	ID             int64     `json:"id" db:"id"`
	ProductID      int64     `json:"productId" db:"product_id"`
	FileName       string    `json:"fileName" db:"file_name"`
	StoredFileName string    `json:"storedFileName" db:"stored_file_name"`
	ContentType    string    `json:"contentType" db:"content_type"`
	Size           int64     `json:"size" db:"size"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// InventoryChange adjusts the stock of one product by Delta
type InventoryChange struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Delta     int   `json:"delta" validate:"gte=-2147483648,lte=2147483647"`
}

// SearchRequest carries the optional product search criteria
type SearchRequest struct {
	TagNames       []string `json:"tagNames" validate:"omitempty,max=50,dive,max=100"`
	CategoryName   string   `json:"categoryName" validate:"omitempty,max=100"`
	RequireAllTags bool     `json:"requireAllTags"`
	SearchTerm     string   `json:"searchTerm" validate:"omitempty,max=100"`
}

// TagFilter selects products by tag names, optionally within one category
type TagFilter struct {
	Names        []string
	MatchAll     bool
	CategoryName string
}

// Upload is a file received for a product
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// Validation limits
const (
	MaxNameLen        = 100
	MaxDescriptionLen = 255
	MaxFileNameLen    = 255

	// AutoTagDescription is given to tags created implicitly by name
	AutoTagDescription = "Auto-created tag"
)

// Validate validates the category data
func (c *Category) Validate() error {
	if err := validateName(c.Name); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidCategory, err.Error())
	}
	return nil
}

// Validate validates the product data
func (p *Product) Validate() error {
	if err := validateName(p.Name); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidProduct, err.Error())
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidProduct)
	}
	if p.StockQuantity < 0 {
		return fmt.Errorf("%w: stock quantity cannot be negative", ErrInvalidProduct)
	}
	if p.CategoryID <= 0 && strings.TrimSpace(p.CategoryName) == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidProduct)
	}
	return nil
}

// Validate validates the tag data
func (t *Tag) Validate() error {
	if err := validateName(t.Name); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTag, err.Error())
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLen {
		return fmt.Errorf("%w: description too long (max %d characters)", ErrInvalidTag, MaxDescriptionLen)
	}
	return nil
}

// Validate checks the upload's file name and content type against allowed
func (u *Upload) Validate(allowed []string) error {
	if err := ValidateFileName(u.FileName); err != nil {
		return err
	}
	if !isAllowedType(u.ContentType, allowed) {
		return fmt.Errorf("%w: %q", ErrInvalidContentType, u.ContentType)
	}
	if u.Size <= 0 {
		return fmt.Errorf("%w: file is empty", ErrInvalidFile)
	}
	return nil
}

// Extension returns the lower-cased extension of the original file name
func (u *Upload) Extension() string {
	return strings.ToLower(filepath.Ext(u.FileName))
}

// ValidateFileName rejects names that could escape the storage root
func ValidateFileName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: file name cannot be empty", ErrInvalidFile)
	case len(name) > MaxFileNameLen:
		return fmt.Errorf("%w: file name too long (max %d characters)", ErrInvalidFile, MaxFileNameLen)
	case strings.Contains(name, ".."):
		return fmt.Errorf("%w: file name contains a relative path sequence: %s", ErrInvalidFile, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: file name cannot contain path separators: %s", ErrInvalidFile, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: file name contains null bytes", ErrInvalidFile)
	case !utf8.ValidString(name):
		return fmt.Errorf("%w: file name contains invalid UTF-8", ErrInvalidFile)
	}
	return nil
}

// NormalizeNames trims names, drops blanks and collapses duplicates while
// keeping first-seen order.
func NormalizeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	result := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}
	return result
}

func validateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if utf8.RuneCountInString(trimmed) > MaxNameLen {
		return fmt.Errorf("name too long (max %d characters)", MaxNameLen)
	}
	return nil
}

// MediaType strips parameters from a Content-Type value and lower-cases it
func MediaType(contentType string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	return contentType
}

func isAllowedType(contentType string, allowed []string) bool {
	contentType = MediaType(contentType)
	for _, a := range allowed {
		if strings.EqualFold(contentType, a) {
			return true
		}
	}
	return false
}
