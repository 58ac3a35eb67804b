package handlers

import (
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"product-service/internal/domain/catalog"
)

// CategoryRequest is the body of POST /category
type CategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// ProductRequest is the body of POST /product. The category is named by id or
// by name; an id wins when both are given.
type ProductRequest struct {
	Name          string          `json:"name" validate:"required,max=100"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity" validate:"gte=0"`
	CategoryID    int64           `json:"categoryId" validate:"omitempty,gt=0"`
	CategoryName  string          `json:"categoryName" validate:"required_without=CategoryID,max=100"`
	Tags          []string        `json:"tags" validate:"omitempty,max=50,dive,max=100"`
}

func (p *ProductRequest) toProduct() *catalog.Product {
	return &catalog.Product{
		Name:          p.Name,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		CategoryID:    p.CategoryID,
		CategoryName:  p.CategoryName,
	}
}

// ProductUpdateRequest is the body of PUT /product. Only the fields present
// in the body are changed.
type ProductUpdateRequest struct {
	ID            int64            `json:"id" validate:"required,gt=0"`
	Name          *string          `json:"name" validate:"omitempty,max=100"`
	Price         *decimal.Decimal `json:"price"`
	StockQuantity *int             `json:"stockQuantity" validate:"omitempty,gte=0"`
	CategoryID    *int64           `json:"categoryId" validate:"omitempty,gt=0"`
	CategoryName  *string          `json:"categoryName" validate:"omitempty,max=100"`
}

// apply copies the present fields onto product. A category id takes
// precedence over a category name.
func (u *ProductUpdateRequest) apply(product *catalog.Product) {
	if u.Name != nil {
		product.Name = *u.Name
	}
	if u.Price != nil {
		product.Price = *u.Price
	}
	if u.StockQuantity != nil {
		product.StockQuantity = *u.StockQuantity
	}
	switch {
	case u.CategoryID != nil:
		product.CategoryID = *u.CategoryID
		product.CategoryName = ""
	case u.CategoryName != nil:
		product.CategoryID = 0
		product.CategoryName = *u.CategoryName
	}
}

// ProductDeleteRequest names the product to delete by id or by name
type ProductDeleteRequest struct {
	ID   int64  `json:"id" validate:"omitempty,gt=0"`
	Name string `json:"name" validate:"required_without=ID,max=100"`
}

// TagRequest is the body of POST /tag
type TagRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=255"`
}

// InventoryRequest is the body of POST /product/inventory, also served as
// /product/inventoryManager. The batch is applied atomically.
type InventoryRequest struct {
	Changes []catalog.InventoryChange `json:"changes" validate:"required,min=1,max=500,dive"`
}

// ProductImageResponse describes a stored product file
type ProductImageResponse struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"productId"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"downloadUrl"`
}

func newProductImageResponse(img *catalog.ProductImage) ProductImageResponse {
	return ProductImageResponse{
		ID:          img.ID,
		ProductID:   img.ProductID,
		FileName:    img.FileName,
		ContentType: img.ContentType,
		Size:        img.Size,
		DownloadURL: downloadURL(img),
	}
}

func downloadURL(img *catalog.ProductImage) string {
	return fmt.Sprintf("/product/%d/image/%s", img.ProductID, url.PathEscape(img.FileName))
}
