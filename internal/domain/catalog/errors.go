package catalog

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers classify failures with errors.Is against these.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrNotEmpty          = errors.New("not empty")
	ErrBadRequest        = errors.New("bad request")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Entity errors
var (
	ErrCategoryNotFound = fmt.Errorf("category %w", ErrNotFound)
	ErrProductNotFound  = fmt.Errorf("product %w", ErrNotFound)
	ErrTagNotFound      = fmt.Errorf("tag %w", ErrNotFound)
	ErrImageNotFound    = fmt.Errorf("image %w", ErrNotFound)

	ErrCategoryExists = fmt.Errorf("category %w", ErrAlreadyExists)
	ErrProductExists  = fmt.Errorf("product %w", ErrAlreadyExists)
	ErrTagExists      = fmt.Errorf("tag %w", ErrAlreadyExists)

	ErrCategoryNotEmpty = fmt.Errorf("category %w", ErrNotEmpty)

	ErrInvalidCategory    = fmt.Errorf("%w: invalid category", ErrBadRequest)
	ErrInvalidProduct     = fmt.Errorf("%w: invalid product", ErrBadRequest)
	ErrInvalidTag         = fmt.Errorf("%w: invalid tag", ErrBadRequest)
	ErrInvalidFile        = fmt.Errorf("%w: invalid file", ErrBadRequest)
	ErrInvalidContentType = fmt.Errorf("%w: unsupported content type", ErrBadRequest)
	ErrFileTooLarge       = fmt.Errorf("%w: file too large", ErrBadRequest)
	ErrImageOwnership     = fmt.Errorf("%w: image does not belong to product", ErrBadRequest)
)
